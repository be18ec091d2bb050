package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/iliyamo/deal-redemption/internal/model"
	"github.com/iliyamo/deal-redemption/internal/pin"
	"github.com/iliyamo/deal-redemption/internal/repository"
)

// PinService serves the vendor side of PIN handling: reading the rotating
// PIN to display and replacing the static PIN.
type PinService struct {
	Store   Store
	Codec   *pin.Codec
	Rotator *pin.Rotator
	Now     func() time.Time
}

// NewPinService wires a PinService.
func NewPinService(store Store, codec *pin.Codec, rotator *pin.Rotator) *PinService {
	return &PinService{
		Store:   store,
		Codec:   codec,
		Rotator: rotator,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// CurrentPin is what the vendor's screen shows.
type CurrentPin struct {
	DealID                  uint64
	DealTitle               string
	CurrentPin              string
	NextRotationAt          time.Time
	RotationIntervalSeconds int
	IsActive                bool
}

// IssuedPin is returned once, right after a static PIN is set.
type IssuedPin struct {
	DealID    uint64
	Pin       string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ownedDeal loads a deal and checks that it belongs to the vendor account
// of userID.  Other vendors' deals yield repository.ErrForbidden.
func (s *PinService) ownedDeal(ctx context.Context, userID, dealID uint64) (*model.Deal, error) {
	deal, err := s.Store.GetDeal(ctx, dealID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrDealNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load deal")
	}
	vendor, err := s.Store.GetVendorByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, repository.ErrForbidden
	}
	if err != nil {
		return nil, errors.Wrap(err, "load vendor")
	}
	if deal.VendorID != vendor.ID {
		return nil, repository.ErrForbidden
	}
	return deal, nil
}

// CurrentPin returns the rotating PIN of a deal owned by the caller.
func (s *PinService) CurrentPin(ctx context.Context, userID, dealID uint64) (*CurrentPin, error) {
	deal, err := s.ownedDeal(ctx, userID, dealID)
	if err != nil {
		return nil, err
	}
	rot := s.Rotator.Current(deal.ID, s.Now())
	return &CurrentPin{
		DealID:                  deal.ID,
		DealTitle:               deal.Title,
		CurrentPin:              rot.Pin,
		NextRotationAt:          rot.NextRotationAt,
		RotationIntervalSeconds: rot.IntervalSeconds,
		IsActive:                deal.IsActive,
	}, nil
}

// IssuePin replaces the deal's static PIN with requested, or with a random
// PIN when requested is empty.  The PIN is stored hashed and salted and
// returned in plaintext only here.
func (s *PinService) IssuePin(ctx context.Context, userID, dealID uint64, requested string) (*IssuedPin, error) {
	deal, err := s.ownedDeal(ctx, userID, dealID)
	if err != nil {
		return nil, err
	}
	code := strings.TrimSpace(requested)
	if code == "" {
		if code, err = pin.Generate(); err != nil {
			return nil, err
		}
	}
	if err := pin.ValidateFormat(code); err != nil {
		return nil, ErrInvalidFormat
	}
	h, err := s.Codec.Hash(code, s.Now())
	if err != nil {
		return nil, err
	}
	salt := h.Salt
	if err := s.Store.UpdateDealPin(ctx, deal.ID, model.DealPin{
		VerificationPin: h.Hash,
		PinSalt:         &salt,
		PinCreatedAt:    h.CreatedAt,
		PinExpiresAt:    h.ExpiresAt,
	}); err != nil {
		return nil, errors.Wrap(err, "store pin")
	}
	zerolog.Ctx(ctx).Info().Uint64("deal_id", deal.ID).Msg("static pin issued")
	return &IssuedPin{DealID: deal.ID, Pin: code, CreatedAt: *h.CreatedAt, ExpiresAt: *h.ExpiresAt}, nil
}
