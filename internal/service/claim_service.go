package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/deal-redemption/internal/metrics"
	"github.com/iliyamo/deal-redemption/internal/model"
	"github.com/iliyamo/deal-redemption/internal/pin"
	"github.com/iliyamo/deal-redemption/internal/queue"
	"github.com/iliyamo/deal-redemption/internal/ratelimit"
	"github.com/iliyamo/deal-redemption/internal/repository"
)

// ClaimService drives a claim through pending, verified and used.
type ClaimService struct {
	Store    Store
	Verifier *pin.Verifier
	Policy   ratelimit.Policy
	Locker   Locker
	Events   EventPublisher
	Now      func() time.Time
}

// NewClaimService wires a ClaimService.  A nil locker defaults to an
// in-process KeyedMutex and nil events to queue.NopPublisher.
func NewClaimService(store Store, verifier *pin.Verifier, policy ratelimit.Policy, locker Locker, events EventPublisher) *ClaimService {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &ClaimService{
		Store:    store,
		Verifier: verifier,
		Policy:   policy,
		Locker:   locker,
		Events:   events,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ClaimService) loadDeal(ctx context.Context, id uint64) (*model.Deal, error) {
	d, err := s.Store.GetDeal(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrDealNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load deal")
	}
	return d, nil
}

// checkRedeemable rejects deals that are switched off or past validUntil.
func checkRedeemable(d *model.Deal, now time.Time) error {
	if !d.IsActive || !d.IsApproved {
		return unavailable(ReasonInactive)
	}
	if d.Expired(now) {
		return unavailable(ReasonExpired)
	}
	return nil
}

// ClaimDeal creates a new pending claim.  Every call creates a new row.
func (s *ClaimService) ClaimDeal(ctx context.Context, userID, dealID uint64) (*model.DealClaim, error) {
	now := s.Now()
	deal, err := s.loadDeal(ctx, dealID)
	if err != nil {
		return nil, err
	}
	if err := checkRedeemable(deal, now); err != nil {
		return nil, err
	}
	if deal.RedemptionLimitReached() {
		return nil, unavailable(ReasonExhausted)
	}
	user, err := s.Store.GetUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load user")
	}
	if !user.Membership.Satisfies(deal.RequiredMembership) {
		return nil, ErrMembershipInsufficient
	}

	claim := &model.DealClaim{
		UserID:    userID,
		DealID:    dealID,
		Status:    model.ClaimPending,
		ClaimedAt: now,
	}
	if err := s.Store.CreateClaim(ctx, claim); err != nil {
		return nil, errors.Wrap(err, "create claim")
	}
	metrics.ClaimTransitions.WithLabelValues(metrics.TransitionClaimed).Inc()

	_ = s.audit(ctx, &model.SystemLog{
		Level:     "info",
		Action:    "deal_claimed",
		Message:   fmt.Sprintf("User claimed deal: %s", deal.Title),
		UserID:    &userID,
		Metadata:  map[string]any{"dealId": dealID, "claimId": claim.ID},
		CreatedAt: now,
	})
	return claim, nil
}

// audit writes a system log entry.  Callers may discard the error; a
// failed audit write never fails the operation that triggered it.
func (s *ClaimService) audit(ctx context.Context, e *model.SystemLog) error {
	if err := s.Store.CreateSystemLog(ctx, e); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("action", e.Action).Msg("system log write failed")
		return err
	}
	return nil
}

// VerifyPinInput is one PIN submission at the point of sale.
type VerifyPinInput struct {
	DealID    uint64
	UserID    uint64
	PIN       string
	IP        string
	UserAgent string
}

// VerifyPinResult is returned when the PIN was accepted.
type VerifyPinResult struct {
	Message            string
	SavingsAmount      float64
	ClaimID            uint64
	Status             string
	DealTitle          string
	DiscountPercentage int
	Scheme             string
}

const msgRedeemed = "PIN verified successfully! Deal redeemed."

// VerifyPin checks a PIN submission and, when accepted, marks the caller's
// pending claim verified.  Every submission for an existing deal is
// appended to the attempt log before VerifyPin returns.
func (s *ClaimService) VerifyPin(ctx context.Context, in VerifyPinInput) (*VerifyPinResult, error) {
	log := zerolog.Ctx(ctx).With().Uint64("deal_id", in.DealID).Uint64("user_id", in.UserID).Logger()
	now := s.Now()

	deal, err := s.loadDeal(ctx, in.DealID)
	if err != nil {
		return nil, err
	}

	schemeName, err := s.checkPin(ctx, deal, in, now)
	if err != nil {
		return nil, err
	}

	claim, count, err := s.redeem(ctx, deal, in.UserID, now)
	if err != nil {
		return nil, err
	}

	_ = s.Events.PublishDealRedeemed(ctx, queue.DealRedeemedEvent{
		EventID:            uuid.NewString(),
		ClaimID:            claim.ID,
		DealID:             deal.ID,
		VendorID:           deal.VendorID,
		UserID:             in.UserID,
		DealTitle:          deal.Title,
		DiscountPercentage: deal.DiscountPercentage,
		SavingsAmount:      claim.SavingsAmount,
		Scheme:             schemeName,
		CurrentRedemptions: count,
		RedeemedAt:         now.Format(time.RFC3339),
	})
	log.Info().Uint64("claim_id", claim.ID).Str("scheme", schemeName).Msg("pin verified")

	return &VerifyPinResult{
		Message:            msgRedeemed,
		SavingsAmount:      claim.SavingsAmount,
		ClaimID:            claim.ID,
		Status:             claim.Status,
		DealTitle:          deal.Title,
		DiscountPercentage: deal.DiscountPercentage,
		Scheme:             schemeName,
	}, nil
}

// checkPin gates, compares and logs one submission.  The history read,
// the comparison and the log append run under a lock on the lockout scope
// so concurrent guesses cannot all observe the same failure count.
func (s *ClaimService) checkPin(ctx context.Context, deal *model.Deal, in VerifyPinInput, now time.Time) (string, error) {
	log := zerolog.Ctx(ctx).With().Uint64("deal_id", in.DealID).Uint64("user_id", in.UserID).Logger()
	code := strings.TrimSpace(in.PIN)

	unlock, err := s.Locker.Lock(ctx, fmt.Sprintf("pin:%d:%d:%s", in.DealID, in.UserID, in.IP))
	if err != nil {
		return "", errors.Wrap(err, "lock pin attempts")
	}
	defer unlock()

	if err := pin.ValidateFormat(code); err != nil {
		metrics.PinVerifications.WithLabelValues("none", metrics.OutcomeBadFormat).Inc()
		if err := s.recordAttempt(ctx, in, false, now); err != nil {
			return "", err
		}
		return "", ErrInvalidFormat
	}

	if err := s.checkVerifiable(ctx, deal, in.UserID, now); err != nil {
		metrics.PinVerifications.WithLabelValues("none", metrics.OutcomeUnavailable).Inc()
		if err := s.recordAttempt(ctx, in, false, now); err != nil {
			return "", err
		}
		return "", err
	}

	history, err := s.Store.GetPinAttempts(ctx, model.PinAttemptFilter{
		DealID:    in.DealID,
		UserID:    &in.UserID,
		IPAddress: in.IP,
		Since:     now.Add(-s.Policy.Window),
	})
	if err != nil {
		log.Error().Err(err).Msg("read pin attempts")
		_ = s.recordAttempt(ctx, in, false, now)
		return "", ErrAttemptLogUnavailable
	}
	attempts := make([]ratelimit.Attempt, len(history))
	for i, a := range history {
		attempts[i] = ratelimit.Attempt{AttemptedAt: a.AttemptedAt, Success: a.Success}
	}
	if dec := s.Policy.Check(attempts, now); !dec.Allowed {
		// The refused attempt is logged as a failure too; report the retry
		// time with it counted.
		dec = s.Policy.Check(append(attempts, ratelimit.Attempt{AttemptedAt: now}), now)
		metrics.PinRateLimited.Inc()
		metrics.PinVerifications.WithLabelValues("none", metrics.OutcomeRateLimited).Inc()
		log.Warn().Int("failures", dec.Failures).Str("ip", in.IP).Msg("pin verification rate limited")
		if err := s.recordAttempt(ctx, in, false, now); err != nil {
			return "", err
		}
		return "", &RateLimitError{Message: dec.Message, NextAttemptAt: dec.NextAttemptAt}
	}

	static := pin.StaticScheme(deal.VerificationPin, deal.PinSalt, deal.PinCreatedAt, deal.PinExpiresAt)
	res, matched := s.Verifier.Match(code, now, pin.Rotating{DealID: deal.ID}, static)
	schemeName := "none"
	if matched != nil {
		schemeName = matched.Name()
	}
	if _, ok := static.(pin.Legacy); ok {
		log.Warn().Str("scheme", "legacy").Bool("matched", res.Valid).Msg("legacy plaintext PIN checked")
	}

	if err := s.recordAttempt(ctx, in, res.Valid, now); err != nil {
		return "", err
	}
	if !res.Valid {
		label := schemeName
		if static != nil {
			label = static.Name()
		}
		metrics.PinVerifications.WithLabelValues(label, metrics.OutcomeInvalid).Inc()
		return "", ErrInvalidPin
	}
	metrics.PinVerifications.WithLabelValues(schemeName, metrics.OutcomeSuccess).Inc()
	return schemeName, nil
}

// checkVerifiable extends checkRedeemable with the redemption ceiling.  A
// deal at its ceiling still accepts re-verification of a claim that was
// already counted.
func (s *ClaimService) checkVerifiable(ctx context.Context, deal *model.Deal, userID uint64, now time.Time) error {
	if err := checkRedeemable(deal, now); err != nil {
		return err
	}
	if !deal.RedemptionLimitReached() {
		return nil
	}
	claims, err := s.Store.GetUserClaims(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "load claims")
	}
	if c := pendingClaim(claims, deal.ID); c != nil && c.VerifiedAt != nil {
		return nil
	}
	return unavailable(ReasonExhausted)
}

// pendingClaim picks the claim a verification applies to: the user's
// verified pending claim for the deal if there is one, otherwise the
// newest pending claim.  claims is ordered newest first.
func pendingClaim(claims []model.DealClaim, dealID uint64) *model.DealClaim {
	var newest *model.DealClaim
	for i := range claims {
		c := &claims[i]
		if c.DealID != dealID || c.Status != model.ClaimPending {
			continue
		}
		if c.VerifiedAt != nil {
			return c
		}
		if newest == nil {
			newest = c
		}
	}
	return newest
}

func (s *ClaimService) recordAttempt(ctx context.Context, in VerifyPinInput, success bool, now time.Time) error {
	uid := in.UserID
	a := &model.PinAttempt{
		DealID:      in.DealID,
		UserID:      &uid,
		IPAddress:   in.IP,
		UserAgent:   in.UserAgent,
		Success:     success,
		AttemptedAt: now,
	}
	if err := s.Store.RecordPinAttempt(ctx, a); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Uint64("deal_id", in.DealID).Msg("record pin attempt")
		return ErrAttemptLogUnavailable
	}
	return nil
}

// redeem reuses the user's pending claim for the deal or creates one, then
// marks it verified.  The redemption counter moves only on a claim's first
// verification, in the same store transaction as the claim write.
func (s *ClaimService) redeem(ctx context.Context, deal *model.Deal, userID uint64, now time.Time) (*model.DealClaim, int, error) {
	unlock, err := s.Locker.Lock(ctx, fmt.Sprintf("claim:%d:%d", deal.ID, userID))
	if err != nil {
		return nil, 0, errors.Wrap(err, "lock claim")
	}
	defer unlock()

	claims, err := s.Store.GetUserClaims(ctx, userID)
	if err != nil {
		return nil, 0, errors.Wrap(err, "load claims")
	}
	claim := model.DealClaim{
		UserID:    userID,
		DealID:    deal.ID,
		Status:    model.ClaimPending,
		ClaimedAt: now,
	}
	existing := pendingClaim(claims, deal.ID)
	if existing != nil {
		claim = *existing
	}
	first := claim.VerifiedAt == nil

	claim.SavingsAmount = provisionalSavings(deal)
	if first {
		verifiedAt := now
		claim.VerifiedAt = &verifiedAt
	}
	count, err := s.Store.RedeemClaim(ctx, &claim, first)
	if errors.Is(err, repository.ErrRedemptionLimit) {
		return nil, 0, unavailable(ReasonExhausted)
	}
	if err != nil {
		return nil, 0, errors.Wrap(err, "redeem claim")
	}
	if existing == nil {
		metrics.ClaimTransitions.WithLabelValues(metrics.TransitionClaimed).Inc()
	}
	if first {
		metrics.ClaimTransitions.WithLabelValues(metrics.TransitionVerified).Inc()
	}
	return &claim, count, nil
}

// provisionalSavings is originalPrice - discountedPrice when both are set,
// otherwise zero until the bill is recorded.
func provisionalSavings(d *model.Deal) float64 {
	if d.OriginalPrice == nil || d.DiscountedPrice == nil {
		return 0
	}
	diff := decimal.NewFromFloat(*d.OriginalPrice).Sub(decimal.NewFromFloat(*d.DiscountedPrice))
	if diff.IsNegative() {
		return 0
	}
	return diff.Round(2).InexactFloat64()
}

// UpdateBillInput carries the amounts entered after payment.
type UpdateBillInput struct {
	DealID     uint64
	UserID     uint64
	BillAmount float64
	Savings    float64
}

// UpdateBillResult reports the finalised claim and the user's new total.
type UpdateBillResult struct {
	ClaimID         uint64
	BillAmount      float64
	ActualSavings   float64
	NewTotalSavings float64
}

// UpdateBill finalises the newest verified claim of the user for the deal.
// Resubmitting replaces the previous savings in the user's total rather
// than adding to it.
func (s *ClaimService) UpdateBill(ctx context.Context, in UpdateBillInput) (*UpdateBillResult, error) {
	if in.BillAmount <= 0 || in.Savings <= 0 {
		return nil, ErrInvalidBill
	}
	now := s.Now()

	unlock, err := s.Locker.Lock(ctx, fmt.Sprintf("claim:%d:%d", in.DealID, in.UserID))
	if err != nil {
		return nil, errors.Wrap(err, "lock claim")
	}
	defer unlock()

	claims, err := s.Store.GetUserClaims(ctx, in.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "load claims")
	}
	var claim *model.DealClaim
	found := false
	for i := range claims {
		if claims[i].DealID != in.DealID {
			continue
		}
		found = true
		if claims[i].Verified() {
			claim = &claims[i]
			break
		}
	}
	if !found {
		return nil, ErrClaimNotFound
	}
	if claim == nil {
		return nil, ErrClaimNotVerified
	}

	billF := decimal.NewFromFloat(in.BillAmount).Round(2).InexactFloat64()
	savingsF := decimal.NewFromFloat(in.Savings).Round(2).InexactFloat64()
	claim.BillAmount = &billF
	claim.ActualSavings = &savingsF
	claim.Status = model.ClaimUsed
	usedAt := now
	claim.UsedAt = &usedAt
	totalF, err := s.Store.FinalizeClaim(ctx, claim)
	if err != nil {
		return nil, errors.Wrap(err, "finalize claim")
	}
	metrics.ClaimTransitions.WithLabelValues(metrics.TransitionBilled).Inc()

	_ = s.Events.PublishClaimCompleted(ctx, queue.ClaimCompletedEvent{
		EventID:         uuid.NewString(),
		ClaimID:         claim.ID,
		DealID:          in.DealID,
		UserID:          in.UserID,
		BillAmount:      billF,
		ActualSavings:   savingsF,
		NewTotalSavings: totalF,
		CompletedAt:     now.Format(time.RFC3339),
	})

	return &UpdateBillResult{
		ClaimID:         claim.ID,
		BillAmount:      billF,
		ActualSavings:   savingsF,
		NewTotalSavings: totalF,
	}, nil
}

// ListClaims returns the user's claims, newest first.
func (s *ClaimService) ListClaims(ctx context.Context, userID uint64) ([]model.DealClaim, error) {
	claims, err := s.Store.GetUserClaims(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load claims")
	}
	if claims == nil {
		claims = []model.DealClaim{}
	}
	return claims, nil
}
