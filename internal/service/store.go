// Package service holds the redemption business logic: claiming deals,
// verifying PINs, recording bills, issuing vendor PINs and searching
// nearby deals.  It depends on storage only through the Store interface.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/deal-redemption/internal/model"
	"github.com/iliyamo/deal-redemption/internal/queue"
)

// Store is the persistence contract the services consume.  Lookups of
// missing rows return repository.ErrNotFound.
type Store interface {
	GetDeal(ctx context.Context, id uint64) (*model.Deal, error)
	ListActiveDeals(ctx context.Context, now time.Time) ([]model.Deal, error)
	UpdateDealPin(ctx context.Context, id uint64, p model.DealPin) error
	// IncrementDealRedemptions returns repository.ErrRedemptionLimit when
	// the ceiling is already reached.
	IncrementDealRedemptions(ctx context.Context, id uint64) (int, error)
	// RedeemClaim writes a verified claim, inserting it when its ID is
	// zero, and bumps the redemption counter when countRedemption is set.
	// Both happen or neither does.  It returns the deal's redemption count.
	RedeemClaim(ctx context.Context, c *model.DealClaim, countRedemption bool) (int, error)
	// FinalizeClaim writes a billed claim and replaces the claim's previous
	// actual savings with the new amount in the owner's total, atomically.
	// It returns the new total.
	FinalizeClaim(ctx context.Context, c *model.DealClaim) (float64, error)

	GetUser(ctx context.Context, id uint64) (*model.User, error)
	UpdateUserSavings(ctx context.Context, id uint64, total float64) error

	GetUserClaims(ctx context.Context, userID uint64) ([]model.DealClaim, error)
	CreateClaim(ctx context.Context, c *model.DealClaim) error
	UpdateClaim(ctx context.Context, c *model.DealClaim) error

	RecordPinAttempt(ctx context.Context, a *model.PinAttempt) error
	GetPinAttempts(ctx context.Context, f model.PinAttemptFilter) ([]model.PinAttempt, error)

	ListVendors(ctx context.Context) ([]model.Vendor, error)
	GetVendorByUser(ctx context.Context, userID uint64) (*model.Vendor, error)

	CreateSystemLog(ctx context.Context, e *model.SystemLog) error
}

// EventPublisher emits domain events.  Implementations must be safe for
// concurrent use; failures are reported but never fail the caller's
// operation.
type EventPublisher interface {
	PublishDealRedeemed(ctx context.Context, ev queue.DealRedeemedEvent) error
	PublishClaimCompleted(ctx context.Context, ev queue.ClaimCompletedEvent) error
}
