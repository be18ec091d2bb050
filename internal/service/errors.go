package service

import (
	"errors"
	"time"

	"github.com/iliyamo/deal-redemption/internal/pin"
)

var (
	// ErrInvalidFormat is returned for PIN input that is not four digits.
	ErrInvalidFormat = pin.ErrInvalidFormat
	// ErrDealNotFound is returned when the deal id does not exist.
	ErrDealNotFound = errors.New("deal not found")
	// ErrDealUnavailable matches every *DealUnavailableError.
	ErrDealUnavailable = errors.New("deal unavailable")
	// ErrRateLimited matches every *RateLimitError.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidPin is returned when a well-formed PIN matches no scheme.
	ErrInvalidPin = errors.New("invalid PIN")
	// ErrMembershipInsufficient is returned when the caller's tier is below
	// the deal's required membership.
	ErrMembershipInsufficient = errors.New("membership insufficient")
	// ErrClaimNotFound is returned by UpdateBill when the user never
	// claimed the deal.
	ErrClaimNotFound = errors.New("claim not found")
	// ErrClaimNotVerified is returned by UpdateBill when the newest claim
	// has not passed PIN verification.
	ErrClaimNotVerified = errors.New("claim not verified")
	// ErrInvalidBill is returned when the bill or savings amount is
	// missing or not positive.
	ErrInvalidBill = errors.New("invalid bill")
	// ErrAttemptLogUnavailable is returned when the attempt history cannot
	// be read or written.  Verification fails closed.
	ErrAttemptLogUnavailable = errors.New("attempt log unavailable")
	// ErrInvalidLocation is returned for coordinates outside the valid range.
	ErrInvalidLocation = errors.New("invalid location")
)

// DealUnavailableError explains why a deal cannot be claimed or redeemed.
type DealUnavailableError struct {
	Reason string
}

func (e *DealUnavailableError) Error() string { return e.Reason }

// Is makes errors.Is(err, ErrDealUnavailable) hold.
func (e *DealUnavailableError) Is(target error) bool { return target == ErrDealUnavailable }

// Reasons carried by DealUnavailableError.
const (
	ReasonInactive  = "Deal is not active"
	ReasonExpired   = "Deal has expired"
	ReasonExhausted = "Deal has reached its redemption limit"
)

// RateLimitError is returned when too many failed attempts were made.
// NextAttemptAt tells the caller when to retry.
type RateLimitError struct {
	Message       string
	NextAttemptAt *time.Time
}

func (e *RateLimitError) Error() string { return e.Message }

// Is makes errors.Is(err, ErrRateLimited) hold.
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

func unavailable(reason string) error { return &DealUnavailableError{Reason: reason} }
