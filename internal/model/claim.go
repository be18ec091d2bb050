package model

import "time"

// Claim statuses.  Only ClaimPending and ClaimUsed are produced by the
// verify/bill flow; the other two exist for records created elsewhere.
const (
	ClaimPending = "pending"
	ClaimUsed    = "used"
	ClaimClaimed = "claimed"
	ClaimExpired = "expired"
)

// DealClaim records one redemption attempt of a deal by a user, as stored
// in the `deal_claims` table.  A user may hold several claims for the same
// deal.  A pending claim with a nil VerifiedAt has not passed PIN
// verification yet; once VerifiedAt is set it awaits the bill amount.
type DealClaim struct {
	ID            uint64     `json:"id"`                      // deal_claims.id
	UserID        uint64     `json:"userId"`                  // deal_claims.user_id
	DealID        uint64     `json:"dealId"`                  // deal_claims.deal_id
	Status        string     `json:"status"`                  // deal_claims.status
	ClaimedAt     time.Time  `json:"claimedAt"`               // deal_claims.claimed_at
	VerifiedAt    *time.Time `json:"verifiedAt,omitempty"`    // deal_claims.verified_at (nullable)
	UsedAt        *time.Time `json:"usedAt,omitempty"`        // deal_claims.used_at (nullable)
	SavingsAmount float64    `json:"savingsAmount"`           // deal_claims.savings_amount
	BillAmount    *float64   `json:"billAmount,omitempty"`    // deal_claims.bill_amount (nullable)
	ActualSavings *float64   `json:"actualSavings,omitempty"` // deal_claims.actual_savings (nullable)
}

// Verified reports whether the claim has passed PIN verification.
func (c *DealClaim) Verified() bool {
	return c.VerifiedAt != nil || c.Status == ClaimUsed
}
