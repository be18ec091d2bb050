// Package queue defines message payloads exchanged over the message broker
// and the RabbitMQ publisher and consumer that carry them.
package queue

// Queue names.  Each event type has its own durable queue.
const (
	DealRedeemedQueue   = "deal.redeemed"
	ClaimCompletedQueue = "claim.completed"
)

// DealRedeemedEvent is published when a customer's PIN is accepted and the
// claim moves to the verified state.
type DealRedeemedEvent struct {
	EventID            string  `json:"event_id"`
	ClaimID            uint64  `json:"claim_id"`
	DealID             uint64  `json:"deal_id"`
	VendorID           uint64  `json:"vendor_id"`
	UserID             uint64  `json:"user_id"`
	DealTitle          string  `json:"deal_title"`
	DiscountPercentage int     `json:"discount_percentage"`
	SavingsAmount      float64 `json:"savings_amount"`
	Scheme             string  `json:"scheme"`
	CurrentRedemptions int     `json:"current_redemptions"`
	RedeemedAt         string  `json:"redeemed_at"`
}

// ClaimCompletedEvent is published when the bill amount is recorded and
// the claim becomes used.
type ClaimCompletedEvent struct {
	EventID         string  `json:"event_id"`
	ClaimID         uint64  `json:"claim_id"`
	DealID          uint64  `json:"deal_id"`
	UserID          uint64  `json:"user_id"`
	BillAmount      float64 `json:"bill_amount"`
	ActualSavings   float64 `json:"actual_savings"`
	NewTotalSavings float64 `json:"new_total_savings"`
	CompletedAt     string  `json:"completed_at"`
}
