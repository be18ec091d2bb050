package model

import "time"

// Deal represents a time-limited discount offer published by a vendor, as
// stored in the `deals` table.  PIN material is never serialised to JSON;
// vendors read their PIN through the dedicated current-pin endpoint.
//
// Fields:
//
//	VerificationPin    – plaintext legacy PIN or hex scrypt hash.
//	PinSalt            – hex salt; nil marks a legacy plaintext PIN.
//	PinCreatedAt       – when the current PIN was issued.
//	PinExpiresAt       – after this instant the static PIN no longer verifies.
//	MaxRedemptions     – optional ceiling on verified redemptions.
//	CurrentRedemptions – number of verified redemptions so far.
//	RequiredMembership – minimum membership tier allowed to claim.
type Deal struct {
	ID                 uint64     `json:"id"`                        // deals.id
	VendorID           uint64     `json:"vendorId"`                  // deals.vendor_id
	Title              string     `json:"title"`                     // deals.title
	Description        string     `json:"description"`               // deals.description
	Category           string     `json:"category"`                  // deals.category
	DiscountPercentage int        `json:"discountPercentage"`        // deals.discount_percentage
	OriginalPrice      *float64   `json:"originalPrice,omitempty"`   // deals.original_price (nullable)
	DiscountedPrice    *float64   `json:"discountedPrice,omitempty"` // deals.discounted_price (nullable)
	ValidUntil         time.Time  `json:"validUntil"`                // deals.valid_until
	IsActive           bool       `json:"isActive"`                  // deals.is_active
	IsApproved         bool       `json:"isApproved"`                // deals.is_approved
	MaxRedemptions     *int       `json:"maxRedemptions,omitempty"`  // deals.max_redemptions (nullable)
	CurrentRedemptions int        `json:"currentRedemptions"`        // deals.current_redemptions
	RequiredMembership Membership `json:"requiredMembership"`        // deals.required_membership
	ViewCount          int        `json:"viewCount"`                 // deals.view_count
	VerificationPin    string     `json:"-"`                         // deals.verification_pin
	PinSalt            *string    `json:"-"`                         // deals.pin_salt (nullable)
	PinCreatedAt       *time.Time `json:"-"`                         // deals.pin_created_at (nullable)
	PinExpiresAt       *time.Time `json:"-"`                         // deals.pin_expires_at (nullable)
	CreatedAt          time.Time  `json:"createdAt"`                 // deals.created_at
	UpdatedAt          time.Time  `json:"updatedAt"`                 // deals.updated_at
}

// Expired reports whether the deal's hard expiry has passed at now.
func (d *Deal) Expired(now time.Time) bool {
	return !d.ValidUntil.After(now)
}

// RedemptionLimitReached reports whether the optional ceiling is exhausted.
func (d *Deal) RedemptionLimitReached() bool {
	return d.MaxRedemptions != nil && d.CurrentRedemptions >= *d.MaxRedemptions
}

// DealPin is the partial update applied when a vendor issues a new PIN.
type DealPin struct {
	VerificationPin string
	PinSalt         *string
	PinCreatedAt    *time.Time
	PinExpiresAt    *time.Time
}
