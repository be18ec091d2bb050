package model

import "time"

// Vendor is a store that publishes deals.  Coordinates are optional; deals
// of vendors without coordinates never appear in nearby searches.
type Vendor struct {
	ID           uint64    `json:"id"`                  // vendors.id
	UserID       uint64    `json:"-"`                   // vendors.user_id
	BusinessName string    `json:"businessName"`        // vendors.business_name
	Address      string    `json:"address"`             // vendors.address
	Latitude     *float64  `json:"latitude,omitempty"`  // vendors.latitude (nullable)
	Longitude    *float64  `json:"longitude,omitempty"` // vendors.longitude (nullable)
	IsApproved   bool      `json:"-"`                   // vendors.is_approved
	CreatedAt    time.Time `json:"-"`                   // vendors.created_at
}

// HasLocation reports whether both coordinates are known.
func (v *Vendor) HasLocation() bool {
	return v.Latitude != nil && v.Longitude != nil
}

// VendorSnippet is the subset of vendor data embedded in location results.
type VendorSnippet struct {
	ID           uint64  `json:"id"`
	BusinessName string  `json:"businessName"`
	Address      string  `json:"address"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

// LocationDeal is a deal enriched with distance and relevance relative to
// a user's position.  It is computed per query and never persisted.
type LocationDeal struct {
	Deal
	Vendor         VendorSnippet `json:"vendor"`
	Distance       float64       `json:"distance"`
	DistanceText   string        `json:"distanceText"`
	LocationHint   string        `json:"locationHint"`
	RelevanceScore int           `json:"relevanceScore"`
}
