package geo

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/deal-redemption/internal/model"
)

// RelevanceScore combines proximity, discount depth, popularity, urgency
// and accessibility into a score clamped to [0, 100].
func RelevanceScore(deal model.Deal, distanceKm float64, now time.Time) int {
	score := 100.0
	score -= math.Min(distanceKm*5, 50)

	switch {
	case deal.DiscountPercentage >= 50:
		score += 20
	case deal.DiscountPercentage >= 30:
		score += 10
	case deal.DiscountPercentage >= 20:
		score += 5
	}

	switch {
	case deal.ViewCount > 100:
		score += 15
	case deal.ViewCount > 50:
		score += 10
	case deal.ViewCount > 20:
		score += 5
	}

	days := deal.ValidUntil.Sub(now).Hours() / 24
	switch {
	case days <= 1:
		score += 10
	case days <= 3:
		score += 5
	}

	if deal.RequiredMembership == "" || deal.RequiredMembership.Rank() == 1 {
		score += 5
	}

	return int(math.Max(0, math.Min(100, math.Round(score))))
}

// Candidate is a deal together with the vendor that publishes it.
type Candidate struct {
	Deal   model.Deal
	Vendor model.Vendor
}

// Query describes a nearby search.
type Query struct {
	Latitude      float64
	Longitude     float64
	MaxDistanceKm float64
	Categories    []string
	Limit         int
}

// Rank filters candidates to those with a known vendor location within
// MaxDistanceKm (and in Categories when non-empty), scores them, sorts by
// descending relevance and truncates to Limit.  It returns the truncated
// list and the number of matches before truncation.
func Rank(q Query, candidates []Candidate, now time.Time) ([]model.LocationDeal, int) {
	cats := make(map[string]bool, len(q.Categories))
	for _, c := range q.Categories {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			cats[c] = true
		}
	}

	out := make([]model.LocationDeal, 0, len(candidates))
	for _, cand := range candidates {
		v := cand.Vendor
		if !v.HasLocation() {
			continue
		}
		if len(cats) > 0 && !cats[strings.ToLower(cand.Deal.Category)] {
			continue
		}
		lat, lon := *v.Latitude, *v.Longitude
		d := DistanceKm(q.Latitude, q.Longitude, lat, lon)
		if d > q.MaxDistanceKm {
			continue
		}
		out = append(out, model.LocationDeal{
			Deal: cand.Deal,
			Vendor: model.VendorSnippet{
				ID:           v.ID,
				BusinessName: v.BusinessName,
				Address:      v.Address,
				Latitude:     lat,
				Longitude:    lon,
			},
			Distance:       math.Round(d*100) / 100,
			DistanceText:   FormatDistance(d),
			LocationHint:   LocationHint(q.Latitude, q.Longitude, lat, lon, v.Address),
			RelevanceScore: RelevanceScore(cand.Deal, d, now),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RelevanceScore != out[j].RelevanceScore {
			return out[i].RelevanceScore > out[j].RelevanceScore
		}
		return out[i].Distance < out[j].Distance
	})

	total := len(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, total
}
