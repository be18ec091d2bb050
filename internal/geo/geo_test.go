package geo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/deal-redemption/internal/model"
)

var now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func TestDistanceKm(t *testing.T) {
	assert.Equal(t, 0.0, DistanceKm(19.0760, 72.8777, 19.0760, 72.8777))
	// Mumbai to Pune is roughly 120 km as the crow flies.
	assert.InDelta(t, 120, DistanceKm(19.0760, 72.8777, 18.5204, 73.8567), 5)
	// One degree of latitude is about 111.2 km.
	assert.InDelta(t, 111.19, DistanceKm(0, 0, 1, 0), 0.01)
}

func TestFormatDistance(t *testing.T) {
	assert.Equal(t, "500m", FormatDistance(0.5))
	assert.Equal(t, "0m", FormatDistance(0))
	assert.Equal(t, "999m", FormatDistance(0.999))
	assert.Equal(t, "1.0km", FormatDistance(1))
	assert.Equal(t, "5.5km", FormatDistance(5.5))
	assert.Equal(t, "15km", FormatDistance(15))
	assert.Equal(t, "16km", FormatDistance(15.6))
}

func TestBearingAndDirection(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     string
	}{
		{"north", 1, 0, "North"},
		{"east", 0, 1, "East"},
		{"south", -1, 0, "South"},
		{"west", 0, -1, "West"},
		{"northeast", 1, 1, "Northeast"},
		{"southwest", -1, -1, "Southwest"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Bearing(0, 0, tt.lat, tt.lon)
			assert.GreaterOrEqual(t, b, 0.0)
			assert.Less(t, b, 360.0)
			assert.Equal(t, tt.want, DirectionLabel(b))
		})
	}
	assert.Equal(t, "North", DirectionLabel(350))
	assert.Equal(t, "North", DirectionLabel(359.9))
}

func TestLocationHint(t *testing.T) {
	// ~0.22 km north
	assert.Equal(t, "Very close to you near Bandra West",
		LocationHint(19.0, 72.0, 19.002, 72.0, "Bandra West, Mumbai"))
	// ~1.1 km east
	assert.Equal(t, "East of you in Andheri",
		LocationHint(19.0, 72.0, 19.0, 72.0105, " Andheri , Mumbai"))
	// ~5.6 km south, no address
	assert.Equal(t, "5.6km South",
		LocationHint(19.0, 72.0, 18.95, 72.0, ""))
	assert.Equal(t, "Very close to you", LocationHint(19.0, 72.0, 19.0, 72.0, ""))
}

func baseDeal() model.Deal {
	return model.Deal{
		ID:                 1,
		DiscountPercentage: 10,
		ViewCount:          0,
		ValidUntil:         now.Add(30 * 24 * time.Hour),
		RequiredMembership: model.MembershipPremium,
	}
}

func TestRelevanceScoreDistanceMonotonic(t *testing.T) {
	d := baseDeal()
	prev := RelevanceScore(d, 0, now)
	assert.Equal(t, 100, prev)
	for _, km := range []float64{1, 2, 4, 8, 10, 12, 50} {
		s := RelevanceScore(d, km, now)
		assert.LessOrEqual(t, s, prev)
		prev = s
	}
	assert.Equal(t, 95, RelevanceScore(d, 1, now))
	assert.Equal(t, 50, RelevanceScore(d, 10, now))
	assert.Equal(t, 50, RelevanceScore(d, 40, now))
}

func TestRelevanceScoreDiscountThresholds(t *testing.T) {
	d := baseDeal()
	score := func(pct int) int {
		d.DiscountPercentage = pct
		return RelevanceScore(d, 6, now)
	}
	assert.Less(t, score(19), score(20))
	assert.Less(t, score(29), score(30))
	assert.Less(t, score(49), score(50))
	assert.Equal(t, score(20), score(29))
}

func TestRelevanceScoreBonuses(t *testing.T) {
	d := baseDeal()
	d.ViewCount = 101
	assert.Equal(t, 100-40+15, RelevanceScore(d, 8, now))

	d = baseDeal()
	d.ValidUntil = now.Add(12 * time.Hour)
	assert.Equal(t, 70, RelevanceScore(d, 8, now))
	d.ValidUntil = now.Add(60 * time.Hour)
	assert.Equal(t, 65, RelevanceScore(d, 8, now))

	d = baseDeal()
	d.RequiredMembership = model.MembershipBasic
	assert.Equal(t, 65, RelevanceScore(d, 8, now))

	d.DiscountPercentage = 70
	d.ViewCount = 500
	d.ValidUntil = now.Add(time.Hour)
	assert.Equal(t, 100, RelevanceScore(d, 0, now))
}

func TestRank(t *testing.T) {
	vendorAt := func(id uint64, lat, lon float64) model.Vendor {
		return model.Vendor{ID: id, BusinessName: "v", Address: "Area, City", Latitude: ptr(lat), Longitude: ptr(lon)}
	}
	mk := func(id uint64, cat string, pct int) model.Deal {
		d := baseDeal()
		d.ID, d.Category, d.DiscountPercentage = id, cat, pct
		return d
	}
	cands := []Candidate{
		{Deal: mk(1, "food", 10), Vendor: vendorAt(1, 19.01, 72.0)},
		{Deal: mk(2, "food", 60), Vendor: vendorAt(2, 19.02, 72.0)},
		{Deal: mk(3, "spa", 60), Vendor: vendorAt(3, 19.0, 72.0)},
		{Deal: mk(4, "food", 60), Vendor: vendorAt(4, 20.0, 72.0)},
		{Deal: mk(5, "food", 60), Vendor: model.Vendor{ID: 5}},
	}

	q := Query{Latitude: 19.0, Longitude: 72.0, MaxDistanceKm: 10, Categories: []string{"Food"}, Limit: 1}
	got, total := Rank(q, cands, now)
	assert.Equal(t, 2, total)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(2), got[0].ID)
	assert.Equal(t, 2.22, got[0].Distance)
	assert.Equal(t, "2.2km", got[0].DistanceText)
	assert.Equal(t, "2.2km North in Area", got[0].LocationHint)

	q.Categories = nil
	q.Limit = 10
	got, total = Rank(q, cands, now)
	assert.Equal(t, 3, total)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(3), got[0].ID)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].RelevanceScore, got[i].RelevanceScore)
	}
}
