package service

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/iliyamo/deal-redemption/internal/geo"
	"github.com/iliyamo/deal-redemption/internal/model"
	"github.com/iliyamo/deal-redemption/internal/repository"
)

// Nearby search defaults.
const (
	DefaultSearchRadiusKm = 10
	DefaultNearbyLimit    = 20
	MaxNearbyLimit        = 100
)

// DealService answers read-only deal queries.
type DealService struct {
	Store Store
	Now   func() time.Time
}

// NewDealService wires a DealService.
func NewDealService(store Store) *DealService {
	return &DealService{Store: store, Now: func() time.Time { return time.Now().UTC() }}
}

// ListActive returns every redeemable deal.
func (s *DealService) ListActive(ctx context.Context) ([]model.Deal, error) {
	deals, err := s.Store.ListActiveDeals(ctx, s.Now())
	if err != nil {
		return nil, errors.Wrap(err, "list deals")
	}
	if deals == nil {
		deals = []model.Deal{}
	}
	return deals, nil
}

// Get returns one deal that is active, approved and not expired.  Any
// other deal is reported as ErrDealNotFound.
func (s *DealService) Get(ctx context.Context, id uint64) (*model.Deal, error) {
	d, err := s.Store.GetDeal(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrDealNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load deal")
	}
	if checkRedeemable(d, s.Now()) != nil {
		return nil, ErrDealNotFound
	}
	return d, nil
}

// Nearby ranks active deals around the query point.  It fills in the
// default radius and limit and returns the ranked page plus the number of
// matches before truncation.
func (s *DealService) Nearby(ctx context.Context, q geo.Query) ([]model.LocationDeal, int, error) {
	if q.Latitude < -90 || q.Latitude > 90 || q.Longitude < -180 || q.Longitude > 180 {
		return nil, 0, ErrInvalidLocation
	}
	if q.MaxDistanceKm <= 0 {
		q.MaxDistanceKm = DefaultSearchRadiusKm
	}
	if q.Limit <= 0 {
		q.Limit = DefaultNearbyLimit
	}
	if q.Limit > MaxNearbyLimit {
		q.Limit = MaxNearbyLimit
	}

	now := s.Now()
	deals, err := s.Store.ListActiveDeals(ctx, now)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list deals")
	}
	vendors, err := s.Store.ListVendors(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list vendors")
	}
	byID := make(map[uint64]model.Vendor, len(vendors))
	for _, v := range vendors {
		byID[v.ID] = v
	}
	candidates := make([]geo.Candidate, 0, len(deals))
	for _, d := range deals {
		if v, ok := byID[d.VendorID]; ok {
			candidates = append(candidates, geo.Candidate{Deal: d, Vendor: v})
		}
	}
	ranked, total := geo.Rank(q, candidates, now)
	return ranked, total, nil
}
