package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/deal-redemption/internal/geo"
	"github.com/iliyamo/deal-redemption/internal/model"
)

func TestDealServiceNearby(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	svc := NewDealService(f.store)
	svc.Now = func() time.Time { return t0 }

	nowhere := f.store.AddVendor(model.Vendor{BusinessName: "No address", IsApproved: true})
	f.store.AddDeal(model.Deal{VendorID: nowhere, Title: "hidden", IsActive: true, IsApproved: true, ValidUntil: t0.Add(time.Hour)})
	f.store.AddDeal(model.Deal{VendorID: f.vendorID, Title: "expired", IsActive: true, IsApproved: true, ValidUntil: t0})

	deals, total, err := svc.Nearby(ctx, geo.Query{Latitude: 19.06, Longitude: 72.84})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, deals, 1)
	assert.Equal(t, f.dealID, deals[0].ID)
	assert.Equal(t, "Spice Route", deals[0].Vendor.BusinessName)
	assert.Contains(t, deals[0].LocationHint, "Bandra West")

	_, _, err = svc.Nearby(ctx, geo.Query{Latitude: 91})
	assert.ErrorIs(t, err, ErrInvalidLocation)
}

func TestDealServiceListAndGet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	svc := NewDealService(f.store)
	svc.Now = func() time.Time { return t0 }
	f.store.AddDeal(model.Deal{VendorID: f.vendorID, Title: "off", IsActive: false, IsApproved: true, ValidUntil: t0.Add(time.Hour)})

	deals, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, f.dealID, deals[0].ID)

	d, err := svc.Get(ctx, f.dealID)
	require.NoError(t, err)
	assert.Equal(t, "Half off dinner", d.Title)

	_, err = svc.Get(ctx, 12345)
	assert.ErrorIs(t, err, ErrDealNotFound)
}

func TestDealServiceGetHidesUnlistedDeals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	svc := NewDealService(f.store)
	svc.Now = func() time.Time { return t0 }

	hidden := map[string]model.Deal{
		"inactive":   {VendorID: f.vendorID, IsActive: false, IsApproved: true, ValidUntil: t0.Add(time.Hour)},
		"unapproved": {VendorID: f.vendorID, IsActive: true, IsApproved: false, ValidUntil: t0.Add(time.Hour)},
		"expired":    {VendorID: f.vendorID, IsActive: true, IsApproved: true, ValidUntil: t0},
	}
	for name, deal := range hidden {
		t.Run(name, func(t *testing.T) {
			id := f.store.AddDeal(deal)
			_, err := svc.Get(ctx, id)
			assert.ErrorIs(t, err, ErrDealNotFound)
		})
	}
}
