package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/deal-redemption/internal/model"
	"github.com/iliyamo/deal-redemption/internal/pin"
	"github.com/iliyamo/deal-redemption/internal/repository"
)

func TestCurrentPinOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	got, err := f.pins.CurrentPin(ctx, f.vendorUser, f.dealID)
	require.NoError(t, err)
	assert.Equal(t, f.dealID, got.DealID)
	assert.Equal(t, "Half off dinner", got.DealTitle)
	assert.NoError(t, pin.ValidateFormat(got.CurrentPin))
	assert.Equal(t, 1800, got.RotationIntervalSeconds)
	assert.True(t, got.NextRotationAt.After(t0))
	assert.True(t, got.IsActive)

	// The customer has no vendor profile.
	_, err = f.pins.CurrentPin(ctx, f.userID, f.dealID)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	other := &model.User{Email: "other@example.com", Role: model.RoleVendor}
	require.NoError(t, f.store.CreateUser(ctx, other))
	f.store.AddVendor(model.Vendor{UserID: other.ID, BusinessName: "Other", IsApproved: true})
	_, err = f.pins.CurrentPin(ctx, other.ID, f.dealID)
	assert.ErrorIs(t, err, repository.ErrForbidden)

	_, err = f.pins.CurrentPin(ctx, f.vendorUser, 404)
	assert.ErrorIs(t, err, ErrDealNotFound)
}

func TestIssuePinReplacesStaticPin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	issued, err := f.pins.IssuePin(ctx, f.vendorUser, f.dealID, "7314")
	require.NoError(t, err)
	assert.Equal(t, "7314", issued.Pin)
	assert.Equal(t, t0.Add(pin.DefaultTTL), issued.ExpiresAt)

	d := f.deal(t)
	assert.NotEqual(t, "7314", d.VerificationPin, "stored hashed")
	require.NotNil(t, d.PinSalt)

	_, err = f.verify("4821", "ip")
	assert.ErrorIs(t, err, ErrInvalidPin)
	res, err := f.verify("7314", "ip")
	require.NoError(t, err)
	assert.Equal(t, "hashed", res.Scheme)
}

func TestIssuePinGeneratesAndValidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	issued, err := f.pins.IssuePin(ctx, f.vendorUser, f.dealID, "")
	require.NoError(t, err)
	assert.NoError(t, pin.ValidateFormat(issued.Pin))

	_, err = f.pins.IssuePin(ctx, f.vendorUser, f.dealID, "12")
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = f.pins.IssuePin(ctx, f.userID, f.dealID, "1234")
	assert.ErrorIs(t, err, repository.ErrForbidden)
}
