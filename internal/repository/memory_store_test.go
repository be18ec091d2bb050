package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/deal-redemption/internal/model"
)

func TestMemoryStoreIncrementRespectsCeiling(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	max := 2
	id := s.AddDeal(model.Deal{Title: "t", MaxRedemptions: &max})

	n, err := s.IncrementDealRedemptions(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.IncrementDealRedemptions(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.IncrementDealRedemptions(ctx, id)
	assert.ErrorIs(t, err, ErrRedemptionLimit)
	assert.Equal(t, 2, n)

	_, err = s.IncrementDealRedemptions(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorePinAttemptFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	u1, u2 := uint64(1), uint64(2)

	for i, a := range []model.PinAttempt{
		{DealID: 7, UserID: &u1, IPAddress: "a", AttemptedAt: base},
		{DealID: 7, UserID: &u1, IPAddress: "a", AttemptedAt: base.Add(time.Minute)},
		{DealID: 7, UserID: &u2, IPAddress: "a", AttemptedAt: base.Add(2 * time.Minute)},
		{DealID: 7, UserID: &u1, IPAddress: "b", AttemptedAt: base.Add(3 * time.Minute)},
		{DealID: 8, UserID: &u1, IPAddress: "a", AttemptedAt: base.Add(4 * time.Minute)},
	} {
		a := a
		require.NoError(t, s.RecordPinAttempt(ctx, &a), "attempt %d", i)
	}

	got, err := s.GetPinAttempts(ctx, model.PinAttemptFilter{DealID: 7, UserID: &u1, IPAddress: "a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].AttemptedAt.After(got[1].AttemptedAt), "newest first")

	got, err = s.GetPinAttempts(ctx, model.PinAttemptFilter{DealID: 7, Since: base})
	require.NoError(t, err)
	assert.Len(t, got, 3, "since bound is exclusive")

	got, err = s.GetPinAttempts(ctx, model.PinAttemptFilter{DealID: 7, Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].IPAddress)
}

func TestMemoryStoreUsersAndTokens(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	u := &model.User{Email: " Alice@Example.com ", PasswordHash: "h", Role: model.RoleCustomer}
	require.NoError(t, s.CreateUser(ctx, u))
	assert.NotZero(t, u.ID)
	assert.Equal(t, model.MembershipBasic, u.Membership)

	err := s.CreateUser(ctx, &model.User{Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrEmailExists)

	got, err := s.GetUserByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	require.NoError(t, s.StoreRefresh(ctx, u.ID, "hash", s.Now().Add(time.Hour)))
	uid, err := s.ValidateRefresh(ctx, "hash")
	require.NoError(t, err)
	assert.Equal(t, u.ID, uid)

	require.NoError(t, s.RevokeAllForUser(ctx, u.ID))
	_, err = s.ValidateRefresh(ctx, "hash")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreClaimsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	first := &model.DealClaim{UserID: 1, DealID: 1, Status: model.ClaimPending, ClaimedAt: base}
	second := &model.DealClaim{UserID: 1, DealID: 2, Status: model.ClaimPending, ClaimedAt: base}
	require.NoError(t, s.CreateClaim(ctx, first))
	require.NoError(t, s.CreateClaim(ctx, second))
	require.NoError(t, s.CreateClaim(ctx, &model.DealClaim{UserID: 2, DealID: 1, ClaimedAt: base}))

	got, err := s.GetUserClaims(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID, "ties broken by id")

	first.Status = model.ClaimUsed
	require.NoError(t, s.UpdateClaim(ctx, first))
	got, _ = s.GetUserClaims(ctx, 1)
	assert.Equal(t, model.ClaimUsed, got[1].Status)

	assert.ErrorIs(t, s.UpdateClaim(ctx, &model.DealClaim{ID: 404}), ErrNotFound)
}

func TestMemoryStoreRedeemClaimIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	max := 1
	id := s.AddDeal(model.Deal{Title: "t", MaxRedemptions: &max})
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.RedeemClaim(ctx, &model.DealClaim{ID: 404, DealID: id, VerifiedAt: &at}, true)
	assert.ErrorIs(t, err, ErrNotFound)
	d, _ := s.GetDeal(ctx, id)
	assert.Equal(t, 0, d.CurrentRedemptions, "missing claim leaves the counter alone")

	c := &model.DealClaim{UserID: 1, DealID: id, Status: model.ClaimPending, ClaimedAt: at, VerifiedAt: &at}
	n, err := s.RedeemClaim(ctx, c, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotZero(t, c.ID)

	n, err = s.RedeemClaim(ctx, c, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	other := &model.DealClaim{UserID: 2, DealID: id, Status: model.ClaimPending, ClaimedAt: at, VerifiedAt: &at}
	_, err = s.RedeemClaim(ctx, other, true)
	assert.ErrorIs(t, err, ErrRedemptionLimit)
	assert.Zero(t, other.ID)
	claims, _ := s.GetUserClaims(ctx, 2)
	assert.Empty(t, claims)
}

func TestMemoryStoreFinalizeClaimReplacesSavings(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	u := &model.User{Email: "a@example.com", Role: model.RoleCustomer}
	require.NoError(t, s.CreateUser(ctx, u))
	require.NoError(t, s.UpdateUserSavings(ctx, u.ID, 100))
	c := &model.DealClaim{UserID: u.ID, DealID: 1, Status: model.ClaimPending}
	require.NoError(t, s.CreateClaim(ctx, c))

	bill, savings := 1000.0, 500.0
	c.Status, c.BillAmount, c.ActualSavings = model.ClaimUsed, &bill, &savings
	total, err := s.FinalizeClaim(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 600.0, total)

	resubmit := *c
	lower := 300.1
	resubmit.ActualSavings = &lower
	total, err = s.FinalizeClaim(ctx, &resubmit)
	require.NoError(t, err)
	assert.Equal(t, 400.1, total)

	orphan := *c
	orphan.UserID = 999
	orphan.ActualSavings = &savings
	_, err = s.FinalizeClaim(ctx, &orphan)
	assert.ErrorIs(t, err, ErrNotFound)
	claims, _ := s.GetUserClaims(ctx, u.ID)
	require.Len(t, claims, 1)
	assert.Equal(t, 300.1, *claims[0].ActualSavings, "failed finalize leaves the claim as it was")
}
