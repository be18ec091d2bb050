package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/deal-redemption/internal/model"
	"github.com/iliyamo/deal-redemption/internal/pin"
	"github.com/iliyamo/deal-redemption/internal/queue"
	"github.com/iliyamo/deal-redemption/internal/ratelimit"
	"github.com/iliyamo/deal-redemption/internal/repository"
)

var (
	_ Store = (*repository.MemoryStore)(nil)
	_ Store = (*repository.SQLStore)(nil)
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func cheapCodec() *pin.Codec {
	return &pin.Codec{N: 16, R: 1, P: 1, KeyLen: 32, SaltLen: 16, TTL: pin.DefaultTTL}
}

type recordingPublisher struct {
	mu        sync.Mutex
	redeemed  []queue.DealRedeemedEvent
	completed []queue.ClaimCompletedEvent
}

func (p *recordingPublisher) PublishDealRedeemed(_ context.Context, ev queue.DealRedeemedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redeemed = append(p.redeemed, ev)
	return nil
}

func (p *recordingPublisher) PublishClaimCompleted(_ context.Context, ev queue.ClaimCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, ev)
	return nil
}

// fixture is a seeded store with one basic customer, one vendor account
// and one deal protected by the hashed PIN "4821".
type fixture struct {
	store      *repository.MemoryStore
	codec      *pin.Codec
	claims     *ClaimService
	pins       *PinService
	events     *recordingPublisher
	now        time.Time
	userID     uint64
	vendorUser uint64
	vendorID   uint64
	dealID     uint64
}

func newFixture(t *testing.T, mutate func(*model.Deal)) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: repository.NewMemoryStore(), codec: cheapCodec(), events: &recordingPublisher{}, now: t0}

	customer := &model.User{Email: "customer@example.com", Role: model.RoleCustomer, Membership: model.MembershipBasic}
	require.NoError(t, f.store.CreateUser(ctx, customer))
	f.userID = customer.ID

	vendorAcct := &model.User{Email: "vendor@example.com", Role: model.RoleVendor}
	require.NoError(t, f.store.CreateUser(ctx, vendorAcct))
	f.vendorUser = vendorAcct.ID
	f.vendorID = f.store.AddVendor(model.Vendor{
		UserID: vendorAcct.ID, BusinessName: "Spice Route", Address: "Bandra West, Mumbai",
		Latitude: ptr(19.06), Longitude: ptr(72.83), IsApproved: true,
	})

	h, err := f.codec.Hash("4821", t0)
	require.NoError(t, err)
	deal := model.Deal{
		VendorID:           f.vendorID,
		Title:              "Half off dinner",
		Category:           "food",
		DiscountPercentage: 50,
		OriginalPrice:      ptr(1000.0),
		DiscountedPrice:    ptr(500.0),
		MaxRedemptions:     ptr(10),
		RequiredMembership: model.MembershipBasic,
		IsActive:           true,
		IsApproved:         true,
		ValidUntil:         t0.Add(30 * 24 * time.Hour),
		VerificationPin:    h.Hash,
		PinSalt:            ptr(h.Salt),
		PinCreatedAt:       h.CreatedAt,
		PinExpiresAt:       h.ExpiresAt,
		CreatedAt:          t0.Add(-time.Hour),
	}
	if mutate != nil {
		mutate(&deal)
	}
	f.dealID = f.store.AddDeal(deal)

	clock := func() time.Time { return f.now }
	f.claims = NewClaimService(f.store, pin.NewVerifier(f.codec, nil), ratelimit.DefaultPolicy(), nil, f.events)
	f.claims.Now = clock
	f.pins = NewPinService(f.store, f.codec, pin.NewRotator("test-secret", pin.DefaultRotationInterval))
	f.pins.Now = clock
	return f
}

func (f *fixture) verify(code, ip string) (*VerifyPinResult, error) {
	return f.claims.VerifyPin(context.Background(), VerifyPinInput{
		DealID: f.dealID, UserID: f.userID, PIN: code, IP: ip, UserAgent: "test",
	})
}

func (f *fixture) deal(t *testing.T) *model.Deal {
	t.Helper()
	d, err := f.store.GetDeal(context.Background(), f.dealID)
	require.NoError(t, err)
	return d
}

func (f *fixture) attempts(t *testing.T) []model.PinAttempt {
	t.Helper()
	a, err := f.store.GetPinAttempts(context.Background(), model.PinAttemptFilter{DealID: f.dealID, Limit: 1000})
	require.NoError(t, err)
	return a
}
