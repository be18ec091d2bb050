package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/deal-redemption/internal/model"
)

// MemoryStore is an in-process implementation of every repository method
// used by the services and auth handlers.  It backs STORE_DRIVER=memory
// and the test suites.  Returned values are copies; callers never alias
// the stored rows.
type MemoryStore struct {
	mu sync.RWMutex

	nextID   uint64
	deals    map[uint64]model.Deal
	users    map[uint64]model.User
	vendors  map[uint64]model.Vendor
	claims   []model.DealClaim
	attempts []model.PinAttempt
	logs     []model.SystemLog
	tokens   map[string]model.RefreshToken

	// Now is used for token expiry checks.
	Now func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		deals:   make(map[uint64]model.Deal),
		users:   make(map[uint64]model.User),
		vendors: make(map[uint64]model.Vendor),
		tokens:  make(map[string]model.RefreshToken),
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) id() uint64 {
	s.nextID++
	return s.nextID
}

// AddDeal stores d, assigning an ID when d.ID is zero, and returns the ID.
func (s *MemoryStore) AddDeal(d model.Deal) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == 0 {
		d.ID = s.id()
	} else if d.ID > s.nextID {
		s.nextID = d.ID
	}
	s.deals[d.ID] = d
	return d.ID
}

// AddVendor stores v, assigning an ID when v.ID is zero, and returns the ID.
func (s *MemoryStore) AddVendor(v model.Vendor) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.ID == 0 {
		v.ID = s.id()
	} else if v.ID > s.nextID {
		s.nextID = v.ID
	}
	s.vendors[v.ID] = v
	return v.ID
}

// SystemLogs returns a copy of every audit entry written so far.
func (s *MemoryStore) SystemLogs() []model.SystemLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.SystemLog(nil), s.logs...)
}

// ----- deals -----

func (s *MemoryStore) GetDeal(_ context.Context, id uint64) (*model.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deals[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (s *MemoryStore) ListActiveDeals(_ context.Context, now time.Time) ([]model.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Deal, 0, len(s.deals))
	for _, d := range s.deals {
		if d.IsActive && d.IsApproved && !d.Expired(now) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) UpdateDealPin(_ context.Context, id uint64, p model.DealPin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deals[id]
	if !ok {
		return ErrNotFound
	}
	d.VerificationPin = p.VerificationPin
	d.PinSalt = p.PinSalt
	d.PinCreatedAt = p.PinCreatedAt
	d.PinExpiresAt = p.PinExpiresAt
	s.deals[id] = d
	return nil
}

func (s *MemoryStore) IncrementDealRedemptions(_ context.Context, id uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deals[id]
	if !ok {
		return 0, ErrNotFound
	}
	if d.RedemptionLimitReached() {
		return d.CurrentRedemptions, ErrRedemptionLimit
	}
	d.CurrentRedemptions++
	s.deals[id] = d
	return d.CurrentRedemptions, nil
}

// ----- users -----

func (s *MemoryStore) CreateUser(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return ErrEmailExists
		}
	}
	if u.Membership == "" {
		u.Membership = model.MembershipBasic
	}
	u.ID = s.id()
	u.IsActive = true
	u.CreatedAt = s.Now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = *u
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, id uint64) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateUserSavings(_ context.Context, id uint64, total float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	u.TotalSavings = total
	s.users[id] = u
	return nil
}

// ----- claims -----

func (s *MemoryStore) GetUserClaims(_ context.Context, userID uint64) ([]model.DealClaim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.DealClaim
	for _, c := range s.claims {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ClaimedAt.Equal(out[j].ClaimedAt) {
			return out[i].ClaimedAt.After(out[j].ClaimedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) CreateClaim(_ context.Context, c *model.DealClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	s.claims = append(s.claims, *c)
	return nil
}

func (s *MemoryStore) UpdateClaim(_ context.Context, c *model.DealClaim) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.claims {
		if s.claims[i].ID == c.ID {
			s.claims[i] = *c
			return nil
		}
	}
	return ErrNotFound
}

// RedeemClaim validates every row it touches before writing any of them.
func (s *MemoryStore) RedeemClaim(_ context.Context, c *model.DealClaim, countRedemption bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deals[c.DealID]
	if !ok {
		return 0, ErrNotFound
	}
	idx := -1
	if c.ID != 0 {
		for i := range s.claims {
			if s.claims[i].ID == c.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return 0, ErrNotFound
		}
	}
	if countRedemption {
		if d.RedemptionLimitReached() {
			return 0, ErrRedemptionLimit
		}
		d.CurrentRedemptions++
		s.deals[d.ID] = d
	}
	if idx < 0 {
		c.ID = s.id()
		s.claims = append(s.claims, *c)
	} else {
		s.claims[idx] = *c
	}
	return d.CurrentRedemptions, nil
}

func (s *MemoryStore) FinalizeClaim(_ context.Context, c *model.DealClaim) (float64, error) {
	if c.ActualSavings == nil {
		return 0, errors.New("finalize claim without savings")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := -1
	for i := range s.claims {
		if s.claims[i].ID == c.ID {
			idx = i
			break
		}
	}
	u, ok := s.users[c.UserID]
	if idx < 0 || !ok {
		return 0, ErrNotFound
	}
	previous := 0.0
	if stored := s.claims[idx].ActualSavings; stored != nil {
		previous = *stored
	}
	u.TotalSavings = replaceSavings(u.TotalSavings, previous, *c.ActualSavings)
	u.UpdatedAt = s.Now()
	s.users[u.ID] = u
	s.claims[idx] = *c
	return u.TotalSavings, nil
}

// ----- pin attempts -----

func (s *MemoryStore) RecordPinAttempt(_ context.Context, a *model.PinAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	s.attempts = append(s.attempts, *a)
	return nil
}

func (s *MemoryStore) GetPinAttempts(_ context.Context, f model.PinAttemptFilter) ([]model.PinAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.PinAttempt
	for _, a := range s.attempts {
		if a.DealID != f.DealID {
			continue
		}
		if f.UserID != nil && (a.UserID == nil || *a.UserID != *f.UserID) {
			continue
		}
		if f.IPAddress != "" && a.IPAddress != f.IPAddress {
			continue
		}
		if !f.Since.IsZero() && !a.AttemptedAt.After(f.Since) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AttemptedAt.After(out[j].AttemptedAt) })
	limit := f.Limit
	if limit <= 0 {
		limit = defaultAttemptLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ----- vendors -----

func (s *MemoryStore) GetVendorByUser(_ context.Context, userID uint64) (*model.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.vendors {
		if v.UserID == userID {
			return &v, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListVendors(_ context.Context) ([]model.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Vendor, 0, len(s.vendors))
	for _, v := range s.vendors {
		if v.IsApproved {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ----- system logs -----

func (s *MemoryStore) CreateSystemLog(_ context.Context, e *model.SystemLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	s.logs = append(s.logs, *e)
	return nil
}

// ----- refresh tokens -----

func (s *MemoryStore) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = model.RefreshToken{
		ID: s.id(), UserID: userID, TokenHash: tokenHash, ExpiresAt: exp, CreatedAt: s.Now(),
	}
	return nil
}

func (s *MemoryStore) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[tokenHash]
	if !ok || t.RevokedAt != nil || s.Now().After(t.ExpiresAt) {
		return 0, ErrNotFound
	}
	return t.UserID, nil
}

func (s *MemoryStore) RevokeByHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := s.Now()
		t.RevokedAt = &now
		s.tokens[tokenHash] = t
	}
	return nil
}

func (s *MemoryStore) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Now()
	for h, t := range s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			s.tokens[h] = t
		}
	}
	return nil
}
