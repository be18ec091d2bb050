package model

import (
	"strings"
	"time"
)

// Roles carried in the JWT "role" claim.
const (
	RoleCustomer = "CUSTOMER"
	RoleVendor   = "VENDOR"
)

// Membership is a customer's subscription tier.  Tiers are ordered:
// basic < premium < ultimate.
type Membership string

const (
	MembershipBasic    Membership = "basic"
	MembershipPremium  Membership = "premium"
	MembershipUltimate Membership = "ultimate"
)

// Rank returns the ordinal of the tier (basic=1, premium=2, ultimate=3).
// Unknown or empty tiers rank as basic.
func (m Membership) Rank() int {
	switch Membership(strings.ToLower(string(m))) {
	case MembershipUltimate:
		return 3
	case MembershipPremium:
		return 2
	default:
		return 1
	}
}

// Satisfies reports whether m is at least the required tier.
func (m Membership) Satisfies(required Membership) bool {
	return m.Rank() >= required.Rank()
}

// User represents an application user record as stored in the `users`
// table.  TotalSavings accumulates the actual savings of completed claims.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	Role         – CUSTOMER or VENDOR.
//	Membership   – customer tier used to gate claims.
//	TotalSavings – running total of realised savings.
//	IsActive     – whether the account is active.
type User struct {
	ID           uint64     // users.id
	Email        string     // users.email
	PasswordHash string     // users.password_hash
	Role         string     // users.role
	Membership   Membership // users.membership
	TotalSavings float64    // users.total_savings
	IsActive     bool       // users.is_active
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is not stored; only its SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
