package model

import "time"

// PinAttempt is one entry of the append-only `pin_attempts` log.  UserID is
// nil for unauthenticated attempts, which are still tracked by IP.
type PinAttempt struct {
	ID          uint64    // pin_attempts.id
	DealID      uint64    // pin_attempts.deal_id
	UserID      *uint64   // pin_attempts.user_id (nullable)
	IPAddress   string    // pin_attempts.ip_address
	UserAgent   string    // pin_attempts.user_agent
	Success     bool      // pin_attempts.success
	AttemptedAt time.Time // pin_attempts.attempted_at
}

// PinAttemptFilter selects attempts for one deal.  Zero-valued optional
// fields do not constrain the result.
type PinAttemptFilter struct {
	DealID    uint64
	UserID    *uint64
	IPAddress string
	Since     time.Time
	Limit     int
}

// SystemLog is an operational audit entry written by the claim flow.
type SystemLog struct {
	ID        uint64         // system_logs.id
	Level     string         // system_logs.level
	Action    string         // system_logs.action
	Message   string         // system_logs.message
	UserID    *uint64        // system_logs.user_id (nullable)
	Metadata  map[string]any // system_logs.metadata (JSON)
	CreatedAt time.Time      // system_logs.created_at
}
