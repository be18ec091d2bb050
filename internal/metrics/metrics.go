// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Verification outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid"
	OutcomeExpired     = "expired"
	OutcomeBadFormat   = "bad_format"
	OutcomeRateLimited = "rate_limited"
	OutcomeUnavailable = "unavailable"
)

// Claim transitions.
const (
	TransitionClaimed  = "claimed"
	TransitionVerified = "verified"
	TransitionBilled   = "billed"
)

var (
	// PinVerifications counts verify-pin requests by matching scheme
	// (rotating, hashed, legacy, none) and outcome.
	PinVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deal_pin_verifications_total",
		Help: "PIN verification attempts by scheme and outcome.",
	}, []string{"scheme", "outcome"})

	// PinRateLimited counts requests refused by the failed-attempt lockout.
	PinRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deal_pin_rate_limited_total",
		Help: "PIN verifications refused because of too many failed attempts.",
	})

	// ClaimTransitions counts claim lifecycle transitions.
	ClaimTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deal_claims_total",
		Help: "Deal claim lifecycle transitions.",
	}, []string{"transition"})
)
