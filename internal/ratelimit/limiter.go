// Package ratelimit decides whether another PIN guess may be made, based
// only on the recent attempt history the caller supplies.  It does not
// choose the scope: callers filter attempts by deal, user or IP first.
package ratelimit

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Attempt is the part of a logged verification attempt the policy reads.
type Attempt struct {
	AttemptedAt time.Time
	Success     bool
}

// Policy bounds failed attempts within a trailing time window.
type Policy struct {
	Window      time.Duration
	MaxFailures int
}

// DefaultPolicy allows at most 4 failures per 15 minutes; the 5th failure
// locks the scope until it ages out of the window.
func DefaultPolicy() Policy {
	return Policy{Window: 15 * time.Minute, MaxFailures: 5}
}

// Decision is the verdict for the next attempt.
type Decision struct {
	Allowed       bool
	Message       string
	Failures      int
	NextAttemptAt *time.Time
}

// Check counts the failures whose timestamp lies inside (now-Window, now]
// and denies once that count reaches MaxFailures.  Successes never clear
// earlier failures.
// When denied, NextAttemptAt is the instant at which enough failures have
// aged out for the count to drop below the threshold.
func (p Policy) Check(attempts []Attempt, now time.Time) Decision {
	if p.MaxFailures < 1 {
		p.MaxFailures = 1
	}
	cutoff := now.Add(-p.Window)
	failures := make([]time.Time, 0, len(attempts))
	for _, a := range attempts {
		if a.Success || !a.AttemptedAt.After(cutoff) {
			continue
		}
		failures = append(failures, a.AttemptedAt)
	}
	if len(failures) < p.MaxFailures {
		return Decision{Allowed: true, Failures: len(failures)}
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].Before(failures[j]) })
	next := failures[len(failures)-p.MaxFailures].Add(p.Window)
	wait := int(math.Ceil(next.Sub(now).Minutes()))
	if wait < 1 {
		wait = 1
	}
	return Decision{
		Allowed:       false,
		Failures:      len(failures),
		NextAttemptAt: &next,
		Message:       fmt.Sprintf("Too many failed PIN attempts. Please try again in %d minute(s).", wait),
	}
}
