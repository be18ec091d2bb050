package pin

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// DefaultRotationInterval is the width of one rotating-PIN time bucket.
const DefaultRotationInterval = 30 * time.Minute

// Rotator derives a PIN per deal and time bucket from a server secret.  It
// holds no mutable state: the PIN a vendor screen shows is a pure function
// of (secret, dealID, bucket).
type Rotator struct {
	secret   []byte
	interval time.Duration
}

// Rotation describes the PIN valid in the current bucket.
type Rotation struct {
	Pin             string
	NextRotationAt  time.Time
	IntervalSeconds int
}

// NewRotator builds a Rotator.  Intervals shorter than one second fall back
// to DefaultRotationInterval.
func NewRotator(secret string, interval time.Duration) *Rotator {
	if interval < time.Second {
		interval = DefaultRotationInterval
	}
	return &Rotator{secret: []byte(secret), interval: interval}
}

// Interval returns the bucket width.
func (r *Rotator) Interval() time.Duration { return r.interval }

func (r *Rotator) bucket(now time.Time) int64 {
	return now.Unix() / int64(r.interval/time.Second)
}

// pinFor truncates HMAC-SHA256(secret, dealID||bucket) to four digits using
// the dynamic-offset truncation of RFC 4226.
func (r *Rotator) pinFor(dealID uint64, bucket int64) string {
	var msg [16]byte
	binary.BigEndian.PutUint64(msg[:8], dealID)
	binary.BigEndian.PutUint64(msg[8:], uint64(bucket))
	mac := hmac.New(sha256.New, r.secret)
	mac.Write(msg[:])
	sum := mac.Sum(nil)
	off := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[off:off+4]) & 0x7fffffff
	return fmt.Sprintf("%04d", code%10000)
}

// Current returns the PIN for dealID in the bucket containing now.
func (r *Rotator) Current(dealID uint64, now time.Time) Rotation {
	b := r.bucket(now)
	secs := int64(r.interval / time.Second)
	return Rotation{
		Pin:             r.pinFor(dealID, b),
		NextRotationAt:  time.Unix((b+1)*secs, 0).UTC(),
		IntervalSeconds: int(secs),
	}
}

// Verify accepts the PIN of the current bucket or of the one just before
// it, so a screen that rotated moments ago still verifies.
func (r *Rotator) Verify(dealID uint64, pin string, now time.Time) bool {
	p := []byte(strings.TrimSpace(pin))
	b := r.bucket(now)
	for _, candidate := range []int64{b, b - 1} {
		if subtle.ConstantTimeCompare(p, []byte(r.pinFor(dealID, candidate))) == 1 {
			return true
		}
	}
	return false
}
