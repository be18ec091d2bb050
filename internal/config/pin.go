package config

import (
	"time"

	"github.com/iliyamo/deal-redemption/internal/pin"
	"github.com/iliyamo/deal-redemption/internal/ratelimit"
)

// PinConfig holds PIN issuance, rotation and lockout settings.
type PinConfig struct {
	RotationSecret   string        // PIN_ROTATION_SECRET
	RotationInterval time.Duration // PIN_ROTATION_INTERVAL
	TTL              time.Duration // PIN_TTL
	LockoutWindow    time.Duration // PIN_LOCKOUT_WINDOW
	LockoutThreshold int           // PIN_LOCKOUT_THRESHOLD
	ScryptN          int           // PIN_SCRYPT_N, power of two
}

// LoadPinConfig reads PIN_* variables.  The rotation secret is required.
func LoadPinConfig() PinConfig {
	def := ratelimit.DefaultPolicy()
	return PinConfig{
		RotationSecret:   must("PIN_ROTATION_SECRET"),
		RotationInterval: envDur("PIN_ROTATION_INTERVAL", pin.DefaultRotationInterval),
		TTL:              envDur("PIN_TTL", pin.DefaultTTL),
		LockoutWindow:    envDur("PIN_LOCKOUT_WINDOW", def.Window),
		LockoutThreshold: envInt("PIN_LOCKOUT_THRESHOLD", def.MaxFailures),
		ScryptN:          envInt("PIN_SCRYPT_N", 1<<15),
	}
}

// Policy returns the failed-attempt lockout policy.
func (c PinConfig) Policy() ratelimit.Policy {
	return ratelimit.Policy{Window: c.LockoutWindow, MaxFailures: c.LockoutThreshold}
}

// Codec returns the static PIN codec with the configured cost and lifetime.
func (c PinConfig) Codec() *pin.Codec {
	codec := pin.NewCodec(c.TTL)
	if c.ScryptN > 1 && c.ScryptN&(c.ScryptN-1) == 0 {
		codec.N = c.ScryptN
	}
	return codec
}

// Rotator returns the rotating PIN generator.
func (c PinConfig) Rotator() *pin.Rotator {
	return pin.NewRotator(c.RotationSecret, c.RotationInterval)
}
