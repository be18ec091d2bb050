package pin

import "time"

// Scheme is the PIN material a deal can be verified against.  The set of
// implementations is closed: Legacy, Hashed and Rotating.
type Scheme interface {
	Name() string
	scheme()
}

// Legacy is a plaintext PIN stored before hashing was introduced.
type Legacy struct {
	Plaintext string
}

// Hashed is a salted scrypt hash with optional validity bounds.
type Hashed struct {
	Hash      string
	Salt      string
	CreatedAt *time.Time
	ExpiresAt *time.Time
}

// Rotating is the time-bucketed PIN derived for a deal.
type Rotating struct {
	DealID uint64
}

func (Legacy) Name() string   { return "legacy" }
func (Hashed) Name() string   { return "hashed" }
func (Rotating) Name() string { return "rotating" }

func (Legacy) scheme()   {}
func (Hashed) scheme()   {}
func (Rotating) scheme() {}

// StaticScheme classifies stored PIN columns.  A missing salt means the PIN
// predates hashing.  It returns nil when no static PIN is configured.
func StaticScheme(verificationPin string, salt *string, createdAt, expiresAt *time.Time) Scheme {
	if verificationPin == "" {
		return nil
	}
	if salt == nil || *salt == "" {
		return Legacy{Plaintext: verificationPin}
	}
	return Hashed{Hash: verificationPin, Salt: *salt, CreatedAt: createdAt, ExpiresAt: expiresAt}
}

// Verifier checks a submitted PIN against one or more schemes.
type Verifier struct {
	Codec   *Codec
	Rotator *Rotator
}

// NewVerifier wires a codec and rotator together.
func NewVerifier(codec *Codec, rotator *Rotator) *Verifier {
	return &Verifier{Codec: codec, Rotator: rotator}
}

// Check verifies pin against a single scheme.
func (v *Verifier) Check(s Scheme, pin string, now time.Time) Result {
	switch s := s.(type) {
	case Rotating:
		if v.Rotator != nil && v.Rotator.Verify(s.DealID, pin, now) {
			return Result{Valid: true, Message: msgVerified}
		}
		return Result{Message: msgInvalid}
	case Hashed:
		return v.Codec.Verify(pin, s.Hash, s.Salt, s.ExpiresAt, now)
	case Legacy:
		return VerifyLegacy(pin, s.Plaintext)
	default:
		return Result{Message: msgInvalid}
	}
}

// Match tries each scheme in order and returns the first successful result
// together with the scheme that accepted it.  When nothing matches it
// returns the result of the last scheme tried and a nil scheme.
func (v *Verifier) Match(pin string, now time.Time, schemes ...Scheme) (Result, Scheme) {
	last := Result{Message: msgInvalid}
	for _, s := range schemes {
		if s == nil {
			continue
		}
		res := v.Check(s, pin, now)
		if res.Valid {
			return res, s
		}
		last = res
	}
	return last, nil
}
