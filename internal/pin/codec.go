// Package pin issues, hashes and verifies the 4-digit PINs that customers
// present at the point of sale.  Static PINs are stored as salted scrypt
// hashes; rotating PINs are derived from the deal id and the current time
// bucket and never stored.
package pin

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"golang.org/x/crypto/scrypt"
)

// Length is the number of digits in every PIN.
const Length = 4

// DefaultTTL bounds how long a static PIN stays valid after issuance.
const DefaultTTL = 365 * 24 * time.Hour

var (
	// ErrInvalidFormat is returned when a PIN is not exactly four digits.
	ErrInvalidFormat = errors.New("PIN must be exactly 4 digits")
	// ErrHashing signals a failure of the underlying crypto primitives.
	ErrHashing = errors.New("failed to hash PIN")
)

// ValidateFormat checks that pin is exactly four ASCII digits once
// surrounding whitespace is trimmed.
func ValidateFormat(pin string) error {
	p := strings.TrimSpace(pin)
	if len(p) != Length {
		return ErrInvalidFormat
	}
	for i := 0; i < len(p); i++ {
		if p[i] < '0' || p[i] > '9' {
			return ErrInvalidFormat
		}
	}
	return nil
}

// Generate returns a uniformly random PIN in "0000".."9999".
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHashing, err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}

// Result is the outcome of a PIN comparison.  A wrong PIN is a normal
// negative result, never an error.
type Result struct {
	Valid   bool
	Message string
}

const (
	msgVerified = "PIN verified"
	msgExpired  = "PIN has expired"
	msgInvalid  = "Invalid PIN"
	msgMalform  = "Invalid PIN format"
)

// Codec hashes and verifies static PINs with scrypt.  The cost parameters
// are exported so tests can run with a cheap work factor.
type Codec struct {
	N       int
	R       int
	P       int
	KeyLen  int
	SaltLen int
	TTL     time.Duration
}

// NewCodec returns a Codec with production scrypt parameters and the given
// PIN lifetime.  A non-positive ttl falls back to DefaultTTL.
func NewCodec(ttl time.Duration) *Codec {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{N: 1 << 15, R: 8, P: 1, KeyLen: 32, SaltLen: 16, TTL: ttl}
}

// Hash salts and hashes pin.  The returned Hashed carries the hex encoded
// hash and salt along with the issuance and expiry instants.
func (c *Codec) Hash(pin string, now time.Time) (Hashed, error) {
	if err := ValidateFormat(pin); err != nil {
		return Hashed{}, err
	}
	salt := make([]byte, c.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return Hashed{}, fmt.Errorf("%w: %w", ErrHashing, err)
	}
	key, err := c.derive(strings.TrimSpace(pin), salt)
	if err != nil {
		return Hashed{}, err
	}
	created := now.UTC()
	expires := created.Add(c.TTL)
	return Hashed{
		Hash:      hex.EncodeToString(key),
		Salt:      hex.EncodeToString(salt),
		CreatedAt: &created,
		ExpiresAt: &expires,
	}, nil
}

// Verify recomputes the hash of pin with the stored salt and compares it to
// hashedPin in constant time.  It fails closed: an expired PIN, malformed
// material or a mismatch all yield Valid=false.
func (c *Codec) Verify(pin, hashedPin, salt string, expiresAt *time.Time, now time.Time) Result {
	if expiresAt != nil && !now.Before(*expiresAt) {
		return Result{Message: msgExpired}
	}
	if ValidateFormat(pin) != nil {
		return Result{Message: msgMalform}
	}
	want, err := hex.DecodeString(strings.TrimSpace(hashedPin))
	if err != nil || len(want) == 0 {
		return Result{Message: msgInvalid}
	}
	saltBytes, err := hex.DecodeString(strings.TrimSpace(salt))
	if err != nil || len(saltBytes) == 0 {
		return Result{Message: msgInvalid}
	}
	got, err := c.deriveLen(strings.TrimSpace(pin), saltBytes, len(want))
	if err != nil {
		return Result{Message: msgInvalid}
	}
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return Result{Message: msgInvalid}
	}
	return Result{Valid: true, Message: msgVerified}
}

// VerifyLegacy compares a plaintext legacy PIN by trimmed string equality.
func VerifyLegacy(pin, stored string) Result {
	a, b := strings.TrimSpace(pin), strings.TrimSpace(stored)
	if a == "" || b == "" || subtle.ConstantTimeCompare([]byte(a), []byte(b)) != 1 {
		return Result{Message: msgInvalid}
	}
	return Result{Valid: true, Message: msgVerified}
}

func (c *Codec) derive(pin string, salt []byte) ([]byte, error) {
	return c.deriveLen(pin, salt, c.KeyLen)
}

func (c *Codec) deriveLen(pin string, salt []byte, keyLen int) ([]byte, error) {
	key, err := scrypt.Key([]byte(pin), salt, c.N, c.R, c.P, keyLen)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHashing, err)
	}
	return key, nil
}
