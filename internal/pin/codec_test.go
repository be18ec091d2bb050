package pin

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cheapCodec() *Codec {
	return &Codec{N: 16, R: 1, P: 1, KeyLen: 32, SaltLen: 16, TTL: DefaultTTL}
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		name string
		pin  string
		ok   bool
	}{
		{"four digits", "4821", true},
		{"leading zeros", "0007", true},
		{"surrounding whitespace", "  1234\n", true},
		{"too short", "123", false},
		{"too long", "12345", false},
		{"letters", "12a4", false},
		{"empty", "", false},
		{"unicode digits", "١٢٣٤", false},
		{"inner space", "12 4", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFormat(tt.pin)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidFormat)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	for i := 0; i < 200; i++ {
		p, err := Generate()
		require.NoError(t, err)
		require.NoError(t, ValidateFormat(p), "generated %q", p)
	}
}

func TestHashRoundTrip(t *testing.T) {
	c := cheapCodec()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for _, p := range []string{"0000", "0001", "4821", "9999", "5050"} {
		h, err := c.Hash(p, now)
		require.NoError(t, err)
		require.NotNil(t, h.ExpiresAt)
		assert.Equal(t, now.Add(DefaultTTL), *h.ExpiresAt)

		res := c.Verify(p, h.Hash, h.Salt, h.ExpiresAt, now.Add(time.Hour))
		assert.True(t, res.Valid, "pin %s should verify", p)

		other := fmt.Sprintf("%04d", (atoiPin(p)+1)%10000)
		res = c.Verify(other, h.Hash, h.Salt, h.ExpiresAt, now.Add(time.Hour))
		assert.False(t, res.Valid, "pin %s must not verify hash of %s", other, p)
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	c := cheapCodec()
	now := time.Now()
	a, err := c.Hash("1234", now)
	require.NoError(t, err)
	b, err := c.Hash("1234", now)
	require.NoError(t, err)
	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestHashRejectsMalformed(t *testing.T) {
	_, err := cheapCodec().Hash("12x4", time.Now())
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestVerifyExpired(t *testing.T) {
	c := cheapCodec()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	h, err := c.Hash("4821", now)
	require.NoError(t, err)

	past := now.Add(-time.Minute)
	res := c.Verify("4821", h.Hash, h.Salt, &past, now)
	assert.False(t, res.Valid)
	assert.Equal(t, msgExpired, res.Message)
}

func TestVerifyMalformedMaterial(t *testing.T) {
	c := cheapCodec()
	now := time.Now()
	assert.False(t, c.Verify("1234", "not-hex", "abcd", nil, now).Valid)
	assert.False(t, c.Verify("1234", "abcd", "zz", nil, now).Valid)
	assert.False(t, c.Verify("1234", "", "", nil, now).Valid)
	assert.False(t, c.Verify("12", "abcd", "abcd", nil, now).Valid)
}

func TestVerifyLegacy(t *testing.T) {
	assert.True(t, VerifyLegacy(" 1234 ", "1234").Valid)
	assert.False(t, VerifyLegacy("1235", "1234").Valid)
	assert.False(t, VerifyLegacy("", "").Valid)
}

func atoiPin(p string) int {
	n := 0
	for i := 0; i < len(p); i++ {
		n = n*10 + int(p[i]-'0')
	}
	return n
}
