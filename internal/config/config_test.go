package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "YES")
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "90s")
	t.Setenv("X_LIST", " get , head ,,")

	assert.True(t, envBool("X_BOOL", false))
	assert.True(t, envBool("X_UNSET", true))
	assert.Equal(t, 7, envInt("X_INT", 7))
	assert.Equal(t, 90*time.Second, envDur("X_DUR", time.Second))
	assert.Equal(t, []string{"get", "head"}, envList("X_LIST", ""))
}

func TestLoadPinConfig(t *testing.T) {
	t.Setenv("PIN_ROTATION_SECRET", "s3cret")
	t.Setenv("PIN_LOCKOUT_THRESHOLD", "3")
	t.Setenv("PIN_SCRYPT_N", "1000")

	c := LoadPinConfig()
	assert.Equal(t, 30*time.Minute, c.RotationInterval)
	assert.Equal(t, 3, c.Policy().MaxFailures)
	assert.Equal(t, 15*time.Minute, c.Policy().Window)
	assert.Equal(t, 1<<15, c.Codec().N, "non power of two is ignored")
}

func TestLoadRateLimitConfigClampsTTL(t *testing.T) {
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	c := LoadRateLimitConfig()
	assert.Equal(t, 5*time.Minute, c.TTL)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get,head")
	c := LoadCacheConfig()
	assert.True(t, c.Methods["GET"])
	assert.True(t, c.Methods["HEAD"])
	assert.False(t, c.Methods["POST"])
}
