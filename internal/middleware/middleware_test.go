package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/deal-redemption/internal/config"
	"github.com/iliyamo/deal-redemption/internal/utils"
)

const secret = "test-secret"

func whoami(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"uid":  c.Get(CtxUserID),
		"role": c.Get(CtxRole),
	})
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))

	tok, err := utils.NewAccessToken(secret, 42, "CUSTOMER", "premium", 5)
	require.NoError(t, err)

	rec := serve(e, http.MethodGet, "/me", tok.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"uid":42,"role":"CUSTOMER"}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", "garbage").Code)

	other, err := utils.NewAccessToken("other-secret", 42, "CUSTOMER", "basic", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", other.Token).Code)

	expired, err := utils.NewAccessToken(secret, 42, "CUSTOMER", "basic", -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", expired.Token).Code)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": 42, "role": "VENDOR"})
	raw, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, "/me", raw).Code)
}

func TestJWTAuthStringSubject(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(secret))

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "7",
		"role": "VENDOR",
		"exp":  time.Now().Add(time.Minute).Unix(),
	})
	raw, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)

	rec := serve(e, http.MethodGet, "/me", raw)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"uid":7,"role":"VENDOR"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/vendor", whoami, JWTAuth(secret), RequireRole("VENDOR"))

	vendor, err := utils.NewAccessToken(secret, 1, "vendor", "basic", 5)
	require.NoError(t, err)
	customer, err := utils.NewAccessToken(secret, 2, "CUSTOMER", "basic", 5)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/vendor", vendor.Token).Code)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/vendor", customer.Token).Code)
}

func TestNoStore(t *testing.T) {
	e := echo.New()
	e.GET("/pin", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NoStore())

	rec := serve(e, http.MethodGet, "/pin", "")
	assert.Equal(t, "no-store, no-cache, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	assert.Equal(t, "0", rec.Header().Get("Expires"))
}

func TestTokenBucketLocal(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	e := echo.New()
	e.POST("/verify", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, nil))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/verify", "").Code)
	rec := serve(e, http.MethodPost, "/verify", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(e, http.MethodPost, "/verify", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	retry, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retry, 0)
	assert.LessOrEqual(t, retry, 60)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")

	// A different client address has its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/verify", nil)
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.9")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTokenBucketDisabled(t *testing.T) {
	e := echo.New()
	e.POST("/verify", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/verify", "").Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/deals/3/verify-pin", nil)
	req.Header.Set(echo.HeaderXRealIP, "198.51.100.4")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/deals/:id/verify-pin")
	c.Set(CtxUserID, uint64(9))

	cfg := config.RateLimitConfig{Prefix: "rl"}
	cfg.KeyStrategy = "ip_user"
	assert.Equal(t, "rl:ip:198.51.100.4:user:9", buildRateKey(cfg, c))
	cfg.KeyStrategy = "route"
	assert.Equal(t, "rl:route:POST /deals/:id/verify-pin", buildRateKey(cfg, c))
	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:198.51.100.4:user:9:route:POST /deals/:id/verify-pin", buildRateKey(cfg, c))
}

func TestCachePayload(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload(bs[:6])
	assert.False(t, ok)
	_, _, _, ok = decodePayload(bs[:10])
	assert.False(t, ok)
}

func TestCacheWithoutRedisPassesThrough(t *testing.T) {
	calls := 0
	e := echo.New()
	e.GET("/deals", func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "x")
	}, NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil))

	serve(e, http.MethodGet, "/deals", "")
	rec := serve(e, http.MethodGet, "/deals", "")
	assert.Equal(t, 2, calls)
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestCaptureWriterOverflow(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.overflow)
	_, _ = cw.Write([]byte("def"))
	assert.True(t, cw.overflow)
	assert.Equal(t, 0, cw.buf.Len())
	assert.Equal(t, "abcdef", rec.Body.String())
}

func TestRequestLogger(t *testing.T) {
	e := echo.New()
	var sawLogger bool
	e.Use(RequestLogger(zerolog.Nop()))
	e.GET("/ping", func(c echo.Context) error {
		sawLogger = zerolog.Ctx(c.Request().Context()) != nil
		return c.NoContent(http.StatusNoContent)
	})

	rec := serve(e, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, sawLogger)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))

	rec = serve(e, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
