package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-reservation/internal/config"
)

func limiterCtx(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "203.0.113.7:4711"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/bookings")
	return c
}

func TestTokenBucketNilClientPassesThrough(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true}
	mw := NewTokenBucket(cfg, nil)

	called := false
	handler := mw(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(limiterCtx("/v1/bookings")))
	require.True(t, called)
}

func TestBucketKeyIncludesCallerIdentity(t *testing.T) {
	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}

	c := limiterCtx("/v1/bookings")
	require.Equal(t, "rl:203.0.113.7:anon:/v1/bookings", bucketKey(cfg, c))

	// The JWT middleware stores the sub claim as it decoded from JSON,
	// which is a float64 for numeric ids.
	c.Set("user_id", float64(42))
	require.Equal(t, "rl:203.0.113.7:42:/v1/bookings", bucketKey(cfg, c))
}

func TestBucketKeyStrategies(t *testing.T) {
	c := limiterCtx("/v1/bookings")
	c.Set("user_id", "u-9")

	tests := []struct {
		strategy string
		want     string
	}{
		{"ip", "rl:203.0.113.7"},
		{"user", "rl:u-9"},
		{"route", "rl:/v1/bookings"},
		{"ip_route", "rl:203.0.113.7:/v1/bookings"},
		{"user_route", "rl:u-9:/v1/bookings"},
	}
	for _, tt := range tests {
		cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: tt.strategy}
		require.Equal(t, tt.want, bucketKey(cfg, c), "strategy %s", tt.strategy)
	}
}
