package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-reservation/internal/config"
)

func cacheCtx(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/rooms/available")
	return c
}

func TestRedisCacheNilClientPassesThrough(t *testing.T) {
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}
	mw := NewRedisCache(cfg, nil)

	called := false
	handler := mw(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(cacheCtx("/v1/rooms/available")))
	require.True(t, called)
}

func TestCacheKeySeparatesQueries(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "rooms", KeyStrategy: "route_query"}

	a := cacheKey(cfg, cacheCtx("/v1/rooms/available?start_date=2024-06-10&end_date=2024-06-13"))
	b := cacheKey(cfg, cacheCtx("/v1/rooms/available?start_date=2024-06-11&end_date=2024-06-13"))
	require.NotEqual(t, a, b, "different date ranges must not share a cache entry")
	require.Contains(t, a, "rooms:")

	// Same search, same key.
	require.Equal(t, a, cacheKey(cfg, cacheCtx("/v1/rooms/available?start_date=2024-06-10&end_date=2024-06-13")))
}

func TestEntryCodecRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	entry, err := encodeEntry(http.StatusOK, hdr, []byte(`[{"id":1}]`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodeEntry(entry)
	require.True(t, ok)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	require.Equal(t, `[{"id":1}]`, string(body))

	_, _, _, ok = decodeEntry([]byte("short"))
	require.False(t, ok)
}
