package config

import (
	"strings"
	"time"
)

// CacheConfig controls the Redis response cache placed in front of the
// room availability listing.  Availability answers are advisory to
// begin with (a listed room can be taken before the caller books), so
// serving them a few seconds stale is acceptable; booking and payment
// endpoints never go through the cache.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool // HTTP methods eligible for caching
	TTL          time.Duration
	KeyStrategy  string // which request parts form the cache key
	Prefix       string // Redis key namespace
	MaxBodyBytes int    // responses larger than this are never cached
}

// LoadCacheConfig builds the cache settings from CACHE_* environment
// variables.  The short default TTL keeps cached availability close to
// committed state while still absorbing bursts of identical searches.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      methodSet(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 15*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "rooms"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

// methodSet parses a comma-separated method list into a lookup set,
// upper-casing and dropping empty entries.
func methodSet(csv string) map[string]bool {
	set := make(map[string]bool)
	for _, m := range strings.Split(csv, ",") {
		if m = strings.ToUpper(strings.TrimSpace(m)); m != "" {
			set[m] = true
		}
	}
	return set
}
