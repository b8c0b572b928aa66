package config

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis for rate limiting and the
// availability-listing cache.  Configuration comes from environment
// variables:
//
//	REDIS_HOST, REDIS_PORT – server location (combined as host:port)
//	REDIS_ADDR             – host:port shorthand, overridden by the pair above
//	REDIS_PASSWORD         – optional auth
//	REDIS_DB               – database number, default 0
//	REDIS_TLS              – "true" or "1" enables TLS
//
// Redis is optional infrastructure here: when the ping fails the
// function returns nil, and both middlewares degrade to pass-through
// rather than blocking bookings.
func NewRedisClient() *redis.Client {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
		addr = host + ":" + port
	}

	var tlsConf *tls.Config
	if v := envStr("REDIS_TLS", ""); v == "1" || strings.EqualFold(v, "true") {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}

	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  envStr("REDIS_PASSWORD", ""),
		DB:        envInt("REDIS_DB", 0),
		TLSConfig: tlsConf,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}
