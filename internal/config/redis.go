package config

// Redis backs distributed rate limiting and the HTTP response cache.  If
// it cannot be reached at startup both features are disabled and the
// server keeps running.

import (
	"context"
	"crypto/tls"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewRedisClient builds a client from the environment:
//
//	REDIS_ENABLED  – "false" skips Redis entirely (default true)
//	REDIS_ADDR     – host:port shorthand
//	REDIS_HOST, REDIS_PORT – take precedence over REDIS_ADDR when both set
//	REDIS_PASSWORD – optional password
//	REDIS_DB       – database number (default 0)
//	REDIS_TLS      – enable TLS when "true" or "1"
//
// It returns nil when Redis is disabled or does not answer a ping.
func NewRedisClient(log zerolog.Logger) *redis.Client {
	if !envBool("REDIS_ENABLED", true) {
		return nil
	}
	addr := envStr("REDIS_ADDR", "localhost:6379")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	var tlsConf *tls.Config
	if v := os.Getenv("REDIS_TLS"); strings.EqualFold(v, "true") || v == "1" {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        envInt("REDIS_DB", 0),
		TLSConfig: tlsConf,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("redis unavailable; caching and rate limiting disabled")
		_ = client.Close()
		return nil
	}
	return client
}
