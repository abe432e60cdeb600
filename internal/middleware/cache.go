package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booksphere/internal/config"
	"github.com/iliyamo/booksphere/internal/metrics"
)

// captureWriter copies the response body (up to limit bytes) while
// forwarding it to the client.
type captureWriter struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	size   int64
	limit  int64
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if cw.limit <= 0 || cw.size < cw.limit {
		if remain := cw.limit - cw.size; cw.limit > 0 && int64(len(b)) > remain {
			cw.buf.Write(b[:remain])
		} else {
			cw.buf.Write(b)
		}
	}
	cw.size += int64(len(b))
	return cw.ResponseWriter.Write(b)
}

// ResponseCache stores successful GET responses in Redis.  Every key
// embeds a generation counter; Invalidate bumps the counter so all
// earlier entries stop matching and simply expire.
type ResponseCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	log zerolog.Logger
}

// NewResponseCache returns a cache, or nil when caching is disabled or
// Redis is unavailable.  A nil *ResponseCache is safe to use.
func NewResponseCache(cfg config.CacheConfig, rdb *redis.Client, log zerolog.Logger) *ResponseCache {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	return &ResponseCache{cfg: cfg, rdb: rdb, log: log.With().Str("component", "cache").Logger()}
}

func (rc *ResponseCache) genKey() string { return rc.cfg.Prefix + ":gen" }

func (rc *ResponseCache) generation(ctx context.Context) (int64, error) {
	g, err := rc.rdb.Get(ctx, rc.genKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return g, err
}

// Invalidate drops every cached response.
func (rc *ResponseCache) Invalidate(ctx context.Context) error {
	if rc == nil {
		return nil
	}
	return rc.rdb.Incr(ctx, rc.genKey()).Err()
}

// cacheKey builds a stable key from the generation and the request,
// honouring the configured strategy.
func (rc *ResponseCache) cacheKey(gen int64, c echo.Context) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(rc.cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", c.Path()}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
	case "path_query":
		parts = []string{"path", r.URL.Path, "q", r.URL.RawQuery}
	default: // "route_query" keyed on the concrete path so /events/1 and /events/2 differ
		parts = []string{"route", c.Path(), "path", r.URL.Path, "q", r.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%d:%x", rc.cfg.Prefix, gen, sum[:])
}

// Middleware serves cached responses and stores 200 responses on a miss.
func (rc *ResponseCache) Middleware() echo.MiddlewareFunc {
	if rc == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	maxBody := int64(rc.cfg.MaxBodyBytes)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rc.cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()

			gen, err := rc.generation(ctx)
			if err != nil {
				metrics.CacheLookups.WithLabelValues("error").Inc()
				rc.log.Warn().Err(err).Msg("generation lookup failed; bypassing cache")
				return next(c)
			}
			key := rc.cacheKey(gen, c)

			if bs, err := rc.rdb.Get(ctx, key).Bytes(); err == nil {
				if status, hdr, body, ok := decodePayload(bs); ok {
					metrics.CacheLookups.WithLabelValues("hit").Inc()
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					if len(body) > 0 {
						_, _ = c.Response().Write(body)
					}
					return nil
				}
			}
			metrics.CacheLookups.WithLabelValues("miss").Inc()

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: maxBody}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			// truncated bodies are never stored
			if cw.status != http.StatusOK || (maxBody > 0 && cw.size > maxBody) {
				return nil
			}

			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err != nil {
				return nil
			}
			if err := rc.rdb.SetEx(context.WithoutCancel(ctx), key, payload, rc.cfg.TTL).Err(); err != nil {
				rc.log.Warn().Err(err).Msg("cache store failed")
			}
			return nil
		}
	}
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	header = make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &header); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, header, bs[8+hlen:], true
}
