package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/park-ticketing/internal/config"
)

// captureWriter captures response body/status while forwarding to the client.
type captureWriter struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int
	overflow bool
}

func (cw *captureWriter) WriteHeader(code int) {
	cw.status = code
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.overflow {
		if cw.limit > 0 && cw.buf.Len()+len(b) > cw.limit {
			cw.overflow = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// cachedResponse is what is stored in Redis for one key.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// cacheKey is prefix:sha1(route?query).  Every key of the cache shares
// the prefix so CacheInvalidator can drop them together.
func cacheKey(prefix, route, rawQuery string) string {
	sum := sha1.Sum([]byte(route + "?" + rawQuery))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// cacheable reports whether a captured response may be stored.  Handlers
// answer application failures with 200 and "success":false, so the
// envelope is checked as well as the status.
func cacheable(status int, body []byte) bool {
	if status != http.StatusOK {
		return false
	}
	var env struct {
		Success *bool `json:"success"`
	}
	if json.Unmarshal(body, &env) != nil || env.Success == nil {
		return true
	}
	return *env.Success
}

// NewRedisCache caches successful GET responses of the configured
// paths.  It is a pass-through when caching is disabled or Redis is
// unavailable; Redis errors never fail a request.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	log := logrus.WithField("component", "cache")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet || (len(cfg.Paths) > 0 && !cfg.Paths[c.Path()]) {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg.Prefix, c.Path(), c.Request().URL.RawQuery)

			if bs, err := rdb.Get(ctx, key).Bytes(); err == nil {
				var hit cachedResponse
				if json.Unmarshal(bs, &hit) == nil && hit.Status != 0 {
					c.Response().Header().Set("X-Cache", "HIT")
					return c.Blob(hit.Status, hit.ContentType, hit.Body)
				}
			} else if err != redis.Nil {
				log.WithError(err).Warn("cache read failed")
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
			c.Response().Writer = cw
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if cw.overflow || !cacheable(cw.status, cw.buf.Bytes()) {
				return nil
			}
			payload, err := json.Marshal(cachedResponse{
				Status:      cw.status,
				ContentType: c.Response().Header().Get(echo.HeaderContentType),
				Body:        cw.buf.Bytes(),
			})
			if err != nil {
				return nil
			}
			wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
			defer cancel()
			if err := rdb.Set(wctx, key, string(payload), cfg.TTL).Err(); err != nil {
				log.WithError(err).Warn("cache write failed")
			}
			return nil
		}
	}
}

// CacheInvalidator drops every cached response.  A nil invalidator or
// one without a client does nothing.
type CacheInvalidator struct {
	rdb    *redis.Client
	prefix string
}

// NewCacheInvalidator returns an invalidator for keys written by
// NewRedisCache with the same config.
func NewCacheInvalidator(cfg config.CacheConfig, rdb *redis.Client) *CacheInvalidator {
	if !cfg.Enabled || rdb == nil {
		return nil
	}
	return &CacheInvalidator{rdb: rdb, prefix: cfg.Prefix}
}

// Invalidate scans the cache prefix and deletes what it finds.
func (ci *CacheInvalidator) Invalidate(ctx context.Context) error {
	if ci == nil || ci.rdb == nil {
		return nil
	}
	var cursor uint64
	for {
		keys, next, err := ci.rdb.Scan(ctx, cursor, ci.prefix+":*", 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := ci.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
