package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/park-ticketing/internal/config"
	"github.com/iliyamo/park-ticketing/internal/utils"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func discardEntry() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin/users", func(c echo.Context) error {
		id, ok := CurrentUserID(c)
		require.True(t, ok)
		return c.JSON(http.StatusOK, echo.Map{"id": id, "username": c.Get(CtxUsername)})
	}, JWTAuth("k"), RequireRole("admin"))

	admin, _, err := utils.IssueToken("k", 5, "root", "admin", time.Hour)
	require.NoError(t, err)
	user, _, err := utils.IssueToken("k", 6, "ann", "user", time.Hour)
	require.NoError(t, err)
	forged, _, err := utils.IssueToken("other", 5, "root", "admin", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		msg    string
	}{
		{"no header", "", http.StatusUnauthorized, "Unauthorized. Please login."},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "Unauthorized. Please login."},
		{"forged", "Bearer " + forged, http.StatusUnauthorized, "Unauthorized. Please login."},
		{"wrong role", "Bearer " + user, http.StatusForbidden, "Forbidden. Admin access required."},
		{"admin", "Bearer " + admin, http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tc.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tc.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
			body := decodeBody(t, rec)
			if tc.msg != "" {
				assert.Equal(t, false, body["success"])
				assert.Equal(t, tc.msg, body["message"])
			} else {
				assert.Equal(t, float64(5), body["id"])
				assert.Equal(t, "root", body["username"])
			}
		})
	}
}

func TestRedisCacheMissThenHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := config.CacheConfig{Enabled: true, Paths: map[string]bool{"/events": true}, TTL: 30 * time.Second, Prefix: "park:cache", MaxBodyBytes: 1 << 20}

	calls := 0
	e := echo.New()
	e.GET("/events", func(c echo.Context) error {
		calls++
		return c.Blob(http.StatusOK, "application/json", []byte(`{"success":true}`))
	}, NewRedisCache(cfg, rdb))

	key := cacheKey("park:cache", "/events", "")
	payload, err := json.Marshal(cachedResponse{Status: 200, ContentType: "application/json", Body: []byte(`{"success":true}`)})
	require.NoError(t, err)

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, string(payload), 30*time.Second).SetVal("OK")
	mock.ExpectGet(key).SetVal(string(payload))

	for i, want := range []string{"MISS", "HIT"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i)
		assert.Equal(t, want, rec.Header().Get("X-Cache"))
		assert.Equal(t, `{"success":true}`, rec.Body.String())
	}
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheSkipsOtherMethodsAndFailures(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := config.CacheConfig{Enabled: true, Paths: map[string]bool{"/events": true}, TTL: time.Minute, Prefix: "park:cache"}
	mw := NewRedisCache(cfg, rdb)

	e := echo.New()
	e.POST("/events", func(c echo.Context) error { return c.String(http.StatusOK, "detail") }, mw)
	e.GET("/events", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"success": false, "message": "Failed to load events"})
	}, mw)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{}`)))
	assert.Equal(t, "detail", rec.Body.String())

	mock.ExpectGet(cacheKey("park:cache", "/events", "")).RedisNil()
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Contains(t, rec.Body.String(), "Failed to load events")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheable(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{"success envelope", http.StatusOK, `{"success":true,"events":[]}`, true},
		{"failure envelope", http.StatusOK, `{"success":false,"message":"Failed to load events"}`, false},
		{"no envelope", http.StatusOK, `{"status":"ok"}`, true},
		{"array body", http.StatusOK, `[1,2]`, true},
		{"plain text", http.StatusOK, "hello", true},
		{"server error", http.StatusServiceUnavailable, `{"success":true}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cacheable(tc.status, []byte(tc.body)))
		})
	}
}

func TestCacheInvalidator(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	ci := NewCacheInvalidator(config.CacheConfig{Enabled: true, Prefix: "park:cache"}, rdb)

	mock.ExpectScan(0, "park:cache:*", 100).SetVal([]string{"park:cache:a"}, 7)
	mock.ExpectDel("park:cache:a").SetVal(1)
	mock.ExpectScan(7, "park:cache:*", 100).SetVal([]string{"park:cache:b"}, 0)
	mock.ExpectDel("park:cache:b").SetVal(1)

	require.NoError(t, ci.Invalidate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())

	var none *CacheInvalidator
	assert.NoError(t, none.Invalidate(context.Background()))
	assert.Nil(t, NewCacheInvalidator(config.CacheConfig{Enabled: true}, nil))
}

func TestTokenBucket(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 5, RefillTokens: 1, RefillInterval: 3 * time.Second, TTL: 10 * time.Minute, Prefix: "park:rl"}
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	tb := &TokenBucket{cfg: cfg, rdb: rdb, now: func() time.Time { return now }, log: discardEntry()}

	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, tb.Middleware)

	key := "park:rl:ip:192.0.2.1:user:anon:route:POST /login"
	args := []interface{}{now.UnixMilli(), 5, 1, int64(3000), int64(600)}
	mock.ExpectEvalSha(limiterScript.Hash(), []string{key}, args...).SetVal([]interface{}{int64(1), int64(4), int64(0)})
	mock.ExpectEvalSha(limiterScript.Hash(), []string{key}, args...).SetVal([]interface{}{int64(0), int64(0), int64(2500)})
	mock.ExpectEvalSha(limiterScript.Hash(), []string{key}, args...).SetErr(errors.New("connection refused"))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("Retry-After"))
	assert.Equal(t, false, decodeBody(t, rec)["success"])

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code, "redis failures fail open")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestErrorHandlerEnvelope(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.POST("/booking", func(c echo.Context) error { return nil })
	e.GET("/boom", func(c echo.Context) error { return errors.New("kaput") })

	cases := []struct {
		method, path string
		status       int
		msg          string
	}{
		{http.MethodGet, "/booking", http.StatusMethodNotAllowed, "Method not allowed"},
		{http.MethodGet, "/nowhere", http.StatusNotFound, "Not found"},
		{http.MethodGet, "/boom", http.StatusInternalServerError, "Internal server error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.status, rec.Code, tc.path)
		body := decodeBody(t, rec)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, tc.msg, body["message"])
	}
}

func TestRequestIDPropagates(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(echo.HeaderXRequestID, "6f1c2a7e-54a4-4a51-9f3b-0c1e0d9a7b11")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "6f1c2a7e-54a4-4a51-9f3b-0c1e0d9a7b11", rec.Header().Get(echo.HeaderXRequestID))
}
