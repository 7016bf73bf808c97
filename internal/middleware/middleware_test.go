package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fishing-club-booking/internal/config"
	"github.com/iliyamo/fishing-club-booking/internal/utils"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func do(e *echo.Echo, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, id uint64, role string) map[string]string {
	t.Helper()
	tok, err := utils.NewAccessToken("secret", id, role, 5)
	require.NoError(t, err)
	return map[string]string{echo.HeaderAuthorization: "Bearer " + tok.Token}
}

func TestJWTAuthAndRole(t *testing.T) {
	e := echo.New()
	g := e.Group("/club", JWTAuth("secret"), RequireRole("CLUB"))
	g.GET("/me", func(c echo.Context) error {
		id, ok := UserID(c)
		require.True(t, ok)
		return c.JSON(http.StatusOK, echo.Map{"id": id, "role": Role(c)})
	})

	rec := do(e, http.MethodGet, "/club/me", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), `"UNAUTHORIZED"`)

	rec = do(e, http.MethodGet, "/club/me", "", map[string]string{echo.HeaderAuthorization: "Bearer garbage"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/club/me", "", bearer(t, 9, "FISHER"))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), `"FORBIDDEN"`)

	rec = do(e, http.MethodGet, "/club/me", "", bearer(t, 9, "CLUB"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"id":9,"role":"CLUB"}`, rec.Body.String())
}

func TestJWTAuthQueryTokenOnlyForUpgrade(t *testing.T) {
	e := echo.New()
	e.GET("/ws", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, JWTAuth("secret"))
	tok, err := utils.NewAccessToken("secret", 3, "FISHER", 5)
	require.NoError(t, err)

	rec := do(e, http.MethodGet, "/ws?access_token="+tok.Token, "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/ws?access_token="+tok.Token, "", map[string]string{"Upgrade": "websocket"})
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, RequestIDFromContext(c.Request().Context()))
	})

	rec := do(e, http.MethodGet, "/", "", map[string]string{HeaderRequestID: "abc-123"})
	require.Equal(t, "abc-123", rec.Body.String())
	require.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))

	rec = do(e, http.MethodGet, "/", "", map[string]string{HeaderRequestID: "bad id with spaces"})
	require.NotEqual(t, "bad id with spaces", rec.Body.String())
	require.Len(t, rec.Body.String(), 32)
}

func idempotentServer(t *testing.T, rdb *redis.Client, status int) (*echo.Echo, *int32) {
	t.Helper()
	var calls int32
	e := echo.New()
	e.POST("/v1/reservations", func(c echo.Context) error {
		n := atomic.AddInt32(&calls, 1)
		return c.JSON(status, echo.Map{"id": n})
	}, JWTAuth("secret"), Idempotency(rdb, time.Minute, "idem:test"))
	return e, &calls
}

func TestIdempotencyReplaysSuccess(t *testing.T) {
	_, rdb := newRedis(t)
	e, calls := idempotentServer(t, rdb, http.StatusCreated)
	h := bearer(t, 5, "FISHER")
	h[HeaderIdempotencyKey] = "k-1"

	first := do(e, http.MethodPost, "/v1/reservations", `{"party_size":2}`, h)
	require.Equal(t, http.StatusCreated, first.Code)

	second := do(e, http.MethodPost, "/v1/reservations", `{"party_size":2}`, h)
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, "true", second.Header().Get(headerReplayed))
	require.JSONEq(t, first.Body.String(), second.Body.String())
	require.EqualValues(t, 1, atomic.LoadInt32(calls))

	mismatch := do(e, http.MethodPost, "/v1/reservations", `{"party_size":3}`, h)
	require.Equal(t, http.StatusUnprocessableEntity, mismatch.Code)

	// keys are scoped per user
	other := bearer(t, 6, "FISHER")
	other[HeaderIdempotencyKey] = "k-1"
	rec := do(e, http.MethodPost, "/v1/reservations", `{"party_size":2}`, other)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestIdempotencyReleasesKeyOnFailure(t *testing.T) {
	mr, rdb := newRedis(t)
	e, calls := idempotentServer(t, rdb, http.StatusConflict)
	h := bearer(t, 5, "FISHER")
	h[HeaderIdempotencyKey] = "k-2"

	rec := do(e, http.MethodPost, "/v1/reservations", `{}`, h)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Empty(t, mr.Keys())

	rec = do(e, http.MethodPost, "/v1/reservations", `{}`, h)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Empty(t, rec.Header().Get(headerReplayed))
	require.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestIdempotencyInProgress(t *testing.T) {
	mr, rdb := newRedis(t)
	e, calls := idempotentServer(t, rdb, http.StatusCreated)
	h := bearer(t, 5, "FISHER")
	h[HeaderIdempotencyKey] = "k-3"

	// {} hashes to this fingerprint
	const emptyObjectSHA = "44136fa355b3678a1146ad16f7e8649e94fb4fc21fe77e8310c060f61caaff8a"
	require.NoError(t, mr.Set("idem:test:5:k-3", `{"status":"processing","fingerprint":"`+emptyObjectSHA+`"}`))

	rec := do(e, http.MethodPost, "/v1/reservations", `{}`, h)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Zero(t, atomic.LoadInt32(calls))
}

func TestIdempotencyWithoutKeyPassesThrough(t *testing.T) {
	_, rdb := newRedis(t)
	e, calls := idempotentServer(t, rdb, http.StatusCreated)
	h := bearer(t, 5, "FISHER")
	do(e, http.MethodPost, "/v1/reservations", `{}`, h)
	do(e, http.MethodPost, "/v1/reservations", `{}`, h)
	require.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestTokenBucket(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Hour,
		TTL: 2 * time.Hour, KeyStrategy: "ip", Prefix: "rl:test",
	}
	e := echo.New()
	e.GET("/v1/clubs", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, rdb))

	require.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/clubs", "", nil).Code)
	require.Equal(t, http.StatusOK, do(e, http.MethodGet, "/v1/clubs", "", nil).Code)
	rec := do(e, http.MethodGet, "/v1/clubs", "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), "TOO_MANY_REQUESTS")
}

func TestTokenBucketDisabledWithoutRedis(t *testing.T) {
	e := echo.New()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour}
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, NewTokenBucket(cfg, nil))
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, do(e, http.MethodGet, "/", "", nil).Code)
	}
}

func TestRedisCache(t *testing.T) {
	_, rdb := newRedis(t)
	cfg := config.CacheConfig{
		Enabled: true, TTL: time.Minute, Methods: map[string]bool{"GET": true},
		KeyStrategy: "route_query", Prefix: "cache:test", MaxBodyBytes: 1 << 16,
	}
	var calls int32
	e := echo.New()
	e.GET("/v1/clubs/:id", func(c echo.Context) error {
		atomic.AddInt32(&calls, 1)
		if c.Param("id") == "404" {
			return c.JSON(http.StatusNotFound, echo.Map{"code": "NOT_FOUND"})
		}
		return c.JSON(http.StatusOK, echo.Map{"id": c.Param("id")})
	}, NewRedisCache(cfg, rdb))

	miss := do(e, http.MethodGet, "/v1/clubs/1", "", nil)
	require.Equal(t, "MISS", miss.Header().Get("X-Cache"))
	hit := do(e, http.MethodGet, "/v1/clubs/1", "", nil)
	require.Equal(t, "HIT", hit.Header().Get("X-Cache"))
	require.JSONEq(t, miss.Body.String(), hit.Body.String())
	require.Equal(t, echo.MIMEApplicationJSON, hit.Header().Get(echo.HeaderContentType))

	// a different path parameter is a different key
	do(e, http.MethodGet, "/v1/clubs/2", "", nil)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))

	// errors are not cached
	do(e, http.MethodGet, "/v1/clubs/404", "", nil)
	do(e, http.MethodGet, "/v1/clubs/404", "", nil)
	require.EqualValues(t, 4, atomic.LoadInt32(&calls))
}

func TestParseOTLPEndpoint(t *testing.T) {
	require.Equal(t, "collector:4318", parseOTLPEndpoint("http://collector:4318"))
	require.Equal(t, "collector:4318", parseOTLPEndpoint("collector:4318"))
	require.Equal(t, "", parseOTLPEndpoint(""))
}
