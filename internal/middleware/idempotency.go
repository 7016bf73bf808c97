package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"

	idemProcessing = "processing"
	idemSuccess    = "success"
)

type idemState struct {
	Status      string `json:"status"`
	Fingerprint string `json:"fingerprint"`
	Code        int    `json:"code,omitempty"`
	Body        []byte `json:"body,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Idempotency makes a POST safe to retry when the client sends an
// Idempotency-Key header.  The first request with a key claims it in
// Redis (SET NX); a 2xx response is stored and replayed to later requests
// with the same key and body, any other outcome releases the key.  A
// retry while the first is still running gets 409, and a reused key with
// a different body gets 422.  Without a key or without Redis the request
// passes through.
func Idempotency(rdb *redis.Client, ttl time.Duration, prefix string) echo.MiddlewareFunc {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if rdb == nil {
			return next
		}
		return func(c echo.Context) error {
			idemKey := strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))
			if idemKey == "" {
				return next(c)
			}
			if len(idemKey) > 128 {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "Idempotency-Key too long", "code": "BAD_REQUEST"})
			}
			body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body", "code": "BAD_REQUEST"})
			}
			c.Request().Body = io.NopCloser(bytes.NewReader(body))
			sum := sha256.Sum256(body)
			fp := hex.EncodeToString(sum[:])

			ctx := c.Request().Context()
			key := fmt.Sprintf("%s:%s:%s", prefix, userKey(c), idemKey)

			stored, err := claimIdempotencyKey(ctx, rdb, key, fp, ttl)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("idempotency store unavailable; passing through")
				return next(c)
			}
			if stored != nil {
				if stored.Fingerprint != fp {
					return c.JSON(http.StatusUnprocessableEntity, echo.Map{
						"error": "Idempotency-Key was already used with a different request body",
						"code":  "VALIDATION_FAILED",
					})
				}
				if stored.Status == idemProcessing {
					return c.JSON(http.StatusConflict, echo.Map{
						"error": "a request with this Idempotency-Key is still being processed",
						"code":  "CONFLICT",
					})
				}
				c.Response().Header().Set(headerReplayed, "true")
				return c.Blob(stored.Code, stored.ContentType, stored.Body)
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			herr := next(c)
			if herr != nil {
				c.Error(herr)
			}

			bg, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if herr == nil && cw.status >= 200 && cw.status < 300 {
				raw, _ := json.Marshal(idemState{
					Status:      idemSuccess,
					Fingerprint: fp,
					Code:        cw.status,
					Body:        cw.buf.Bytes(),
					ContentType: c.Response().Header().Get(echo.HeaderContentType),
				})
				if err := rdb.Set(bg, key, raw, ttl).Err(); err != nil {
					log.Warn().Err(err).Str("key", key).Msg("idempotency: store result failed")
				}
			} else if err := rdb.Del(bg, key).Err(); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("idempotency: release key failed")
			}
			return nil
		}
	}
}

// claimIdempotencyKey returns nil when this request now owns the key and
// the stored state otherwise.
func claimIdempotencyKey(ctx context.Context, rdb *redis.Client, key, fp string, ttl time.Duration) (*idemState, error) {
	for attempt := 0; attempt < 3; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		data, err := rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			raw, _ := json.Marshal(idemState{Status: idemProcessing, Fingerprint: fp})
			_, err := rdb.SetArgs(ctx, key, raw, redis.SetArgs{Mode: "NX", TTL: ttl}).Result()
			if errors.Is(err, redis.Nil) {
				continue // lost the race; read the winner's state
			}
			if err != nil {
				return nil, fmt.Errorf("redis set: %w", err)
			}
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("redis get: %w", err)
		}
		var st idemState
		if err := json.Unmarshal(data, &st); err != nil {
			_ = rdb.Del(ctx, key).Err()
			continue
		}
		return &st, nil
	}
	return nil, errors.New("could not claim idempotency key")
}
