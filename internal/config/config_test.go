package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadReadsRequiredAndDefaults(t *testing.T) {
	for k, v := range map[string]string{
		"APP_ENV": "test", "APP_PORT": "8080", "DB_USER": "u", "DB_HOST": "h", "DB_PORT": "3306",
		"DB_NAME": "club", "JWT_SECRET": "s", "ACCESS_TOKEN_TTL_MIN": "15",
		"REFRESH_TOKEN_TTL_DAYS": "7", "BCRYPT_COST": "10", "CORS_ORIGINS": " https://a.test, ,https://b.test",
	} {
		t.Setenv(k, v)
	}
	cfg := Load()
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, 15, cfg.AccessTTLMin)
	require.Equal(t, 5, cfg.PageSize)
	require.Equal(t, 10*time.Second, cfg.ShutdownGrace)
	require.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSOrigins)
	require.NotNil(t, cfg.BookingTZ)
}

func TestEnvHelpersFallBack(t *testing.T) {
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_INT", "ten")
	t.Setenv("X_DUR", "5m")
	require.True(t, envBool("X_BOOL", true))
	require.Equal(t, 3, envInt("X_INT", 3))
	require.Equal(t, 5*time.Minute, envDur("X_DUR", time.Second))
	require.Equal(t, "d", envStr("X_UNSET_VALUE", "d"))
}

func TestLoadRedisConfigHostPortWins(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	require.Equal(t, "cache:6380", LoadRedisConfig().Addr)

	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	require.Equal(t, "redis:6379", LoadRedisConfig().Addr)
}

func TestBookingRateLimit(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "100")
	t.Setenv("BOOKING_RATE_LIMIT_CAPACITY", "0")
	t.Setenv("BOOKING_RATE_LIMIT_REFILL_INTERVAL", "1m")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	general := LoadRateLimitConfig()
	require.Equal(t, 100, general.Capacity)

	booking := LoadBookingRateLimitConfig()
	require.Equal(t, 1, booking.Capacity)
	require.Equal(t, "user", booking.KeyStrategy)
	require.Equal(t, "rl:booking", booking.Prefix)
	// TTL never expires a bucket before it could refill
	require.Equal(t, 5*time.Minute, booking.TTL)
}

func TestStorageAndCacheHelpers(t *testing.T) {
	s := StorageConfig{AWSRegion: "us-east-1", AWSAccessKey: "a", AWSSecretKey: "b"}
	require.False(t, s.UseS3())
	s.Bucket = "logos"
	require.True(t, s.UseS3())

	t.Setenv("CACHE_METHODS", "get, head")
	c := LoadCacheConfig()
	require.True(t, c.Methods["GET"])
	require.True(t, c.Methods["HEAD"])
	w := c.WithTTL(time.Minute, "weather")
	require.Equal(t, "cache:weather", w.Prefix)
	require.Equal(t, time.Minute, w.TTL)
	require.Equal(t, "cache", c.Prefix)
}
