package config

import "time"

// RateLimitConfig drives the Redis token bucket.  Write endpoints that
// create or change reservations use a separate, smaller bucket so browsing
// cannot starve booking and a single client cannot flood a club.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig returns the general bucket configuration.
func LoadRateLimitConfig() RateLimitConfig {
    return normalizeRateLimit(RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    })
}

// LoadBookingRateLimitConfig returns the bucket applied to reservation
// mutations.  It shares the enable switch and key strategy of the general
// bucket but has its own capacity and prefix.
func LoadBookingRateLimitConfig() RateLimitConfig {
    base := LoadRateLimitConfig()
    base.Capacity = envInt("BOOKING_RATE_LIMIT_CAPACITY", 10)
    base.RefillInterval = envDur("BOOKING_RATE_LIMIT_REFILL_INTERVAL", 6*time.Second)
    base.KeyStrategy = envStr("BOOKING_RATE_LIMIT_KEY_STRATEGY", "user")
    base.Prefix = envStr("BOOKING_RATE_LIMIT_PREFIX", "rl:booking")
    return normalizeRateLimit(base)
}

func normalizeRateLimit(c RateLimitConfig) RateLimitConfig {
    if c.Capacity < 1 {
        c.Capacity = 1
    }
    if c.RefillTokens < 1 {
        c.RefillTokens = 1
    }
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
        c.TTL = minTTL
    }
    return c
}
