package config

import (
    "strings"
    "time"
)

// CacheConfig defines settings for the response cache used on public
// browse endpoints (club list, club detail, rankings, weather).  Live
// availability is never cached.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    WeatherTTL   time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        WeatherTTL:   envDur("CACHE_WEATHER_TTL", 15*time.Minute),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
}

// WithTTL returns a copy of c using ttl and a prefix suffix, so different
// route groups keep separate key spaces.
func (c CacheConfig) WithTTL(ttl time.Duration, suffix string) CacheConfig {
    out := c
    out.TTL = ttl
    if suffix != "" {
        out.Prefix = c.Prefix + ":" + suffix
    }
    return out
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range splitList(s) {
        m[strings.ToUpper(p)] = true
    }
    return m
}
