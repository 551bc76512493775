package config

import "time"

// RateLimitConfig configures the Redis token bucket guarding the verify
// and scan endpoints.  A scanner at the door produces a handful of requests
// per second at most; the defaults leave room for a few devices sharing an
// address.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int           // bucket size (burst)
    RefillTokens   int           // tokens added per RefillInterval
    RefillInterval time.Duration
    TTL            time.Duration // idle buckets expire after this
    KeyStrategy    string        // ip | user | ip_user
    Prefix         string
    Debug          bool          // expose the bucket key in X-RateLimit-Key
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables and clamps them to
// usable values.
func LoadRateLimitConfig() RateLimitConfig {
    cfg := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 30),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 5),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "rl:scan"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    cfg.Capacity = max(cfg.Capacity, 1)
    cfg.RefillTokens = max(cfg.RefillTokens, 1)
    if cfg.RefillInterval < time.Millisecond {
        cfg.RefillInterval = time.Second
    }
    // A bucket must outlive the time it takes to refill completely.
    full := time.Duration(cfg.Capacity/cfg.RefillTokens+1) * cfg.RefillInterval
    cfg.TTL = max(cfg.TTL, full)
    return cfg
}
