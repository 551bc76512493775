package config

import "time"

// CacheConfig defines settings for the Redis response cache that sits in
// front of the QR image endpoints.  When Enabled is false or no Redis
// client is configured, caching is disabled.  Methods lists the HTTP
// methods to cache.  TTL defines the lifetime of cache entries and should
// not exceed the Cache-Control max-age the handlers advertise.  KeyStrategy
// determines which parts of the request contribute to the cache key.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.  The default key strategy is
// "host_path_query": QR payloads embed the verification base URL, which may
// be derived from the request Origin or host, so both are part of the key.
func LoadCacheConfig() CacheConfig {
    cfg := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      envSet("CACHE_METHODS", "GET"),
        TTL:          envDur("CACHE_TTL", time.Hour),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "host_path_query"),
        Prefix:       envStr("CACHE_PREFIX", "qrcache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    if cfg.TTL <= 0 {
        cfg.TTL = time.Hour
    }
    return cfg
}
