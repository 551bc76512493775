package config

import (
    "context"
    "crypto/tls"
    "net"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisOptions builds client options from REDIS_* variables.  REDIS_HOST
// and REDIS_PORT together override REDIS_ADDR.
func RedisOptions() *redis.Options {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := lookup("REDIS_HOST"), lookup("REDIS_PORT"); host != "" && port != "" {
        addr = net.JoinHostPort(host, port)
    }
    opts := &redis.Options{
        Addr:         addr,
        Password:     lookup("REDIS_PASSWORD"),
        DB:           envInt("REDIS_DB", 0),
        DialTimeout:  envDur("REDIS_DIAL_TIMEOUT", 2*time.Second),
        ReadTimeout:  500 * time.Millisecond,
        WriteTimeout: 500 * time.Millisecond,
    }
    if envBool("REDIS_TLS", false) {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: envStr("REDIS_TLS_SERVER_NAME", "")}
    }
    return opts
}

// NewRedisClient returns nil when REDIS_ENABLED=false or the server does
// not answer a ping; the rate limiter and QR cache then pass requests
// straight through.
func NewRedisClient() *redis.Client {
    if !envBool("REDIS_ENABLED", true) {
        return nil
    }
    client := redis.NewClient(RedisOptions())
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
