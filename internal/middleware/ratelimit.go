package middleware

import (
    "context"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/guest-pass/internal/config"
    "github.com/iliyamo/guest-pass/internal/logging"
)

// takeScript refills the bucket continuously (rate tokens per millisecond)
// and takes one token.  It returns {allowed, tokens left, ms until the next
// token}.  The bucket is a hash {t = tokens, at = last update in ms}.
var takeScript = redis.NewScript(`
local cap  = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now  = tonumber(ARGV[3])
local ttl  = tonumber(ARGV[4])

local t  = tonumber(redis.call('HGET', KEYS[1], 't'))
local at = tonumber(redis.call('HGET', KEYS[1], 'at'))
if t == nil or at == nil then
    t, at = cap, now
end
t = math.min(cap, t + math.max(0, now - at) * rate)

local ok, wait = 0, 0
if t >= 1 then
    ok, t = 1, t - 1
else
    wait = math.ceil((1 - t) / rate)
end
redis.call('HSET', KEYS[1], 't', tostring(t), 'at', now)
redis.call('PEXPIRE', KEYS[1], ttl)
return {ok, math.floor(t), wait}
`)

// scanLimiter throttles verification traffic per scanner device.
type scanLimiter struct {
    cfg  config.RateLimitConfig
    rdb  *redis.Client
    rate float64 // tokens per millisecond
}

type decision struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

func (l *scanLimiter) take(ctx context.Context, key string) (decision, error) {
    res, err := takeScript.Run(ctx, l.rdb, []string{key},
        l.cfg.Capacity, l.rate, time.Now().UnixMilli(), l.cfg.TTL.Milliseconds()).Int64Slice()
    if err != nil {
        return decision{}, err
    }
    if len(res) != 3 {
        return decision{}, redis.Nil
    }
    return decision{
        allowed:   res[0] == 1,
        remaining: res[1],
        retry:     time.Duration(res[2]) * time.Millisecond,
    }, nil
}

// key identifies the bucket for a request: by client address, by staff
// member, or by both (the default).
func (l *scanLimiter) key(c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    parts := []string{l.cfg.Prefix}
    switch strings.ToLower(l.cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "user":
        parts = append(parts, "user", ActorID(c))
    default:
        parts = append(parts, "ip", ip, "user", ActorID(c))
    }
    return strings.Join(parts, ":")
}

// NewTokenBucket limits verify and scan requests with a token bucket kept
// in Redis, so replicas sharing the instance share the bucket.  Redis
// errors let the request through: a limiter outage must not stop scanning
// at the door.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    l := &scanLimiter{
        cfg:  cfg,
        rdb:  rdb,
        rate: float64(cfg.RefillTokens) / float64(cfg.RefillInterval.Milliseconds()),
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            ctx := c.Request().Context()
            key := l.key(c)
            d, err := l.take(ctx, key)
            if err != nil {
                logging.FromContext(ctx).WithError(err).WithField("key", key).Warn("rate limiter unavailable")
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if d.allowed {
                return next(c)
            }

            secs := int(math.Ceil(d.retry.Seconds()))
            h.Set("Retry-After", strconv.Itoa(secs))
            logging.FromContext(ctx).WithField("key", key).Info("scan rate limit hit")
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too_many_requests",
                "retry_after": secs,
            })
        }
    }
}
