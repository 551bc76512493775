package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/guest-pass/internal/config"
    "github.com/iliyamo/guest-pass/internal/logging"
)

// teeWriter forwards the response to the client and keeps a copy of the
// first limit bytes.  overflow is set once the body no longer fits.
type teeWriter struct {
    http.ResponseWriter
    status   int
    body     bytes.Buffer
    limit    int
    overflow bool
}

func (w *teeWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *teeWriter) Write(b []byte) (int, error) {
    if !w.overflow {
        if w.limit > 0 && w.body.Len()+len(b) > w.limit {
            w.overflow = true
            w.body.Reset()
        } else {
            w.body.Write(b)
        }
    }
    return w.ResponseWriter.Write(b)
}

// cacheKeyFrom hashes the request parts selected by cfg.KeyStrategy.  By
// default the Origin header, scheme and host take part: without BASE_URL the
// encoded verify URL is built from them.
func cacheKeyFrom(cfg config.CacheConfig, c echo.Context) string {
    r := c.Request()
    var b strings.Builder
    field := func(name, v string) {
        b.WriteString(name)
        b.WriteByte('=')
        b.WriteString(v)
        b.WriteByte('\n')
    }
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
        field("route", c.Path())
    case "path":
        field("path", r.URL.Path)
    case "path_query":
        field("path", r.URL.Path)
        field("q", r.URL.RawQuery)
    case "method_path_query":
        field("method", r.Method)
        field("path", r.URL.Path)
        field("q", r.URL.RawQuery)
    default:
        field("origin", r.Header.Get(echo.HeaderOrigin))
        field("scheme", c.Scheme())
        field("host", r.Host)
        field("path", r.URL.Path)
        field("q", r.URL.RawQuery)
    }
    sum := sha1.Sum([]byte(b.String()))
    return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}

// cachedResponse is one stored reply, kept in Redis as a hash.
type cachedResponse struct {
    Status int
    Header http.Header
    Body   []byte
}

func (cr cachedResponse) fields() (map[string]any, error) {
    hdr, err := json.Marshal(cr.Header)
    if err != nil {
        return nil, err
    }
    return map[string]any{
        "status": cr.Status,
        "header": hdr,
        "body":   cr.Body,
    }, nil
}

// responseFromFields rebuilds a reply from HGETALL output; ok is false for
// a missing or damaged entry.
func responseFromFields(m map[string]string) (cachedResponse, bool) {
    status, err := strconv.Atoi(m["status"])
    if err != nil || status < 100 {
        return cachedResponse{}, false
    }
    body, present := m["body"]
    if !present {
        return cachedResponse{}, false
    }
    cr := cachedResponse{Status: status, Header: http.Header{}, Body: []byte(body)}
    if h := m["header"]; h != "" {
        if err := json.Unmarshal([]byte(h), &cr.Header); err != nil {
            return cachedResponse{}, false
        }
    }
    return cr, true
}

func (cr cachedResponse) replay(c echo.Context) error {
    h := c.Response().Header()
    for k, vs := range cr.Header {
        if k == echo.HeaderContentLength {
            continue
        }
        h[k] = append([]string(nil), vs...)
    }
    h.Set("X-Cache", "HIT")
    c.Response().WriteHeader(cr.Status)
    _, err := c.Response().Write(cr.Body)
    return err
}

// NewRedisCache replays 200 responses from Redis with their original
// headers, so a hit carries the same Content-Type, Cache-Control and
// Content-Disposition as the first render.  Bodies above MaxBodyBytes are
// served but not stored.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[c.Request().Method] {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cacheKeyFrom(cfg, c)

            if m, err := rdb.HGetAll(ctx, key).Result(); err == nil && len(m) > 0 {
                if cr, ok := responseFromFields(m); ok {
                    return cr.replay(c)
                }
            }

            w := &teeWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = w
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if w.status != http.StatusOK || w.overflow {
                return nil
            }

            hdr := c.Response().Header().Clone()
            hdr.Del("X-Cache")
            fields, err := cachedResponse{Status: w.status, Header: hdr, Body: w.body.Bytes()}.fields()
            if err != nil {
                return nil
            }
            // The request context may already be done once the client has
            // its bytes.
            store := context.WithoutCancel(ctx)
            if _, err := rdb.TxPipelined(store, func(p redis.Pipeliner) error {
                p.Del(store, key)
                p.HSet(store, key, fields)
                p.Expire(store, key, cfg.TTL)
                return nil
            }); err != nil {
                logging.FromContext(ctx).WithError(err).Warn("qr cache store failed")
            }
            return nil
        }
    }
}
