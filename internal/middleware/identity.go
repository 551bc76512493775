package middleware

// identity.go defines helper functions shared across middleware files and
// handlers.

import "github.com/labstack/echo/v4"

// ActorID returns the staff email stored by JWTAuth, or "anon" when the
// request is unauthenticated.
func ActorID(c echo.Context) string {
    if v := c.Get("user_id"); v != nil {
        if s, ok := v.(string); ok && s != "" {
            return s
        }
    }
    return "anon"
}
