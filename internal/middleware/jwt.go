package middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/guest-pass/internal/logging"
    "github.com/iliyamo/guest-pass/internal/utils"
)

const bearerPrefix = "Bearer "

// JWTAuth validates the Bearer token and stores its subject and role under
// "user_id" and "role".  The request logger is tagged with the staff email.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw, found := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), bearerPrefix)
            if !found || raw == "" {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            claims, err := utils.ParseAccessToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            c.Set("user_id", claims.Subject)
            c.Set("role", claims.Role)

            req := c.Request()
            entry := logging.FromContext(req.Context()).WithField("staff", claims.Subject)
            c.SetRequest(req.WithContext(logging.ToContext(req.Context(), entry)))
            return next(c)
        }
    }
}
