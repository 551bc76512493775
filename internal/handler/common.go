package handler // handler defines http handlers

import (
    "context"  // per-request deadlines for store calls
    "errors"   // errors.Is against repository sentinels
    "net/http" // http defines status code constants
    "strings"  // strings trims and lower-cases input
    "time"     // handler timeout

    "github.com/google/uuid"      // record ids are uuids
    "github.com/labstack/echo/v4" // echo defines request context types

    "github.com/iliyamo/guest-pass/internal/logging"    // request-scoped logger
    "github.com/iliyamo/guest-pass/internal/repository" // sentinel errors
)

// requestTimeout bounds every store call made by a handler.
const requestTimeout = 5 * time.Second

func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// validID reports whether raw is a well formed record id.
func validID(raw string) bool {
    _, err := uuid.Parse(raw)
    return err == nil
}

// storeError maps a repository error onto the JSON error response.  what
// names the record in messages ("invitation", "ticket").
func storeError(c echo.Context, err error, what, id string) error {
    switch {
    case errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": what + " not found"})
    case errors.Is(err, repository.ErrAlreadySold):
        return c.JSON(http.StatusConflict, echo.Map{"error": what + " already sold"})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": what + " already scanned"})
    }
    logging.FromContext(c.Request().Context()).WithError(err).WithField("id", id).Errorf("%s store failure", what)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "storage error"})
}

// baseURL picks the prefix of verification URLs: the configured BASE_URL,
// then the browser's Origin, then the address the request came in on.
func baseURL(c echo.Context, configured string) string {
    if configured != "" {
        return strings.TrimRight(configured, "/")
    }
    if origin := c.Request().Header.Get(echo.HeaderOrigin); origin != "" {
        return strings.TrimRight(origin, "/")
    }
    return c.Scheme() + "://" + c.Request().Host
}

// normEmail trims and lower-cases an email address.
func normEmail(s string) string {
    return strings.ToLower(strings.TrimSpace(s))
}

// looksLikeEmail is a cheap sanity check, not RFC 5322.
func looksLikeEmail(s string) bool {
    at := strings.IndexByte(s, '@')
    return at > 0 && at < len(s)-1 && !strings.ContainsAny(s, " \t\r\n")
}
