package handler

import (
    "errors"   // errors.Is against ErrBadPayload
    "net/http" // http defines status code constants
    "strings"  // strings trims payloads

    "github.com/labstack/echo/v4" // echo framework supplies request context

    "github.com/iliyamo/guest-pass/internal/logging"    // request-scoped logger
    "github.com/iliyamo/guest-pass/internal/middleware" // scanning staff member
    "github.com/iliyamo/guest-pass/internal/model"      // outcome types
    "github.com/iliyamo/guest-pass/internal/service"    // verifier
)

// VerifyHandler exposes the code verifier to door staff.
type VerifyHandler struct {
    Verifier *service.Verifier
}

func NewVerifyHandler(v *service.Verifier) *VerifyHandler {
    return &VerifyHandler{Verifier: v}
}

// Verify handles POST /v1/verify/:kind/:id.  A malformed id is a 400 and
// never reaches the store; an unknown one answers 404
// with the INVALID outcome; every other outcome, including refusals, is a
// 200 so the scanner can show the message.
func (h *VerifyHandler) Verify(c echo.Context) error {
    kind, ok := model.ParseKind(c.Param("kind"))
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "kind must be invitation or ticket"})
    }
    id := strings.TrimSpace(c.Param("id"))
    if !validID(id) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    out, err := h.Verifier.Verify(ctx, kind, id, middleware.ActorID(c))
    if err != nil {
        return storeError(c, err, kind.String(), id)
    }
    return c.JSON(outcomeStatus(out), out)
}

// Scan handles POST /v1/scan {payload}: the raw text a camera read from a
// code.
func (h *VerifyHandler) Scan(c echo.Context) error {
    var body struct {
        Payload string `json:"payload"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    payload := strings.TrimSpace(body.Payload)
    if payload == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "payload is required"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    out, err := h.Verifier.VerifyPayload(ctx, payload, middleware.ActorID(c))
    if errors.Is(err, service.ErrBadPayload) {
        logging.FromContext(ctx).WithField("payload", payload).Info("Unrecognized code scanned")
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "not a verification code"})
    }
    if err != nil {
        return storeError(c, err, "record", "")
    }
    return c.JSON(outcomeStatus(out), out)
}

func outcomeStatus(out model.Outcome) int {
    if out.Status == model.OutcomeInvalid {
        return http.StatusNotFound
    }
    return http.StatusOK
}
