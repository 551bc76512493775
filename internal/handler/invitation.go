package handler // handler package contains invitation handlers

import (
    "net/http" // http defines status code constants
    "strings"  // strings trims text

    "github.com/labstack/echo/v4" // echo framework supplies request context

    "github.com/iliyamo/guest-pass/internal/logging" // request-scoped logger
    "github.com/iliyamo/guest-pass/internal/service" // store interfaces
)

// InvitationHandler serves the invitation collection.
type InvitationHandler struct {
    Store service.InvitationStore
}

// NewInvitationHandler panics on a nil store.
func NewInvitationHandler(store service.InvitationStore) *InvitationHandler {
    if store == nil {
        panic("nil store passed to NewInvitationHandler")
    }
    return &InvitationHandler{Store: store}
}

// List handles GET /v1/invitations in storage order.
func (h *InvitationHandler) List(c echo.Context) error {
    ctx, cancel := withTimeout(c)
    defer cancel()
    items, err := h.Store.List(ctx)
    if err != nil {
        return storeError(c, err, "invitation", "")
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// Get handles GET /v1/invitations/:id.
func (h *InvitationHandler) Get(c echo.Context) error {
    id := c.Param("id")
    if !validID(id) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    inv, err := h.Store.GetByID(ctx, id)
    if err != nil {
        return storeError(c, err, "invitation", id)
    }
    return c.JSON(http.StatusOK, inv)
}

// Share handles GET /v1/share/invitations/:id, the public projection shown
// on the guest's share page: no email, no timestamps.
func (h *InvitationHandler) Share(c echo.Context) error {
    id := c.Param("id")
    if !validID(id) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "invitation not found"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    inv, err := h.Store.GetByID(ctx, id)
    if err != nil {
        return storeError(c, err, "invitation", id)
    }
    return c.JSON(http.StatusOK, echo.Map{"id": inv.ID, "name": inv.Name, "scanned": inv.Scanned})
}

// Create handles POST /v1/invitations {name, email}.
func (h *InvitationHandler) Create(c echo.Context) error {
    var body struct {
        Name  string `json:"name"`
        Email string `json:"email"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    name := strings.TrimSpace(body.Name)
    email := normEmail(body.Email)
    if name == "" || email == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and email are required"})
    }
    if !looksLikeEmail(email) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid email"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    inv, err := h.Store.Create(ctx, name, email)
    if err != nil {
        return storeError(c, err, "invitation", "")
    }
    logging.FromContext(ctx).WithField("id", inv.ID).Info("Invitation created")
    return c.JSON(http.StatusCreated, inv)
}

// Patch handles PATCH /v1/invitations/:id {scanned}.  Clearing the flag is
// the administrative way to let a guest in again.
func (h *InvitationHandler) Patch(c echo.Context) error {
    id := c.Param("id")
    if !validID(id) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var body struct {
        Scanned *bool `json:"scanned"`
    }
    if err := c.Bind(&body); err != nil || body.Scanned == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "scanned is required"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    inv, err := h.Store.SetScanned(ctx, id, *body.Scanned)
    if err != nil {
        return storeError(c, err, "invitation", id)
    }
    return c.JSON(http.StatusOK, inv)
}

// Delete handles DELETE /v1/invitations/:id.  The store treats deleting a
// missing id as a no-op; the API reports it as 404.
func (h *InvitationHandler) Delete(c echo.Context) error {
    id := c.Param("id")
    if !validID(id) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    if _, err := h.Store.GetByID(ctx, id); err != nil {
        return storeError(c, err, "invitation", id)
    }
    if err := h.Store.Delete(ctx, id); err != nil {
        return storeError(c, err, "invitation", id)
    }
    return c.NoContent(http.StatusNoContent)
}
