package handler

import (
    "cmp"      // cmp orders tickets by number
    "net/http" // http defines status code constants
    "slices"   // slices sorts the listing
    "strconv"  // strconv parses ticket numbers
    "strings"  // strings normalizes filters and names

    "github.com/labstack/echo/v4" // echo framework supplies request context

    "github.com/iliyamo/guest-pass/internal/logging" // request-scoped logger
    "github.com/iliyamo/guest-pass/internal/model"   // ticket model
    "github.com/iliyamo/guest-pass/internal/service" // store interfaces
)

// maxBatch caps a single create or initialize request.
const maxBatch = 10000

// TicketHandler serves the ticket collection.
type TicketHandler struct {
    Store       service.TicketStore
    DefaultSeed int // count used by initialize when the body names none
}

// NewTicketHandler panics on a nil store.
func NewTicketHandler(store service.TicketStore, defaultSeed int) *TicketHandler {
    if store == nil {
        panic("nil store passed to NewTicketHandler")
    }
    if defaultSeed <= 0 {
        defaultSeed = 200
    }
    return &TicketHandler{Store: store, DefaultSeed: defaultSeed}
}

// ticketFilter returns the predicate for ?status=.  An empty status keeps
// every ticket.
func ticketFilter(status string) (func(model.Ticket) bool, bool) {
    switch strings.ToLower(strings.TrimSpace(status)) {
    case "":
        return func(model.Ticket) bool { return true }, true
    case "available":
        return func(t model.Ticket) bool { return !t.Sold }, true
    case "sold":
        return func(t model.Ticket) bool { return t.Sold }, true
    case "scanned":
        return func(t model.Ticket) bool { return t.Scanned }, true
    }
    return nil, false
}

// List handles GET /v1/tickets[?status=available|sold|scanned], ordered by
// number.
func (h *TicketHandler) List(c echo.Context) error {
    keep, ok := ticketFilter(c.QueryParam("status"))
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be available, sold or scanned"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    all, err := h.Store.List(ctx)
    if err != nil {
        return storeError(c, err, "ticket", "")
    }
    items := make([]model.Ticket, 0, len(all))
    for _, t := range all {
        if keep(t) {
            items = append(items, t)
        }
    }
    slices.SortFunc(items, func(a, b model.Ticket) int { return cmp.Compare(a.Number, b.Number) })
    return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// Get handles GET /v1/tickets/:id.
func (h *TicketHandler) Get(c echo.Context) error {
    id := c.Param("id")
    if !validID(id) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    t, err := h.Store.GetByID(ctx, id)
    if err != nil {
        return storeError(c, err, "ticket", id)
    }
    return c.JSON(http.StatusOK, t)
}

// GetByNumber handles GET /v1/tickets/number/:number.
func (h *TicketHandler) GetByNumber(c echo.Context) error {
    n, err := strconv.Atoi(c.Param("number"))
    if err != nil || n <= 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid number"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    t, err := h.Store.GetByNumber(ctx, n)
    if err != nil {
        return storeError(c, err, "ticket", c.Param("number"))
    }
    return c.JSON(http.StatusOK, t)
}

type countReq struct {
    Count *int `json:"count"`
}

// Create handles POST /v1/tickets {count}: count new tickets numbered
// after the current maximum.
func (h *TicketHandler) Create(c echo.Context) error {
    var body countReq
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Count == nil || *body.Count <= 0 || *body.Count > maxBatch {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "count must be between 1 and " + strconv.Itoa(maxBatch)})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    batch, err := h.Store.CreateBatch(ctx, *body.Count)
    if err != nil {
        return storeError(c, err, "ticket", "")
    }
    logging.FromContext(ctx).WithField("count", len(batch)).Info("Tickets created")
    return c.JSON(http.StatusCreated, echo.Map{"items": batch, "count": len(batch)})
}

// Initialize handles POST /v1/tickets/initialize {count}.  It discards every
// existing ticket and starts again from number 1.
func (h *TicketHandler) Initialize(c echo.Context) error {
    var body countReq
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    count := h.DefaultSeed
    if body.Count != nil {
        count = *body.Count
    }
    if count <= 0 || count > maxBatch {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "count must be between 1 and " + strconv.Itoa(maxBatch)})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    batch, err := h.Store.Initialize(ctx, count)
    if err != nil {
        return storeError(c, err, "ticket", "")
    }
    logging.FromContext(ctx).WithField("count", len(batch)).Warn("Ticket collection re-initialized")
    return c.JSON(http.StatusCreated, echo.Map{"items": batch, "count": len(batch)})
}

// Patch handles PATCH /v1/tickets/:id {scanned}.
func (h *TicketHandler) Patch(c echo.Context) error {
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
    t, err := h.Store.SetScanned(ctx, id, *body.Scanned)
    if err != nil {
        return storeError(c, err, "ticket", id)
    }
    return c.JSON(http.StatusOK, t)
}

// Sell handles POST /v1/tickets/:id/sell {buyerName, buyerEmail}.
func (h *TicketHandler) Sell(c echo.Context) error {
    id := c.Param("id")
    if !validID(id) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var body struct {
        BuyerName  string `json:"buyerName"`
        BuyerEmail string `json:"buyerEmail"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    name := strings.TrimSpace(body.BuyerName)
    email := normEmail(body.BuyerEmail)
    if name == "" || email == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "buyerName and buyerEmail are required"})
    }
    if !looksLikeEmail(email) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid buyerEmail"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    t, err := h.Store.Sell(ctx, id, name, email)
    if err != nil {
        return storeError(c, err, "ticket", id)
    }
    logging.FromContext(ctx).WithField("id", id).WithField("number", t.Number).Info("Ticket sold")
    return c.JSON(http.StatusOK, t)
}

// Reset handles POST /v1/tickets/:id/reset: the ticket becomes unsold and
// unscanned with no buyer.
func (h *TicketHandler) Reset(c echo.Context) error {
    id := c.Param("id")
    if !validID(id) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    t, err := h.Store.Reset(ctx, id)
    if err != nil {
        return storeError(c, err, "ticket", id)
    }
    return c.JSON(http.StatusOK, t)
}

// Delete handles DELETE /v1/tickets/:id.
func (h *TicketHandler) Delete(c echo.Context) error {
    id := c.Param("id")
    if !validID(id) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    if _, err := h.Store.GetByID(ctx, id); err != nil {
        return storeError(c, err, "ticket", id)
    }
    if err := h.Store.Delete(ctx, id); err != nil {
        return storeError(c, err, "ticket", id)
    }
    return c.NoContent(http.StatusNoContent)
}
