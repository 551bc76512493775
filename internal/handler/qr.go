package handler

import (
    "fmt"      // fmt builds download file names
    "net/http" // http defines status code constants
    "strconv"  // strconv formats content lengths

    "github.com/labstack/echo/v4" // echo framework supplies request context

    "github.com/iliyamo/guest-pass/internal/logging" // request-scoped logger
    "github.com/iliyamo/guest-pass/internal/model"   // record kinds
    "github.com/iliyamo/guest-pass/internal/service" // issuer, exporter, stores
)

// maxBulkIDs caps one bulk export request.
const maxBulkIDs = 1000

// QRHandler renders codes for single records and bulk exports.
type QRHandler struct {
    Invitations service.InvitationStore
    Tickets     service.TicketStore
    Issuer      *service.Issuer
    Exporter    *service.Exporter
    BaseURL     string // BASE_URL; empty means derive from the request
}

func NewQRHandler(inv service.InvitationStore, tickets service.TicketStore, issuer *service.Issuer, exporter *service.Exporter, baseURL string) *QRHandler {
    return &QRHandler{Invitations: inv, Tickets: tickets, Issuer: issuer, Exporter: exporter, BaseURL: baseURL}
}

// Invitation handles GET /v1/qr/invitations/:id.
func (h *QRHandler) Invitation(c echo.Context) error {
    id := c.Param("id")
    if !validID(id) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "invitation not found"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    inv, err := h.Invitations.GetByID(ctx, id)
    if err != nil {
        return storeError(c, err, "invitation", id)
    }
    name := "invitation-" + service.Slug(inv.Name) + ".png"
    return h.sendPNG(c, model.KindInvitation, inv.ID, name)
}

// Ticket handles GET /v1/qr/tickets/:id.
func (h *QRHandler) Ticket(c echo.Context) error {
    id := c.Param("id")
    if !validID(id) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
    }
    ctx, cancel := withTimeout(c)
    defer cancel()
    t, err := h.Tickets.GetByID(ctx, id)
    if err != nil {
        return storeError(c, err, "ticket", id)
    }
    return h.sendPNG(c, model.KindTicket, t.ID, fmt.Sprintf("ticket-%d.png", t.Number))
}

func (h *QRHandler) sendPNG(c echo.Context, kind model.Kind, id, filename string) error {
    png, err := h.Issuer.Code(baseURL(c, h.BaseURL), kind, id)
    if err != nil {
        logging.FromContext(c.Request().Context()).WithError(err).WithField("id", id).Error("QR encoding failed")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not render code"})
    }
    hdr := c.Response().Header()
    hdr.Set(echo.HeaderCacheControl, "public, max-age=3600")
    if c.QueryParam("download") == "true" {
        hdr.Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
    }
    return c.Blob(http.StatusOK, "image/png", png)
}

// Bulk handles POST /v1/qr/bulk {ids, kind, format}.  Ids that no longer
// exist are left out of the download.
func (h *QRHandler) Bulk(c echo.Context) error {
    var body struct {
        IDs    []string `json:"ids"`
        Kind   string   `json:"kind"`
        Format string   `json:"format"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    kind := model.KindTicket
    if body.Kind != "" {
        k, ok := model.ParseKind(body.Kind)
        if !ok {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "kind must be invitation or ticket"})
        }
        kind = k
    }
    format, ok := service.ParseFormat(body.Format)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "format must be zip or pdf"})
    }
    if len(body.IDs) == 0 || len(body.IDs) > maxBulkIDs {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("ids must hold between 1 and %d entries", maxBulkIDs)})
    }
    for _, id := range body.IDs {
        if !validID(id) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id " + strconv.Quote(id)})
        }
    }

    // Rendering hundreds of codes takes longer than a store call; the
    // request context alone bounds it.
    ctx := c.Request().Context()
    exp, err := h.Exporter.Export(ctx, kind, body.IDs, format, baseURL(c, h.BaseURL))
    if err != nil {
        return storeError(c, err, kind.String(), "")
    }
    if exp.Count == 0 {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "none of the ids exist"})
    }
    logging.FromContext(ctx).WithField("kind", kind).WithField("count", exp.Count).Info("Codes exported")
    c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", exp.Filename))
    return c.Blob(http.StatusOK, exp.ContentType, exp.Body)
}
