package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/guest-pass/internal/config"     // role names
	"github.com/iliyamo/guest-pass/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/guest-pass/internal/middleware" // import middleware for JWT authentication and role enforcement
)

// Handlers bundles everything RegisterRoutes wires.
type Handlers struct {
	Health      echo.HandlerFunc
	Auth        *handler.AuthHandler
	Invitations *handler.InvitationHandler
	Tickets     *handler.TicketHandler
	Verify      *handler.VerifyHandler
	QR          *handler.QRHandler
}

// Guards are the cross-cutting middlewares applied to subsets of routes.
// RateLimit guards verify and scan; Cache fronts the public QR images.
type Guards struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

// RegisterRoutes registers every endpoint on e.  Middlewares are attached
// per route rather than per group so that the public, staff and admin
// routes can share the /v1 prefix.
func RegisterRoutes(e *echo.Echo, h Handlers, g Guards) {
	jwt := middleware.JWTAuth(g.JWTSecret)
	staff := []echo.MiddlewareFunc{jwt, middleware.RequireRole(config.RoleAdmin, config.RoleScanner)}
	admin := []echo.MiddlewareFunc{jwt, middleware.RequireRole(config.RoleAdmin)}
	limited := append(staff[:len(staff):len(staff)], orNoop(g.RateLimit))
	cached := []echo.MiddlewareFunc{orNoop(g.Cache)}

	// ---- Public ----
	e.GET("/healthz", h.Health)
	e.POST("/v1/auth/login", h.Auth.Login)
	e.GET("/v1/qr/invitations/:id", h.QR.Invitation, cached...)
	e.GET("/v1/qr/tickets/:id", h.QR.Ticket, cached...)
	e.GET("/v1/share/invitations/:id", h.Invitations.Share)

	// ---- Staff (ADMIN or SCANNER) ----
	e.GET("/v1/me", h.Auth.Me, staff...)
	e.GET("/v1/invitations", h.Invitations.List, staff...)
	e.GET("/v1/invitations/:id", h.Invitations.Get, staff...)
	e.GET("/v1/tickets", h.Tickets.List, staff...)
	e.GET("/v1/tickets/number/:number", h.Tickets.GetByNumber, staff...)
	e.GET("/v1/tickets/:id", h.Tickets.Get, staff...)
	e.POST("/v1/verify/:kind/:id", h.Verify.Verify, limited...)
	e.POST("/verify/:kind/:id", h.Verify.Verify, limited...)
	e.POST("/v1/scan", h.Verify.Scan, limited...)
	e.POST("/v1/qr/bulk", h.QR.Bulk, staff...)

	// ---- Admin ----
	e.POST("/v1/invitations", h.Invitations.Create, admin...)
	e.PATCH("/v1/invitations/:id", h.Invitations.Patch, admin...)
	e.DELETE("/v1/invitations/:id", h.Invitations.Delete, admin...)
	e.POST("/v1/tickets", h.Tickets.Create, admin...)
	e.POST("/v1/tickets/initialize", h.Tickets.Initialize, admin...)
	e.PATCH("/v1/tickets/:id", h.Tickets.Patch, admin...)
	e.POST("/v1/tickets/:id/sell", h.Tickets.Sell, admin...)
	e.POST("/v1/tickets/:id/reset", h.Tickets.Reset, admin...)
	e.DELETE("/v1/tickets/:id", h.Tickets.Delete, admin...)
}

func orNoop(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m != nil {
		return m
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
}
