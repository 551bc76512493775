package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/guest-pass/internal/config"
	"github.com/iliyamo/guest-pass/internal/repository"
	"github.com/iliyamo/guest-pass/internal/service"
	"github.com/iliyamo/guest-pass/internal/utils"
)

type env struct {
	e           *echo.Echo
	invitations *repository.InvitationRepo
	tickets     *repository.TicketRepo
}

func newEnv(t *testing.T, seed int) env {
	t.Helper()
	dir := t.TempDir()
	return env{
		e:           echo.New(),
		invitations: repository.NewInvitationRepo(dir),
		tickets:     repository.NewTicketRepo(dir, seed),
	}
}

// call runs h against a request built from method, target and body, with
// the given path parameters.
func (en env) call(t *testing.T, h echo.HandlerFunc, method, target, body string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := en.e.NewContext(req, rec)
	var names, values []string
	for i := 0; i+1 < len(params); i += 2 {
		names = append(names, params[i])
		values = append(values, params[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	require.NoError(t, h(c))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestVerifyStatusMapping(t *testing.T) {
	en := newEnv(t, 1)
	h := NewVerifyHandler(service.NewVerifier(en.invitations, en.tickets, true, nil))
	inv, err := en.invitations.Create(t.Context(), "Ada", "ada@example.com")
	require.NoError(t, err)
	all, err := en.tickets.List(t.Context())
	require.NoError(t, err)

	rec := en.call(t, h.Verify, http.MethodPost, "/", "", "kind", "invitation", "id", "00000000-0000-0000-0000-000000000000")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "INVALID", body["outcome"])
	assert.Equal(t, "Invalid invitation", body["message"])
	assert.Nil(t, body["record"])

	rec = en.call(t, h.Verify, http.MethodPost, "/", "", "kind", "invitation", "id", inv.ID)
	assert.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, "VALID", body["outcome"])
	record := body["record"].(map[string]any)
	assert.Equal(t, inv.ID, record["id"])
	assert.Equal(t, true, record["scanned"])

	rec = en.call(t, h.Verify, http.MethodPost, "/", "", "kind", "invitation", "id", inv.ID)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ALREADY_SCANNED", decode(t, rec)["outcome"])

	rec = en.call(t, h.Verify, http.MethodPost, "/", "", "kind", "ticket", "id", all[0].ID)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "NOT_SOLD", decode(t, rec)["outcome"])

	rec = en.call(t, h.Verify, http.MethodPost, "/", "", "kind", "wristband", "id", inv.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyRejectsMalformedID(t *testing.T) {
	en := newEnv(t, 1)
	h := NewVerifyHandler(service.NewVerifier(en.invitations, en.tickets, false, nil))
	hook := logtest.NewGlobal()
	defer hook.Reset()

	for _, kind := range []string{"ticket", "invitation"} {
		rec := en.call(t, h.Verify, http.MethodPost, "/", "", "kind", kind, "id", "not-a-uuid")
		assert.Equal(t, http.StatusBadRequest, rec.Code, kind)
		assert.Equal(t, "invalid id", decode(t, rec)["error"])
	}
	for _, entry := range hook.AllEntries() {
		assert.NotEqual(t, "Code verified", entry.Message)
	}

	all, err := en.tickets.List(t.Context())
	require.NoError(t, err)
	assert.False(t, all[0].Scanned)
}

func TestScanPayload(t *testing.T) {
	en := newEnv(t, 1)
	h := NewVerifyHandler(service.NewVerifier(en.invitations, en.tickets, false, nil))
	all, err := en.tickets.List(t.Context())
	require.NoError(t, err)

	payload := `{"payload":"https://gate.example.com/verify/ticket/` + all[0].ID + `"}`
	rec := en.call(t, h.Scan, http.MethodPost, "/v1/scan", payload)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "VALID", decode(t, rec)["outcome"])

	rec = en.call(t, h.Scan, http.MethodPost, "/v1/scan", `{"payload":"https://gate.example.com/verify/00000000-0000-0000-0000-000000000000"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "INVALID", decode(t, rec)["outcome"])

	rec = en.call(t, h.Scan, http.MethodPost, "/v1/scan", `{"payload":"https://gate.example.com/verify/nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = en.call(t, h.Scan, http.MethodPost, "/v1/scan", `{"payload":"BEGIN:VCARD"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = en.call(t, h.Scan, http.MethodPost, "/v1/scan", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateInvitationValidation(t *testing.T) {
	en := newEnv(t, 0)
	h := NewInvitationHandler(en.invitations)

	for _, body := range []string{
		`{"name":"","email":"ada@example.com"}`,
		`{"name":"Ada","email":""}`,
		`{"name":"Ada","email":"not-an-email"}`,
		`{"name":`,
	} {
		rec := en.call(t, h.Create, http.MethodPost, "/v1/invitations", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	all, err := en.invitations.List(t.Context())
	require.NoError(t, err)
	assert.Empty(t, all, "rejected input never reaches the store")

	rec := en.call(t, h.Create, http.MethodPost, "/v1/invitations", `{"name":" Ada ","email":" ADA@Example.com "}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Ada", body["name"])
	assert.Equal(t, "ada@example.com", body["email"])
	assert.Equal(t, false, body["scanned"])
}

func TestInvitationReadPatchDelete(t *testing.T) {
	en := newEnv(t, 0)
	h := NewInvitationHandler(en.invitations)
	inv, err := en.invitations.Create(t.Context(), "Ada", "ada@example.com")
	require.NoError(t, err)

	rec := en.call(t, h.Get, http.MethodGet, "/", "", "id", "not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = en.call(t, h.Share, http.MethodGet, "/", "", "id", inv.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	share := decode(t, rec)
	assert.Equal(t, "Ada", share["name"])
	assert.NotContains(t, share, "email")

	rec = en.call(t, h.Patch, http.MethodPatch, "/", `{"scanned":true}`, "id", inv.ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["scanned"])

	rec = en.call(t, h.Patch, http.MethodPatch, "/", `{}`, "id", inv.ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = en.call(t, h.List, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = en.call(t, h.Delete, http.MethodDelete, "/", "", "id", inv.ID)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = en.call(t, h.Delete, http.MethodDelete, "/", "", "id", inv.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = en.call(t, h.Get, http.MethodGet, "/", "", "id", inv.ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTicketsOrderedByNumber(t *testing.T) {
	dir := t.TempDir()
	ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	file := `{"schemaVersion":1,"records":[` +
		`{"id":"` + ids[0] + `","number":7,"sold":false,"scanned":false,"createdAt":"2026-01-01T00:00:00Z"},` +
		`{"id":"` + ids[1] + `","number":2,"sold":true,"soldAt":"2026-01-02T00:00:00Z","buyerName":"Bo","buyerEmail":"bo@example.com","scanned":false,"createdAt":"2026-01-01T00:00:00Z"},` +
		`{"id":"` + ids[2] + `","number":4,"sold":false,"scanned":false,"createdAt":"2026-01-01T00:00:00Z"}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tickets.json"), []byte(file), 0o644))
	h := NewTicketHandler(repository.NewTicketRepo(dir, 0), 10)

	rec := (env{e: echo.New()}).call(t, h.List, http.MethodGet, "/v1/tickets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items []struct {
			Number int `json:"number"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Items, 3)
	assert.Equal(t, []int{2, 4, 7}, []int{body.Items[0].Number, body.Items[1].Number, body.Items[2].Number})
}

func TestTicketEndpoints(t *testing.T) {
	en := newEnv(t, 3)
	h := NewTicketHandler(en.tickets, 200)
	all, err := en.tickets.List(t.Context())
	require.NoError(t, err)
	id := all[0].ID

	for _, body := range []string{`{}`, `{"count":0}`, `{"count":-2}`, `{"count":100000}`} {
		rec := en.call(t, h.Create, http.MethodPost, "/v1/tickets", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	rec := en.call(t, h.Create, http.MethodPost, "/v1/tickets", `{"count":2}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["count"])

	rec = en.call(t, h.GetByNumber, http.MethodGet, "/", "", "number", "5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, decode(t, rec)["number"])
	rec = en.call(t, h.GetByNumber, http.MethodGet, "/", "", "number", "abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = en.call(t, h.GetByNumber, http.MethodGet, "/", "", "number", "77")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = en.call(t, h.Sell, http.MethodPost, "/", `{"buyerName":"Ada","buyerEmail":"ada@example.com"}`, "id", id)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ada", decode(t, rec)["buyerName"])
	rec = en.call(t, h.Sell, http.MethodPost, "/", `{"buyerName":"Grace","buyerEmail":"grace@example.com"}`, "id", id)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = en.call(t, h.Sell, http.MethodPost, "/", `{"buyerName":"Grace"}`, "id", all[1].ID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = en.call(t, h.List, http.MethodGet, "/v1/tickets?status=sold", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])
	rec = en.call(t, h.List, http.MethodGet, "/v1/tickets?status=available", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4, decode(t, rec)["count"])
	rec = en.call(t, h.List, http.MethodGet, "/v1/tickets?status=lost", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = en.call(t, h.Reset, http.MethodPost, "/", "", "id", id)
	require.Equal(t, http.StatusOK, rec.Code)
	reset := decode(t, rec)
	assert.Equal(t, false, reset["sold"])
	assert.Nil(t, reset["buyerName"])

	rec = en.call(t, h.Initialize, http.MethodPost, "/v1/tickets/initialize", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 200, decode(t, rec)["count"])

	rec = en.call(t, h.Get, http.MethodGet, "/", "", "id", id)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQRImage(t *testing.T) {
	en := newEnv(t, 1)
	issuer := service.NewIssuer()
	h := NewQRHandler(en.invitations, en.tickets, issuer, service.NewExporter(en.invitations, en.tickets, issuer), "")
	all, err := en.tickets.List(t.Context())
	require.NoError(t, err)

	rec := en.call(t, h.Ticket, http.MethodGet, "/v1/qr/tickets/x?download=true", "", "id", all[0].ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	assert.Equal(t, `attachment; filename="ticket-1.png"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

	rec = en.call(t, h.Ticket, http.MethodGet, "/v1/qr/tickets/x", "", "id", all[0].ID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get(echo.HeaderContentDisposition))

	rec = en.call(t, h.Invitation, http.MethodGet, "/", "", "id", all[0].ID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQRBulk(t *testing.T) {
	en := newEnv(t, 2)
	issuer := service.NewIssuer()
	h := NewQRHandler(en.invitations, en.tickets, issuer, service.NewExporter(en.invitations, en.tickets, issuer), "https://gate.example.com")
	all, err := en.tickets.List(t.Context())
	require.NoError(t, err)

	body := `{"ids":["` + all[0].ID + `","` + all[1].ID + `"],"kind":"ticket","format":"zip"}`
	rec := en.call(t, h.Bulk, http.MethodPost, "/v1/qr/bulk", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "qr-tickets-")

	for _, bad := range []string{
		`{"ids":[],"kind":"ticket"}`,
		`{"ids":["` + all[0].ID + `"],"format":"tar"}`,
		`{"ids":["` + all[0].ID + `"],"kind":"wristband"}`,
		`{"ids":["nope"]}`,
	} {
		rec = en.call(t, h.Bulk, http.MethodPost, "/v1/qr/bulk", bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}

	rec = en.call(t, h.Bulk, http.MethodPost, "/v1/qr/bulk", `{"ids":["00000000-0000-0000-0000-000000000000"]}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogin(t *testing.T) {
	hash, err := utils.HashPassword("door-pass", 4)
	require.NoError(t, err)
	cfg := config.Config{
		JWTSecret:    "test-secret",
		AccessTTLMin: 10,
		Staff:        []config.StaffUser{{Email: "door@example.com", Role: config.RoleScanner, PasswordHash: hash}},
	}
	en := newEnv(t, 0)
	h := NewAuthHandler(cfg)

	rec := en.call(t, h.Login, http.MethodPost, "/v1/auth/login", `{"email":"DOOR@example.com","password":"door-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	token := body["access"].(map[string]any)["token"].(string)
	claims, err := utils.ParseAccessToken("test-secret", token)
	require.NoError(t, err)
	assert.Equal(t, "door@example.com", claims.Subject)
	assert.Equal(t, config.RoleScanner, claims.Role)

	rec = en.call(t, h.Login, http.MethodPost, "/v1/auth/login", `{"email":"door@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = en.call(t, h.Login, http.MethodPost, "/v1/auth/login", `{"email":"nobody@example.com","password":"door-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = en.call(t, h.Login, http.MethodPost, "/v1/auth/login", `{"email":"door@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBaseURL(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "http://gate.local:8080/v1/qr/tickets/x", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, "http://gate.local:8080", baseURL(c, ""))
	assert.Equal(t, "https://cfg.example.com", baseURL(c, "https://cfg.example.com/"))

	req.Header.Set(echo.HeaderOrigin, "https://app.example.com/")
	assert.Equal(t, "https://app.example.com", baseURL(c, ""))
}
