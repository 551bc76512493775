package service

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/iliyamo/guest-pass/internal/model"
)

// DefaultCodeSize is the edge length in pixels of a single QR image.
const DefaultCodeSize = 512

// ErrBadPayload is returned by ParsePayload for text that is not one of
// our verification URLs.
var ErrBadPayload = errors.New("not a verification code")

// Issuer renders verification URLs as QR codes. Highest error correction
// keeps printed codes readable when creased or partly covered.
type Issuer struct {
	Size  int
	Level qrcode.RecoveryLevel
}

func NewIssuer() *Issuer {
	return &Issuer{Size: DefaultCodeSize, Level: qrcode.Highest}
}

// VerifyURL is the payload embedded in a code:
// <base>/verify/<id> for invitations, <base>/verify/ticket/<id> for tickets.
func VerifyURL(baseURL string, kind model.Kind, id string) string {
	base := strings.TrimRight(baseURL, "/")
	if kind == model.KindTicket {
		return base + "/verify/ticket/" + id
	}
	return base + "/verify/" + id
}

// Code returns the PNG for (kind, id) at the issuer's default size.
func (i *Issuer) Code(baseURL string, kind model.Kind, id string) ([]byte, error) {
	return i.PNG(VerifyURL(baseURL, kind, id), i.Size)
}

// PNG encodes payload as a size×size PNG.
func (i *Issuer) PNG(payload string, size int) ([]byte, error) {
	return qrcode.Encode(payload, i.Level, size)
}

var payloadPath = regexp.MustCompile(`/verify/(?:(ticket|invitation)/)?([^/?#]+)/?$`)

// ParsePayload is the inverse of VerifyURL. It also accepts a bare path
// and an explicit /verify/invitation/<id> form. The id must be a UUID.
func ParsePayload(payload string) (model.Kind, string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", "", ErrBadPayload
	}
	path := payload
	if u, err := url.Parse(payload); err == nil && u.Path != "" {
		path = u.Path
	}
	m := payloadPath.FindStringSubmatch(path)
	if m == nil {
		return "", "", ErrBadPayload
	}
	if _, err := uuid.Parse(m[2]); err != nil {
		return "", "", ErrBadPayload
	}
	kind := model.KindInvitation
	if m[1] == "ticket" {
		kind = model.KindTicket
	}
	return kind, m[2], nil
}
