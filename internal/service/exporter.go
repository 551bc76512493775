package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/klauspost/compress/zip"

	"github.com/iliyamo/guest-pass/internal/model"
	"github.com/iliyamo/guest-pass/internal/repository"
)

// Format is the shape of a bulk export.
type Format string

const (
	FormatZip Format = "zip"
	FormatPDF Format = "pdf"
)

// ParseFormat defaults to zip for an empty string.
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zip":
		return FormatZip, true
	case "pdf":
		return FormatPDF, true
	}
	return "", false
}

// PDF layout in points: a 2×2 grid of codes per page.
const (
	pdfPageWidth  = 600
	pdfPageHeight = 800
	pdfCodeSize   = 250
	pdfMargin     = 50
	pdfPerPage    = 4
)

// Export is a finished bulk download.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
	Count       int // records included; missing ids are skipped
}

// Exporter batches many codes into one archive or document.
type Exporter struct {
	invitations InvitationStore
	tickets     TicketStore
	issuer      *Issuer
	now         func() time.Time
}

func NewExporter(invitations InvitationStore, tickets TicketStore, issuer *Issuer) *Exporter {
	return &Exporter{
		invitations: invitations,
		tickets:     tickets,
		issuer:      issuer,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type exportEntry struct {
	name    string // file name without extension
	url     string
	caption string
	detail  string
}

// Export renders the codes of ids. Records that do not exist any more are
// skipped; any other store failure aborts the export.
func (e *Exporter) Export(ctx context.Context, kind model.Kind, ids []string, format Format, baseURL string) (Export, error) {
	entries, err := e.resolve(ctx, kind, ids, baseURL)
	if err != nil {
		return Export{}, err
	}
	stamp := e.now().Format("2006-01-02")
	switch format {
	case FormatZip:
		body, err := e.zip(entries)
		if err != nil {
			return Export{}, err
		}
		return Export{
			Filename:    fmt.Sprintf("qr-%ss-%s.zip", kind, stamp),
			ContentType: "application/zip",
			Body:        body,
			Count:       len(entries),
		}, nil
	case FormatPDF:
		body, err := e.pdf(entries)
		if err != nil {
			return Export{}, err
		}
		return Export{
			Filename:    fmt.Sprintf("qr-%ss-%s.pdf", kind, stamp),
			ContentType: "application/pdf",
			Body:        body,
			Count:       len(entries),
		}, nil
	}
	return Export{}, fmt.Errorf("unsupported export format %q", format)
}

func (e *Exporter) resolve(ctx context.Context, kind model.Kind, ids []string, baseURL string) ([]exportEntry, error) {
	out := make([]exportEntry, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		switch kind {
		case model.KindTicket:
			t, err := e.tickets.GetByID(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out = append(out, ticketEntry(t, VerifyURL(baseURL, kind, t.ID)))
		case model.KindInvitation:
			inv, err := e.invitations.GetByID(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out = append(out, exportEntry{
				name:    fmt.Sprintf("invitation-%s-%s", Slug(inv.Name), shortID(inv.ID)),
				url:     VerifyURL(baseURL, kind, inv.ID),
				caption: inv.Name,
				detail:  inv.Email,
			})
		default:
			return nil, fmt.Errorf("unknown record kind %q", kind)
		}
	}
	return out, nil
}

func ticketEntry(t model.Ticket, url string) exportEntry {
	name := fmt.Sprintf("ticket-%d", t.Number)
	detail := ""
	if t.Sold && t.Buyer() != "" {
		name += "-" + Slug(t.Buyer())
		detail = "Buyer: " + t.Buyer()
	}
	return exportEntry{name: name, url: url, caption: fmt.Sprintf("Ticket #%d", t.Number), detail: detail}
}

func (e *Exporter) zip(entries []exportEntry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := e.now()
	for _, en := range entries {
		png, err := e.issuer.PNG(en.url, e.issuer.Size)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", en.name, err)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: en.name + ".png", Method: zip.Deflate, Modified: modified})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(png); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e *Exporter) pdf(entries []exportEntry) ([]byte, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: pdfPageWidth, Ht: pdfPageHeight},
	})
	pdf.SetCreationDate(e.now())
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	opts := fpdf.ImageOptions{ImageType: "PNG"}

	for i, en := range entries {
		pos := i % pdfPerPage
		if pos == 0 {
			pdf.AddPage()
		}
		png, err := e.issuer.PNG(en.url, pdfCodeSize)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", en.name, err)
		}
		pdf.RegisterImageOptionsReader(en.name, opts, bytes.NewReader(png))

		row, col := pos/2, pos%2
		x := float64(pdfMargin + col*(pdfCodeSize+pdfMargin))
		y := float64(pdfMargin + row*(pdfCodeSize+100))
		pdf.ImageOptions(en.name, x, y, pdfCodeSize, pdfCodeSize, false, opts, 0, "")

		textX := x + pdfCodeSize/2 - 40
		pdf.SetFont("Helvetica", "", 12)
		pdf.SetTextColor(0, 0, 0)
		pdf.Text(textX, y+pdfCodeSize+20, tr(en.caption))
		if en.detail != "" {
			pdf.SetFont("Helvetica", "", 10)
			pdf.SetTextColor(77, 77, 77)
			pdf.Text(textX, y+pdfCodeSize+40, tr(en.detail))
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lower-cases s and collapses every run of other characters into a
// single '-'.
func Slug(s string) string {
	s = slugStrip.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
