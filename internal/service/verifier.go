package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/guest-pass/internal/logging"
	"github.com/iliyamo/guest-pass/internal/model"
	"github.com/iliyamo/guest-pass/internal/queue"
	"github.com/iliyamo/guest-pass/internal/repository"
)

// EventPublisher receives accepted scans. ScanPublisher is the RabbitMQ
// implementation.
type EventPublisher interface {
	PublishRecordScanned(ctx context.Context, ev queue.RecordScannedEvent) error
}

// Verifier runs the single-use consumption protocol. The check and the
// flip of the scanned flag happen inside one store call (MarkScanned), so
// concurrent scans of the same code yield exactly one VALID outcome.
type Verifier struct {
	invitations InvitationStore
	tickets     TicketStore
	requireSold bool
	events      EventPublisher
}

// NewVerifier builds a verifier. events may be nil. requireSold makes an
// unsold ticket fail with NOT_SOLD instead of being admitted.
func NewVerifier(invitations InvitationStore, tickets TicketStore, requireSold bool, events EventPublisher) *Verifier {
	return &Verifier{invitations: invitations, tickets: tickets, requireSold: requireSold, events: events}
}

// RequireSold reports the ticket policy in effect.
func (v *Verifier) RequireSold() bool { return v.requireSold }

// Verify consumes the code for (kind, id). actor identifies the staff
// member scanning and only ends up in the published event. The returned
// error is non-nil only for storage failures; every other result is an
// Outcome.
func (v *Verifier) Verify(ctx context.Context, kind model.Kind, id, actor string) (model.Outcome, error) {
	var (
		rec model.Record
		err error
	)
	switch kind {
	case model.KindInvitation:
		var inv model.Invitation
		inv, err = v.invitations.MarkScanned(ctx, id)
		rec = inv
	case model.KindTicket:
		var t model.Ticket
		t, err = v.tickets.MarkScanned(ctx, id, v.requireSold)
		rec = t
	default:
		return model.Outcome{}, fmt.Errorf("unknown record kind %q", kind)
	}

	label := label(kind)
	var out model.Outcome
	switch {
	case errors.Is(err, repository.ErrNotFound):
		out = model.Outcome{Status: model.OutcomeInvalid, Message: "Invalid " + kind.String()}
	case errors.Is(err, repository.ErrNotSold):
		out = model.Outcome{Status: model.OutcomeNotSold, Message: "Ticket has not been sold", Record: rec}
	case errors.Is(err, repository.ErrConflict):
		out = model.Outcome{Status: model.OutcomeAlreadyScanned, Message: label + " already scanned", Record: rec}
	case err != nil:
		return model.Outcome{}, err
	default:
		out = model.Outcome{Status: model.OutcomeValid, Message: label + " verified successfully", Record: rec}
	}

	logging.FromContext(ctx).WithFields(logrus.Fields{
		"kind":    kind,
		"id":      id,
		"outcome": out.Status,
	}).Info("Code verified")

	if out.OK() {
		v.publish(ctx, rec, actor)
	}
	return out, nil
}

// VerifyPayload extracts kind and id from the text read out of a code and
// verifies it.
func (v *Verifier) VerifyPayload(ctx context.Context, payload, actor string) (model.Outcome, error) {
	kind, id, err := ParsePayload(payload)
	if err != nil {
		return model.Outcome{}, err
	}
	return v.Verify(ctx, kind, id, actor)
}

func (v *Verifier) publish(ctx context.Context, rec model.Record, actor string) {
	if v.events == nil {
		return
	}
	ev := scannedEvent(rec, actor)
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := v.events.PublishRecordScanned(pctx, ev); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("id", ev.RecordID).Warn("Publishing scan event failed")
	}
}

func scannedEvent(rec model.Record, actor string) queue.RecordScannedEvent {
	ev := queue.RecordScannedEvent{
		Kind:      rec.RecordKind().String(),
		RecordID:  rec.RecordID(),
		ScannedBy: actor,
	}
	var at *time.Time
	switch r := rec.(type) {
	case model.Invitation:
		ev.HolderName, ev.HolderEmail = r.Name, r.Email
		at = r.ScannedAt
	case model.Ticket:
		ev.Number = r.Number
		ev.HolderName = r.Buyer()
		if r.BuyerEmail != nil {
			ev.HolderEmail = *r.BuyerEmail
		}
		at = r.ScannedAt
	}
	if at != nil {
		ev.ScannedAt = at.UTC().Format(time.RFC3339)
	}
	return ev
}

func label(kind model.Kind) string {
	if kind == model.KindTicket {
		return "Ticket"
	}
	return "Invitation"
}
