package service

import (
	"context"

	"github.com/iliyamo/guest-pass/internal/model"
)

// InvitationStore is satisfied by repository.InvitationRepo (JSON files)
// and repository.MySQLInvitationRepo.
type InvitationStore interface {
	List(ctx context.Context) ([]model.Invitation, error)
	GetByID(ctx context.Context, id string) (model.Invitation, error)
	Create(ctx context.Context, name, email string) (model.Invitation, error)
	SetScanned(ctx context.Context, id string, scanned bool) (model.Invitation, error)
	MarkScanned(ctx context.Context, id string) (model.Invitation, error)
	Delete(ctx context.Context, id string) error
}

// TicketStore is satisfied by repository.TicketRepo (JSON files) and
// repository.MySQLTicketRepo.
type TicketStore interface {
	List(ctx context.Context) ([]model.Ticket, error)
	GetByID(ctx context.Context, id string) (model.Ticket, error)
	GetByNumber(ctx context.Context, number int) (model.Ticket, error)
	CreateBatch(ctx context.Context, count int) ([]model.Ticket, error)
	Initialize(ctx context.Context, count int) ([]model.Ticket, error)
	Sell(ctx context.Context, id, buyerName, buyerEmail string) (model.Ticket, error)
	Reset(ctx context.Context, id string) (model.Ticket, error)
	SetScanned(ctx context.Context, id string, scanned bool) (model.Ticket, error)
	MarkScanned(ctx context.Context, id string, requireSold bool) (model.Ticket, error)
	Delete(ctx context.Context, id string) error
}
