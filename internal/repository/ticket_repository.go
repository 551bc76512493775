package repository

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/guest-pass/internal/model"
)

// TicketRepo stores tickets in <dataDir>/tickets.json. Sequence numbers are
// allocated under the same mutex as every other mutation, so concurrent
// batch creations never hand out the same number twice.
type TicketRepo struct {
	c     *collection[model.Ticket]
	now   func() time.Time
	newID func() string
}

// NewTicketRepo returns a repo backed by dataDir. When the file does not
// exist yet it is created holding seedCount fresh tickets numbered from 1.
func NewTicketRepo(dataDir string, seedCount int) *TicketRepo {
	r := &TicketRepo{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	r.c = newCollection(filepath.Join(dataDir, "tickets.json"), func() []model.Ticket {
		return r.fresh(1, seedCount)
	})
	return r
}

// fresh builds count unsold, unscanned tickets numbered from start.
func (r *TicketRepo) fresh(start, count int) []model.Ticket {
	if count < 0 {
		count = 0
	}
	out := make([]model.Ticket, 0, count)
	createdAt := r.now()
	for n := 0; n < count; n++ {
		out = append(out, model.Ticket{
			ID:        r.newID(),
			Number:    start + n,
			CreatedAt: createdAt,
		})
	}
	return out
}

// List returns every ticket in storage order.
func (r *TicketRepo) List(ctx context.Context) ([]model.Ticket, error) {
	var out []model.Ticket
	err := r.c.view(func(records []model.Ticket) error {
		out = append([]model.Ticket{}, records...)
		return nil
	})
	return out, err
}

// GetByID returns ErrNotFound when no ticket has the id.
func (r *TicketRepo) GetByID(ctx context.Context, id string) (model.Ticket, error) {
	var out model.Ticket
	err := r.c.view(func(records []model.Ticket) error {
		i := indexOf(records, id)
		if i < 0 {
			return ErrNotFound
		}
		out = records[i]
		return nil
	})
	return out, err
}

// GetByNumber returns ErrNotFound when no ticket carries the number.
func (r *TicketRepo) GetByNumber(ctx context.Context, number int) (model.Ticket, error) {
	var out model.Ticket
	err := r.c.view(func(records []model.Ticket) error {
		for _, t := range records {
			if t.Number == number {
				out = t
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

// CreateBatch appends count tickets numbered contiguously from
// max(existing numbers, 0)+1.
func (r *TicketRepo) CreateBatch(ctx context.Context, count int) ([]model.Ticket, error) {
	var created []model.Ticket
	err := r.c.mutate(func(records []model.Ticket) ([]model.Ticket, error) {
		next := 1
		for _, t := range records {
			if t.Number >= next {
				next = t.Number + 1
			}
		}
		created = r.fresh(next, count)
		return append(records, created...), nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Initialize discards every ticket and writes count fresh ones numbered
// from 1.
func (r *TicketRepo) Initialize(ctx context.Context, count int) ([]model.Ticket, error) {
	tickets := r.fresh(1, count)
	if err := r.c.replace(tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// Sell records the buyer. A ticket can be sold only once; a second sale
// returns the stored ticket with ErrAlreadySold.
func (r *TicketRepo) Sell(ctx context.Context, id, buyerName, buyerEmail string) (model.Ticket, error) {
	return r.update(id, func(t *model.Ticket) error {
		if t.Sold {
			return ErrAlreadySold
		}
		at := r.now()
		t.Sold = true
		t.SoldAt = &at
		t.BuyerName = &buyerName
		t.BuyerEmail = &buyerEmail
		return nil
	})
}

// Reset returns the ticket to its unsold, unscanned state.
func (r *TicketRepo) Reset(ctx context.Context, id string) (model.Ticket, error) {
	return r.update(id, func(t *model.Ticket) error {
		t.Sold = false
		t.SoldAt = nil
		t.BuyerName = nil
		t.BuyerEmail = nil
		t.Scanned = false
		t.ScannedAt = nil
		return nil
	})
}

// SetScanned sets or clears the scanned flag unconditionally.
func (r *TicketRepo) SetScanned(ctx context.Context, id string, scanned bool) (model.Ticket, error) {
	return r.update(id, func(t *model.Ticket) error {
		t.Scanned = scanned
		t.ScannedAt = nil
		if scanned {
			at := r.now()
			t.ScannedAt = &at
		}
		return nil
	})
}

// MarkScanned flips scanned false->true as one compare-and-set. With
// requireSold an unsold ticket is refused with ErrNotSold; an already
// scanned ticket is refused with ErrConflict. Refusals return the stored
// ticket and write nothing.
func (r *TicketRepo) MarkScanned(ctx context.Context, id string, requireSold bool) (model.Ticket, error) {
	return r.update(id, func(t *model.Ticket) error {
		if requireSold && !t.Sold {
			return ErrNotSold
		}
		if t.Scanned {
			return ErrConflict
		}
		at := r.now()
		t.Scanned = true
		t.ScannedAt = &at
		return nil
	})
}

// Delete removes the ticket. Deleting an absent id is a no-op.
func (r *TicketRepo) Delete(ctx context.Context, id string) error {
	return r.c.mutate(func(records []model.Ticket) ([]model.Ticket, error) {
		i := indexOf(records, id)
		if i < 0 {
			return records, nil
		}
		return append(records[:i], records[i+1:]...), nil
	})
}

// update applies fn to the ticket with id and persists the collection.
// When fn fails the ticket as stored is returned along with the error.
func (r *TicketRepo) update(id string, fn func(t *model.Ticket) error) (model.Ticket, error) {
	var out model.Ticket
	err := r.c.mutate(func(records []model.Ticket) ([]model.Ticket, error) {
		i := indexOf(records, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		t := records[i]
		if err := fn(&t); err != nil {
			out = records[i]
			return nil, err
		}
		records[i] = t
		out = t
		return records, nil
	})
	return out, err
}
