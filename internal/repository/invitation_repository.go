package repository

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/guest-pass/internal/model"
)

// InvitationRepo stores invitations in <dataDir>/invitations.json. Every
// call re-reads the file and every mutation rewrites it in full, under a
// single mutex owned by the repo.
type InvitationRepo struct {
	c     *collection[model.Invitation]
	now   func() time.Time
	newID func() string
}

// NewInvitationRepo returns a repo backed by dataDir. The file is created
// on first access.
func NewInvitationRepo(dataDir string) *InvitationRepo {
	return &InvitationRepo{
		c:     newCollection[model.Invitation](filepath.Join(dataDir, "invitations.json"), nil),
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// List returns every invitation in storage order.
func (r *InvitationRepo) List(ctx context.Context) ([]model.Invitation, error) {
	var out []model.Invitation
	err := r.c.view(func(records []model.Invitation) error {
		out = append([]model.Invitation{}, records...)
		return nil
	})
	return out, err
}

// GetByID returns ErrNotFound when no invitation has the id.
func (r *InvitationRepo) GetByID(ctx context.Context, id string) (model.Invitation, error) {
	var out model.Invitation
	err := r.c.view(func(records []model.Invitation) error {
		i := indexOf(records, id)
		if i < 0 {
			return ErrNotFound
		}
		out = records[i]
		return nil
	})
	return out, err
}

// Create appends a fresh, unscanned invitation.
func (r *InvitationRepo) Create(ctx context.Context, name, email string) (model.Invitation, error) {
	inv := model.Invitation{
		ID:        r.newID(),
		Name:      name,
		Email:     email,
		CreatedAt: r.now(),
	}
	err := r.c.mutate(func(records []model.Invitation) ([]model.Invitation, error) {
		return append(records, inv), nil
	})
	if err != nil {
		return model.Invitation{}, err
	}
	return inv, nil
}

// SetScanned sets or clears the scanned flag unconditionally. Clearing is
// the administrative reset; it also clears ScannedAt.
func (r *InvitationRepo) SetScanned(ctx context.Context, id string, scanned bool) (model.Invitation, error) {
	var out model.Invitation
	err := r.c.mutate(func(records []model.Invitation) ([]model.Invitation, error) {
		i := indexOf(records, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		records[i].Scanned = scanned
		records[i].ScannedAt = nil
		if scanned {
			at := r.now()
			records[i].ScannedAt = &at
		}
		out = records[i]
		return records, nil
	})
	return out, err
}

// MarkScanned flips scanned false->true. If the invitation is already
// scanned it returns the stored record with ErrConflict and writes nothing.
func (r *InvitationRepo) MarkScanned(ctx context.Context, id string) (model.Invitation, error) {
	var out model.Invitation
	err := r.c.mutate(func(records []model.Invitation) ([]model.Invitation, error) {
		i := indexOf(records, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		if records[i].Scanned {
			out = records[i]
			return nil, ErrConflict
		}
		at := r.now()
		records[i].Scanned = true
		records[i].ScannedAt = &at
		out = records[i]
		return records, nil
	})
	return out, err
}

// Delete removes the invitation. Deleting an absent id is a no-op.
func (r *InvitationRepo) Delete(ctx context.Context, id string) error {
	return r.c.mutate(func(records []model.Invitation) ([]model.Invitation, error) {
		i := indexOf(records, id)
		if i < 0 {
			return records, nil
		}
		return append(records[:i], records[i+1:]...), nil
	})
}

func indexOf[T model.Record](records []T, id string) int {
	for i := range records {
		if records[i].RecordID() == id {
			return i
		}
	}
	return -1
}
