package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/guest-pass/internal/model"
)

const invitationCols = "id, name, email, created_at, scanned, scanned_at"

// MySQLInvitationRepo is the invitations store for STORE_DRIVER=mysql.
// Storage order is insertion order, kept by the seq column.
type MySQLInvitationRepo struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

func NewMySQLInvitationRepo(db *sql.DB) *MySQLInvitationRepo {
	return &MySQLInvitationRepo{
		db:    db,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func (r *MySQLInvitationRepo) List(ctx context.Context) ([]model.Invitation, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+invitationCols+" FROM invitations ORDER BY seq")
	if err != nil {
		return nil, sqlErr("query", err)
	}
	defer rows.Close()

	out := []model.Invitation{}
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, sqlErr("scan", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlErr("query", err)
	}
	return out, nil
}

func (r *MySQLInvitationRepo) GetByID(ctx context.Context, id string) (model.Invitation, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+invitationCols+" FROM invitations WHERE id = ?", id)
	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Invitation{}, ErrNotFound
		}
		return model.Invitation{}, sqlErr("query", err)
	}
	return inv, nil
}

func (r *MySQLInvitationRepo) Create(ctx context.Context, name, email string) (model.Invitation, error) {
	inv := model.Invitation{ID: r.newID(), Name: name, Email: email, CreatedAt: r.now()}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO invitations (id, name, email, created_at) VALUES (?, ?, ?, ?)",
		inv.ID, inv.Name, inv.Email, inv.CreatedAt)
	if err != nil {
		return model.Invitation{}, sqlErr("insert", err)
	}
	return inv, nil
}

func (r *MySQLInvitationRepo) SetScanned(ctx context.Context, id string, scanned bool) (model.Invitation, error) {
	var at *time.Time
	if scanned {
		t := r.now()
		at = &t
	}
	if _, err := r.db.ExecContext(ctx,
		"UPDATE invitations SET scanned = ?, scanned_at = ? WHERE id = ?", scanned, at, id); err != nil {
		return model.Invitation{}, sqlErr("update", err)
	}
	// RowsAffected is 0 for both a missing and an unchanged row; the read
	// below tells them apart.
	return r.GetByID(ctx, id)
}

// MarkScanned is a single conditional UPDATE; when it matches nothing the
// row is re-read to tell a missing invitation from an already scanned one.
func (r *MySQLInvitationRepo) MarkScanned(ctx context.Context, id string) (model.Invitation, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE invitations SET scanned = 1, scanned_at = ? WHERE id = ? AND scanned = 0", r.now(), id)
	if err != nil {
		return model.Invitation{}, sqlErr("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Invitation{}, sqlErr("update", err)
	}
	inv, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Invitation{}, err
	}
	if n == 0 {
		return inv, ErrConflict
	}
	return inv, nil
}

func (r *MySQLInvitationRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM invitations WHERE id = ?", id); err != nil {
		return sqlErr("delete", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(s rowScanner) (model.Invitation, error) {
	var (
		inv       model.Invitation
		scannedAt sql.NullTime
	)
	if err := s.Scan(&inv.ID, &inv.Name, &inv.Email, &inv.CreatedAt, &inv.Scanned, &scannedAt); err != nil {
		return model.Invitation{}, err
	}
	inv.ScannedAt = nullTime(scannedAt)
	return inv, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func sqlErr(op string, err error) error {
	return &StorageError{Op: op, Path: "mysql", Err: err}
}
