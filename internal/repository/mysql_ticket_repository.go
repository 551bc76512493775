package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/iliyamo/guest-pass/internal/model"
)

const ticketCols = "id, number, sold, sold_at, buyer_name, buyer_email, scanned, scanned_at, created_at"

// MySQLTicketRepo is the tickets store for STORE_DRIVER=mysql. Scans and
// sales are conditional UPDATEs; number allocation locks the current
// maximum inside a transaction.
type MySQLTicketRepo struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

func NewMySQLTicketRepo(db *sql.DB) *MySQLTicketRepo {
	return &MySQLTicketRepo{
		db:    db,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// SeedIfEmpty creates count tickets when the table holds none.
func (r *MySQLTicketRepo) SeedIfEmpty(ctx context.Context, count int) error {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tickets").Scan(&n); err != nil {
		return sqlErr("query", err)
	}
	if n > 0 || count <= 0 {
		return nil
	}
	_, err := r.CreateBatch(ctx, count)
	return err
}

func (r *MySQLTicketRepo) List(ctx context.Context) ([]model.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+ticketCols+" FROM tickets ORDER BY number")
	if err != nil {
		return nil, sqlErr("query", err)
	}
	defer rows.Close()

	out := []model.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, sqlErr("scan", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlErr("query", err)
	}
	return out, nil
}

func (r *MySQLTicketRepo) GetByID(ctx context.Context, id string) (model.Ticket, error) {
	return r.getOne(ctx, "SELECT "+ticketCols+" FROM tickets WHERE id = ?", id)
}

func (r *MySQLTicketRepo) GetByNumber(ctx context.Context, number int) (model.Ticket, error) {
	return r.getOne(ctx, "SELECT "+ticketCols+" FROM tickets WHERE number = ?", number)
}

func (r *MySQLTicketRepo) getOne(ctx context.Context, q string, arg any) (model.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, q, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Ticket{}, ErrNotFound
		}
		return model.Ticket{}, sqlErr("query", err)
	}
	return t, nil
}

// CreateBatch numbers the batch from the locked current maximum. InnoDB may
// pick a concurrent batch as a deadlock victim; that attempt is retried.
func (r *MySQLTicketRepo) CreateBatch(ctx context.Context, count int) ([]model.Ticket, error) {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		var created []model.Ticket
		created, err = r.createBatch(ctx, count)
		if !isDeadlock(err) {
			return created, err
		}
	}
	return nil, err
}

func (r *MySQLTicketRepo) createBatch(ctx context.Context, count int) (created []model.Ticket, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, sqlErr("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var max int
	if err = tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(number), 0) FROM tickets FOR UPDATE").Scan(&max); err != nil {
		return nil, sqlErr("query", err)
	}
	created, err = r.insert(ctx, tx, max+1, count)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, sqlErr("commit", err)
	}
	return created, nil
}

func (r *MySQLTicketRepo) Initialize(ctx context.Context, count int) (created []model.Ticket, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, sqlErr("begin", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM tickets"); err != nil {
		return nil, sqlErr("delete", err)
	}
	created, err = r.insert(ctx, tx, 1, count)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, sqlErr("commit", err)
	}
	return created, nil
}

func (r *MySQLTicketRepo) insert(ctx context.Context, tx *sql.Tx, start, count int) ([]model.Ticket, error) {
	if count < 0 {
		count = 0
	}
	createdAt := r.now()
	out := make([]model.Ticket, 0, count)
	for n := 0; n < count; n++ {
		t := model.Ticket{ID: r.newID(), Number: start + n, CreatedAt: createdAt}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO tickets (id, number, created_at) VALUES (?, ?, ?)",
			t.ID, t.Number, t.CreatedAt); err != nil {
			return nil, sqlErr("insert", err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *MySQLTicketRepo) Sell(ctx context.Context, id, buyerName, buyerEmail string) (model.Ticket, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET sold = 1, sold_at = ?, buyer_name = ?, buyer_email = ?
		 WHERE id = ? AND sold = 0`, r.now(), buyerName, buyerEmail, id)
	if err != nil {
		return model.Ticket{}, sqlErr("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Ticket{}, sqlErr("update", err)
	}
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Ticket{}, err
	}
	if n == 0 {
		return t, ErrAlreadySold
	}
	return t, nil
}

func (r *MySQLTicketRepo) Reset(ctx context.Context, id string) (model.Ticket, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET sold = 0, sold_at = NULL, buyer_name = NULL, buyer_email = NULL,
		 scanned = 0, scanned_at = NULL WHERE id = ?`, id)
	if err != nil {
		return model.Ticket{}, sqlErr("update", err)
	}
	return r.GetByID(ctx, id)
}

func (r *MySQLTicketRepo) SetScanned(ctx context.Context, id string, scanned bool) (model.Ticket, error) {
	var at *time.Time
	if scanned {
		t := r.now()
		at = &t
	}
	if _, err := r.db.ExecContext(ctx,
		"UPDATE tickets SET scanned = ?, scanned_at = ? WHERE id = ?", scanned, at, id); err != nil {
		return model.Ticket{}, sqlErr("update", err)
	}
	return r.GetByID(ctx, id)
}

func (r *MySQLTicketRepo) MarkScanned(ctx context.Context, id string, requireSold bool) (model.Ticket, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET scanned = 1, scanned_at = ?
		 WHERE id = ? AND scanned = 0 AND (sold = 1 OR ? = 0)`, r.now(), id, requireSold)
	if err != nil {
		return model.Ticket{}, sqlErr("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Ticket{}, sqlErr("update", err)
	}
	t, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Ticket{}, err
	}
	if n == 0 {
		if requireSold && !t.Sold {
			return t, ErrNotSold
		}
		return t, ErrConflict
	}
	return t, nil
}

func (r *MySQLTicketRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM tickets WHERE id = ?", id); err != nil {
		return sqlErr("delete", err)
	}
	return nil
}

func scanTicket(s rowScanner) (model.Ticket, error) {
	var (
		t                     model.Ticket
		soldAt, scannedAt     sql.NullTime
		buyerName, buyerEmail sql.NullString
	)
	err := s.Scan(&t.ID, &t.Number, &t.Sold, &soldAt, &buyerName, &buyerEmail, &t.Scanned, &scannedAt, &t.CreatedAt)
	if err != nil {
		return model.Ticket{}, err
	}
	t.SoldAt = nullTime(soldAt)
	t.ScannedAt = nullTime(scannedAt)
	t.BuyerName = nullString(buyerName)
	t.BuyerEmail = nullString(buyerEmail)
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func isDeadlock(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && (me.Number == 1213 || me.Number == 1205)
}
