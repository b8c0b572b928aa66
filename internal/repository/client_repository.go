package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/iliyamo/hotel-room-reservation/internal/model"
)

const clientColumns = `id, name, email, phone_number, created_at, updated_at`

// ClientRepo persists hotel guests.  Clients are keyed by phone number
// for the payment-initiation flow: a returning guest updates their
// stored contact details instead of creating a duplicate row.
type ClientRepo struct {
    db *sql.DB
}

// NewClientRepo returns a new ClientRepo bound to the given database.
func NewClientRepo(db *sql.DB) *ClientRepo { return &ClientRepo{db: db} }

func scanClient(row interface{ Scan(...any) error }) (model.Client, error) {
    var c model.Client
    err := row.Scan(&c.ID, &c.Name, &c.Email, &c.PhoneNumber, &c.CreatedAt, &c.UpdatedAt)
    return c, err
}

// GetByID fetches a client by primary key.
func (r *ClientRepo) GetByID(ctx context.Context, id uint64) (model.Client, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id)
    c, err := scanClient(row)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Client{}, ErrClientNotFound
    }
    return c, err
}

// ExistsTx reports whether a client row exists, reading inside the
// given transaction.  The reservation manager uses it to fail with a
// typed error before inserting a booking with a dangling client id.
func (r *ClientRepo) ExistsTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
    var one int
    err := tx.QueryRowContext(ctx, `SELECT 1 FROM clients WHERE id = ?`, id).Scan(&one)
    if errors.Is(err, sql.ErrNoRows) {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// Upsert registers a guest by phone number.  When the phone number is
// already known the stored name and email are refreshed; otherwise a
// new client row is created.  The final row is written back into c.
func (r *ClientRepo) Upsert(ctx context.Context, c *model.Client) error {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+clientColumns+` FROM clients WHERE phone_number = ?`, c.PhoneNumber)
    existing, err := scanClient(row)
    switch {
    case err == nil:
        _, err = r.db.ExecContext(ctx,
            `UPDATE clients SET name = ?, email = ? WHERE id = ?`,
            c.Name, c.Email, existing.ID)
        if err != nil {
            return err
        }
        c.ID = existing.ID
    case errors.Is(err, sql.ErrNoRows):
        res, insErr := r.db.ExecContext(ctx,
            `INSERT INTO clients (name, email, phone_number) VALUES (?, ?, ?)`,
            c.Name, c.Email, c.PhoneNumber)
        if insErr != nil {
            return insErr
        }
        id, idErr := res.LastInsertId()
        if idErr != nil {
            return idErr
        }
        c.ID = uint64(id)
    default:
        return err
    }
    final, err := r.GetByID(ctx, c.ID)
    if err != nil {
        return err
    }
    *c = final
    return nil
}
