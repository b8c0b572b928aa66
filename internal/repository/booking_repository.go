package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/hotel-room-reservation/internal/model"
)

const bookingColumns = `id, room_id, client_id, start_date, end_date,
                        amount_paid_cents, payment_reference, payment_status, created_at, updated_at`

// BookingRepo persists bookings and exposes the interval queries the
// availability logic is built on.  All date parameters are bound at day
// granularity; the b.start_date < end AND b.end_date > start predicate
// implements the half-open overlap test, so a booking ending on day D
// never conflicts with one starting on day D.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle for transaction management.
func (r *BookingRepo) DB() *sql.DB { return r.db }

func scanBooking(row interface{ Scan(...any) error }) (model.Booking, error) {
    var (
        b   model.Booking
        ref sql.NullString
    )
    err := row.Scan(&b.ID, &b.RoomID, &b.ClientID, &b.StartDate, &b.EndDate,
        &b.AmountPaidCents, &ref, &b.PaymentStatus, &b.CreatedAt, &b.UpdatedAt)
    if err != nil {
        return model.Booking{}, err
    }
    if ref.Valid {
        v := ref.String
        b.PaymentReference = &v
    }
    return b, nil
}

func collectBookings(rows *sql.Rows) ([]model.Booking, error) {
    defer rows.Close()
    out := make([]model.Booking, 0)
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    return out, rows.Err()
}

// overlapQuery returns surviving bookings for a room intersecting
// [start, end), ordered by start date then id so the first row is the
// conflict the oracle reports.
const overlapQuery = `SELECT ` + bookingColumns + `
                      FROM bookings
                      WHERE room_id = ? AND start_date < ? AND end_date > ?
                      ORDER BY start_date, id`

// FindOverlapping returns the room's bookings intersecting [start, end)
// from committed state.  Use FindOverlappingTx on the reservation path
// so the read happens under the room lock.
func (r *BookingRepo) FindOverlapping(ctx context.Context, roomID uint64, start, end time.Time) ([]model.Booking, error) {
    rows, err := r.db.QueryContext(ctx, overlapQuery, roomID, end.Format(dateFmt), start.Format(dateFmt))
    if err != nil {
        return nil, err
    }
    return collectBookings(rows)
}

// FindOverlappingTx is FindOverlapping within an existing transaction.
// Called after GetForUpdateTx it observes every booking committed
// before the room lock was granted, which is what makes the
// check-then-insert sequence race free.
func (r *BookingRepo) FindOverlappingTx(ctx context.Context, tx *sql.Tx, roomID uint64, start, end time.Time) ([]model.Booking, error) {
    rows, err := tx.QueryContext(ctx, overlapQuery, roomID, end.Format(dateFmt), start.Format(dateFmt))
    if err != nil {
        return nil, err
    }
    return collectBookings(rows)
}

// CreateTx inserts a booking within the scope of an existing
// transaction and populates the generated ID and timestamps on the
// passed struct.  A nil PaymentReference inserts NULL; a duplicate
// reference surfaces as ErrDuplicatePaymentReference via the unique
// index, which is the final arbiter between racing confirmations.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    const q = `INSERT INTO bookings (room_id, client_id, start_date, end_date,
                                     amount_paid_cents, payment_reference, payment_status)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
    var ref sql.NullString
    if b.PaymentReference != nil {
        ref = sql.NullString{String: *b.PaymentReference, Valid: true}
    }
    res, err := tx.ExecContext(ctx, q, b.RoomID, b.ClientID,
        b.StartDate.Format(dateFmt), b.EndDate.Format(dateFmt),
        b.AmountPaidCents, ref, b.PaymentStatus)
    if err != nil {
        if isDuplicateKey(err) {
            return ErrDuplicatePaymentReference
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    // Query back the full row to populate timestamps and defaults.
    row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, b.ID)
    created, err := scanBooking(row)
    if err != nil {
        return err
    }
    *b = created
    return nil
}

// GetByID fetches a single booking by primary key.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
    b, err := scanBooking(row)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Booking{}, ErrBookingNotFound
    }
    return b, err
}

// GetByPaymentReference returns the booking carrying the given external
// payment reference, or ErrBookingNotFound when no booking does.  At
// most one row can ever match thanks to the unique index.
func (r *BookingRepo) GetByPaymentReference(ctx context.Context, ref string) (model.Booking, error) {
    row := r.db.QueryRowContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings WHERE payment_reference = ?`, ref)
    b, err := scanBooking(row)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Booking{}, ErrBookingNotFound
    }
    return b, err
}

// GetForCancelTx fetches a booking inside a transaction with an
// exclusive row lock so a cancellation cannot race another writer on
// the same booking.
func (r *BookingRepo) GetForCancelTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
    row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id)
    b, err := scanBooking(row)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Booking{}, ErrBookingNotFound
    }
    return b, err
}

// DeleteTx removes a booking within the provided transaction.
func (r *BookingRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
    res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        return ErrBookingNotFound
    }
    return nil
}

// ListByRoom returns all bookings for a room, newest first.
func (r *BookingRepo) ListByRoom(ctx context.Context, roomID uint64) ([]model.Booking, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings WHERE room_id = ? ORDER BY created_at DESC`, roomID)
    if err != nil {
        return nil, err
    }
    return collectBookings(rows)
}

// ListByClient returns all bookings made for a client, newest first.
func (r *BookingRepo) ListByClient(ctx context.Context, clientID uint64) ([]model.Booking, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings WHERE client_id = ? ORDER BY created_at DESC`, clientID)
    if err != nil {
        return nil, err
    }
    return collectBookings(rows)
}

// ListAll returns bookings page by page for the admin overview.
func (r *BookingRepo) ListAll(ctx context.Context, limit, offset int) ([]model.Booking, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
    if err != nil {
        return nil, err
    }
    return collectBookings(rows)
}
