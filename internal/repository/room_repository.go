package repository // repository holds data access logic for domain entities

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/iliyamo/hotel-room-reservation/internal/model"
)

// dateFmt is the layout used when binding DATE parameters.  Scans go
// the other way automatically because the DSN sets parseTime=true.
const dateFmt = "2006-01-02"

// roomColumns is the select list shared by every room query so that
// scanRoom stays in sync with it.
const roomColumns = `id, room_type, room_number, description, image_url,
                     price_cents_per_night, under_maintenance, created_at, updated_at`

// RoomRepo provides CRUD and availability queries for the rooms table.
// Catalog mutations (create/update/delete) belong to admin operations;
// the reservation path only ever reads rooms, taking a row lock via
// GetForUpdateTx while it checks and inserts bookings.
type RoomRepo struct {
    db *sql.DB
}

// NewRoomRepo constructs a RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// that span rooms and bookings.
func (r *RoomRepo) DB() *sql.DB { return r.db }

func scanRoom(row interface{ Scan(...any) error }) (model.Room, error) {
    var rm model.Room
    err := row.Scan(&rm.ID, &rm.RoomType, &rm.RoomNumber, &rm.Description, &rm.ImageURL,
        &rm.PriceCentsPerNight, &rm.UnderMaintenance, &rm.CreatedAt, &rm.UpdatedAt)
    return rm, err
}

// Create inserts a new room.  The room number must be unique;
// violations surface as ErrDuplicateRoomNumber.  On success the ID and
// timestamp fields of the passed struct are populated.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
    const q = `INSERT INTO rooms (room_type, room_number, description, image_url,
                                  price_cents_per_night, under_maintenance)
               VALUES (?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, rm.RoomType, rm.RoomNumber, rm.Description,
        rm.ImageURL, rm.PriceCentsPerNight, rm.UnderMaintenance)
    if err != nil {
        if isDuplicateKey(err) {
            return ErrDuplicateRoomNumber
        }
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    rm.ID = uint64(id)
    // Read the row back so defaults and timestamps are populated.
    created, err := r.GetByID(ctx, rm.ID)
    if err != nil {
        return err
    }
    *rm = created
    return nil
}

// Update overwrites the mutable fields of a room.  It returns
// ErrRoomNotFound when no row matches and ErrDuplicateRoomNumber when
// the new room number collides with another room.
func (r *RoomRepo) Update(ctx context.Context, rm *model.Room) error {
    const q = `UPDATE rooms
               SET room_type = ?, room_number = ?, description = ?, image_url = ?,
                   price_cents_per_night = ?, under_maintenance = ?
               WHERE id = ?`
    res, err := r.db.ExecContext(ctx, q, rm.RoomType, rm.RoomNumber, rm.Description,
        rm.ImageURL, rm.PriceCentsPerNight, rm.UnderMaintenance, rm.ID)
    if err != nil {
        if isDuplicateKey(err) {
            return ErrDuplicateRoomNumber
        }
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        // Either absent or unchanged; distinguish by probing for the row.
        if _, getErr := r.GetByID(ctx, rm.ID); getErr != nil {
            return getErr
        }
    }
    updated, err := r.GetByID(ctx, rm.ID)
    if err != nil {
        return err
    }
    *rm = updated
    return nil
}

// Delete removes a room from the catalog.  Deleting a room with
// bookings fails at the database level through the foreign key.
func (r *RoomRepo) Delete(ctx context.Context, id uint64) error {
    res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        return ErrRoomNotFound
    }
    return nil
}

// GetByID fetches a single room by primary key.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (model.Room, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
    rm, err := scanRoom(row)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Room{}, ErrRoomNotFound
    }
    return rm, err
}

// GetForUpdateTx fetches a room inside the given transaction with an
// exclusive row lock (SELECT ... FOR UPDATE).  The lock is held until
// the transaction ends and is what serializes concurrent check-then-
// insert sequences on the same room across processes.  Locks on
// different rooms never block each other.
func (r *RoomRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Room, error) {
    row := tx.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ? FOR UPDATE`, id)
    rm, err := scanRoom(row)
    if errors.Is(err, sql.ErrNoRows) {
        return model.Room{}, ErrRoomNotFound
    }
    return rm, err
}

// List returns every room in the catalog ordered by room number.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY room_number`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Room, 0)
    for rows.Next() {
        rm, err := scanRoom(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, rm)
    }
    return out, rows.Err()
}

// FindAvailable returns all rooms that are not under maintenance and
// have no surviving booking overlapping [start, end).  The overlap test
// uses half-open semantics: a booking ending on the requested start day
// does not exclude the room.  Only committed bookings are visible; an
// in-flight reservation on another connection does not leak into this
// listing.
func (r *RoomRepo) FindAvailable(ctx context.Context, start, end time.Time) ([]model.Room, error) {
    const q = `SELECT ` + roomColumns + `
               FROM rooms r
               WHERE r.under_maintenance = 0
                 AND NOT EXISTS (
                     SELECT 1 FROM bookings b
                     WHERE b.room_id = r.id
                       AND b.start_date < ?
                       AND b.end_date > ?)
               ORDER BY r.room_number`
    rows, err := r.db.QueryContext(ctx, q, end.Format(dateFmt), start.Format(dateFmt))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Room, 0)
    for rows.Next() {
        rm, err := scanRoom(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, rm)
    }
    return out, rows.Err()
}
