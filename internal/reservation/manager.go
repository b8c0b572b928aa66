// Package reservation implements the transactional core of the booking
// system: the locked check-then-insert sequence that keeps a room's
// bookings free of overlaps, the idempotent payment-confirmation path,
// and cancellation.  Everything else (HTTP, auth, catalog CRUD) sits on
// top of this package.
package reservation

import (
    "context"
    "database/sql"
    "errors"
    "log"
    "time"

    "github.com/iliyamo/hotel-room-reservation/internal/availability"
    "github.com/iliyamo/hotel-room-reservation/internal/model"
    "github.com/iliyamo/hotel-room-reservation/internal/repository"
)

// DefaultLockWait bounds how long a reservation waits for a contended
// room before failing with ErrBusy.
const DefaultLockWait = 3 * time.Second

// Manager coordinates reservations.  A reserve call acquires the
// room's lock, opens a transaction, re-reads the room FOR UPDATE,
// re-runs the availability oracle against bookings read in the same
// transaction, and only then inserts.  A plain check-then-insert
// without that exclusive hold is racy: two callers can both pass the
// check before either inserts.
type Manager struct {
    db       *sql.DB
    rooms    *repository.RoomRepo
    bookings *repository.BookingRepo
    clients  *repository.ClientRepo
    locks    *RoomLocks
    lockWait time.Duration
    now      func() time.Time // clock, replaceable in tests
}

// NewManager wires a Manager.  All repositories must share db.  A
// non-positive lockWait falls back to DefaultLockWait.
func NewManager(db *sql.DB, rooms *repository.RoomRepo, bookings *repository.BookingRepo, clients *repository.ClientRepo, lockWait time.Duration) *Manager {
    if db == nil || rooms == nil || bookings == nil || clients == nil {
        panic("nil dependency passed to NewManager")
    }
    if lockWait <= 0 {
        lockWait = DefaultLockWait
    }
    return &Manager{
        db:       db,
        rooms:    rooms,
        bookings: bookings,
        clients:  clients,
        locks:    NewRoomLocks(),
        lockWait: lockWait,
        now:      func() time.Time { return time.Now().UTC() },
    }
}

// Reserve books a room for the half-open range [start, end) on behalf
// of a client.  On success the persisted booking is returned with
// AmountPaidCents set to the nightly rate times the number of nights.
// Typed failures: repository.ErrRoomNotFound,
// repository.ErrClientNotFound, *Unavailable, ErrBusy.
func (m *Manager) Reserve(ctx context.Context, roomID, clientID uint64, start, end time.Time) (model.Booking, error) {
    return m.reserve(ctx, roomID, clientID, start, end, nil)
}

// paymentAttachment carries the external reference attached to a
// booking created from a confirmed payment.
type paymentAttachment struct {
    reference   string
    amountCents uint64 // provider-echoed total, used only for cross-checking
}

// reserve is the single locked reservation path used by both direct
// bookings and payment confirmations.  The room lock spans the whole
// check-then-insert sequence and is released on every exit path.
func (m *Manager) reserve(ctx context.Context, roomID, clientID uint64, start, end time.Time, pay *paymentAttachment) (model.Booking, error) {
    start, end = availability.Day(start), availability.Day(end)

    release, err := m.locks.Acquire(ctx, roomID, m.lockWait)
    if err != nil {
        return model.Booking{}, err
    }
    defer release()

    tx, err := m.db.BeginTx(ctx, nil)
    if err != nil {
        return model.Booking{}, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    // Row lock on the room: serializes writers across processes and
    // pins the maintenance flag for the rest of the transaction.
    room, err := m.rooms.GetForUpdateTx(ctx, tx, roomID)
    if err != nil {
        return model.Booking{}, err
    }
    ok, err := m.clients.ExistsTx(ctx, tx, clientID)
    if err != nil {
        return model.Booking{}, err
    }
    if !ok {
        return model.Booking{}, repository.ErrClientNotFound
    }

    // Re-validate against the latest committed state now that the lock
    // is held.  Anything committed before the lock was granted is
    // visible here.
    existing, err := m.bookings.FindOverlappingTx(ctx, tx, roomID, start, end)
    if err != nil {
        return model.Booking{}, err
    }
    dec := availability.Check(room, start, end, m.now(), existing)
    if !dec.Available {
        return model.Booking{}, &Unavailable{Decision: dec}
    }

    // 64-bit multiply: the oracle caps the stay length, but the nightly
    // rate alone can sit near the top of uint32, so the product must
    // not be computed in 32 bits.
    nights := availability.Nights(start, end)
    amount := uint64(room.PriceCentsPerNight) * uint64(nights)

    b := model.Booking{
        RoomID:          roomID,
        ClientID:        clientID,
        StartDate:       start,
        EndDate:         end,
        AmountPaidCents: amount,
    }
    if pay != nil {
        ref := pay.reference
        b.PaymentReference = &ref
        b.PaymentStatus = model.PaymentStatusCompleted
        if pay.amountCents != 0 && pay.amountCents != amount {
            // The provider metadata disagrees with the nightly rate;
            // the recomputed value wins and the mismatch is logged.
            log.Printf("reservation: payment %s amount mismatch: provider=%d computed=%d",
                pay.reference, pay.amountCents, amount)
        }
    }
    if err := m.bookings.CreateTx(ctx, tx, &b); err != nil {
        return model.Booking{}, err
    }
    if err := tx.Commit(); err != nil {
        return model.Booking{}, err
    }
    committed = true
    return b, nil
}

// ConfirmAndReserve turns a payment-provider confirmation into at most
// one booking.  Repeated or concurrent deliveries of the same
// reference all return the same persisted row: a pre-check short
// circuits the common retry case, and the unique index on
// payment_reference arbitrates true races -- when the insert loses to
// a concurrent confirmation the surviving row is loaded and returned
// instead of an error.
//
// The second result reports whether this call created the booking.
// It is false on every replayed or lost-race delivery, so callers can
// suppress side effects (event publishing, 201 responses) that must
// fire exactly once per booking.
func (m *Manager) ConfirmAndReserve(ctx context.Context, reference string, roomID, clientID uint64, start, end time.Time, amountCents uint64) (model.Booking, bool, error) {
    if b, err := m.bookings.GetByPaymentReference(ctx, reference); err == nil {
        return b, false, nil
    } else if !errors.Is(err, repository.ErrBookingNotFound) {
        return model.Booking{}, false, err
    }

    b, err := m.reserve(ctx, roomID, clientID, start, end,
        &paymentAttachment{reference: reference, amountCents: amountCents})
    if errors.Is(err, repository.ErrDuplicatePaymentReference) {
        // Lost the race: another delivery committed first.
        b, err = m.bookings.GetByPaymentReference(ctx, reference)
        return b, false, err
    }
    if err != nil {
        return model.Booking{}, false, err
    }
    return b, true, nil
}

// Cancel deletes a booking, permitted only while its start date has
// not yet arrived.  A stay that has started (or finished) is immutable
// and fails with ErrPastBooking.
func (m *Manager) Cancel(ctx context.Context, bookingID uint64) error {
    tx, err := m.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    b, err := m.bookings.GetForCancelTx(ctx, tx, bookingID)
    if err != nil {
        return err
    }
    if !availability.Day(b.StartDate).After(availability.Day(m.now())) {
        return ErrPastBooking
    }
    if err := m.bookings.DeleteTx(ctx, tx, bookingID); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// IsAvailable answers an advisory availability question from committed
// state, without taking any lock.  The returned decision carries the
// reason and conflicting range when the answer is no.  Callers must
// still go through Reserve, which re-checks under the room lock.
func (m *Manager) IsAvailable(ctx context.Context, roomID uint64, start, end time.Time) (availability.Decision, error) {
    room, err := m.rooms.GetByID(ctx, roomID)
    if err != nil {
        return availability.Decision{}, err
    }
    start, end = availability.Day(start), availability.Day(end)
    existing, err := m.bookings.FindOverlapping(ctx, roomID, start, end)
    if err != nil {
        return availability.Decision{}, err
    }
    return availability.Check(room, start, end, m.now(), existing), nil
}

// NextAvailableDates returns the next free single-night slots for a
// room over the given horizon, in chronological order.  Advisory only.
func (m *Manager) NextAvailableDates(ctx context.Context, roomID uint64, horizonDays int) ([]time.Time, error) {
    room, err := m.rooms.GetByID(ctx, roomID)
    if err != nil {
        return nil, err
    }
    today := availability.Day(m.now())
    existing, err := m.bookings.FindOverlapping(ctx, roomID, today, today.AddDate(0, 0, horizonDays))
    if err != nil {
        return nil, err
    }
    return availability.NextAvailableNights(room, existing, m.now(), horizonDays), nil
}

// ListAvailableRooms lists rooms free for [start, end) and not under
// maintenance, from committed state.
func (m *Manager) ListAvailableRooms(ctx context.Context, start, end time.Time) ([]model.Room, error) {
    return m.rooms.FindAvailable(ctx, availability.Day(start), availability.Day(end))
}
