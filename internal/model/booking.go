package model

import "time"

// Payment status values stored in bookings.payment_status.  A booking
// created directly (without an external payment) carries PaymentStatusNone.
const (
    PaymentStatusNone      = ""          // direct booking, no payment attached
    PaymentStatusCompleted = "COMPLETED" // booking created from a confirmed payment
)

// Booking records that a client occupies a room for a half-open date
// range [StartDate, EndDate).  End-exclusive semantics mean a booking
// ending on day D and another starting on day D do not conflict.  For a
// fixed room no two surviving bookings may overlap; this is the core
// invariant of the system and is enforced by the reservation manager.
//
// Fields:
//  ID               – primary key identifier.
//  RoomID           – room being occupied.
//  ClientID         – client the booking belongs to.
//  StartDate        – first night (inclusive), a calendar date in UTC.
//  EndDate          – checkout day (exclusive), strictly after StartDate.
//  AmountPaidCents  – price per night times number of nights, in cents.
//  PaymentReference – external payment reference; unique when present.
//  PaymentStatus    – "" or COMPLETED.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Booking struct {
    ID               uint64    // bookings.id
    RoomID           uint64    // bookings.room_id
    ClientID         uint64    // bookings.client_id
    StartDate        time.Time // bookings.start_date (DATE)
    EndDate          time.Time // bookings.end_date (DATE)
    AmountPaidCents  uint64    // bookings.amount_paid_cents
    PaymentReference *string   // bookings.payment_reference (nullable, unique)
    PaymentStatus    string    // bookings.payment_status
    CreatedAt        time.Time // bookings.created_at
    UpdatedAt        time.Time // bookings.updated_at
}

// Overlaps reports whether the booking's range intersects [start, end)
// under the half-open definition.
func (b Booking) Overlaps(start, end time.Time) bool {
    return b.StartDate.Before(end) && b.EndDate.After(start)
}
