// Package repository defines sentinel error values shared across the
// data access layer. Higher layers compare against these with
// errors.Is to distinguish failure scenarios instead of matching on
// driver error strings.
package repository

import (
    "errors"
    "strings"
)

// ErrRoomNotFound is returned when a room lookup yields no row.
var ErrRoomNotFound = errors.New("room not found")

// ErrBookingNotFound is returned when a booking lookup yields no row.
var ErrBookingNotFound = errors.New("booking not found")

// ErrClientNotFound is returned when a client lookup yields no row.
var ErrClientNotFound = errors.New("client not found")

// ErrDuplicateRoomNumber is returned when an insert or update would
// violate the unique constraint on rooms.room_number.
var ErrDuplicateRoomNumber = errors.New("room number already exists")

// ErrDuplicatePaymentReference is returned when a booking insert hits
// the unique index on bookings.payment_reference. The payment
// confirmation path treats this as "already confirmed" and loads the
// surviving row instead of surfacing an error.
var ErrDuplicatePaymentReference = errors.New("payment reference already used")

// isDuplicateKey reports whether err is a MySQL duplicate entry error
// (error code 1062). The driver does not export a typed error for
// this, so the code is matched in the message.
func isDuplicateKey(err error) bool {
    return err != nil && strings.Contains(err.Error(), "1062")
}
