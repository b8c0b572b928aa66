package reservation

import (
    "errors"
    "fmt"

    "github.com/iliyamo/hotel-room-reservation/internal/availability"
)

// ErrBusy is returned when the room's reservation lock could not be
// acquired within the configured wait.  The request did not observe or
// modify any state; callers may simply retry.
var ErrBusy = errors.New("room is busy, try again")

// ErrPastBooking is returned when a cancellation targets a booking
// whose stay has already started.  Started stays are immutable.
var ErrPastBooking = errors.New("booking has already started")

// Unavailable is returned by the reserve paths when the availability
// check fails.  It wraps the oracle's decision so handlers can report
// the reason code and, for date conflicts, the exact conflicting range.
type Unavailable struct {
    Decision availability.Decision
}

func (e *Unavailable) Error() string {
    d := e.Decision
    switch d.Reason {
    case availability.ReasonMaintenance:
        return "room is under maintenance"
    case availability.ReasonInvalidRange:
        return "invalid booking date range"
    case availability.ReasonDateConflict:
        return fmt.Sprintf("room is already booked from %s to %s",
            d.ConflictStart.Format("2006-01-02"), d.ConflictEnd.Format("2006-01-02"))
    default:
        return "room is not available"
    }
}

// AsUnavailable unwraps err into an *Unavailable when it is one.
func AsUnavailable(err error) (*Unavailable, bool) {
    var u *Unavailable
    if errors.As(err, &u) {
        return u, true
    }
    return nil, false
}
