// Package availability contains the pure decision logic that determines
// whether a room is free for a requested date range.  It has no side
// effects and touches no storage: callers load the room and its
// bookings (usually inside a transaction) and feed them in.  The same
// check is therefore usable both for advisory availability lookups and
// for the locked re-validation performed by the reservation manager.
package availability

import (
    "time"

    "github.com/iliyamo/hotel-room-reservation/internal/model"
)

// Reason classifies why a requested range is unavailable.  Reasons are
// reported in priority order: maintenance first, then range validity,
// then date conflicts.
type Reason string

const (
    ReasonMaintenance  Reason = "MAINTENANCE"   // room is closed for maintenance
    ReasonInvalidRange Reason = "INVALID_RANGE" // start >= end or start in the past
    ReasonDateConflict Reason = "DATE_CONFLICT" // an existing booking overlaps
)

// Decision is the outcome of an availability check.  When Available is
// false, Reason explains why; for ReasonDateConflict the conflicting
// booking's half-open range is carried so callers can surface a precise
// message ("already booked from X to Y").
type Decision struct {
    Available     bool
    Reason        Reason
    ConflictStart time.Time // set only for ReasonDateConflict
    ConflictEnd   time.Time // set only for ReasonDateConflict
}

// available is the singleton positive decision.
var available = Decision{Available: true}

// Day truncates a timestamp to its calendar date in UTC.  Booking
// ranges are dates, so all comparisons happen at day granularity.
func Day(t time.Time) time.Time {
    t = t.UTC()
    return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MaxStayNights bounds a single booking.  Ranges longer than a year
// are rejected as invalid rather than priced; it also keeps the
// nightly-rate multiplication far away from any integer limit.
const MaxStayNights = 365

// Nights returns the number of nights between two dates.  The result is
// negative or zero for malformed ranges; callers must reject those.
// Both dates are normalized to UTC midnight, so the difference in Unix
// seconds is an exact multiple of a day regardless of range length.
func Nights(start, end time.Time) int {
    return int((Day(end).Unix() - Day(start).Unix()) / 86400)
}

// Check decides whether room is free for [start, end).  The existing
// slice must hold the room's surviving bookings that intersect the
// requested range; feeding a stale snapshot yields a stale answer, so
// the reservation path calls Check again under its room lock.
//
// Rules, in priority order:
//  1. a room under maintenance admits no bookings at all;
//  2. the range must have at least one night and must not start before
//     the current date (derived from now);
//  3. no surviving booking may overlap [start, end) under the half-open
//     definition (existing.start < end AND existing.end > start).
//
// When several bookings overlap, the reported conflict is the one with
// the earliest start date, ties broken by lowest id.
func Check(room model.Room, start, end, now time.Time, existing []model.Booking) Decision {
    if room.UnderMaintenance {
        return Decision{Reason: ReasonMaintenance}
    }
    start, end = Day(start), Day(end)
    if n := Nights(start, end); n <= 0 || n > MaxStayNights || start.Before(Day(now)) {
        return Decision{Reason: ReasonInvalidRange}
    }
    var conflict *model.Booking
    for i := range existing {
        b := &existing[i]
        if !b.Overlaps(start, end) {
            continue
        }
        if conflict == nil ||
            b.StartDate.Before(conflict.StartDate) ||
            (b.StartDate.Equal(conflict.StartDate) && b.ID < conflict.ID) {
            conflict = b
        }
    }
    if conflict != nil {
        return Decision{
            Reason:        ReasonDateConflict,
            ConflictStart: conflict.StartDate,
            ConflictEnd:   conflict.EndDate,
        }
    }
    return available
}

// NextAvailableNights scans the next horizonDays calendar days starting
// from the current date and returns, in chronological order, the days
// for which the synthetic one-night range [day, day+1) is available.
// The result is advisory: a returned day may be claimed by another
// reservation before the caller acts on it, so booking it still goes
// through the locked reserve path.
func NextAvailableNights(room model.Room, existing []model.Booking, now time.Time, horizonDays int) []time.Time {
    dates := make([]time.Time, 0, horizonDays)
    today := Day(now)
    for i := 0; i < horizonDays; i++ {
        day := today.AddDate(0, 0, i)
        if Check(room, day, day.AddDate(0, 0, 1), now, existing).Available {
            dates = append(dates, day)
        }
    }
    return dates
}
