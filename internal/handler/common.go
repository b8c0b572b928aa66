package handler // handler defines http handlers

import (
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-room-reservation/internal/availability"
    "github.com/iliyamo/hotel-room-reservation/internal/reservation"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64.
// The JWT middleware stores claims with their decoded types, so several
// representations have to be accepted.
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// parseIDParam reads a positive uint64 path parameter.
func parseIDParam(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id != 0
}

// parseDate parses a YYYY-MM-DD value into a UTC date.
func parseDate(s string) (time.Time, bool) {
    t, err := time.Parse("2006-01-02", s)
    if err != nil {
        return time.Time{}, false
    }
    return t.UTC(), true
}

// dateRangeQuery reads the start/end query parameters shared by the
// availability endpoints.
func dateRangeQuery(c echo.Context) (start, end time.Time, ok bool) {
    start, ok = parseDate(c.QueryParam("start"))
    if !ok {
        return
    }
    end, ok = parseDate(c.QueryParam("end"))
    return
}

// unavailableJSON maps an *reservation.Unavailable into the response
// body and status the API contract promises: 400 for malformed ranges,
// 409 for maintenance and date conflicts.  Date conflicts carry the
// conflicting range so clients can show a precise message and follow
// up with the next-available endpoint.
func unavailableJSON(c echo.Context, u *reservation.Unavailable) error {
    d := u.Decision
    body := echo.Map{
        "error":  u.Error(),
        "reason": string(d.Reason),
    }
    status := http.StatusConflict
    switch d.Reason {
    case availability.ReasonInvalidRange:
        status = http.StatusBadRequest
    case availability.ReasonDateConflict:
        body["conflict_start"] = d.ConflictStart.Format("2006-01-02")
        body["conflict_end"] = d.ConflictEnd.Format("2006-01-02")
    }
    return c.JSON(status, body)
}
