package handler

import (
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/hotel-room-reservation/internal/model"
    "github.com/iliyamo/hotel-room-reservation/internal/queue"
    "github.com/iliyamo/hotel-room-reservation/internal/repository"
    "github.com/iliyamo/hotel-room-reservation/internal/reservation"
    queue_publisher "github.com/iliyamo/hotel-room-reservation/internal/service"
)

// BookingHandler exposes the reservation engine over HTTP: creating
// and cancelling bookings, listing them, and advisory availability
// checks.  All bookings are created through the reservation manager;
// the handler never inserts rows itself.
type BookingHandler struct {
    Manager  *reservation.Manager
    Bookings *repository.BookingRepo
    Rooms    *repository.RoomRepo
}

// NewBookingHandler constructs a BookingHandler.  All dependencies must
// be non-nil.
func NewBookingHandler(m *reservation.Manager, bookings *repository.BookingRepo, rooms *repository.RoomRepo) *BookingHandler {
    if m == nil || bookings == nil || rooms == nil {
        panic("nil dependency passed to NewBookingHandler")
    }
    return &BookingHandler{Manager: m, Bookings: bookings, Rooms: rooms}
}

// bookingResp is the JSON shape for a booking returned to clients.
type bookingResp struct {
    ID               uint64  `json:"id"`
    RoomID           uint64  `json:"room_id"`
    ClientID         uint64  `json:"client_id"`
    StartDate        string  `json:"start_date"`
    EndDate          string  `json:"end_date"`
    AmountPaidCents  uint64  `json:"amount_paid_cents"`
    PaymentReference *string `json:"payment_reference,omitempty"`
    PaymentStatus    string  `json:"payment_status,omitempty"`
    CreatedAt        string  `json:"created_at"`
}

func toBookingResp(b model.Booking) bookingResp {
    return bookingResp{
        ID:               b.ID,
        RoomID:           b.RoomID,
        ClientID:         b.ClientID,
        StartDate:        b.StartDate.Format("2006-01-02"),
        EndDate:          b.EndDate.Format("2006-01-02"),
        AmountPaidCents:  b.AmountPaidCents,
        PaymentReference: b.PaymentReference,
        PaymentStatus:    b.PaymentStatus,
        CreatedAt:        b.CreatedAt.UTC().Format(time.RFC3339),
    }
}

// reserveErrJSON translates reservation failures shared by the booking
// and payment paths into HTTP responses.
func reserveErrJSON(c echo.Context, err error) error {
    switch {
    case errors.Is(err, repository.ErrRoomNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
    case errors.Is(err, repository.ErrClientNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "client not found"})
    case errors.Is(err, reservation.ErrBusy):
        c.Response().Header().Set("Retry-After", "1")
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "room is busy, try again"})
    }
    if u, ok := reservation.AsUnavailable(err); ok {
        return unavailableJSON(c, u)
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reservation failed"})
}

// publishConfirmed emits a booking.confirmed event for downstream
// consumers.  Failures are logged inside the publisher and ignored;
// the booking is already committed.
func (h *BookingHandler) publishConfirmed(c echo.Context, b model.Booking) {
    room, err := h.Rooms.GetByID(c.Request().Context(), b.RoomID)
    if err != nil {
        return
    }
    ref := ""
    if b.PaymentReference != nil {
        ref = *b.PaymentReference
    }
    _ = queue_publisher.PublishBookingConfirmed(c.Request().Context(), queue.BookingConfirmedEvent{
        BookingID:        b.ID,
        RoomID:           b.RoomID,
        RoomNumber:       room.RoomNumber,
        ClientID:         b.ClientID,
        StartDate:        b.StartDate.Format("2006-01-02"),
        EndDate:          b.EndDate.Format("2006-01-02"),
        AmountPaidCents:  b.AmountPaidCents,
        PaymentReference: ref,
        ConfirmedAt:      time.Now().UTC().Format(time.RFC3339),
    })
}

// Create handles POST /v1/bookings.  It reserves a room for a client
// over a half-open date range.  Responses: 201 with the booking, 404
// when room or client is missing, 400 for malformed ranges, 409 with
// the conflicting range for date conflicts or maintenance, 503 when
// the room lock is contended.
func (h *BookingHandler) Create(c echo.Context) error {
    var body struct {
        RoomID    uint64 `json:"room_id"`
        ClientID  uint64 `json:"client_id"`
        StartDate string `json:"start_date"`
        EndDate   string `json:"end_date"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.RoomID == 0 || body.ClientID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "room_id and client_id are required"})
    }
    start, okS := parseDate(body.StartDate)
    end, okE := parseDate(body.EndDate)
    if !okS || !okE {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date and end_date must be YYYY-MM-DD"})
    }
    b, err := h.Manager.Reserve(c.Request().Context(), body.RoomID, body.ClientID, start, end)
    if err != nil {
        return reserveErrJSON(c, err)
    }
    h.publishConfirmed(c, b)
    return c.JSON(http.StatusCreated, toBookingResp(b))
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
    id, ok := parseIDParam(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    b, err := h.Bookings.GetByID(c.Request().Context(), id)
    if err != nil {
        if errors.Is(err, repository.ErrBookingNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch booking"})
    }
    return c.JSON(http.StatusOK, toBookingResp(b))
}

// List handles GET /v1/bookings with limit/offset pagination.
func (h *BookingHandler) List(c echo.Context) error {
    limit, offset := 50, 0
    if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 && v <= 200 {
        limit = v
    }
    if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v >= 0 {
        offset = v
    }
    items, err := h.Bookings.ListAll(c.Request().Context(), limit, offset)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
    }
    out := make([]bookingResp, 0, len(items))
    for _, b := range items {
        out = append(out, toBookingResp(b))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// ListByRoom handles GET /v1/bookings/room/:roomId.
func (h *BookingHandler) ListByRoom(c echo.Context) error {
    roomID, ok := parseIDParam(c, "roomId")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
    }
    items, err := h.Bookings.ListByRoom(c.Request().Context(), roomID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
    }
    out := make([]bookingResp, 0, len(items))
    for _, b := range items {
        out = append(out, toBookingResp(b))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// ListByClient handles GET /v1/bookings/client/:clientId.
func (h *BookingHandler) ListByClient(c echo.Context) error {
    clientID, ok := parseIDParam(c, "clientId")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid client id"})
    }
    items, err := h.Bookings.ListByClient(c.Request().Context(), clientID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
    }
    out := make([]bookingResp, 0, len(items))
    for _, b := range items {
        out = append(out, toBookingResp(b))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Cancel handles DELETE /v1/bookings/:id.  It removes the booking only
// while its start date is still in the future.  Returns 204 on
// success, 404 when absent, 409 when the stay has already started.
// Authentication is required; the identity is only used for the audit
// log line.
func (h *BookingHandler) Cancel(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := parseIDParam(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
    }
    if err := h.Manager.Cancel(c.Request().Context(), id); err != nil {
        switch {
        case errors.Is(err, repository.ErrBookingNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
        case errors.Is(err, reservation.ErrPastBooking):
            return c.JSON(http.StatusConflict, echo.Map{"error": "cannot cancel a booking that has started"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel booking"})
    }
    c.Logger().Infof("booking %d cancelled by user %d", id, userID)
    return c.NoContent(http.StatusNoContent)
}

// CheckAvailability handles GET /v1/bookings/check-availability/:roomId.
// It answers from committed state without locking; a true answer can be
// invalidated by a concurrent reservation, so booking still goes
// through the locked path.
func (h *BookingHandler) CheckAvailability(c echo.Context) error {
    roomID, ok := parseIDParam(c, "roomId")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
    }
    start, end, ok := dateRangeQuery(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "start and end must be YYYY-MM-DD"})
    }
    dec, err := h.Manager.IsAvailable(c.Request().Context(), roomID, start, end)
    if err != nil {
        if errors.Is(err, repository.ErrRoomNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "availability check failed"})
    }
    body := echo.Map{"available": dec.Available}
    if !dec.Available {
        body["reason"] = string(dec.Reason)
        if !dec.ConflictStart.IsZero() {
            body["conflict_start"] = dec.ConflictStart.Format("2006-01-02")
            body["conflict_end"] = dec.ConflictEnd.Format("2006-01-02")
        }
    }
    return c.JSON(http.StatusOK, body)
}
