package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-reservation/internal/availability"
	"github.com/iliyamo/hotel-room-reservation/internal/model"
	"github.com/iliyamo/hotel-room-reservation/internal/repository"
	"github.com/iliyamo/hotel-room-reservation/internal/reservation"
)

// PaymentHandler drives the two-step payment flow: Initiate quotes a
// stay and hands out a payment reference, Confirm turns a completed
// payment into a booking exactly once per reference.
//
// Initiate does NOT hold the room. The quote can go stale between the
// two calls; Confirm re-checks under the room lock and refuses with a
// conflict when someone else booked first.
type PaymentHandler struct {
	Manager *reservation.Manager
	Rooms   *repository.RoomRepo
	Clients *repository.ClientRepo
	Booking *BookingHandler
}

func NewPaymentHandler(m *reservation.Manager, rooms *repository.RoomRepo, clients *repository.ClientRepo, booking *BookingHandler) *PaymentHandler {
	if m == nil || rooms == nil || clients == nil || booking == nil {
		panic("nil dependency passed to NewPaymentHandler")
	}
	return &PaymentHandler{Manager: m, Rooms: rooms, Clients: clients, Booking: booking}
}

// Initiate handles POST /v1/payments/initiate. It validates the stay,
// upserts the client by phone number, computes the amount due, and
// returns a fresh payment reference with the booking metadata the
// provider should echo back on confirmation.
func (h *PaymentHandler) Initiate(c echo.Context) error {
	var body struct {
		RoomID      uint64 `json:"room_id"`
		Name        string `json:"name"`
		Email       string `json:"email"`
		PhoneNumber string `json:"phone_number"`
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.RoomID == 0 || body.Name == "" || body.PhoneNumber == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "room_id, name and phone_number are required"})
	}
	start, okS := parseDate(body.StartDate)
	end, okE := parseDate(body.EndDate)
	if !okS || !okE {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date and end_date must be YYYY-MM-DD"})
	}

	ctx := c.Request().Context()
	dec, err := h.Manager.IsAvailable(ctx, body.RoomID, start, end)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "availability check failed"})
	}
	if !dec.Available {
		return unavailableJSON(c, &reservation.Unavailable{Decision: dec})
	}

	client := model.Client{Name: body.Name, Email: body.Email, PhoneNumber: body.PhoneNumber}
	if err := h.Clients.Upsert(ctx, &client); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save client"})
	}

	room, err := h.Rooms.GetByID(ctx, body.RoomID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch room"})
	}
	nights := availability.Nights(availability.Day(start), availability.Day(end))
	amount := uint64(room.PriceCentsPerNight) * uint64(nights)

	reference := fmt.Sprintf("HOTEL-%d-%d-%s", room.ID, client.ID, uuid.NewString())

	return c.JSON(http.StatusOK, echo.Map{
		"reference":    reference,
		"amount_cents": amount,
		"metadata": echo.Map{
			"room_id":      room.ID,
			"client_id":    client.ID,
			"start_date":   availability.Day(start).Format("2006-01-02"),
			"end_date":     availability.Day(end).Format("2006-01-02"),
			"amount_cents": amount,
		},
	})
}

// Confirm handles POST /v1/payments/confirm. Replays with the same
// reference return the original booking with 200; the first successful
// call returns 201. Losing a race after payment returns 409 so the
// operator can refund.
func (h *PaymentHandler) Confirm(c echo.Context) error {
	var body struct {
		Reference   string `json:"reference"`
		RoomID      uint64 `json:"room_id"`
		ClientID    uint64 `json:"client_id"`
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		AmountCents uint64 `json:"amount_cents"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Reference == "" || body.RoomID == 0 || body.ClientID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reference, room_id and client_id are required"})
	}
	start, okS := parseDate(body.StartDate)
	end, okE := parseDate(body.EndDate)
	if !okS || !okE {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_date and end_date must be YYYY-MM-DD"})
	}

	// Replayed confirmation: hand back the already-committed booking.
	if existing, err := h.Booking.Bookings.GetByPaymentReference(c.Request().Context(), body.Reference); err == nil {
		return c.JSON(http.StatusOK, toBookingResp(existing))
	} else if !errors.Is(err, repository.ErrBookingNotFound) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check payment reference"})
	}

	b, created, err := h.Manager.ConfirmAndReserve(c.Request().Context(), body.Reference, body.RoomID, body.ClientID, start, end, body.AmountCents)
	if err != nil {
		return reserveErrJSON(c, err)
	}
	if !created {
		// A concurrent delivery of the same reference committed first;
		// that delivery already published the event.
		return c.JSON(http.StatusOK, toBookingResp(b))
	}
	h.Booking.publishConfirmed(c, b)
	return c.JSON(http.StatusCreated, toBookingResp(b))
}
