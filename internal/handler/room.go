package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-room-reservation/internal/model"
	"github.com/iliyamo/hotel-room-reservation/internal/repository"
	"github.com/iliyamo/hotel-room-reservation/internal/reservation"
)

// RoomHandler serves the room catalogue: public listing and
// availability queries plus admin-only CRUD.
type RoomHandler struct {
	Rooms   *repository.RoomRepo
	Manager *reservation.Manager
	Horizon int // default days scanned by NextAvailable
}

func NewRoomHandler(rooms *repository.RoomRepo, m *reservation.Manager, horizonDays int) *RoomHandler {
	if rooms == nil || m == nil {
		panic("nil dependency passed to NewRoomHandler")
	}
	if horizonDays <= 0 {
		horizonDays = 30
	}
	return &RoomHandler{Rooms: rooms, Manager: m, Horizon: horizonDays}
}

type roomResp struct {
	ID                 uint64 `json:"id"`
	RoomType           string `json:"room_type"`
	RoomNumber         string `json:"room_number"`
	Description        string `json:"description,omitempty"`
	ImageURL           string `json:"image_url,omitempty"`
	PriceCentsPerNight uint32 `json:"price_cents_per_night"`
	UnderMaintenance   bool   `json:"under_maintenance"`
}

func toRoomResp(r model.Room) roomResp {
	return roomResp{
		ID:                 r.ID,
		RoomType:           string(r.RoomType),
		RoomNumber:         r.RoomNumber,
		Description:        r.Description,
		ImageURL:           r.ImageURL,
		PriceCentsPerNight: r.PriceCentsPerNight,
		UnderMaintenance:   r.UnderMaintenance,
	}
}

type roomBody struct {
	RoomType           string `json:"room_type"`
	RoomNumber         string `json:"room_number"`
	Description        string `json:"description"`
	ImageURL           string `json:"image_url"`
	PriceCentsPerNight uint32 `json:"price_cents_per_night"`
	UnderMaintenance   bool   `json:"under_maintenance"`
}

func (b roomBody) validate() (model.RoomType, string) {
	rt := model.RoomType(b.RoomType)
	switch rt {
	case model.RoomTypeSingle, model.RoomTypeDouble, model.RoomTypeSuite, model.RoomTypeDeluxe:
	default:
		return "", "room_type must be one of SINGLE, DOUBLE, SUITE, DELUXE"
	}
	if b.RoomNumber == "" {
		return "", "room_number is required"
	}
	if b.PriceCentsPerNight == 0 {
		return "", "price_cents_per_night must be positive"
	}
	return rt, ""
}

// List handles GET /v1/rooms.
func (h *RoomHandler) List(c echo.Context) error {
	rooms, err := h.Rooms.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load rooms"})
	}
	out := make([]roomResp, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toRoomResp(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Get handles GET /v1/rooms/:id.
func (h *RoomHandler) Get(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	room, err := h.Rooms.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to fetch room"})
	}
	return c.JSON(http.StatusOK, toRoomResp(room))
}

// Available handles GET /v1/rooms/available?start=&end=. It returns
// rooms with no overlapping booking across the half-open range,
// excluding rooms under maintenance.
func (h *RoomHandler) Available(c echo.Context) error {
	start, end, ok := dateRangeQuery(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start and end must be YYYY-MM-DD"})
	}
	rooms, err := h.Manager.ListAvailableRooms(c.Request().Context(), start, end)
	if err != nil {
		if u, uok := reservation.AsUnavailable(err); uok {
			return unavailableJSON(c, u)
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load availability"})
	}
	out := make([]roomResp, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, toRoomResp(r))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// NextAvailable handles GET /v1/rooms/:id/next-available?days=. It
// scans single-night stays over the horizon (default 30 days) and
// returns the check-in dates that are still free.
func (h *RoomHandler) NextAvailable(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	days := h.Horizon
	if v, err := strconv.Atoi(c.QueryParam("days")); err == nil && v > 0 && v <= 365 {
		days = v
	}
	dates, err := h.Manager.NextAvailableDates(c.Request().Context(), id, days)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load availability"})
	}
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format("2006-01-02"))
	}
	return c.JSON(http.StatusOK, echo.Map{"room_id": id, "dates": out})
}

// Create handles POST /v1/rooms (ADMIN).
func (h *RoomHandler) Create(c echo.Context) error {
	var body roomBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	rt, msg := body.validate()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	room := model.Room{
		RoomType:           rt,
		RoomNumber:         body.RoomNumber,
		Description:        body.Description,
		ImageURL:           body.ImageURL,
		PriceCentsPerNight: body.PriceCentsPerNight,
		UnderMaintenance:   body.UnderMaintenance,
	}
	if err := h.Rooms.Create(c.Request().Context(), &room); err != nil {
		if errors.Is(err, repository.ErrDuplicateRoomNumber) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "room number already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create room"})
	}
	return c.JSON(http.StatusCreated, toRoomResp(room))
}

// Update handles PUT /v1/rooms/:id (ADMIN).
func (h *RoomHandler) Update(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	var body roomBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	rt, msg := body.validate()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	room := model.Room{
		ID:                 id,
		RoomType:           rt,
		RoomNumber:         body.RoomNumber,
		Description:        body.Description,
		ImageURL:           body.ImageURL,
		PriceCentsPerNight: body.PriceCentsPerNight,
		UnderMaintenance:   body.UnderMaintenance,
	}
	if err := h.Rooms.Update(c.Request().Context(), &room); err != nil {
		switch {
		case errors.Is(err, repository.ErrRoomNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		case errors.Is(err, repository.ErrDuplicateRoomNumber):
			return c.JSON(http.StatusConflict, echo.Map{"error": "room number already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update room"})
	}
	return c.JSON(http.StatusOK, toRoomResp(room))
}

// Delete handles DELETE /v1/rooms/:id (ADMIN).
func (h *RoomHandler) Delete(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	if err := h.Rooms.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "room not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete room"})
	}
	return c.NoContent(http.StatusNoContent)
}
