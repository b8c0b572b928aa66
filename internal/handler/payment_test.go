package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-reservation/internal/repository"
	"github.com/iliyamo/hotel-room-reservation/internal/reservation"
)

func newTestHandlers(t *testing.T) (*BookingHandler, *PaymentHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rooms := repository.NewRoomRepo(db)
	bookings := repository.NewBookingRepo(db)
	clients := repository.NewClientRepo(db)
	m := reservation.NewManager(db, rooms, bookings, clients, 50*time.Millisecond)

	bh := NewBookingHandler(m, bookings, rooms)
	ph := NewPaymentHandler(m, rooms, clients, bh)
	return bh, ph, mock
}

func jsonCtx(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func testBookingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "room_id", "client_id", "start_date", "end_date",
		"amount_paid_cents", "payment_reference", "payment_status", "created_at", "updated_at",
	})
}

func TestPaymentConfirmReplayReturns200(t *testing.T) {
	_, ph, mock := newTestHandlers(t)

	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM bookings WHERE payment_reference = \?`).
		WithArgs("HOTEL-1-5-x").
		WillReturnRows(testBookingRows().
			AddRow(42, 1, 5, start, end, 30000, "HOTEL-1-5-x", "COMPLETED", now, now))

	c, rec := jsonCtx(http.MethodPost, "/v1/payments/confirm",
		`{"reference":"HOTEL-1-5-x","room_id":1,"client_id":5,"start_date":"2024-06-10","end_date":"2024-06-13","amount_cents":30000}`)

	require.NoError(t, ph.Confirm(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":42`)
	require.Contains(t, rec.Body.String(), `"payment_reference":"HOTEL-1-5-x"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentConfirmLostRaceReturns200(t *testing.T) {
	_, ph, mock := newTestHandlers(t)

	now := time.Now().UTC()
	start := now.AddDate(0, 0, 10).Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, 3)

	// Neither pre-check sees the concurrent winner yet.
	mock.ExpectQuery(`FROM bookings WHERE payment_reference = \?`).
		WithArgs("HOTEL-1-5-x").WillReturnRows(testBookingRows())
	mock.ExpectQuery(`FROM bookings WHERE payment_reference = \?`).
		WithArgs("HOTEL-1-5-x").WillReturnRows(testBookingRows())

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM rooms WHERE id = \? FOR UPDATE`).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "room_type", "room_number", "description", "image_url",
			"price_cents_per_night", "under_maintenance", "created_at", "updated_at",
		}).AddRow(1, "DOUBLE", "204", "", "", 10000, false, now, now))
	mock.ExpectQuery(`SELECT 1 FROM clients WHERE id = \?`).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(`WHERE room_id = \? AND start_date < \? AND end_date > \?`).
		WillReturnRows(testBookingRows())
	mock.ExpectExec(`INSERT INTO bookings`).
		WillReturnError(errDuplicateRef())
	mock.ExpectRollback()

	// The surviving row is handed back with 200, not re-created.
	mock.ExpectQuery(`FROM bookings WHERE payment_reference = \?`).
		WithArgs("HOTEL-1-5-x").
		WillReturnRows(testBookingRows().
			AddRow(41, 1, 5, start, end, 30000, "HOTEL-1-5-x", "COMPLETED", now, now))

	body := `{"reference":"HOTEL-1-5-x","room_id":1,"client_id":5,"start_date":"` +
		start.Format("2006-01-02") + `","end_date":"` + end.Format("2006-01-02") + `","amount_cents":30000}`
	c, rec := jsonCtx(http.MethodPost, "/v1/payments/confirm", body)

	require.NoError(t, ph.Confirm(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":41`)
	// No room lookup beyond the FOR UPDATE read means no event build was
	// attempted for the replayed delivery.
	require.NoError(t, mock.ExpectationsWereMet())
}

func errDuplicateRef() error {
	return errors.New("Error 1062 (23000): Duplicate entry 'HOTEL-1-5-x' for key 'bookings.uq_payment_reference'")
}

func TestPaymentConfirmRejectsMissingReference(t *testing.T) {
	_, ph, _ := newTestHandlers(t)

	c, rec := jsonCtx(http.MethodPost, "/v1/payments/confirm",
		`{"room_id":1,"client_id":5,"start_date":"2024-06-10","end_date":"2024-06-13"}`)

	require.NoError(t, ph.Confirm(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentInitiateRejectsBadDates(t *testing.T) {
	_, ph, _ := newTestHandlers(t)

	c, rec := jsonCtx(http.MethodPost, "/v1/payments/initiate",
		`{"room_id":1,"name":"Ada","phone_number":"+4912345","start_date":"June 10","end_date":"2024-06-13"}`)

	require.NoError(t, ph.Initiate(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingCreateConflictReturns409WithRange(t *testing.T) {
	bh, _, mock := newTestHandlers(t)

	now := time.Now().UTC()
	start := now.AddDate(0, 0, 10).Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, 3)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM rooms WHERE id = \? FOR UPDATE`).WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "room_type", "room_number", "description", "image_url",
			"price_cents_per_night", "under_maintenance", "created_at", "updated_at",
		}).AddRow(1, "DOUBLE", "204", "", "", 10000, false, now, now))
	mock.ExpectQuery(`SELECT 1 FROM clients WHERE id = \?`).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(`WHERE room_id = \? AND start_date < \? AND end_date > \?`).
		WillReturnRows(testBookingRows().
			AddRow(7, 1, 9, start, end, 30000, nil, "", now, now))
	mock.ExpectRollback()

	body := `{"room_id":1,"client_id":5,"start_date":"` + start.Format("2006-01-02") +
		`","end_date":"` + end.Format("2006-01-02") + `"}`
	c, rec := jsonCtx(http.MethodPost, "/v1/bookings", body)

	require.NoError(t, bh.Create(c))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), `"reason":"DATE_CONFLICT"`)
	require.Contains(t, rec.Body.String(), `"conflict_start":"`+start.Format("2006-01-02")+`"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingCancelStartedReturns409(t *testing.T) {
	bh, _, mock := newTestHandlers(t)

	now := time.Now().UTC()
	started := now.AddDate(0, 0, -1)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM bookings WHERE id = \? FOR UPDATE`).WithArgs(uint64(42)).
		WillReturnRows(testBookingRows().
			AddRow(42, 1, 5, started, started.AddDate(0, 0, 3), 30000, nil, "", now, now))
	mock.ExpectRollback()

	c, rec := jsonCtx(http.MethodDelete, "/v1/bookings/42", "")
	c.SetParamNames("id")
	c.SetParamValues("42")
	c.Set("user_id", float64(5))

	require.NoError(t, bh.Cancel(c))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
