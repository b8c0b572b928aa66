package reservation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-room-reservation/internal/availability"
	"github.com/iliyamo/hotel-room-reservation/internal/repository"
)

var (
	testNow   = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	testStart = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	testEnd   = time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC)
)

const (
	roomForUpdateQ  = `FROM rooms WHERE id = \? FOR UPDATE`
	clientExistsQ   = `SELECT 1 FROM clients WHERE id = \?`
	overlapQ        = `FROM bookings\s+WHERE room_id = \? AND start_date < \? AND end_date > \?`
	insertBookingQ  = `INSERT INTO bookings`
	bookingByIDQ    = `FROM bookings WHERE id = \?$`
	bookingByRefQ   = `FROM bookings WHERE payment_reference = \?`
	bookingCancelQ  = `FROM bookings WHERE id = \? FOR UPDATE`
	deleteBookingQ  = `DELETE FROM bookings WHERE id = \?`
)

func newTestManager(t *testing.T) (*Manager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := NewManager(db,
		repository.NewRoomRepo(db),
		repository.NewBookingRepo(db),
		repository.NewClientRepo(db),
		50*time.Millisecond)
	m.now = func() time.Time { return testNow }
	return m, mock
}

func roomRows(price uint32, maintenance bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "room_type", "room_number", "description", "image_url",
		"price_cents_per_night", "under_maintenance", "created_at", "updated_at",
	}).AddRow(1, "DOUBLE", "204", "", "", price, maintenance, testNow, testNow)
}

func bookingColumnsRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "room_id", "client_id", "start_date", "end_date",
		"amount_paid_cents", "payment_reference", "payment_status", "created_at", "updated_at",
	})
}

func TestReserveComputesAmountAndCommits(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectBegin()
	mock.ExpectQuery(roomForUpdateQ).WithArgs(uint64(1)).WillReturnRows(roomRows(10000, false))
	mock.ExpectQuery(clientExistsQ).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(overlapQ).WithArgs(uint64(1), "2024-06-13", "2024-06-10").
		WillReturnRows(bookingColumnsRows())
	mock.ExpectExec(insertBookingQ).
		WithArgs(uint64(1), uint64(5), "2024-06-10", "2024-06-13", uint64(30000), sqlmock.AnyArg(), "").
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery(bookingByIDQ).WithArgs(uint64(42)).
		WillReturnRows(bookingColumnsRows().
			AddRow(42, 1, 5, testStart, testEnd, 30000, nil, "", testNow, testNow))
	mock.ExpectCommit()

	b, err := m.Reserve(context.Background(), 1, 5, testStart, testEnd)
	require.NoError(t, err)
	require.Equal(t, uint64(42), b.ID)
	require.Equal(t, uint64(30000), b.AmountPaidCents) // 3 nights x 10000
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveLongStayHighRateAmount(t *testing.T) {
	m, mock := newTestManager(t)

	// 300 nights at a nightly rate near the top of uint32: the total
	// (1,200,000,000,000 cents) only fits in 64 bits.
	end := testStart.AddDate(0, 0, 300)
	const rate = uint32(4_000_000_000)
	want := uint64(rate) * 300

	mock.ExpectBegin()
	mock.ExpectQuery(roomForUpdateQ).WithArgs(uint64(1)).WillReturnRows(roomRows(rate, false))
	mock.ExpectQuery(clientExistsQ).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(overlapQ).WithArgs(uint64(1), end.Format("2006-01-02"), "2024-06-10").
		WillReturnRows(bookingColumnsRows())
	mock.ExpectExec(insertBookingQ).
		WithArgs(uint64(1), uint64(5), "2024-06-10", end.Format("2006-01-02"), want, sqlmock.AnyArg(), "").
		WillReturnResult(sqlmock.NewResult(43, 1))
	mock.ExpectQuery(bookingByIDQ).WithArgs(uint64(43)).
		WillReturnRows(bookingColumnsRows().
			AddRow(43, 1, 5, testStart, end, want, nil, "", testNow, testNow))
	mock.ExpectCommit()

	b, err := m.Reserve(context.Background(), 1, 5, testStart, end)
	require.NoError(t, err)
	require.Equal(t, want, b.AmountPaidCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveRejectsConflictAndRollsBack(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectBegin()
	mock.ExpectQuery(roomForUpdateQ).WithArgs(uint64(1)).WillReturnRows(roomRows(10000, false))
	mock.ExpectQuery(clientExistsQ).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(overlapQ).WithArgs(uint64(1), "2024-06-13", "2024-06-10").
		WillReturnRows(bookingColumnsRows().
			AddRow(7, 1, 9, testStart, testEnd, 30000, nil, "", testNow, testNow))
	mock.ExpectRollback()

	_, err := m.Reserve(context.Background(), 1, 5, testStart, testEnd)
	u, ok := AsUnavailable(err)
	require.True(t, ok)
	require.Equal(t, availability.ReasonDateConflict, u.Decision.Reason)
	require.Equal(t, testStart, u.Decision.ConflictStart)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveMaintenanceRoom(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectBegin()
	mock.ExpectQuery(roomForUpdateQ).WithArgs(uint64(1)).WillReturnRows(roomRows(10000, true))
	mock.ExpectQuery(clientExistsQ).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(overlapQ).WithArgs(uint64(1), "2024-06-13", "2024-06-10").
		WillReturnRows(bookingColumnsRows())
	mock.ExpectRollback()

	_, err := m.Reserve(context.Background(), 1, 5, testStart, testEnd)
	u, ok := AsUnavailable(err)
	require.True(t, ok)
	require.Equal(t, availability.ReasonMaintenance, u.Decision.Reason)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveUnknownRoom(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectBegin()
	mock.ExpectQuery(roomForUpdateQ).WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := m.Reserve(context.Background(), 99, 5, testStart, testEnd)
	require.ErrorIs(t, err, repository.ErrRoomNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveUnknownClient(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectBegin()
	mock.ExpectQuery(roomForUpdateQ).WithArgs(uint64(1)).WillReturnRows(roomRows(10000, false))
	mock.ExpectQuery(clientExistsQ).WithArgs(uint64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectRollback()

	_, err := m.Reserve(context.Background(), 1, 404, testStart, testEnd)
	require.ErrorIs(t, err, repository.ErrClientNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveContendedRoomFailsBusy(t *testing.T) {
	m, mock := newTestManager(t)
	_ = mock

	release, err := m.locks.Acquire(context.Background(), 1, time.Second)
	require.NoError(t, err)
	defer release()

	_, err = m.Reserve(context.Background(), 1, 5, testStart, testEnd)
	require.ErrorIs(t, err, ErrBusy)
}

func TestReserveConcurrentSingleWinner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	m := NewManager(db,
		repository.NewRoomRepo(db),
		repository.NewBookingRepo(db),
		repository.NewClientRepo(db),
		5*time.Second)
	m.now = func() time.Time { return testNow }

	// The room lock serializes callers end to end, so the mock sees one
	// full transaction at a time: the first finds no overlap and
	// commits, every later one sees the committed row and rolls back.
	const callers = 4
	mock.ExpectBegin()
	mock.ExpectQuery(roomForUpdateQ).WithArgs(uint64(1)).WillReturnRows(roomRows(10000, false))
	mock.ExpectQuery(clientExistsQ).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(overlapQ).WithArgs(uint64(1), "2024-06-13", "2024-06-10").
		WillReturnRows(bookingColumnsRows())
	mock.ExpectExec(insertBookingQ).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectQuery(bookingByIDQ).WithArgs(uint64(42)).
		WillReturnRows(bookingColumnsRows().
			AddRow(42, 1, 5, testStart, testEnd, 30000, nil, "", testNow, testNow))
	mock.ExpectCommit()
	for i := 1; i < callers; i++ {
		mock.ExpectBegin()
		mock.ExpectQuery(roomForUpdateQ).WithArgs(uint64(1)).WillReturnRows(roomRows(10000, false))
		mock.ExpectQuery(clientExistsQ).WithArgs(uint64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
		mock.ExpectQuery(overlapQ).WithArgs(uint64(1), "2024-06-13", "2024-06-10").
			WillReturnRows(bookingColumnsRows().
				AddRow(42, 1, 5, testStart, testEnd, 30000, nil, "", testNow, testNow))
		mock.ExpectRollback()
	}

	results := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Reserve(context.Background(), 1, 5, testStart, testEnd)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var won, conflicted int
	for err := range results {
		if err == nil {
			won++
			continue
		}
		u, ok := AsUnavailable(err)
		require.True(t, ok, "unexpected error: %v", err)
		require.Equal(t, availability.ReasonDateConflict, u.Decision.Reason)
		conflicted++
	}
	require.Equal(t, 1, won)
	require.Equal(t, callers-1, conflicted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmAndReserveReplayReturnsExisting(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectQuery(bookingByRefQ).WithArgs("HOTEL-1-5-abc").
		WillReturnRows(bookingColumnsRows().
			AddRow(42, 1, 5, testStart, testEnd, 30000, "HOTEL-1-5-abc", "COMPLETED", testNow, testNow))

	b, created, err := m.ConfirmAndReserve(context.Background(), "HOTEL-1-5-abc", 1, 5, testStart, testEnd, 30000)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, uint64(42), b.ID)
	require.NotNil(t, b.PaymentReference)
	require.Equal(t, "HOTEL-1-5-abc", *b.PaymentReference)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmAndReserveLosesRaceToDuplicateKey(t *testing.T) {
	m, mock := newTestManager(t)

	// Pre-check finds nothing: the race has not resolved yet.
	mock.ExpectQuery(bookingByRefQ).WithArgs("HOTEL-1-5-abc").
		WillReturnRows(bookingColumnsRows())

	mock.ExpectBegin()
	mock.ExpectQuery(roomForUpdateQ).WithArgs(uint64(1)).WillReturnRows(roomRows(10000, false))
	mock.ExpectQuery(clientExistsQ).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(overlapQ).WithArgs(uint64(1), "2024-06-13", "2024-06-10").
		WillReturnRows(bookingColumnsRows())
	// The unique index arbitrates: this delivery lost.
	mock.ExpectExec(insertBookingQ).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'HOTEL-1-5-abc' for key 'bookings.uq_payment_reference'"))
	mock.ExpectRollback()

	// The surviving row is fetched and returned instead of an error.
	mock.ExpectQuery(bookingByRefQ).WithArgs("HOTEL-1-5-abc").
		WillReturnRows(bookingColumnsRows().
			AddRow(41, 1, 5, testStart, testEnd, 30000, "HOTEL-1-5-abc", "COMPLETED", testNow, testNow))

	b, created, err := m.ConfirmAndReserve(context.Background(), "HOTEL-1-5-abc", 1, 5, testStart, testEnd, 30000)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, uint64(41), b.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmAndReserveFirstDeliveryCreates(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectQuery(bookingByRefQ).WithArgs("HOTEL-1-5-abc").
		WillReturnRows(bookingColumnsRows())

	mock.ExpectBegin()
	mock.ExpectQuery(roomForUpdateQ).WithArgs(uint64(1)).WillReturnRows(roomRows(10000, false))
	mock.ExpectQuery(clientExistsQ).WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(overlapQ).WithArgs(uint64(1), "2024-06-13", "2024-06-10").
		WillReturnRows(bookingColumnsRows())
	mock.ExpectExec(insertBookingQ).
		WillReturnResult(sqlmock.NewResult(44, 1))
	mock.ExpectQuery(bookingByIDQ).WithArgs(uint64(44)).
		WillReturnRows(bookingColumnsRows().
			AddRow(44, 1, 5, testStart, testEnd, 30000, "HOTEL-1-5-abc", "COMPLETED", testNow, testNow))
	mock.ExpectCommit()

	b, created, err := m.ConfirmAndReserve(context.Background(), "HOTEL-1-5-abc", 1, 5, testStart, testEnd, 30000)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, uint64(44), b.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelFutureBooking(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectBegin()
	mock.ExpectQuery(bookingCancelQ).WithArgs(uint64(42)).
		WillReturnRows(bookingColumnsRows().
			AddRow(42, 1, 5, testStart, testEnd, 30000, nil, "", testNow, testNow))
	mock.ExpectExec(deleteBookingQ).WithArgs(uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, m.Cancel(context.Background(), 42))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelStartedBookingRefused(t *testing.T) {
	m, mock := newTestManager(t)

	started := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) // starts today
	mock.ExpectBegin()
	mock.ExpectQuery(bookingCancelQ).WithArgs(uint64(42)).
		WillReturnRows(bookingColumnsRows().
			AddRow(42, 1, 5, started, testEnd, 30000, nil, "", testNow, testNow))
	mock.ExpectRollback()

	err := m.Cancel(context.Background(), 42)
	require.ErrorIs(t, err, ErrPastBooking)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelMissingBooking(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectBegin()
	mock.ExpectQuery(bookingCancelQ).WithArgs(uint64(7)).
		WillReturnRows(bookingColumnsRows())
	mock.ExpectRollback()

	err := m.Cancel(context.Background(), 7)
	require.ErrorIs(t, err, repository.ErrBookingNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsAvailableUsesCommittedState(t *testing.T) {
	m, mock := newTestManager(t)

	mock.ExpectQuery(`FROM rooms WHERE id = \?$`).WithArgs(uint64(1)).
		WillReturnRows(roomRows(10000, false))
	mock.ExpectQuery(overlapQ).WithArgs(uint64(1), "2024-06-13", "2024-06-10").
		WillReturnRows(bookingColumnsRows())

	dec, err := m.IsAvailable(context.Background(), 1, testStart, testEnd)
	require.NoError(t, err)
	require.True(t, dec.Available)
	require.NoError(t, mock.ExpectationsWereMet())
}
