package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminalgate/gate-api/internal/models"
	appErrors "github.com/terminalgate/gate-api/pkg/errors"
)

func TestCreateWithCapacity(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db, NewTimeSlotRepository(db))

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE time_slots").
		WithArgs(2, sqlmock.AnyArg(), "ts1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO reservations").
		WithArgs(sqlmock.AnyArg(), "ts1", "u1", "Haulage Co", "B 9001 TRK", "BK-1001",
			pq.Array([]string{"MSKU1234567", "MSKU7654321"}), 2, string(models.ReservationActive), nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	reservation := &models.Reservation{
		TimeSlotID:       "ts1",
		UserID:           "u1",
		TransporterName:  "Haulage Co",
		TruckPlate:       "B 9001 TRK",
		BookingNumber:    "BK-1001",
		ContainerNumbers: []string{"MSKU1234567", "MSKU7654321"},
		SlotsReserved:    2,
	}
	require.NoError(t, repo.CreateWithCapacity(context.Background(), reservation))
	assert.NotEmpty(t, reservation.ID)
	assert.Equal(t, models.ReservationActive, reservation.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWithCapacityRollsBackWhenFull(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db, NewTimeSlotRepository(db))

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE time_slots").
		WithArgs(2, sqlmock.AnyArg(), "ts1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, slot_date, slot_time").
		WithArgs("ts1").
		WillReturnRows(sqlmock.NewRows(slotColumns()).
			AddRow("ts1", "2025-06-02", "08:00", 2, 1, true, now, now))
	mock.ExpectRollback()

	err := repo.CreateWithCapacity(context.Background(), &models.Reservation{TimeSlotID: "ts1", UserID: "u1", SlotsReserved: 2})
	assert.True(t, appErrors.Is(err, appErrors.ErrCapacityExceeded))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelWithReleaseCreditsCapacity(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db, NewTimeSlotRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE reservations").
		WithArgs(string(models.ReservationCancelled), nil, "u1", sqlmock.AnyArg(), "r1", string(models.ReservationActive)).
		WillReturnRows(sqlmock.NewRows([]string{"time_slot_id", "slots_reserved"}).AddRow("ts1", 2))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE time_slots\nSET available_capacity = LEAST(available_capacity + $1, total_capacity), updated_at = $2\nWHERE id = $3")).
		WithArgs(2, sqlmock.AnyArg(), "ts1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.CancelWithRelease(context.Background(), "r1", "u1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelWithReleaseNotActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db, NewTimeSlotRepository(db))

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE reservations").
		WithArgs(string(models.ReservationCancelled), nil, "u1", sqlmock.AnyArg(), "r1", string(models.ReservationActive)).
		WillReturnRows(sqlmock.NewRows([]string{"time_slot_id", "slots_reserved"}))
	mock.ExpectRollback()

	err := repo.CancelWithRelease(context.Background(), "r1", "u1", nil)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotActive))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteNotActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db, NewTimeSlotRepository(db))

	mock.ExpectExec("UPDATE reservations").
		WithArgs(string(models.ReservationCompleted), "u-admin", sqlmock.AnyArg(), "r1", string(models.ReservationActive)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Complete(context.Background(), "r1", "u-admin")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotActive))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListReservationsFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db, NewTimeSlotRepository(db))

	now := time.Now()
	columns := []string{"id", "time_slot_id", "user_id", "transporter_name", "truck_plate", "booking_number",
		"container_numbers", "slots_reserved", "status", "notes", "cancel_reason", "completed_by", "completed_at",
		"cancelled_by", "cancelled_at", "created_at", "updated_at", "slot_date", "slot_time"}
	rows := sqlmock.NewRows(columns).
		AddRow("r1", "ts1", "u1", "Haulage Co", "B 9001 TRK", "BK-1001", "{MSKU1234567}",
			1, string(models.ReservationActive), nil, nil, nil, nil, nil, nil, now, now, "2025-06-02", "08:00")
	mock.ExpectQuery("SELECT r.id, r.time_slot_id").
		WithArgs("u1", string(models.ReservationActive)).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("u1", string(models.ReservationActive)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.ReservationFilter{UserID: "u1", Status: models.ReservationActive})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "2025-06-02", list[0].SlotDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkExpired(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewReservationRepository(db, NewTimeSlotRepository(db))

	mock.ExpectExec("UPDATE reservations r").
		WithArgs(string(models.ReservationExpired), sqlmock.AnyArg(), string(models.ReservationActive), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.MarkExpired(context.Background(), time.Now(), 2*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
