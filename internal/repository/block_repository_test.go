package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminalgate/gate-api/internal/models"
	appErrors "github.com/terminalgate/gate-api/pkg/errors"
)

func blockedSlotRowColumns() []string {
	return []string{"id", "blocked_date", "start_time", "end_time", "reason", "is_recurring", "is_active", "created_at", "updated_at"}
}

func TestCreateBlockedDateRejectsDuplicateActive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBlockRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("2025-06-02").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	err := repo.CreateBlockedDate(context.Background(), &models.BlockedDate{
		BlockedDate: "2025-06-02",
		Reason:      "port maintenance",
		BlockType:   models.BlockedDateMaintenance,
		IsActive:    true,
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBlockedDateInserts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBlockRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("2025-06-02").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO blocked_dates").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	blocked := &models.BlockedDate{
		BlockedDate: "2025-06-02",
		Reason:      "port maintenance",
		BlockType:   models.BlockedDateMaintenance,
		IsActive:    true,
	}
	require.NoError(t, repo.CreateBlockedDate(context.Background(), blocked))
	assert.NotEmpty(t, blocked.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveApplicableScopesByDate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBlockRepository(db)

	now := time.Now()
	date := "2025-06-02"
	mock.ExpectQuery("is_recurring = TRUE OR blocked_date").
		WithArgs("b-edit", date).
		WillReturnRows(sqlmock.NewRows(blockedSlotRowColumns()).
			AddRow("b1", nil, "12:00", "13:00", "lunch window", true, true, now, now).
			AddRow("b2", date, "08:00", "09:00", "crane inspection", false, true, now, now))

	blocked, err := repo.ListActiveApplicable(context.Background(), &date, "b-edit")
	require.NoError(t, err)
	require.Len(t, blocked, 2)
	assert.True(t, blocked[0].IsRecurring)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveApplicableRecurringOnly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewBlockRepository(db)

	now := time.Now()
	mock.ExpectQuery("id <> \\$1 AND is_recurring = TRUE").
		WithArgs("b-edit").
		WillReturnRows(sqlmock.NewRows(blockedSlotRowColumns()).
			AddRow("b1", nil, "12:00", "13:00", "lunch window", true, true, now, now))

	blocked, err := repo.ListActiveApplicable(context.Background(), nil, "b-edit")
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
