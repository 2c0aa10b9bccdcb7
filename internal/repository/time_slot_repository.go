package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/terminalgate/gate-api/internal/models"
	appErrors "github.com/terminalgate/gate-api/pkg/errors"
)

// uniqueViolation is the Postgres error code for unique constraint breaches.
const uniqueViolation = "23505"

// TimeSlotRepository owns the capacity ledger: materialized slot rows and
// every mutation of their available_capacity counters.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository constructs the repository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

// ListByDate returns slot rows for a date ordered by time.
func (r *TimeSlotRepository) ListByDate(ctx context.Context, date string) ([]models.TimeSlot, error) {
	const query = `SELECT id, slot_date, slot_time, total_capacity, available_capacity, is_active, created_at, updated_at
FROM time_slots WHERE slot_date = $1 ORDER BY slot_time ASC`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, date); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// FindByID returns a slot row by its ID.
func (r *TimeSlotRepository) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	const query = `SELECT id, slot_date, slot_time, total_capacity, available_capacity, is_active, created_at, updated_at
FROM time_slots WHERE id = $1`
	var slot models.TimeSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// FindByDateTime returns the slot row for an exact (date, time) pair.
func (r *TimeSlotRepository) FindByDateTime(ctx context.Context, date, timeOfDay string) (*models.TimeSlot, error) {
	const query = `SELECT id, slot_date, slot_time, total_capacity, available_capacity, is_active, created_at, updated_at
FROM time_slots WHERE slot_date = $1 AND slot_time = $2`
	var slot models.TimeSlot
	if err := r.db.GetContext(ctx, &slot, query, date, timeOfDay); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ExistsForDate reports whether any slot row has been materialized for a date.
func (r *TimeSlotRepository) ExistsForDate(ctx context.Context, date string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM time_slots WHERE slot_date = $1)`, date); err != nil {
		return false, fmt.Errorf("check slots exist: %w", err)
	}
	return exists, nil
}

// InsertForDate materializes the given templates as slot rows for a date.
// First writer wins: an existing row set or a concurrent insert for the same
// date fails with ALREADY_EXISTS. The unique (slot_date, slot_time) index
// backs the transactional existence check.
func (r *TimeSlotRepository) InsertForDate(ctx context.Context, date string, templates []models.SlotTemplate) (created int, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin generate tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists bool
	if err = tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM time_slots WHERE slot_date = $1)`, date); err != nil {
		err = fmt.Errorf("check existing slots: %w", err)
		return 0, err
	}
	if exists {
		err = appErrors.Clone(appErrors.ErrAlreadyExists, "slots already generated for date")
		return 0, err
	}

	now := time.Now().UTC()
	const insert = `INSERT INTO time_slots (id, slot_date, slot_time, total_capacity, available_capacity, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4, TRUE, $5, $5)`
	for _, tpl := range templates {
		if _, err = tx.ExecContext(ctx, insert, uuid.NewString(), date, tpl.Time, tpl.Capacity, now); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
				err = appErrors.Clone(appErrors.ErrAlreadyExists, "slots already generated for date")
				return 0, err
			}
			err = fmt.Errorf("insert time slot: %w", err)
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit generate tx: %w", err)
		return 0, err
	}
	return len(templates), nil
}

// ReserveCapacity debits count units from a slot with a single conditional
// update so two concurrent callers cannot both take the last unit. It runs on
// the provided transaction; callers pair it with the reservation insert.
func (r *TimeSlotRepository) ReserveCapacity(ctx context.Context, tx *sqlx.Tx, slotID string, count int) error {
	res, err := tx.ExecContext(ctx, `UPDATE time_slots
SET available_capacity = available_capacity - $1, updated_at = $2
WHERE id = $3 AND is_active = TRUE AND available_capacity >= $1`, count, time.Now().UTC(), slotID)
	if err != nil {
		return fmt.Errorf("reserve capacity: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve capacity affected rows: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Distinguish why the conditional update missed.
	var slot models.TimeSlot
	err = tx.GetContext(ctx, &slot, `SELECT id, slot_date, slot_time, total_capacity, available_capacity, is_active, created_at, updated_at
FROM time_slots WHERE id = $1`, slotID)
	if err == sql.ErrNoRows {
		return appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
	}
	if err != nil {
		return fmt.Errorf("inspect slot after failed reserve: %w", err)
	}
	if !slot.IsActive {
		return appErrors.ErrSlotInactive
	}
	return appErrors.ErrCapacityExceeded
}

// ReleaseCapacity credits count units back, capped at the slot's total.
func (r *TimeSlotRepository) ReleaseCapacity(ctx context.Context, tx *sqlx.Tx, slotID string, count int) error {
	var exec sqlx.ExtContext = r.db
	if tx != nil {
		exec = tx
	}
	if _, err := exec.ExecContext(ctx, `UPDATE time_slots
SET available_capacity = LEAST(available_capacity + $1, total_capacity), updated_at = $2
WHERE id = $3`, count, time.Now().UTC(), slotID); err != nil {
		return fmt.Errorf("release capacity: %w", err)
	}
	return nil
}

// SetTotalCapacity changes a slot's total and recomputes available as the
// new total minus the currently reserved sum. Reductions below the reserved
// sum are rejected.
func (r *TimeSlotRepository) SetTotalCapacity(ctx context.Context, slotID string, newTotal int) (slot *models.TimeSlot, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin capacity tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var reserved int
	if err = tx.GetContext(ctx, &reserved, `SELECT COALESCE(SUM(slots_reserved), 0) FROM reservations
WHERE time_slot_id = $1 AND status = $2`, slotID, models.ReservationActive); err != nil {
		err = fmt.Errorf("sum reserved: %w", err)
		return nil, err
	}
	if newTotal < reserved {
		err = appErrors.Clone(appErrors.ErrInvalidCapacity, "total capacity below currently reserved amount")
		return nil, err
	}

	res, execErr := tx.ExecContext(ctx, `UPDATE time_slots
SET total_capacity = $1, available_capacity = $1 - $2, updated_at = $3
WHERE id = $4`, newTotal, reserved, time.Now().UTC(), slotID)
	if execErr != nil {
		err = fmt.Errorf("set total capacity: %w", execErr)
		return nil, err
	}
	affected, aerr := res.RowsAffected()
	if aerr != nil {
		err = fmt.Errorf("set capacity affected rows: %w", aerr)
		return nil, err
	}
	if affected == 0 {
		err = appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		return nil, err
	}

	var updated models.TimeSlot
	if err = tx.GetContext(ctx, &updated, `SELECT id, slot_date, slot_time, total_capacity, available_capacity, is_active, created_at, updated_at
FROM time_slots WHERE id = $1`, slotID); err != nil {
		err = fmt.Errorf("reload slot: %w", err)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit capacity tx: %w", err)
		return nil, err
	}
	return &updated, nil
}

// SetActive toggles a slot's bookability without touching its capacity.
func (r *TimeSlotRepository) SetActive(ctx context.Context, slotID string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE time_slots SET is_active = $1, updated_at = $2 WHERE id = $3`,
		active, time.Now().UTC(), slotID)
	if err != nil {
		return fmt.Errorf("set slot active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set slot active affected rows: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
	}
	return nil
}

// Begin starts a transaction for callers coordinating multi-row mutations.
func (r *TimeSlotRepository) Begin(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}
