package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/terminalgate/gate-api/internal/models"
	appErrors "github.com/terminalgate/gate-api/pkg/errors"
)

const reservationColumns = `id, time_slot_id, user_id, transporter_name, truck_plate, booking_number, container_numbers,
slots_reserved, status, notes, cancel_reason, completed_by, completed_at, cancelled_by, cancelled_at, created_at, updated_at`

// ReservationRepository persists reservations and drives the capacity-coupled
// parts of their lifecycle inside single transactions.
type ReservationRepository struct {
	db    *sqlx.DB
	slots *TimeSlotRepository
}

// NewReservationRepository constructs the repository.
func NewReservationRepository(db *sqlx.DB, slots *TimeSlotRepository) *ReservationRepository {
	return &ReservationRepository{db: db, slots: slots}
}

// CreateWithCapacity debits the slot and inserts the reservation atomically.
// The debit is a conditional update checked by affected rows, so concurrent
// reservations for the last unit resolve to one success and one
// CAPACITY_EXCEEDED.
func (r *ReservationRepository) CreateWithCapacity(ctx context.Context, reservation *models.Reservation) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reservation tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.slots.ReserveCapacity(ctx, tx, reservation.TimeSlotID, reservation.SlotsReserved); err != nil {
		return err
	}

	now := time.Now().UTC()
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	reservation.Status = models.ReservationActive
	reservation.CreatedAt = now
	reservation.UpdatedAt = now

	const insert = `INSERT INTO reservations (id, time_slot_id, user_id, transporter_name, truck_plate, booking_number,
container_numbers, slots_reserved, status, notes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`
	if _, err = tx.ExecContext(ctx, insert,
		reservation.ID, reservation.TimeSlotID, reservation.UserID, reservation.TransporterName,
		reservation.TruckPlate, reservation.BookingNumber, pq.Array(reservation.ContainerNumbers),
		reservation.SlotsReserved, reservation.Status, reservation.Notes, now); err != nil {
		err = fmt.Errorf("insert reservation: %w", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit reservation tx: %w", err)
		return err
	}
	return nil
}

// CancelWithRelease flips an ACTIVE reservation to CANCELLED and credits its
// capacity back in the same transaction. A reservation in any other state
// fails with RESERVATION_NOT_ACTIVE.
func (r *ReservationRepository) CancelWithRelease(ctx context.Context, id, actorID string, reason *string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cancel tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	var released struct {
		TimeSlotID    string `db:"time_slot_id"`
		SlotsReserved int    `db:"slots_reserved"`
	}
	// The status guard in the same statement keeps the transition
	// one-directional under concurrent cancel attempts.
	err = tx.GetContext(ctx, &released, `UPDATE reservations
SET status = $1, cancel_reason = $2, cancelled_by = $3, cancelled_at = $4, updated_at = $4
WHERE id = $5 AND status = $6
RETURNING time_slot_id, slots_reserved`, models.ReservationCancelled, reason, actorID, now, id, models.ReservationActive)
	if err != nil {
		if err == sql.ErrNoRows {
			err = appErrors.ErrNotActive
			return err
		}
		err = fmt.Errorf("cancel reservation: %w", err)
		return err
	}

	if err = r.slots.ReleaseCapacity(ctx, tx, released.TimeSlotID, released.SlotsReserved); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit cancel tx: %w", err)
		return err
	}
	return nil
}

// Complete flips an ACTIVE reservation to COMPLETED. Capacity is untouched:
// the slot stays consumed.
func (r *ReservationRepository) Complete(ctx context.Context, id, actorID string) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE reservations
SET status = $1, completed_by = $2, completed_at = $3, updated_at = $3
WHERE id = $4 AND status = $5`, models.ReservationCompleted, actorID, now, id, models.ReservationActive)
	if err != nil {
		return fmt.Errorf("complete reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete reservation affected rows: %w", err)
	}
	if affected == 0 {
		return appErrors.ErrNotActive
	}
	return nil
}

// FindByID returns a reservation by its ID.
func (r *ReservationRepository) FindByID(ctx context.Context, id string) (*models.Reservation, error) {
	query := fmt.Sprintf(`SELECT %s FROM reservations WHERE id = $1`, reservationColumns)
	var reservation models.Reservation
	if err := r.db.GetContext(ctx, &reservation, query, id); err != nil {
		return nil, err
	}
	return &reservation, nil
}

// FindDetailByID returns a reservation joined with its slot schedule.
func (r *ReservationRepository) FindDetailByID(ctx context.Context, id string) (*models.ReservationDetail, error) {
	const query = `SELECT r.id, r.time_slot_id, r.user_id, r.transporter_name, r.truck_plate, r.booking_number,
r.container_numbers, r.slots_reserved, r.status, r.notes, r.cancel_reason, r.completed_by, r.completed_at,
r.cancelled_by, r.cancelled_at, r.created_at, r.updated_at, ts.slot_date, ts.slot_time
FROM reservations r
JOIN time_slots ts ON ts.id = r.time_slot_id
WHERE r.id = $1`
	var detail models.ReservationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// List returns reservations matching the filter with pagination.
func (r *ReservationRepository) List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationDetail, int, error) {
	base := `FROM reservations r JOIN time_slots ts ON ts.id = r.time_slot_id`
	var conditions []string
	var args []interface{}

	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("r.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.DateFrom != "" {
		conditions = append(conditions, fmt.Sprintf("ts.slot_date >= $%d", len(args)+1))
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		conditions = append(conditions, fmt.Sprintf("ts.slot_date <= $%d", len(args)+1))
		args = append(args, filter.DateTo)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"created_at": "r.created_at",
		"slot_date":  "ts.slot_date",
		"status":     "r.status",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "ts.slot_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT r.id, r.time_slot_id, r.user_id, r.transporter_name, r.truck_plate, r.booking_number,
r.container_numbers, r.slots_reserved, r.status, r.notes, r.cancel_reason, r.completed_by, r.completed_at,
r.cancelled_by, r.cancelled_at, r.created_at, r.updated_at, ts.slot_date, ts.slot_time
%s ORDER BY %s %s, ts.slot_time ASC LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var reservations []models.ReservationDetail
	if err := r.db.SelectContext(ctx, &reservations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}
	return reservations, total, nil
}

// SumActiveBySlot returns the reserved sum over a slot's active reservations.
func (r *ReservationRepository) SumActiveBySlot(ctx context.Context, slotID string) (int, error) {
	var sum int
	if err := r.db.GetContext(ctx, &sum, `SELECT COALESCE(SUM(slots_reserved), 0) FROM reservations
WHERE time_slot_id = $1 AND status = $2`, slotID, models.ReservationActive); err != nil {
		return 0, fmt.Errorf("sum active reservations: %w", err)
	}
	return sum, nil
}

// MarkExpired materializes the EXPIRED terminal state for reservations still
// ACTIVE past their grace window. Idempotent; never releases capacity, the
// slot was consumed and simply not attended.
func (r *ReservationRepository) MarkExpired(ctx context.Context, now time.Time, grace time.Duration) (int64, error) {
	cutoff := now.Add(-grace).UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE reservations r
SET status = $1, updated_at = $2
FROM time_slots ts
WHERE ts.id = r.time_slot_id AND r.status = $3
  AND to_timestamp(ts.slot_date || ' ' || ts.slot_time, 'YYYY-MM-DD HH24:MI') < $4`,
		models.ReservationExpired, now.UTC(), models.ReservationActive, cutoff)
	if err != nil {
		return 0, fmt.Errorf("mark expired reservations: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark expired affected rows: %w", err)
	}
	return affected, nil
}
