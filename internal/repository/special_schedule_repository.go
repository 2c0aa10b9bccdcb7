package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/terminalgate/gate-api/internal/models"
)

const specialColumns = `id, schedule_date, start_time, end_time, interval_minutes, slots_per_interval, is_active, restricted_access, description, created_at, updated_at`

// SpecialScheduleRepository persists date-specific schedule overrides and
// their authorized-user sets.
type SpecialScheduleRepository struct {
	db *sqlx.DB
}

// NewSpecialScheduleRepository constructs the repository.
func NewSpecialScheduleRepository(db *sqlx.DB) *SpecialScheduleRepository {
	return &SpecialScheduleRepository{db: db}
}

// List returns all special schedules ordered by date.
func (r *SpecialScheduleRepository) List(ctx context.Context) ([]models.SpecialSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM special_schedules ORDER BY schedule_date ASC`, specialColumns)
	var schedules []models.SpecialSchedule
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, fmt.Errorf("list special schedules: %w", err)
	}
	return schedules, nil
}

// FindByID returns a special schedule with its authorized users.
func (r *SpecialScheduleRepository) FindByID(ctx context.Context, id string) (*models.SpecialSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM special_schedules WHERE id = $1`, specialColumns)
	var schedule models.SpecialSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	if err := r.loadAuthorizedUsers(ctx, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindByDate returns the special schedule for a date, if any.
func (r *SpecialScheduleRepository) FindByDate(ctx context.Context, date string) (*models.SpecialSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM special_schedules WHERE schedule_date = $1`, specialColumns)
	var schedule models.SpecialSchedule
	if err := r.db.GetContext(ctx, &schedule, query, date); err != nil {
		return nil, err
	}
	if err := r.loadAuthorizedUsers(ctx, &schedule); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ExistsDate reports whether a special schedule already exists for a date,
// optionally excluding the row being edited.
func (r *SpecialScheduleRepository) ExistsDate(ctx context.Context, date, excludeID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM special_schedules WHERE schedule_date = $1 AND id <> $2)`,
		date, excludeID); err != nil {
		return false, fmt.Errorf("check special schedule exists: %w", err)
	}
	return exists, nil
}

// Create inserts a special schedule and its authorized-user set atomically.
func (r *SpecialScheduleRepository) Create(ctx context.Context, schedule *models.SpecialSchedule) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin special schedule tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	const insert = `INSERT INTO special_schedules (id, schedule_date, start_time, end_time, interval_minutes, slots_per_interval, is_active, restricted_access, description, created_at, updated_at)
VALUES (:id, :schedule_date, :start_time, :end_time, :interval_minutes, :slots_per_interval, :is_active, :restricted_access, :description, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insert, schedule); err != nil {
		err = fmt.Errorf("create special schedule: %w", err)
		return err
	}

	if err = r.syncAuthorizedUsers(ctx, tx, schedule); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit special schedule tx: %w", err)
		return err
	}
	return nil
}

// Update rewrites a special schedule and fully replaces its authorized-user
// set. Un-restricting clears the set.
func (r *SpecialScheduleRepository) Update(ctx context.Context, schedule *models.SpecialSchedule) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin special schedule tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	schedule.UpdatedAt = time.Now().UTC()
	const update = `UPDATE special_schedules
SET schedule_date = :schedule_date, start_time = :start_time, end_time = :end_time, interval_minutes = :interval_minutes,
    slots_per_interval = :slots_per_interval, is_active = :is_active, restricted_access = :restricted_access,
    description = :description, updated_at = :updated_at
WHERE id = :id`
	if _, err = sqlx.NamedExecContext(ctx, tx, update, schedule); err != nil {
		err = fmt.Errorf("update special schedule: %w", err)
		return err
	}

	if err = r.syncAuthorizedUsers(ctx, tx, schedule); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit special schedule tx: %w", err)
		return err
	}
	return nil
}

// Delete removes a special schedule and its authorized-user rows.
func (r *SpecialScheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM special_schedule_users WHERE special_schedule_id = $1`, id); err != nil {
		return fmt.Errorf("delete special schedule users: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM special_schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete special schedule: %w", err)
	}
	return nil
}

func (r *SpecialScheduleRepository) loadAuthorizedUsers(ctx context.Context, schedule *models.SpecialSchedule) error {
	var userIDs []string
	if err := r.db.SelectContext(ctx, &userIDs,
		`SELECT user_id FROM special_schedule_users WHERE special_schedule_id = $1 ORDER BY user_id`, schedule.ID); err != nil {
		return fmt.Errorf("load authorized users: %w", err)
	}
	schedule.AuthorizedUserIDs = userIDs
	return nil
}

func (r *SpecialScheduleRepository) syncAuthorizedUsers(ctx context.Context, tx *sqlx.Tx, schedule *models.SpecialSchedule) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM special_schedule_users WHERE special_schedule_id = $1`, schedule.ID); err != nil {
		return fmt.Errorf("clear authorized users: %w", err)
	}
	if !schedule.RestrictedAccess {
		return nil
	}
	for _, userID := range schedule.AuthorizedUserIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO special_schedule_users (special_schedule_id, user_id) VALUES ($1, $2)`,
			schedule.ID, userID); err != nil {
			return fmt.Errorf("insert authorized user: %w", err)
		}
	}
	return nil
}
