package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/terminalgate/gate-api/internal/models"
)

const weeklyColumns = `id, day_of_week, start_time, end_time, interval_minutes, slots_per_interval, is_active, created_at, updated_at`

// ScheduleRepository persists the weekly recurring slot templates.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List returns all weekly configurations ordered by day of week.
func (r *ScheduleRepository) List(ctx context.Context) ([]models.WeeklyScheduleConfig, error) {
	query := fmt.Sprintf(`SELECT %s FROM weekly_schedule_configs ORDER BY day_of_week ASC`, weeklyColumns)
	var configs []models.WeeklyScheduleConfig
	if err := r.db.SelectContext(ctx, &configs, query); err != nil {
		return nil, fmt.Errorf("list weekly configs: %w", err)
	}
	return configs, nil
}

// FindByID returns a weekly configuration by ID.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.WeeklyScheduleConfig, error) {
	query := fmt.Sprintf(`SELECT %s FROM weekly_schedule_configs WHERE id = $1`, weeklyColumns)
	var config models.WeeklyScheduleConfig
	if err := r.db.GetContext(ctx, &config, query, id); err != nil {
		return nil, err
	}
	return &config, nil
}

// FindByDayOfWeek returns the configuration for a day of week, if any.
func (r *ScheduleRepository) FindByDayOfWeek(ctx context.Context, dayOfWeek int) (*models.WeeklyScheduleConfig, error) {
	query := fmt.Sprintf(`SELECT %s FROM weekly_schedule_configs WHERE day_of_week = $1`, weeklyColumns)
	var config models.WeeklyScheduleConfig
	if err := r.db.GetContext(ctx, &config, query, dayOfWeek); err != nil {
		return nil, err
	}
	return &config, nil
}

// ExistsDay reports whether a configuration already exists for a day of week,
// optionally excluding the row being edited.
func (r *ScheduleRepository) ExistsDay(ctx context.Context, dayOfWeek int, excludeID string) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM weekly_schedule_configs WHERE day_of_week = $1 AND id <> $2)`,
		dayOfWeek, excludeID); err != nil {
		return false, fmt.Errorf("check weekly config exists: %w", err)
	}
	return exists, nil
}

// Create inserts a weekly configuration.
func (r *ScheduleRepository) Create(ctx context.Context, config *models.WeeklyScheduleConfig) error {
	now := time.Now().UTC()
	if config.ID == "" {
		config.ID = uuid.NewString()
	}
	config.CreatedAt = now
	config.UpdatedAt = now
	const query = `INSERT INTO weekly_schedule_configs (id, day_of_week, start_time, end_time, interval_minutes, slots_per_interval, is_active, created_at, updated_at)
VALUES (:id, :day_of_week, :start_time, :end_time, :interval_minutes, :slots_per_interval, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, config); err != nil {
		return fmt.Errorf("create weekly config: %w", err)
	}
	return nil
}

// Update rewrites a weekly configuration.
func (r *ScheduleRepository) Update(ctx context.Context, config *models.WeeklyScheduleConfig) error {
	config.UpdatedAt = time.Now().UTC()
	const query = `UPDATE weekly_schedule_configs
SET day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, interval_minutes = :interval_minutes,
    slots_per_interval = :slots_per_interval, is_active = :is_active, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, config); err != nil {
		return fmt.Errorf("update weekly config: %w", err)
	}
	return nil
}

// Delete removes a weekly configuration permanently.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM weekly_schedule_configs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete weekly config: %w", err)
	}
	return nil
}
