package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/terminalgate/gate-api/internal/models"
	appErrors "github.com/terminalgate/gate-api/pkg/errors"
)

const blockedDateColumns = `id, blocked_date, reason, block_type, is_active, created_at, updated_at`
const blockedSlotColumns = `id, blocked_date, start_time, end_time, reason, is_recurring, is_active, created_at, updated_at`

// BlockRepository persists whole-day blocks and blocked time ranges.
type BlockRepository struct {
	db *sqlx.DB
}

// NewBlockRepository constructs the repository.
func NewBlockRepository(db *sqlx.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

// FindActiveBlockedDate returns the active whole-day block for a date, if any.
func (r *BlockRepository) FindActiveBlockedDate(ctx context.Context, date string) (*models.BlockedDate, error) {
	query := fmt.Sprintf(`SELECT %s FROM blocked_dates WHERE blocked_date = $1 AND is_active = TRUE`, blockedDateColumns)
	var blocked models.BlockedDate
	if err := r.db.GetContext(ctx, &blocked, query, date); err != nil {
		return nil, err
	}
	return &blocked, nil
}

// ListBlockedDates returns all whole-day blocks ordered by date.
func (r *BlockRepository) ListBlockedDates(ctx context.Context) ([]models.BlockedDate, error) {
	query := fmt.Sprintf(`SELECT %s FROM blocked_dates ORDER BY blocked_date ASC`, blockedDateColumns)
	var blocked []models.BlockedDate
	if err := r.db.SelectContext(ctx, &blocked, query); err != nil {
		return nil, fmt.Errorf("list blocked dates: %w", err)
	}
	return blocked, nil
}

// FindBlockedDateByID returns a whole-day block by ID.
func (r *BlockRepository) FindBlockedDateByID(ctx context.Context, id string) (*models.BlockedDate, error) {
	query := fmt.Sprintf(`SELECT %s FROM blocked_dates WHERE id = $1`, blockedDateColumns)
	var blocked models.BlockedDate
	if err := r.db.GetContext(ctx, &blocked, query, id); err != nil {
		return nil, err
	}
	return &blocked, nil
}

// CreateBlockedDate inserts a whole-day block. The transactional existence
// check plus the partial unique index on active rows guarantee at most one
// active block per date even under concurrent admins.
func (r *BlockRepository) CreateBlockedDate(ctx context.Context, blocked *models.BlockedDate) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin blocked date tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if blocked.IsActive {
		var exists bool
		if err = tx.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM blocked_dates WHERE blocked_date = $1 AND is_active = TRUE)`,
			blocked.BlockedDate); err != nil {
			err = fmt.Errorf("check blocked date exists: %w", err)
			return err
		}
		if exists {
			err = appErrors.Clone(appErrors.ErrConflict, "date is already blocked")
			return err
		}
	}

	now := time.Now().UTC()
	if blocked.ID == "" {
		blocked.ID = uuid.NewString()
	}
	blocked.CreatedAt = now
	blocked.UpdatedAt = now

	const insert = `INSERT INTO blocked_dates (id, blocked_date, reason, block_type, is_active, created_at, updated_at)
VALUES (:id, :blocked_date, :reason, :block_type, :is_active, :created_at, :updated_at)`
	if _, err = sqlx.NamedExecContext(ctx, tx, insert, blocked); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			err = appErrors.Clone(appErrors.ErrConflict, "date is already blocked")
			return err
		}
		err = fmt.Errorf("create blocked date: %w", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit blocked date tx: %w", err)
		return err
	}
	return nil
}

// UpdateBlockedDate rewrites a whole-day block.
func (r *BlockRepository) UpdateBlockedDate(ctx context.Context, blocked *models.BlockedDate) error {
	blocked.UpdatedAt = time.Now().UTC()
	const query = `UPDATE blocked_dates
SET blocked_date = :blocked_date, reason = :reason, block_type = :block_type, is_active = :is_active, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, blocked); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
			return appErrors.Clone(appErrors.ErrConflict, "date is already blocked")
		}
		return fmt.Errorf("update blocked date: %w", err)
	}
	return nil
}

// DeleteBlockedDate removes a whole-day block permanently.
func (r *BlockRepository) DeleteBlockedDate(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM blocked_dates WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete blocked date: %w", err)
	}
	return nil
}

// ListBlockedSlots returns all blocked time ranges.
func (r *BlockRepository) ListBlockedSlots(ctx context.Context) ([]models.BlockedSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM blocked_slots ORDER BY blocked_date ASC NULLS FIRST, start_time ASC`, blockedSlotColumns)
	var blocked []models.BlockedSlot
	if err := r.db.SelectContext(ctx, &blocked, query); err != nil {
		return nil, fmt.Errorf("list blocked slots: %w", err)
	}
	return blocked, nil
}

// FindBlockedSlotByID returns a blocked time range by ID.
func (r *BlockRepository) FindBlockedSlotByID(ctx context.Context, id string) (*models.BlockedSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM blocked_slots WHERE id = $1`, blockedSlotColumns)
	var blocked models.BlockedSlot
	if err := r.db.GetContext(ctx, &blocked, query, id); err != nil {
		return nil, err
	}
	return &blocked, nil
}

// ListActiveForDate returns active ranges applicable when offering slots on a
// date: recurring ranges plus ranges pinned to that date.
func (r *BlockRepository) ListActiveForDate(ctx context.Context, date string) ([]models.BlockedSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM blocked_slots
WHERE is_active = TRUE AND (is_recurring = TRUE OR blocked_date = $1)
ORDER BY start_time ASC`, blockedSlotColumns)
	var blocked []models.BlockedSlot
	if err := r.db.SelectContext(ctx, &blocked, query, date); err != nil {
		return nil, fmt.Errorf("list active blocked slots: %w", err)
	}
	return blocked, nil
}

// ListActiveApplicable returns active ranges a candidate with the given scope
// must be checked against, excluding the row being edited. A dated candidate
// sees recurring rows and rows on its date; a recurring candidate sees only
// recurring rows.
func (r *BlockRepository) ListActiveApplicable(ctx context.Context, date *string, excludeID string) ([]models.BlockedSlot, error) {
	var blocked []models.BlockedSlot
	if date != nil {
		query := fmt.Sprintf(`SELECT %s FROM blocked_slots
WHERE is_active = TRUE AND id <> $1 AND (is_recurring = TRUE OR blocked_date = $2)
ORDER BY start_time ASC`, blockedSlotColumns)
		if err := r.db.SelectContext(ctx, &blocked, query, excludeID, *date); err != nil {
			return nil, fmt.Errorf("list applicable blocked slots: %w", err)
		}
		return blocked, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM blocked_slots
WHERE is_active = TRUE AND id <> $1 AND is_recurring = TRUE
ORDER BY start_time ASC`, blockedSlotColumns)
	if err := r.db.SelectContext(ctx, &blocked, query, excludeID); err != nil {
		return nil, fmt.Errorf("list applicable blocked slots: %w", err)
	}
	return blocked, nil
}

// CreateBlockedSlot inserts a blocked time range. Overlap is checked by the
// service inside the same logical write path.
func (r *BlockRepository) CreateBlockedSlot(ctx context.Context, blocked *models.BlockedSlot) error {
	now := time.Now().UTC()
	if blocked.ID == "" {
		blocked.ID = uuid.NewString()
	}
	blocked.CreatedAt = now
	blocked.UpdatedAt = now
	const query = `INSERT INTO blocked_slots (id, blocked_date, start_time, end_time, reason, is_recurring, is_active, created_at, updated_at)
VALUES (:id, :blocked_date, :start_time, :end_time, :reason, :is_recurring, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, blocked); err != nil {
		return fmt.Errorf("create blocked slot: %w", err)
	}
	return nil
}

// UpdateBlockedSlot rewrites a blocked time range.
func (r *BlockRepository) UpdateBlockedSlot(ctx context.Context, blocked *models.BlockedSlot) error {
	blocked.UpdatedAt = time.Now().UTC()
	const query = `UPDATE blocked_slots
SET blocked_date = :blocked_date, start_time = :start_time, end_time = :end_time, reason = :reason,
    is_recurring = :is_recurring, is_active = :is_active, updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, blocked); err != nil {
		return fmt.Errorf("update blocked slot: %w", err)
	}
	return nil
}

// DeleteBlockedSlot removes a blocked time range permanently.
func (r *BlockRepository) DeleteBlockedSlot(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM blocked_slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete blocked slot: %w", err)
	}
	return nil
}
