package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/terminalgate/gate-api/internal/models"
	"github.com/terminalgate/gate-api/internal/repository"
	appErrors "github.com/terminalgate/gate-api/pkg/errors"
)

type blockRepository interface {
	FindActiveBlockedDate(ctx context.Context, date string) (*models.BlockedDate, error)
	ListBlockedDates(ctx context.Context) ([]models.BlockedDate, error)
	FindBlockedDateByID(ctx context.Context, id string) (*models.BlockedDate, error)
	CreateBlockedDate(ctx context.Context, blocked *models.BlockedDate) error
	UpdateBlockedDate(ctx context.Context, blocked *models.BlockedDate) error
	DeleteBlockedDate(ctx context.Context, id string) error
	ListBlockedSlots(ctx context.Context) ([]models.BlockedSlot, error)
	FindBlockedSlotByID(ctx context.Context, id string) (*models.BlockedSlot, error)
	ListActiveApplicable(ctx context.Context, date *string, excludeID string) ([]models.BlockedSlot, error)
	CreateBlockedSlot(ctx context.Context, blocked *models.BlockedSlot) error
	UpdateBlockedSlot(ctx context.Context, blocked *models.BlockedSlot) error
	DeleteBlockedSlot(ctx context.Context, id string) error
}

// BlockedDateRequest is the admin payload for a whole-day block.
type BlockedDateRequest struct {
	BlockedDate string                 `json:"blocked_date" validate:"required,datetime=2006-01-02"`
	Reason      string                 `json:"reason" validate:"required"`
	BlockType   models.BlockedDateType `json:"block_type" validate:"required,oneof=HOLIDAY MAINTENANCE OTHER"`
	IsActive    bool                   `json:"is_active"`
}

// BlockedSlotRequest is the admin payload for a blocked time range. A
// recurring range carries no date; a dated range must carry one.
type BlockedSlotRequest struct {
	BlockedDate *string `json:"blocked_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartTime   string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime     string  `json:"end_time" validate:"required,datetime=15:04"`
	Reason      string  `json:"reason" validate:"required"`
	IsRecurring bool    `json:"is_recurring"`
	IsActive    bool    `json:"is_active"`
}

// BlockService manages whole-day blocks and blocked time ranges, rejecting
// ranges that overlap existing active ones under the scope rules.
type BlockService struct {
	repo      blockRepository
	cache     availabilityCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBlockService constructs BlockService.
func NewBlockService(repo blockRepository, cache availabilityCache, validate *validator.Validate, logger *zap.Logger) *BlockService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlockService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// ListBlockedDates returns all whole-day blocks.
func (s *BlockService) ListBlockedDates(ctx context.Context) ([]models.BlockedDate, error) {
	blocked, err := s.repo.ListBlockedDates(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blocked dates")
	}
	return blocked, nil
}

// CreateBlockedDate blocks a whole date; at most one active block per date.
func (s *BlockService) CreateBlockedDate(ctx context.Context, req BlockedDateRequest) (*models.BlockedDate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid blocked date payload")
	}
	blocked := &models.BlockedDate{
		BlockedDate: req.BlockedDate,
		Reason:      req.Reason,
		BlockType:   req.BlockType,
		IsActive:    req.IsActive,
	}
	if err := s.repo.CreateBlockedDate(ctx, blocked); err != nil {
		if appErrors.Is(err, appErrors.ErrConflict) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create blocked date")
	}
	s.invalidateDate(ctx, blocked.BlockedDate)
	return blocked, nil
}

// UpdateBlockedDate rewrites a whole-day block, re-checking the single
// active block rule when activating or moving the date.
func (s *BlockService) UpdateBlockedDate(ctx context.Context, id string, req BlockedDateRequest) (*models.BlockedDate, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid blocked date payload")
	}
	blocked, err := s.repo.FindBlockedDateByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "blocked date not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blocked date")
	}
	if req.IsActive {
		existing, err := s.repo.FindActiveBlockedDate(ctx, req.BlockedDate)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check blocked date")
		}
		if existing != nil && existing.ID != id {
			return nil, appErrors.Clone(appErrors.ErrConflict, "date is already blocked")
		}
	}
	previousDate := blocked.BlockedDate
	blocked.BlockedDate = req.BlockedDate
	blocked.Reason = req.Reason
	blocked.BlockType = req.BlockType
	blocked.IsActive = req.IsActive
	if err := s.repo.UpdateBlockedDate(ctx, blocked); err != nil {
		if appErrors.Is(err, appErrors.ErrConflict) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update blocked date")
	}
	s.invalidateDate(ctx, previousDate)
	s.invalidateDate(ctx, blocked.BlockedDate)
	return blocked, nil
}

// DeleteBlockedDate removes a whole-day block.
func (s *BlockService) DeleteBlockedDate(ctx context.Context, id string) error {
	blocked, err := s.repo.FindBlockedDateByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "blocked date not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blocked date")
	}
	if err := s.repo.DeleteBlockedDate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete blocked date")
	}
	s.invalidateDate(ctx, blocked.BlockedDate)
	return nil
}

// ListBlockedSlots returns all blocked time ranges.
func (s *BlockService) ListBlockedSlots(ctx context.Context) ([]models.BlockedSlot, error) {
	blocked, err := s.repo.ListBlockedSlots(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blocked slots")
	}
	return blocked, nil
}

// CreateBlockedSlot adds a blocked range after the overlap check.
func (s *BlockService) CreateBlockedSlot(ctx context.Context, req BlockedSlotRequest) (*models.BlockedSlot, error) {
	if err := s.validateBlockedSlot(req); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, req, ""); err != nil {
		return nil, err
	}
	blocked := &models.BlockedSlot{
		BlockedDate: req.BlockedDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Reason:      req.Reason,
		IsRecurring: req.IsRecurring,
		IsActive:    req.IsActive,
	}
	if err := s.repo.CreateBlockedSlot(ctx, blocked); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create blocked slot")
	}
	s.invalidateForSlot(ctx, blocked)
	return blocked, nil
}

// UpdateBlockedSlot rewrites a blocked range, re-running the overlap check
// against every other active applicable range.
func (s *BlockService) UpdateBlockedSlot(ctx context.Context, id string, req BlockedSlotRequest) (*models.BlockedSlot, error) {
	if err := s.validateBlockedSlot(req); err != nil {
		return nil, err
	}
	blocked, err := s.repo.FindBlockedSlotByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "blocked slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blocked slot")
	}
	if err := s.checkOverlap(ctx, req, id); err != nil {
		return nil, err
	}
	previous := *blocked
	blocked.BlockedDate = req.BlockedDate
	blocked.StartTime = req.StartTime
	blocked.EndTime = req.EndTime
	blocked.Reason = req.Reason
	blocked.IsRecurring = req.IsRecurring
	blocked.IsActive = req.IsActive
	if err := s.repo.UpdateBlockedSlot(ctx, blocked); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update blocked slot")
	}
	s.invalidateForSlot(ctx, &previous)
	s.invalidateForSlot(ctx, blocked)
	return blocked, nil
}

// DeleteBlockedSlot removes a blocked range.
func (s *BlockService) DeleteBlockedSlot(ctx context.Context, id string) error {
	blocked, err := s.repo.FindBlockedSlotByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "blocked slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blocked slot")
	}
	if err := s.repo.DeleteBlockedSlot(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete blocked slot")
	}
	s.invalidateForSlot(ctx, blocked)
	return nil
}

func (s *BlockService) validateBlockedSlot(req BlockedSlotRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid blocked slot payload")
	}
	if req.EndTime <= req.StartTime {
		return appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	if req.IsRecurring && req.BlockedDate != nil {
		return appErrors.Clone(appErrors.ErrValidation, "recurring ranges must not carry a date")
	}
	if !req.IsRecurring && req.BlockedDate == nil {
		return appErrors.Clone(appErrors.ErrValidation, "dated ranges must carry a date")
	}
	return nil
}

func (s *BlockService) checkOverlap(ctx context.Context, req BlockedSlotRequest, excludeID string) error {
	var scope *string
	if !req.IsRecurring {
		scope = req.BlockedDate
	}
	existing, err := s.repo.ListActiveApplicable(ctx, scope, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load applicable ranges")
	}
	if hit := firstOverlapping(req.StartTime, req.EndTime, existing); hit != nil {
		return appErrors.Clone(appErrors.ErrOverlapping,
			"range overlaps blocked range "+hit.StartTime+"-"+hit.EndTime)
	}
	return nil
}

func (s *BlockService) invalidateDate(ctx context.Context, date string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, repository.AvailabilityKey(date)); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.String("date", date), zap.Error(err))
	}
}

func (s *BlockService) invalidateForSlot(ctx context.Context, blocked *models.BlockedSlot) {
	if s.cache == nil {
		return
	}
	if blocked.IsRecurring || blocked.BlockedDate == nil {
		if err := s.cache.DeleteByPattern(ctx, "availability:*"); err != nil {
			s.logger.Warn("availability cache invalidation failed", zap.Error(err))
		}
		return
	}
	s.invalidateDate(ctx, *blocked.BlockedDate)
}
