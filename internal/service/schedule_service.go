package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/terminalgate/gate-api/internal/models"
	"github.com/terminalgate/gate-api/internal/repository"
	appErrors "github.com/terminalgate/gate-api/pkg/errors"
)

type weeklyScheduleRepository interface {
	List(ctx context.Context) ([]models.WeeklyScheduleConfig, error)
	FindByID(ctx context.Context, id string) (*models.WeeklyScheduleConfig, error)
	FindByDayOfWeek(ctx context.Context, dayOfWeek int) (*models.WeeklyScheduleConfig, error)
	ExistsDay(ctx context.Context, dayOfWeek int, excludeID string) (bool, error)
	Create(ctx context.Context, config *models.WeeklyScheduleConfig) error
	Update(ctx context.Context, config *models.WeeklyScheduleConfig) error
	Delete(ctx context.Context, id string) error
}

type specialScheduleRepository interface {
	List(ctx context.Context) ([]models.SpecialSchedule, error)
	FindByID(ctx context.Context, id string) (*models.SpecialSchedule, error)
	FindByDate(ctx context.Context, date string) (*models.SpecialSchedule, error)
	ExistsDate(ctx context.Context, date, excludeID string) (bool, error)
	Create(ctx context.Context, schedule *models.SpecialSchedule) error
	Update(ctx context.Context, schedule *models.SpecialSchedule) error
	Delete(ctx context.Context, id string) error
}

type availabilityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// WeeklyConfigRequest is the admin payload for a weekly day template.
type WeeklyConfigRequest struct {
	DayOfWeek        int    `json:"day_of_week" validate:"min=0,max=6"`
	StartTime        string `json:"start_time" validate:"required,datetime=15:04"`
	EndTime          string `json:"end_time" validate:"required,datetime=15:04"`
	IntervalMinutes  int    `json:"interval_minutes" validate:"required,min=15,max=120"`
	SlotsPerInterval int    `json:"slots_per_interval" validate:"required,min=1,max=20"`
	IsActive         bool   `json:"is_active"`
}

// SpecialScheduleRequest is the admin payload for a one-date override.
type SpecialScheduleRequest struct {
	ScheduleDate      string   `json:"schedule_date" validate:"required,datetime=2006-01-02"`
	StartTime         string   `json:"start_time" validate:"required,datetime=15:04"`
	EndTime           string   `json:"end_time" validate:"required,datetime=15:04"`
	IntervalMinutes   int      `json:"interval_minutes" validate:"required,min=15,max=240"`
	SlotsPerInterval  int      `json:"slots_per_interval" validate:"required,min=1,max=50"`
	IsActive          bool     `json:"is_active"`
	RestrictedAccess  bool     `json:"restricted_access"`
	Description       *string  `json:"description,omitempty"`
	AuthorizedUserIDs []string `json:"authorized_user_ids,omitempty"`
}

// ScheduleService manages the weekly templates and special-date overrides
// that the resolver draws slot candidates from.
type ScheduleService struct {
	weekly    weeklyScheduleRepository
	special   specialScheduleRepository
	cache     availabilityCache
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs ScheduleService.
func NewScheduleService(weekly weeklyScheduleRepository, special specialScheduleRepository, cache availabilityCache, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{weekly: weekly, special: special, cache: cache, validator: validate, logger: logger}
}

// ListWeekly returns all weekly configurations.
func (s *ScheduleService) ListWeekly(ctx context.Context) ([]models.WeeklyScheduleConfig, error) {
	configs, err := s.weekly.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list weekly configs")
	}
	return configs, nil
}

// CreateWeekly adds a weekly configuration; one per day of week.
func (s *ScheduleService) CreateWeekly(ctx context.Context, req WeeklyConfigRequest) (*models.WeeklyScheduleConfig, error) {
	if err := s.validateWeekly(req); err != nil {
		return nil, err
	}
	exists, err := s.weekly.ExistsDay(ctx, req.DayOfWeek, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check weekly config")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a configuration already exists for this day of week")
	}
	config := &models.WeeklyScheduleConfig{
		DayOfWeek:        req.DayOfWeek,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		IntervalMinutes:  req.IntervalMinutes,
		SlotsPerInterval: req.SlotsPerInterval,
		IsActive:         req.IsActive,
	}
	if err := s.weekly.Create(ctx, config); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create weekly config")
	}
	s.invalidateAll(ctx)
	return config, nil
}

// UpdateWeekly rewrites a weekly configuration.
func (s *ScheduleService) UpdateWeekly(ctx context.Context, id string, req WeeklyConfigRequest) (*models.WeeklyScheduleConfig, error) {
	if err := s.validateWeekly(req); err != nil {
		return nil, err
	}
	config, err := s.weekly.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "weekly config not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly config")
	}
	exists, err := s.weekly.ExistsDay(ctx, req.DayOfWeek, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check weekly config")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a configuration already exists for this day of week")
	}
	config.DayOfWeek = req.DayOfWeek
	config.StartTime = req.StartTime
	config.EndTime = req.EndTime
	config.IntervalMinutes = req.IntervalMinutes
	config.SlotsPerInterval = req.SlotsPerInterval
	config.IsActive = req.IsActive
	if err := s.weekly.Update(ctx, config); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update weekly config")
	}
	s.invalidateAll(ctx)
	return config, nil
}

// DeleteWeekly removes a weekly configuration.
func (s *ScheduleService) DeleteWeekly(ctx context.Context, id string) error {
	if _, err := s.weekly.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "weekly config not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly config")
	}
	if err := s.weekly.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete weekly config")
	}
	s.invalidateAll(ctx)
	return nil
}

// ListSpecial returns all special schedules. Restricted entries are only
// meaningful to admins; handlers gate accordingly.
func (s *ScheduleService) ListSpecial(ctx context.Context) ([]models.SpecialSchedule, error) {
	schedules, err := s.special.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list special schedules")
	}
	return schedules, nil
}

// GetSpecial returns one special schedule with its authorized users.
func (s *ScheduleService) GetSpecial(ctx context.Context, id string) (*models.SpecialSchedule, error) {
	schedule, err := s.special.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "special schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load special schedule")
	}
	return schedule, nil
}

// CreateSpecial adds a one-date override; one per calendar date.
func (s *ScheduleService) CreateSpecial(ctx context.Context, req SpecialScheduleRequest) (*models.SpecialSchedule, error) {
	if err := s.validateSpecial(req); err != nil {
		return nil, err
	}
	exists, err := s.special.ExistsDate(ctx, req.ScheduleDate, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check special schedule")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a special schedule already exists for this date")
	}
	schedule := s.applySpecialRequest(&models.SpecialSchedule{}, req)
	if err := s.special.Create(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create special schedule")
	}
	s.invalidateDate(ctx, schedule.ScheduleDate)
	return schedule, nil
}

// UpdateSpecial rewrites an override and replaces its authorized-user set.
func (s *ScheduleService) UpdateSpecial(ctx context.Context, id string, req SpecialScheduleRequest) (*models.SpecialSchedule, error) {
	if err := s.validateSpecial(req); err != nil {
		return nil, err
	}
	schedule, err := s.special.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "special schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load special schedule")
	}
	exists, err := s.special.ExistsDate(ctx, req.ScheduleDate, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check special schedule")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a special schedule already exists for this date")
	}
	previousDate := schedule.ScheduleDate
	schedule = s.applySpecialRequest(schedule, req)
	if err := s.special.Update(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update special schedule")
	}
	s.invalidateDate(ctx, previousDate)
	s.invalidateDate(ctx, schedule.ScheduleDate)
	return schedule, nil
}

// DeleteSpecial removes an override and its authorized-user rows.
func (s *ScheduleService) DeleteSpecial(ctx context.Context, id string) error {
	schedule, err := s.special.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "special schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load special schedule")
	}
	if err := s.special.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete special schedule")
	}
	s.invalidateDate(ctx, schedule.ScheduleDate)
	return nil
}

func (s *ScheduleService) validateWeekly(req WeeklyConfigRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid weekly config payload")
	}
	if req.EndTime <= req.StartTime {
		return appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	return nil
}

func (s *ScheduleService) validateSpecial(req SpecialScheduleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid special schedule payload")
	}
	if req.EndTime <= req.StartTime {
		return appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	return nil
}

func (s *ScheduleService) applySpecialRequest(schedule *models.SpecialSchedule, req SpecialScheduleRequest) *models.SpecialSchedule {
	schedule.ScheduleDate = req.ScheduleDate
	schedule.StartTime = req.StartTime
	schedule.EndTime = req.EndTime
	schedule.IntervalMinutes = req.IntervalMinutes
	schedule.SlotsPerInterval = req.SlotsPerInterval
	schedule.IsActive = req.IsActive
	schedule.RestrictedAccess = req.RestrictedAccess
	schedule.Description = req.Description
	if req.RestrictedAccess {
		schedule.AuthorizedUserIDs = req.AuthorizedUserIDs
	} else {
		// Un-restricting clears the allow-list.
		schedule.AuthorizedUserIDs = nil
	}
	return schedule
}

func (s *ScheduleService) invalidateDate(ctx context.Context, date string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, repository.AvailabilityKey(date)); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.String("date", date), zap.Error(err))
	}
}

func (s *ScheduleService) invalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	// Weekly changes touch every future date sharing the weekday; dropping
	// the whole availability namespace is cheaper than enumerating them.
	if err := s.cache.DeleteByPattern(ctx, "availability:*"); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.Error(err))
	}
}
