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

type timeSlotRepository interface {
	ListByDate(ctx context.Context, date string) ([]models.TimeSlot, error)
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
	InsertForDate(ctx context.Context, date string, templates []models.SlotTemplate) (int, error)
	SetTotalCapacity(ctx context.Context, slotID string, newTotal int) (*models.TimeSlot, error)
	SetActive(ctx context.Context, slotID string, active bool) error
}

type slotTemplateResolver interface {
	TemplatesForGeneration(ctx context.Context, date string) ([]models.SlotTemplate, error)
}

// GenerationDefaults is the fallback window used when a date has neither a
// weekly configuration nor a special schedule.
type GenerationDefaults struct {
	StartTime       string
	EndTime         string
	IntervalMinutes int
	Capacity        int
}

// SetCapacityRequest is the admin payload for resizing a slot.
type SetCapacityRequest struct {
	TotalCapacity int `json:"total_capacity" validate:"required,min=1"`
}

// SlotService owns the write side of the capacity ledger: materializing slot
// rows for a date and resizing or toggling individual slots.
type SlotService struct {
	slots     timeSlotRepository
	resolver  slotTemplateResolver
	cache     availabilityCache
	defaults  GenerationDefaults
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSlotService constructs SlotService.
func NewSlotService(slots timeSlotRepository, resolver slotTemplateResolver, cache availabilityCache, defaults GenerationDefaults, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{slots: slots, resolver: resolver, cache: cache, defaults: defaults, metrics: metrics, validator: validate, logger: logger}
}

// GenerateForDate materializes the resolver's block-filtered templates as
// TimeSlot rows. Idempotent: a second call for the same date fails with
// ALREADY_EXISTS and creates nothing.
func (s *SlotService) GenerateForDate(ctx context.Context, date string) (int, error) {
	templates, err := s.resolver.TemplatesForGeneration(ctx, date)
	if err != nil {
		return 0, err
	}
	if len(templates) == 0 {
		templates, err = s.defaultTemplates()
		if err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expand default window")
		}
	}
	if len(templates) == 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "no slots to generate for date")
	}

	created, err := s.slots.InsertForDate(ctx, date, templates)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrAlreadyExists) {
			return 0, err
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate slots")
	}
	s.logger.Info("slots generated", zap.String("date", date), zap.Int("count", created))
	s.metrics.RecordSlotsGenerated(created)
	s.invalidateDate(ctx, date)
	return created, nil
}

// SetTotalCapacity resizes a slot; available capacity becomes the new total
// minus the currently reserved sum, and reductions below that sum fail.
func (s *SlotService) SetTotalCapacity(ctx context.Context, slotID string, req SetCapacityRequest) (*models.TimeSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid capacity payload")
	}
	slot, err := s.slots.SetTotalCapacity(ctx, slotID, req.TotalCapacity)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrInvalidCapacity) || appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set capacity")
	}
	s.invalidateDate(ctx, slot.SlotDate)
	return slot, nil
}

// SetActive toggles whether a slot accepts reservations.
func (s *SlotService) SetActive(ctx context.Context, slotID string, active bool) (*models.TimeSlot, error) {
	if err := s.slots.SetActive(ctx, slotID, active); err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle slot")
	}
	slot, err := s.slots.FindByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload slot")
	}
	s.invalidateDate(ctx, slot.SlotDate)
	return slot, nil
}

func (s *SlotService) defaultTemplates() ([]models.SlotTemplate, error) {
	return expandTemplate(s.defaults.StartTime, s.defaults.EndTime, s.defaults.IntervalMinutes, s.defaults.Capacity)
}

func (s *SlotService) invalidateDate(ctx context.Context, date string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, repository.AvailabilityKey(date)); err != nil {
		s.logger.Warn("availability cache invalidation failed", zap.String("date", date), zap.Error(err))
	}
}
