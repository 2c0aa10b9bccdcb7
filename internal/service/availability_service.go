package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/terminalgate/gate-api/internal/models"
	"github.com/terminalgate/gate-api/internal/repository"
	appErrors "github.com/terminalgate/gate-api/pkg/errors"
)

type weeklyScheduleReader interface {
	FindByDayOfWeek(ctx context.Context, dayOfWeek int) (*models.WeeklyScheduleConfig, error)
}

type specialScheduleReader interface {
	FindByDate(ctx context.Context, date string) (*models.SpecialSchedule, error)
}

type blockReader interface {
	FindActiveBlockedDate(ctx context.Context, date string) (*models.BlockedDate, error)
	ListActiveForDate(ctx context.Context, date string) ([]models.BlockedSlot, error)
}

type timeSlotReader interface {
	ListByDate(ctx context.Context, date string) ([]models.TimeSlot, error)
}

// AvailabilityService is the schedule resolver: it merges the weekly
// template, special-date overrides and blocking rules into the bookable
// slot list for a date, and overlays the capacity ledger's counters.
type AvailabilityService struct {
	weekly   weeklyScheduleReader
	special  specialScheduleReader
	blocks   blockReader
	slots    timeSlotReader
	cache    availabilityCache
	cacheTTL time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewAvailabilityService constructs AvailabilityService.
func NewAvailabilityService(weekly weeklyScheduleReader, special specialScheduleReader, blocks blockReader, slots timeSlotReader, cache availabilityCache, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{weekly: weekly, special: special, blocks: blocks, slots: slots, cache: cache, cacheTTL: cacheTTL, metrics: metrics, logger: logger}
}

// ResolveDay returns the availability a given caller may see for a date.
// Restricted special schedules are hidden from users outside the authorized
// set unless the caller is an admin.
func (s *AvailabilityService) ResolveDay(ctx context.Context, date string, claims *models.JWTClaims) (*models.DayAvailability, error) {
	if _, err := dayOfWeek(date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}

	blocked, err := s.blocks.FindActiveBlockedDate(ctx, date)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check blocked date")
	}
	if blocked != nil {
		return &models.DayAvailability{Date: date, IsBlocked: true, BlockReason: blocked.Reason}, nil
	}

	templates, special, err := s.templatesFor(ctx, date)
	if err != nil {
		return nil, err
	}

	if special != nil && special.RestrictedAccess {
		allowed := claims != nil && (claims.IsAdmin() || special.AllowsUser(claims.UserID))
		if !allowed {
			// Hidden, not denied: an unauthorized user sees an empty day.
			return &models.DayAvailability{Date: date, Slots: []models.SlotAvailability{}}, nil
		}
	}

	cacheable := special == nil || !special.RestrictedAccess
	if cacheable && s.cache != nil {
		var cached models.DayAvailability
		if err := s.cache.Get(ctx, repository.AvailabilityKey(date), &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return &cached, nil
		}
		s.metrics.RecordCacheLookup(false)
	}

	result, err := s.buildDay(ctx, date, templates)
	if err != nil {
		return nil, err
	}

	if cacheable && s.cache != nil {
		if err := s.cache.Set(ctx, repository.AvailabilityKey(date), result, s.cacheTTL); err != nil {
			s.logger.Warn("availability cache write failed", zap.String("date", date), zap.Error(err))
		}
	}
	return result, nil
}

// TemplatesForGeneration returns the block-filtered slot templates used to
// materialize a date. A blocked date rejects generation outright.
func (s *AvailabilityService) TemplatesForGeneration(ctx context.Context, date string) ([]models.SlotTemplate, error) {
	if _, err := dayOfWeek(date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}

	blocked, err := s.blocks.FindActiveBlockedDate(ctx, date)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check blocked date")
	}
	if blocked != nil {
		return nil, appErrors.Clone(appErrors.ErrDateBlocked, "date is blocked: "+blocked.Reason)
	}

	templates, _, err := s.templatesFor(ctx, date)
	if err != nil {
		return nil, err
	}
	return s.filterBlocked(ctx, date, templates)
}

// templatesFor picks exactly one template source for a date: an active
// special schedule wins, otherwise the weekly configuration for the date's
// weekday. An inactive or missing source yields no templates.
func (s *AvailabilityService) templatesFor(ctx context.Context, date string) ([]models.SlotTemplate, *models.SpecialSchedule, error) {
	special, err := s.special.FindByDate(ctx, date)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load special schedule")
	}
	if special != nil && special.IsActive {
		templates, err := expandTemplate(special.StartTime, special.EndTime, special.IntervalMinutes, special.SlotsPerInterval)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expand special schedule")
		}
		return templates, special, nil
	}

	weekday, err := dayOfWeek(date)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid date")
	}
	weekly, err := s.weekly.FindByDayOfWeek(ctx, weekday)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly config")
	}
	if !weekly.IsActive {
		return nil, nil, nil
	}
	templates, err := expandTemplate(weekly.StartTime, weekly.EndTime, weekly.IntervalMinutes, weekly.SlotsPerInterval)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expand weekly config")
	}
	return templates, nil, nil
}

// filterBlocked drops template times covered by any active applicable
// blocked range for the date.
func (s *AvailabilityService) filterBlocked(ctx context.Context, date string, templates []models.SlotTemplate) ([]models.SlotTemplate, error) {
	if len(templates) == 0 {
		return templates, nil
	}
	ranges, err := s.blocks.ListActiveForDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blocked ranges")
	}
	return dropCoveredTemplates(templates, ranges), nil
}

// buildDay overlays materialized ledger rows onto the block-filtered
// templates. Times without a row fall back to template capacity; a
// materialized row always wins, including its is_active flag. Rows with no
// matching template, such as a day generated from the default window, are
// still bookable and so are offered too.
func (s *AvailabilityService) buildDay(ctx context.Context, date string, templates []models.SlotTemplate) (*models.DayAvailability, error) {
	ranges, err := s.blocks.ListActiveForDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blocked ranges")
	}
	templates = dropCoveredTemplates(templates, ranges)

	rows, err := s.slots.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	byTime := make(map[string]*models.TimeSlot, len(rows))
	for i := range rows {
		byTime[rows[i].SlotTime] = &rows[i]
	}

	slots := make([]models.SlotAvailability, 0, len(templates))
	offered := make(map[string]struct{}, len(templates))
	for _, tpl := range templates {
		offered[tpl.Time] = struct{}{}
		if row, ok := byTime[tpl.Time]; ok {
			slots = append(slots, models.SlotAvailability{
				ID:                row.ID,
				Time:              row.SlotTime,
				TotalCapacity:     row.TotalCapacity,
				AvailableCapacity: row.AvailableCapacity,
				IsActive:          row.IsActive,
			})
			continue
		}
		slots = append(slots, models.SlotAvailability{
			Time:              tpl.Time,
			TotalCapacity:     tpl.Capacity,
			AvailableCapacity: tpl.Capacity,
			IsActive:          true,
		})
	}

	for i := range rows {
		row := &rows[i]
		if _, ok := offered[row.SlotTime]; ok {
			continue
		}
		if coveredBy(ranges, row.SlotTime) {
			continue
		}
		slots = append(slots, models.SlotAvailability{
			ID:                row.ID,
			Time:              row.SlotTime,
			TotalCapacity:     row.TotalCapacity,
			AvailableCapacity: row.AvailableCapacity,
			IsActive:          row.IsActive,
		})
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].Time < slots[j].Time })

	return &models.DayAvailability{Date: date, Slots: slots}, nil
}

func coveredBy(ranges []models.BlockedSlot, timeOfDay string) bool {
	for i := range ranges {
		if ranges[i].Covers(timeOfDay) {
			return true
		}
	}
	return false
}

func dropCoveredTemplates(templates []models.SlotTemplate, ranges []models.BlockedSlot) []models.SlotTemplate {
	if len(ranges) == 0 {
		return templates
	}
	kept := templates[:0]
	for _, tpl := range templates {
		if !coveredBy(ranges, tpl.Time) {
			kept = append(kept, tpl)
		}
	}
	return kept
}

func expandTemplate(start, end string, intervalMinutes, slotsPerInterval int) ([]models.SlotTemplate, error) {
	times, err := generateTimes(start, end, intervalMinutes)
	if err != nil {
		return nil, err
	}
	templates := make([]models.SlotTemplate, 0, len(times))
	for _, t := range times {
		templates = append(templates, models.SlotTemplate{Time: t, Capacity: slotsPerInterval})
	}
	return templates, nil
}
