package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminalgate/gate-api/internal/models"
	appErrors "github.com/terminalgate/gate-api/pkg/errors"
)

type weeklyReaderStub struct {
	configs map[int]*models.WeeklyScheduleConfig
	err     error
}

func (s weeklyReaderStub) FindByDayOfWeek(ctx context.Context, dayOfWeek int) (*models.WeeklyScheduleConfig, error) {
	if s.err != nil {
		return nil, s.err
	}
	if cfg, ok := s.configs[dayOfWeek]; ok {
		return cfg, nil
	}
	return nil, sql.ErrNoRows
}

type specialReaderStub struct {
	schedules map[string]*models.SpecialSchedule
	err       error
}

func (s specialReaderStub) FindByDate(ctx context.Context, date string) (*models.SpecialSchedule, error) {
	if s.err != nil {
		return nil, s.err
	}
	if sched, ok := s.schedules[date]; ok {
		return sched, nil
	}
	return nil, sql.ErrNoRows
}

type blockReaderStub struct {
	blockedDates map[string]*models.BlockedDate
	ranges       []models.BlockedSlot
}

func (s blockReaderStub) FindActiveBlockedDate(ctx context.Context, date string) (*models.BlockedDate, error) {
	if blocked, ok := s.blockedDates[date]; ok {
		return blocked, nil
	}
	return nil, sql.ErrNoRows
}

func (s blockReaderStub) ListActiveForDate(ctx context.Context, date string) ([]models.BlockedSlot, error) {
	return s.ranges, nil
}

type slotReaderStub struct {
	rows []models.TimeSlot
}

func (s slotReaderStub) ListByDate(ctx context.Context, date string) ([]models.TimeSlot, error) {
	return s.rows, nil
}

// 2025-06-02 is a Monday.
const testDate = "2025-06-02"

func weeklyMonday(active bool) map[int]*models.WeeklyScheduleConfig {
	return map[int]*models.WeeklyScheduleConfig{
		1: {ID: "w1", DayOfWeek: 1, StartTime: "08:00", EndTime: "10:00", IntervalMinutes: 30, SlotsPerInterval: 2, IsActive: active},
	}
}

func newAvailability(weekly weeklyReaderStub, special specialReaderStub, blocks blockReaderStub, slots slotReaderStub) *AvailabilityService {
	return NewAvailabilityService(weekly, special, blocks, slots, nil, 0, nil, nil)
}

func TestResolveDayWeeklyTemplate(t *testing.T) {
	svc := newAvailability(weeklyReaderStub{configs: weeklyMonday(true)}, specialReaderStub{}, blockReaderStub{}, slotReaderStub{})

	day, err := svc.ResolveDay(context.Background(), testDate, nil)
	require.NoError(t, err)
	assert.False(t, day.IsBlocked)
	require.Len(t, day.Slots, 4)
	assert.Equal(t, "08:00", day.Slots[0].Time)
	assert.Equal(t, "09:30", day.Slots[3].Time)
	for _, slot := range day.Slots {
		assert.Equal(t, 2, slot.TotalCapacity)
		assert.Equal(t, 2, slot.AvailableCapacity)
		assert.True(t, slot.IsActive)
	}
}

func TestResolveDayBlockedDateWins(t *testing.T) {
	blocks := blockReaderStub{blockedDates: map[string]*models.BlockedDate{
		testDate: {ID: "bd1", BlockedDate: testDate, Reason: "annual maintenance", IsActive: true},
	}}
	svc := newAvailability(weeklyReaderStub{configs: weeklyMonday(true)}, specialReaderStub{}, blocks, slotReaderStub{})

	day, err := svc.ResolveDay(context.Background(), testDate, nil)
	require.NoError(t, err)
	assert.True(t, day.IsBlocked)
	assert.Equal(t, "annual maintenance", day.BlockReason)
	assert.Empty(t, day.Slots)
}

func TestResolveDaySpecialOverridesWeekly(t *testing.T) {
	special := specialReaderStub{schedules: map[string]*models.SpecialSchedule{
		testDate: {ID: "s1", ScheduleDate: testDate, StartTime: "14:00", EndTime: "16:00", IntervalMinutes: 60, SlotsPerInterval: 5, IsActive: true},
	}}
	svc := newAvailability(weeklyReaderStub{configs: weeklyMonday(true)}, special, blockReaderStub{}, slotReaderStub{})

	day, err := svc.ResolveDay(context.Background(), testDate, nil)
	require.NoError(t, err)
	require.Len(t, day.Slots, 2)
	assert.Equal(t, "14:00", day.Slots[0].Time)
	assert.Equal(t, 5, day.Slots[0].TotalCapacity)
}

func TestResolveDayInactiveSpecialFallsToWeekly(t *testing.T) {
	special := specialReaderStub{schedules: map[string]*models.SpecialSchedule{
		testDate: {ID: "s1", ScheduleDate: testDate, StartTime: "14:00", EndTime: "16:00", IntervalMinutes: 60, SlotsPerInterval: 5, IsActive: false},
	}}
	svc := newAvailability(weeklyReaderStub{configs: weeklyMonday(true)}, special, blockReaderStub{}, slotReaderStub{})

	day, err := svc.ResolveDay(context.Background(), testDate, nil)
	require.NoError(t, err)
	require.Len(t, day.Slots, 4)
	assert.Equal(t, "08:00", day.Slots[0].Time)
}

func TestResolveDayInactiveWeeklyYieldsEmptyDay(t *testing.T) {
	svc := newAvailability(weeklyReaderStub{configs: weeklyMonday(false)}, specialReaderStub{}, blockReaderStub{}, slotReaderStub{})

	day, err := svc.ResolveDay(context.Background(), testDate, nil)
	require.NoError(t, err)
	assert.Empty(t, day.Slots)
	assert.False(t, day.IsBlocked)
}

func TestResolveDayRestrictedHiddenFromOutsiders(t *testing.T) {
	special := specialReaderStub{schedules: map[string]*models.SpecialSchedule{
		testDate: {
			ID: "s1", ScheduleDate: testDate, StartTime: "08:00", EndTime: "09:00",
			IntervalMinutes: 30, SlotsPerInterval: 3, IsActive: true,
			RestrictedAccess: true, AuthorizedUserIDs: []string{"u-vip"},
		},
	}}
	svc := newAvailability(weeklyReaderStub{}, special, blockReaderStub{}, slotReaderStub{})

	// Anonymous caller sees an empty day, not an error.
	day, err := svc.ResolveDay(context.Background(), testDate, nil)
	require.NoError(t, err)
	assert.Empty(t, day.Slots)
	assert.False(t, day.IsBlocked)

	// Unauthorized transporter likewise.
	day, err = svc.ResolveDay(context.Background(), testDate, &models.JWTClaims{UserID: "u-other", Role: models.RoleTransporter})
	require.NoError(t, err)
	assert.Empty(t, day.Slots)

	// Authorized user sees the slots.
	day, err = svc.ResolveDay(context.Background(), testDate, &models.JWTClaims{UserID: "u-vip", Role: models.RoleTransporter})
	require.NoError(t, err)
	assert.Len(t, day.Slots, 2)

	// Admins always see restricted days.
	day, err = svc.ResolveDay(context.Background(), testDate, &models.JWTClaims{UserID: "u-admin", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Len(t, day.Slots, 2)
}

func TestResolveDayDropsBlockedRanges(t *testing.T) {
	blocks := blockReaderStub{ranges: []models.BlockedSlot{
		{ID: "b1", StartTime: "08:30", EndTime: "09:30", IsRecurring: true, IsActive: true},
	}}
	svc := newAvailability(weeklyReaderStub{configs: weeklyMonday(true)}, specialReaderStub{}, blocks, slotReaderStub{})

	day, err := svc.ResolveDay(context.Background(), testDate, nil)
	require.NoError(t, err)
	times := make([]string, 0, len(day.Slots))
	for _, slot := range day.Slots {
		times = append(times, slot.Time)
	}
	// 08:30 and 09:00 fall inside [08:30, 09:30); 09:30 survives because
	// coverage is end-exclusive.
	assert.Equal(t, []string{"08:00", "09:30"}, times)
}

func TestResolveDayOverlaysLedgerRows(t *testing.T) {
	slots := slotReaderStub{rows: []models.TimeSlot{
		{ID: "ts1", SlotDate: testDate, SlotTime: "08:00", TotalCapacity: 2, AvailableCapacity: 0, IsActive: true},
		{ID: "ts2", SlotDate: testDate, SlotTime: "08:30", TotalCapacity: 4, AvailableCapacity: 4, IsActive: false},
	}}
	svc := newAvailability(weeklyReaderStub{configs: weeklyMonday(true)}, specialReaderStub{}, blockReaderStub{}, slots)

	day, err := svc.ResolveDay(context.Background(), testDate, nil)
	require.NoError(t, err)
	require.Len(t, day.Slots, 4)

	assert.Equal(t, "ts1", day.Slots[0].ID)
	assert.Equal(t, 0, day.Slots[0].AvailableCapacity)

	// The materialized row wins over the template, deactivation included.
	assert.False(t, day.Slots[1].IsActive)
	assert.Equal(t, 4, day.Slots[1].TotalCapacity)

	// Unmaterialized times fall back to template capacity.
	assert.Empty(t, day.Slots[2].ID)
	assert.Equal(t, 2, day.Slots[2].AvailableCapacity)
}

func TestResolveDayOffersRowsWithoutTemplate(t *testing.T) {
	slots := slotReaderStub{rows: []models.TimeSlot{
		{ID: "ts1", SlotDate: testDate, SlotTime: "08:30", TotalCapacity: 3, AvailableCapacity: 1, IsActive: true},
		{ID: "ts2", SlotDate: testDate, SlotTime: "08:00", TotalCapacity: 3, AvailableCapacity: 3, IsActive: true},
	}}
	svc := newAvailability(weeklyReaderStub{}, specialReaderStub{}, blockReaderStub{}, slots)

	day, err := svc.ResolveDay(context.Background(), testDate, nil)
	require.NoError(t, err)
	require.Len(t, day.Slots, 2)
	assert.Equal(t, "08:00", day.Slots[0].Time)
	assert.Equal(t, "ts2", day.Slots[0].ID)
	assert.Equal(t, "08:30", day.Slots[1].Time)
	assert.Equal(t, 1, day.Slots[1].AvailableCapacity)
}

func TestResolveDayBlockedRangeDropsUntemplatedRow(t *testing.T) {
	slots := slotReaderStub{rows: []models.TimeSlot{
		{ID: "ts1", SlotDate: testDate, SlotTime: "08:00", TotalCapacity: 3, AvailableCapacity: 3, IsActive: true},
		{ID: "ts2", SlotDate: testDate, SlotTime: "10:00", TotalCapacity: 3, AvailableCapacity: 3, IsActive: true},
	}}
	blocks := blockReaderStub{ranges: []models.BlockedSlot{
		{ID: "b1", StartTime: "09:30", EndTime: "10:30", IsRecurring: true, IsActive: true},
	}}
	svc := newAvailability(weeklyReaderStub{}, specialReaderStub{}, blocks, slots)

	day, err := svc.ResolveDay(context.Background(), testDate, nil)
	require.NoError(t, err)
	require.Len(t, day.Slots, 1)
	assert.Equal(t, "ts1", day.Slots[0].ID)
}

func TestResolveDayRejectsBadDate(t *testing.T) {
	svc := newAvailability(weeklyReaderStub{}, specialReaderStub{}, blockReaderStub{}, slotReaderStub{})

	_, err := svc.ResolveDay(context.Background(), "02-06-2025", nil)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestTemplatesForGenerationBlockedDate(t *testing.T) {
	blocks := blockReaderStub{blockedDates: map[string]*models.BlockedDate{
		testDate: {ID: "bd1", BlockedDate: testDate, Reason: "holiday", IsActive: true},
	}}
	svc := newAvailability(weeklyReaderStub{configs: weeklyMonday(true)}, specialReaderStub{}, blocks, slotReaderStub{})

	_, err := svc.TemplatesForGeneration(context.Background(), testDate)
	assert.True(t, appErrors.Is(err, appErrors.ErrDateBlocked))
}

func TestTemplatesForGenerationFiltersBlockedRanges(t *testing.T) {
	blocks := blockReaderStub{ranges: []models.BlockedSlot{
		{ID: "b1", BlockedDate: strPtr(testDate), StartTime: "08:00", EndTime: "09:00", IsActive: true},
	}}
	svc := newAvailability(weeklyReaderStub{configs: weeklyMonday(true)}, specialReaderStub{}, blocks, slotReaderStub{})

	templates, err := svc.TemplatesForGeneration(context.Background(), testDate)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "09:00", templates[0].Time)
	assert.Equal(t, "09:30", templates[1].Time)
}

func strPtr(s string) *string { return &s }
