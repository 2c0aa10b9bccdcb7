package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terminalgate/gate-api/internal/models"
	appErrors "github.com/terminalgate/gate-api/pkg/errors"
)

type weeklyRepoStub struct {
	configs map[string]*models.WeeklyScheduleConfig
	days    map[int]string
	created *models.WeeklyScheduleConfig
	updated *models.WeeklyScheduleConfig
	deleted []string
}

func (s *weeklyRepoStub) List(ctx context.Context) ([]models.WeeklyScheduleConfig, error) {
	var out []models.WeeklyScheduleConfig
	for _, c := range s.configs {
		out = append(out, *c)
	}
	return out, nil
}

func (s *weeklyRepoStub) FindByID(ctx context.Context, id string) (*models.WeeklyScheduleConfig, error) {
	if c, ok := s.configs[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *weeklyRepoStub) FindByDayOfWeek(ctx context.Context, dayOfWeek int) (*models.WeeklyScheduleConfig, error) {
	if id, ok := s.days[dayOfWeek]; ok {
		return s.FindByID(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (s *weeklyRepoStub) ExistsDay(ctx context.Context, dayOfWeek int, excludeID string) (bool, error) {
	id, ok := s.days[dayOfWeek]
	return ok && id != excludeID, nil
}

func (s *weeklyRepoStub) Create(ctx context.Context, config *models.WeeklyScheduleConfig) error {
	config.ID = "w-new"
	s.created = config
	return nil
}

func (s *weeklyRepoStub) Update(ctx context.Context, config *models.WeeklyScheduleConfig) error {
	s.updated = config
	return nil
}

func (s *weeklyRepoStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type specialRepoStub struct {
	schedules map[string]*models.SpecialSchedule
	dates     map[string]string
	created   *models.SpecialSchedule
	updated   *models.SpecialSchedule
}

func (s *specialRepoStub) List(ctx context.Context) ([]models.SpecialSchedule, error) {
	var out []models.SpecialSchedule
	for _, sc := range s.schedules {
		out = append(out, *sc)
	}
	return out, nil
}

func (s *specialRepoStub) FindByID(ctx context.Context, id string) (*models.SpecialSchedule, error) {
	if sc, ok := s.schedules[id]; ok {
		copied := *sc
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *specialRepoStub) FindByDate(ctx context.Context, date string) (*models.SpecialSchedule, error) {
	if id, ok := s.dates[date]; ok {
		return s.FindByID(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (s *specialRepoStub) ExistsDate(ctx context.Context, date, excludeID string) (bool, error) {
	id, ok := s.dates[date]
	return ok && id != excludeID, nil
}

func (s *specialRepoStub) Create(ctx context.Context, schedule *models.SpecialSchedule) error {
	schedule.ID = "sp-new"
	s.created = schedule
	return nil
}

func (s *specialRepoStub) Update(ctx context.Context, schedule *models.SpecialSchedule) error {
	s.updated = schedule
	return nil
}

func (s *specialRepoStub) Delete(ctx context.Context, id string) error {
	delete(s.schedules, id)
	return nil
}

type cacheStub struct {
	deletedKeys     []string
	deletedPatterns []string
}

func (s *cacheStub) Get(ctx context.Context, key string, dest interface{}) error { return nil }

func (s *cacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (s *cacheStub) Delete(ctx context.Context, keys ...string) error {
	s.deletedKeys = append(s.deletedKeys, keys...)
	return nil
}

func (s *cacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.deletedPatterns = append(s.deletedPatterns, pattern)
	return nil
}

func validWeeklyRequest() WeeklyConfigRequest {
	return WeeklyConfigRequest{
		DayOfWeek:        1,
		StartTime:        "08:00",
		EndTime:          "17:00",
		IntervalMinutes:  30,
		SlotsPerInterval: 2,
		IsActive:         true,
	}
}

func validSpecialRequest() SpecialScheduleRequest {
	return SpecialScheduleRequest{
		ScheduleDate:     "2025-06-02",
		StartTime:        "10:00",
		EndTime:          "14:00",
		IntervalMinutes:  60,
		SlotsPerInterval: 5,
		IsActive:         true,
	}
}

func TestCreateWeeklyInvalidatesCache(t *testing.T) {
	weekly := &weeklyRepoStub{days: map[int]string{}}
	cache := &cacheStub{}
	svc := NewScheduleService(weekly, &specialRepoStub{}, cache, nil, nil)

	config, err := svc.CreateWeekly(context.Background(), validWeeklyRequest())
	require.NoError(t, err)
	assert.Equal(t, "w-new", config.ID)
	assert.Equal(t, 1, config.DayOfWeek)
	assert.Equal(t, []string{"availability:*"}, cache.deletedPatterns)
}

func TestCreateWeeklyDuplicateDay(t *testing.T) {
	weekly := &weeklyRepoStub{days: map[int]string{1: "w1"}}
	svc := NewScheduleService(weekly, &specialRepoStub{}, nil, nil, nil)

	_, err := svc.CreateWeekly(context.Background(), validWeeklyRequest())
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
	assert.Nil(t, weekly.created)
}

func TestCreateWeeklyInvertedRange(t *testing.T) {
	svc := NewScheduleService(&weeklyRepoStub{}, &specialRepoStub{}, nil, nil, nil)

	req := validWeeklyRequest()
	req.StartTime = "17:00"
	req.EndTime = "08:00"
	_, err := svc.CreateWeekly(context.Background(), req)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestUpdateWeeklyKeepsOwnDay(t *testing.T) {
	weekly := &weeklyRepoStub{
		configs: map[string]*models.WeeklyScheduleConfig{"w1": {ID: "w1", DayOfWeek: 1}},
		days:    map[int]string{1: "w1"},
	}
	svc := NewScheduleService(weekly, &specialRepoStub{}, nil, nil, nil)

	config, err := svc.UpdateWeekly(context.Background(), "w1", validWeeklyRequest())
	require.NoError(t, err)
	assert.Equal(t, "17:00", config.EndTime)
	require.NotNil(t, weekly.updated)
}

func TestUpdateWeeklyNotFound(t *testing.T) {
	svc := NewScheduleService(&weeklyRepoStub{}, &specialRepoStub{}, nil, nil, nil)

	_, err := svc.UpdateWeekly(context.Background(), "missing", validWeeklyRequest())
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCreateSpecialDuplicateDate(t *testing.T) {
	special := &specialRepoStub{dates: map[string]string{"2025-06-02": "sp1"}}
	svc := NewScheduleService(&weeklyRepoStub{}, special, nil, nil, nil)

	_, err := svc.CreateSpecial(context.Background(), validSpecialRequest())
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestCreateSpecialRestrictedKeepsAllowList(t *testing.T) {
	special := &specialRepoStub{dates: map[string]string{}}
	cache := &cacheStub{}
	svc := NewScheduleService(&weeklyRepoStub{}, special, cache, nil, nil)

	req := validSpecialRequest()
	req.RestrictedAccess = true
	req.AuthorizedUserIDs = []string{"u-vip"}
	schedule, err := svc.CreateSpecial(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"u-vip"}, schedule.AuthorizedUserIDs)
	assert.Contains(t, cache.deletedKeys, "availability:2025-06-02")
}

func TestUpdateSpecialUnrestrictingClearsAllowList(t *testing.T) {
	special := &specialRepoStub{
		schedules: map[string]*models.SpecialSchedule{"sp1": {
			ID:                "sp1",
			ScheduleDate:      "2025-06-02",
			RestrictedAccess:  true,
			AuthorizedUserIDs: []string{"u-vip"},
		}},
		dates: map[string]string{"2025-06-02": "sp1"},
	}
	svc := NewScheduleService(&weeklyRepoStub{}, special, nil, nil, nil)

	schedule, err := svc.UpdateSpecial(context.Background(), "sp1", validSpecialRequest())
	require.NoError(t, err)
	assert.False(t, schedule.RestrictedAccess)
	assert.Nil(t, schedule.AuthorizedUserIDs)
}
