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

type timeSlotRepoStub struct {
	rows      map[string]*models.TimeSlot
	generated map[string][]models.SlotTemplate
	insertErr error

	capacityErr error
	activeCalls []bool
}

func (s *timeSlotRepoStub) ListByDate(ctx context.Context, date string) ([]models.TimeSlot, error) {
	return nil, nil
}

func (s *timeSlotRepoStub) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	if slot, ok := s.rows[id]; ok {
		return slot, nil
	}
	return nil, sql.ErrNoRows
}

func (s *timeSlotRepoStub) InsertForDate(ctx context.Context, date string, templates []models.SlotTemplate) (int, error) {
	if s.insertErr != nil {
		return 0, s.insertErr
	}
	if _, exists := s.generated[date]; exists {
		return 0, appErrors.Clone(appErrors.ErrAlreadyExists, "slots already generated for date")
	}
	if s.generated == nil {
		s.generated = make(map[string][]models.SlotTemplate)
	}
	s.generated[date] = templates
	return len(templates), nil
}

func (s *timeSlotRepoStub) SetTotalCapacity(ctx context.Context, slotID string, newTotal int) (*models.TimeSlot, error) {
	if s.capacityErr != nil {
		return nil, s.capacityErr
	}
	slot, ok := s.rows[slotID]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
	}
	reserved := slot.TotalCapacity - slot.AvailableCapacity
	slot.TotalCapacity = newTotal
	slot.AvailableCapacity = newTotal - reserved
	return slot, nil
}

func (s *timeSlotRepoStub) SetActive(ctx context.Context, slotID string, active bool) error {
	slot, ok := s.rows[slotID]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
	}
	slot.IsActive = active
	s.activeCalls = append(s.activeCalls, active)
	return nil
}

type resolverStub struct {
	templates []models.SlotTemplate
	err       error
}

func (s resolverStub) TemplatesForGeneration(ctx context.Context, date string) ([]models.SlotTemplate, error) {
	return s.templates, s.err
}

func defaultWindow() GenerationDefaults {
	return GenerationDefaults{StartTime: "08:00", EndTime: "18:00", IntervalMinutes: 30, Capacity: 2}
}

func TestGenerateForDateUsesResolvedTemplates(t *testing.T) {
	repo := &timeSlotRepoStub{}
	resolver := resolverStub{templates: []models.SlotTemplate{
		{Time: "08:00", Capacity: 3},
		{Time: "08:30", Capacity: 3},
	}}
	svc := NewSlotService(repo, resolver, nil, defaultWindow(), nil, nil, nil)

	created, err := svc.GenerateForDate(context.Background(), testDate)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Len(t, repo.generated[testDate], 2)
}

func TestGenerateForDateFallsBackToDefaultWindow(t *testing.T) {
	repo := &timeSlotRepoStub{}
	svc := NewSlotService(repo, resolverStub{}, nil, defaultWindow(), nil, nil, nil)

	created, err := svc.GenerateForDate(context.Background(), testDate)
	require.NoError(t, err)
	// 08:00 through 17:30 at 30 minute steps.
	assert.Equal(t, 20, created)
	assert.Equal(t, 2, repo.generated[testDate][0].Capacity)
}

func TestGenerateForDateIdempotent(t *testing.T) {
	repo := &timeSlotRepoStub{}
	resolver := resolverStub{templates: []models.SlotTemplate{{Time: "08:00", Capacity: 2}}}
	svc := NewSlotService(repo, resolver, nil, defaultWindow(), nil, nil, nil)

	_, err := svc.GenerateForDate(context.Background(), testDate)
	require.NoError(t, err)

	_, err = svc.GenerateForDate(context.Background(), testDate)
	assert.True(t, appErrors.Is(err, appErrors.ErrAlreadyExists))
	assert.Len(t, repo.generated[testDate], 1)
}

func TestGenerateForDatePropagatesBlockedDate(t *testing.T) {
	resolver := resolverStub{err: appErrors.Clone(appErrors.ErrDateBlocked, "date is blocked")}
	svc := NewSlotService(&timeSlotRepoStub{}, resolver, nil, defaultWindow(), nil, nil, nil)

	_, err := svc.GenerateForDate(context.Background(), testDate)
	assert.True(t, appErrors.Is(err, appErrors.ErrDateBlocked))
}

func TestSetTotalCapacityResizes(t *testing.T) {
	repo := &timeSlotRepoStub{rows: map[string]*models.TimeSlot{
		"ts1": {ID: "ts1", SlotDate: testDate, SlotTime: "08:00", TotalCapacity: 4, AvailableCapacity: 1, IsActive: true},
	}}
	svc := NewSlotService(repo, resolverStub{}, nil, defaultWindow(), nil, nil, nil)

	slot, err := svc.SetTotalCapacity(context.Background(), "ts1", SetCapacityRequest{TotalCapacity: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, slot.TotalCapacity)
	// Three units were reserved, so seven remain available.
	assert.Equal(t, 7, slot.AvailableCapacity)
}

func TestSetTotalCapacityBelowReserved(t *testing.T) {
	repo := &timeSlotRepoStub{capacityErr: appErrors.Clone(appErrors.ErrInvalidCapacity, "capacity below reserved amount")}
	svc := NewSlotService(repo, resolverStub{}, nil, defaultWindow(), nil, nil, nil)

	_, err := svc.SetTotalCapacity(context.Background(), "ts1", SetCapacityRequest{TotalCapacity: 1})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCapacity))
}

func TestSetActiveTogglesSlot(t *testing.T) {
	repo := &timeSlotRepoStub{rows: map[string]*models.TimeSlot{
		"ts1": {ID: "ts1", SlotDate: testDate, SlotTime: "08:00", TotalCapacity: 2, AvailableCapacity: 2, IsActive: true},
	}}
	svc := NewSlotService(repo, resolverStub{}, nil, defaultWindow(), nil, nil, nil)

	slot, err := svc.SetActive(context.Background(), "ts1", false)
	require.NoError(t, err)
	assert.False(t, slot.IsActive)

	_, err = svc.SetActive(context.Background(), "missing", true)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
