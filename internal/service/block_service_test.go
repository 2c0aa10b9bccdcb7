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

type blockRepoStub struct {
	dates      map[string]*models.BlockedDate
	slots      map[string]*models.BlockedSlot
	applicable []models.BlockedSlot

	applicableScope   *string
	applicableExclude string
	created           *models.BlockedSlot
	createdDate       *models.BlockedDate
	updated           *models.BlockedSlot
}

func (s *blockRepoStub) FindActiveBlockedDate(ctx context.Context, date string) (*models.BlockedDate, error) {
	for _, blocked := range s.dates {
		if blocked.BlockedDate == date && blocked.IsActive {
			return blocked, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *blockRepoStub) ListBlockedDates(ctx context.Context) ([]models.BlockedDate, error) {
	out := make([]models.BlockedDate, 0, len(s.dates))
	for _, blocked := range s.dates {
		out = append(out, *blocked)
	}
	return out, nil
}

func (s *blockRepoStub) FindBlockedDateByID(ctx context.Context, id string) (*models.BlockedDate, error) {
	if blocked, ok := s.dates[id]; ok {
		return blocked, nil
	}
	return nil, sql.ErrNoRows
}

func (s *blockRepoStub) CreateBlockedDate(ctx context.Context, blocked *models.BlockedDate) error {
	if existing, _ := s.FindActiveBlockedDate(ctx, blocked.BlockedDate); existing != nil && blocked.IsActive {
		return appErrors.Clone(appErrors.ErrConflict, "date is already blocked")
	}
	s.createdDate = blocked
	return nil
}

func (s *blockRepoStub) UpdateBlockedDate(ctx context.Context, blocked *models.BlockedDate) error {
	return nil
}

func (s *blockRepoStub) DeleteBlockedDate(ctx context.Context, id string) error {
	return nil
}

func (s *blockRepoStub) ListBlockedSlots(ctx context.Context) ([]models.BlockedSlot, error) {
	out := make([]models.BlockedSlot, 0, len(s.slots))
	for _, blocked := range s.slots {
		out = append(out, *blocked)
	}
	return out, nil
}

func (s *blockRepoStub) FindBlockedSlotByID(ctx context.Context, id string) (*models.BlockedSlot, error) {
	if blocked, ok := s.slots[id]; ok {
		return blocked, nil
	}
	return nil, sql.ErrNoRows
}

func (s *blockRepoStub) ListActiveApplicable(ctx context.Context, date *string, excludeID string) ([]models.BlockedSlot, error) {
	s.applicableScope = date
	s.applicableExclude = excludeID
	return s.applicable, nil
}

func (s *blockRepoStub) CreateBlockedSlot(ctx context.Context, blocked *models.BlockedSlot) error {
	s.created = blocked
	return nil
}

func (s *blockRepoStub) UpdateBlockedSlot(ctx context.Context, blocked *models.BlockedSlot) error {
	s.updated = blocked
	return nil
}

func (s *blockRepoStub) DeleteBlockedSlot(ctx context.Context, id string) error {
	return nil
}

func datedSlotRequest(date, start, end string) BlockedSlotRequest {
	return BlockedSlotRequest{
		BlockedDate: &date,
		StartTime:   start,
		EndTime:     end,
		Reason:      "crane maintenance",
		IsActive:    true,
	}
}

func TestCreateBlockedSlotRejectsOverlap(t *testing.T) {
	repo := &blockRepoStub{applicable: []models.BlockedSlot{
		{ID: "b1", StartTime: "10:00", EndTime: "11:00", IsActive: true},
	}}
	svc := NewBlockService(repo, nil, nil, nil)

	_, err := svc.CreateBlockedSlot(context.Background(), datedSlotRequest("2025-06-02", "10:30", "12:00"))
	assert.True(t, appErrors.Is(err, appErrors.ErrOverlapping))
	assert.Nil(t, repo.created)
}

func TestCreateBlockedSlotAcceptsBoundaryTouch(t *testing.T) {
	repo := &blockRepoStub{applicable: []models.BlockedSlot{
		{ID: "b1", StartTime: "10:00", EndTime: "11:00", IsActive: true},
	}}
	svc := NewBlockService(repo, nil, nil, nil)

	blocked, err := svc.CreateBlockedSlot(context.Background(), datedSlotRequest("2025-06-02", "11:00", "12:00"))
	require.NoError(t, err)
	assert.Equal(t, "11:00", blocked.StartTime)
	require.NotNil(t, repo.applicableScope)
	assert.Equal(t, "2025-06-02", *repo.applicableScope)
}

func TestCreateBlockedSlotRecurringScope(t *testing.T) {
	repo := &blockRepoStub{}
	svc := NewBlockService(repo, nil, nil, nil)

	_, err := svc.CreateBlockedSlot(context.Background(), BlockedSlotRequest{
		StartTime:   "12:00",
		EndTime:     "13:00",
		Reason:      "lunch window",
		IsRecurring: true,
		IsActive:    true,
	})
	require.NoError(t, err)
	// A recurring candidate is checked against recurring ranges only.
	assert.Nil(t, repo.applicableScope)
}

func TestCreateBlockedSlotValidation(t *testing.T) {
	svc := NewBlockService(&blockRepoStub{}, nil, nil, nil)

	// Inverted range.
	_, err := svc.CreateBlockedSlot(context.Background(), datedSlotRequest("2025-06-02", "12:00", "11:00"))
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	// Recurring with a date.
	date := "2025-06-02"
	_, err = svc.CreateBlockedSlot(context.Background(), BlockedSlotRequest{
		BlockedDate: &date, StartTime: "10:00", EndTime: "11:00",
		Reason: "x", IsRecurring: true,
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	// Dated without a date.
	_, err = svc.CreateBlockedSlot(context.Background(), BlockedSlotRequest{
		StartTime: "10:00", EndTime: "11:00", Reason: "x",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestUpdateBlockedSlotExcludesSelf(t *testing.T) {
	repo := &blockRepoStub{slots: map[string]*models.BlockedSlot{
		"b1": {ID: "b1", StartTime: "10:00", EndTime: "11:00", IsActive: true},
	}}
	svc := NewBlockService(repo, nil, nil, nil)

	date := "2025-06-02"
	_, err := svc.UpdateBlockedSlot(context.Background(), "b1", datedSlotRequest(date, "10:00", "11:30"))
	require.NoError(t, err)
	assert.Equal(t, "b1", repo.applicableExclude)
	require.NotNil(t, repo.updated)
	assert.Equal(t, "11:30", repo.updated.EndTime)
}

func TestCreateBlockedDateConflict(t *testing.T) {
	repo := &blockRepoStub{dates: map[string]*models.BlockedDate{
		"bd1": {ID: "bd1", BlockedDate: "2025-06-02", Reason: "holiday", IsActive: true},
	}}
	svc := NewBlockService(repo, nil, nil, nil)

	_, err := svc.CreateBlockedDate(context.Background(), BlockedDateRequest{
		BlockedDate: "2025-06-02",
		Reason:      "second block",
		BlockType:   models.BlockedDateOther,
		IsActive:    true,
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestUpdateBlockedDateNotFound(t *testing.T) {
	svc := NewBlockService(&blockRepoStub{}, nil, nil, nil)

	_, err := svc.UpdateBlockedDate(context.Background(), "missing", BlockedDateRequest{
		BlockedDate: "2025-06-02",
		Reason:      "holiday",
		BlockType:   models.BlockedDateHoliday,
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
