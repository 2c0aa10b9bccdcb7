package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/terminalgate/gate-api/internal/models"
)

func TestTimeRangeOverlaps(t *testing.T) {
	cases := []struct {
		name     string
		start    string
		end      string
		start2   string
		end2     string
		overlaps bool
	}{
		{"disjoint before", "08:00", "09:00", "10:00", "11:00", false},
		{"disjoint after", "12:00", "13:00", "10:00", "11:00", false},
		{"candidate ends at existing start", "08:00", "10:00", "10:00", "11:00", false},
		{"candidate starts at existing end", "11:00", "12:00", "10:00", "11:00", false},
		{"candidate starts inside", "10:30", "12:00", "10:00", "11:00", true},
		{"candidate ends inside", "09:00", "10:30", "10:00", "11:00", true},
		{"candidate inside existing", "10:15", "10:45", "10:00", "11:00", true},
		{"candidate contains existing", "09:00", "12:00", "10:00", "11:00", true},
		{"identical ranges", "10:00", "11:00", "10:00", "11:00", true},
		{"shared start", "10:00", "10:30", "10:00", "11:00", true},
		{"shared end", "10:30", "11:00", "10:00", "11:00", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.overlaps, timeRangeOverlaps(tc.start, tc.end, tc.start2, tc.end2))
		})
	}
}

func TestFirstOverlapping(t *testing.T) {
	rows := []models.BlockedSlot{
		{ID: "b1", StartTime: "08:00", EndTime: "09:00"},
		{ID: "b2", StartTime: "12:00", EndTime: "13:00"},
	}

	hit := firstOverlapping("12:30", "14:00", rows)
	if assert.NotNil(t, hit) {
		assert.Equal(t, "b2", hit.ID)
	}

	assert.Nil(t, firstOverlapping("09:00", "12:00", rows))
	assert.Nil(t, firstOverlapping("10:00", "11:00", nil))
}
