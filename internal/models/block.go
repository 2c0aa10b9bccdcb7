package models

import "time"

// BlockedDateType tags the reason category for a whole-day block.
type BlockedDateType string

const (
	BlockedDateHoliday     BlockedDateType = "HOLIDAY"
	BlockedDateMaintenance BlockedDateType = "MAINTENANCE"
	BlockedDateOther       BlockedDateType = "OTHER"
)

// BlockedDate removes an entire calendar date from availability.
// At most one active block may exist per date.
type BlockedDate struct {
	ID          string          `db:"id" json:"id"`
	BlockedDate string          `db:"blocked_date" json:"blocked_date"`
	Reason      string          `db:"reason" json:"reason"`
	BlockType   BlockedDateType `db:"block_type" json:"block_type"`
	IsActive    bool            `db:"is_active" json:"is_active"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// BlockedSlot removes a half-open time range [start, end) from availability,
// either on a single date (Date set) or recurring on every date (Date nil).
type BlockedSlot struct {
	ID          string    `db:"id" json:"id"`
	BlockedDate *string   `db:"blocked_date" json:"blocked_date,omitempty"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	Reason      string    `db:"reason" json:"reason"`
	IsRecurring bool      `db:"is_recurring" json:"is_recurring"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Covers reports whether the given time of day falls inside the blocked range.
func (b *BlockedSlot) Covers(timeOfDay string) bool {
	return b != nil && b.StartTime <= timeOfDay && timeOfDay < b.EndTime
}
