package models

import "time"

// Dates are carried as zero-padded "2006-01-02" strings and times of day as
// zero-padded "15:04" strings throughout the booking core. Both orderings
// coincide with lexicographic order, which the range checks rely on.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Interval and capacity bounds for the weekly recurring template.
const (
	WeeklyIntervalMin = 15
	WeeklyIntervalMax = 120
	WeeklySlotsMin    = 1
	WeeklySlotsMax    = 20
)

// Special schedules allow wider windows than the weekly template.
const (
	SpecialIntervalMax = 240
	SpecialSlotsMax    = 50
)

// WeeklyScheduleConfig is the recurring slot template for one day of week.
// At most one configuration exists per day_of_week (0 = Sunday .. 6 = Saturday).
type WeeklyScheduleConfig struct {
	ID               string    `db:"id" json:"id"`
	DayOfWeek        int       `db:"day_of_week" json:"day_of_week"`
	StartTime        string    `db:"start_time" json:"start_time"`
	EndTime          string    `db:"end_time" json:"end_time"`
	IntervalMinutes  int       `db:"interval_minutes" json:"interval_minutes"`
	SlotsPerInterval int       `db:"slots_per_interval" json:"slots_per_interval"`
	IsActive         bool      `db:"is_active" json:"is_active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// SpecialSchedule overrides the weekly template for a single calendar date.
// When RestrictedAccess is set only users in the authorized set may see or
// book its slots.
type SpecialSchedule struct {
	ID               string    `db:"id" json:"id"`
	ScheduleDate     string    `db:"schedule_date" json:"schedule_date"`
	StartTime        string    `db:"start_time" json:"start_time"`
	EndTime          string    `db:"end_time" json:"end_time"`
	IntervalMinutes  int       `db:"interval_minutes" json:"interval_minutes"`
	SlotsPerInterval int       `db:"slots_per_interval" json:"slots_per_interval"`
	IsActive         bool      `db:"is_active" json:"is_active"`
	RestrictedAccess bool      `db:"restricted_access" json:"restricted_access"`
	Description      *string   `db:"description" json:"description,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`

	// AuthorizedUserIDs is loaded from the join table; empty unless
	// RestrictedAccess is set.
	AuthorizedUserIDs []string `db:"-" json:"authorized_user_ids,omitempty"`
}

// AllowsUser is the special-access guard: unrestricted schedules are open to
// everyone, restricted ones only to users in the authorized set.
func (s *SpecialSchedule) AllowsUser(userID string) bool {
	if s == nil {
		return false
	}
	if !s.RestrictedAccess {
		return true
	}
	for _, id := range s.AuthorizedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// SlotTemplate is one resolver-produced candidate slot for a date: a start
// time plus the capacity it should be materialized with.
type SlotTemplate struct {
	Time     string `json:"time"`
	Capacity int    `json:"capacity"`
}
