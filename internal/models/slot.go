package models

import "time"

// TimeSlot is a materialized (date, time) bookable unit carrying capacity.
// Invariant: 0 <= available_capacity <= total_capacity, and available equals
// total minus the sum of slots_reserved over the slot's active reservations.
type TimeSlot struct {
	ID                string    `db:"id" json:"id"`
	SlotDate          string    `db:"slot_date" json:"slot_date"`
	SlotTime          string    `db:"slot_time" json:"slot_time"`
	TotalCapacity     int       `db:"total_capacity" json:"total_capacity"`
	AvailableCapacity int       `db:"available_capacity" json:"available_capacity"`
	IsActive          bool      `db:"is_active" json:"is_active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// IsFull reports whether the slot has no remaining capacity.
func (s *TimeSlot) IsFull() bool {
	return s.AvailableCapacity <= 0
}

// SlotAvailability is one entry of the resolved availability for a date.
type SlotAvailability struct {
	ID                string `json:"id,omitempty"`
	Time              string `json:"time"`
	TotalCapacity     int    `json:"total_capacity"`
	AvailableCapacity int    `json:"available_capacity"`
	IsActive          bool   `json:"is_active"`
}

// DayAvailability is the full availability answer for a date, including the
// whole-day block verdict surfaced to the caller.
type DayAvailability struct {
	Date        string             `json:"date"`
	IsBlocked   bool               `json:"is_blocked"`
	BlockReason string             `json:"block_reason,omitempty"`
	Slots       []SlotAvailability `json:"slots"`
}
