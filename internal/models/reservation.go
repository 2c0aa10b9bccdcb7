package models

import (
	"time"

	"github.com/lib/pq"
)

// ReservationStatus enumerates the reservation lifecycle states. ACTIVE is
// the only non-terminal state.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationCompleted ReservationStatus = "COMPLETED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

// Reservation consumes slots_reserved units of one TimeSlot.
type Reservation struct {
	ID               string            `db:"id" json:"id"`
	TimeSlotID       string            `db:"time_slot_id" json:"time_slot_id"`
	UserID           string            `db:"user_id" json:"user_id"`
	TransporterName  string            `db:"transporter_name" json:"transporter_name"`
	TruckPlate       string            `db:"truck_plate" json:"truck_plate"`
	BookingNumber    string            `db:"booking_number" json:"booking_number"`
	ContainerNumbers pq.StringArray    `db:"container_numbers" json:"container_numbers"`
	SlotsReserved    int               `db:"slots_reserved" json:"slots_reserved"`
	Status           ReservationStatus `db:"status" json:"status"`
	Notes            *string           `db:"notes" json:"notes,omitempty"`
	CancelReason     *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CompletedBy      *string           `db:"completed_by" json:"completed_by,omitempty"`
	CompletedAt      *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
	CancelledBy      *string           `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelledAt      *time.Time        `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// ReservationDetail joins the reservation with its slot's schedule.
type ReservationDetail struct {
	Reservation
	SlotDate string `db:"slot_date" json:"slot_date"`
	SlotTime string `db:"slot_time" json:"slot_time"`
}

// EffectiveStatus derives the externally observed status: a reservation still
// ACTIVE more than the grace period past its scheduled (date, time) reads as
// EXPIRED even if the sweep has not materialized it yet.
func (r *ReservationDetail) EffectiveStatus(now time.Time, grace time.Duration) ReservationStatus {
	if r.Status != ReservationActive {
		return r.Status
	}
	scheduled, err := time.ParseInLocation(DateLayout+" "+TimeLayout, r.SlotDate+" "+r.SlotTime, now.Location())
	if err != nil {
		return r.Status
	}
	if now.After(scheduled.Add(grace)) {
		return ReservationExpired
	}
	return ReservationActive
}

// ReservationFilter captures listing criteria.
type ReservationFilter struct {
	UserID    string
	Status    ReservationStatus
	DateFrom  string
	DateTo    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
