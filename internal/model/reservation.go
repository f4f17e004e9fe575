package model

import "time"

// Reservation statuses. StatusTerminated is the only one that is authoritative
// as stored; the others are recomputed from the interval and the current time
// for display (see internal/status).
const (
	StatusUpcoming   = "upcoming"
	StatusActive     = "active"
	StatusCompleted  = "completed"
	StatusTerminated = "terminated"
)

// Reservation is a booked time window on a device (hot table).
// Invariant: StartsAt < EndsAt, and for any device the intervals of
// non-terminated reservations are pairwise disjoint.
type Reservation struct {
	ID       string    `gorm:"primaryKey;size:64" json:"id"`
	DeviceID string    `gorm:"index;size:64;not null" json:"device_id"`
	Owner    string    `gorm:"index;size:128;not null" json:"owner"`
	StartsAt time.Time `gorm:"not null" json:"starts_at"`
	EndsAt   time.Time `gorm:"not null" json:"ends_at"`
	Status   string    `gorm:"size:16;not null" json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	Device Device `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// ReservationHistory is the archived record of a finished reservation
// (cold table). Rows are written by the sweep task and never mutated.
type ReservationHistory struct {
	ID            int64     `gorm:"autoIncrement;primaryKey"`
	ReservationID string    `gorm:"index;size:64;not null" json:"reservation_id"`
	DeviceID      string    `gorm:"index;size:64;not null" json:"device_id"`
	Owner         string    `gorm:"index;size:128;not null" json:"owner"`
	StartsAt      time.Time `gorm:"not null" json:"starts_at"`
	EndsAt        time.Time `gorm:"not null" json:"ends_at"`
	Status        string    `gorm:"size:16;not null" json:"status"`
	ArchivedAt    time.Time `gorm:"not null;index" json:"archived_at"`
}
