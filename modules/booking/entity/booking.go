package entity

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusScheduled  BookingStatus = "scheduled"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusFinished   BookingStatus = "finished"
	BookingStatusCanceled   BookingStatus = "canceled"
)

var BookingStatuses = []BookingStatus{
	BookingStatusScheduled,
	BookingStatusConfirmed,
	BookingStatusInProgress,
	BookingStatusFinished,
	BookingStatusCanceled,
}

func (s BookingStatus) Valid() bool {
	for _, known := range BookingStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Booking is a court reservation. EndsAt equal to the next local midnight
// encodes "until the end of the day".
type Booking struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	TenantID         uuid.UUID     `db:"tenant_id" json:"tenant_id"`
	CourtID          uuid.UUID     `db:"court_id" json:"court_id"`
	CourtName        string        `db:"court_name" json:"court_name"`
	StartsAt         time.Time     `db:"starts_at" json:"starts_at"`
	EndsAt           time.Time     `db:"ends_at" json:"ends_at"`
	Status           BookingStatus `db:"status" json:"status"`
	Modality         string        `db:"modality" json:"modality"`
	ClientID         *uuid.UUID    `db:"client_id" json:"client_id,omitempty"`
	ClientName       *string       `db:"client_name" json:"client_name,omitempty"`
	ResponsibleLabel string        `db:"responsible_label" json:"responsible_label"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// Responsible returns the display name of whoever answers for the booking.
func (b *Booking) Responsible() string {
	if b.ClientName != nil && *b.ClientName != "" {
		return *b.ClientName
	}
	return b.ResponsibleLabel
}

// BookingFilter narrows booking listings. Nil bounds are open.
type BookingFilter struct {
	From       *time.Time
	To         *time.Time
	Statuses   []BookingStatus
	CourtID    *uuid.UUID
	ClientName string
	Limit      int
	Offset     int
}

// BookingPatch holds the only fields a booking update may touch.
type BookingPatch struct {
	StartsAt *time.Time
	EndsAt   *time.Time
	Status   *BookingStatus
	Modality *string
}

func (p BookingPatch) Empty() bool {
	return p.StartsAt == nil && p.EndsAt == nil && p.Status == nil && p.Modality == nil
}

// Participant is a person attached to a booking.
type Participant struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	TenantID      uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	BookingID     uuid.UUID  `db:"booking_id" json:"booking_id"`
	ClientID      *uuid.UUID `db:"client_id" json:"client_id,omitempty"`
	Name          string     `db:"name" json:"name"`
	IsResponsible bool       `db:"is_responsible" json:"is_responsible"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}
