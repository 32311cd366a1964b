package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

type Booking struct {
	BaseNoDelete
	UserID     uuid.UUID       `db:"user_id"`
	ShowtimeID uuid.UUID       `db:"showtime_id"`
	Cost       decimal.Decimal `db:"cost"`
	Status     BookingStatus   `db:"status"`
	Attended   bool            `db:"attended"`

	// Seats is populated by the repository from booking_seats; it is empty
	// for a cancelled booking.
	Seats []*Seat `db:"-"`
}

// SeatIDs returns the IDs of the currently held seats.
func (b *Booking) SeatIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(b.Seats))
	for i, s := range b.Seats {
		ids[i] = s.ID
	}
	return ids
}

// SeatLabels returns the labels of the currently held seats.
func (b *Booking) SeatLabels() []string {
	labels := make([]string, len(b.Seats))
	for i, s := range b.Seats {
		labels[i] = s.Label
	}
	return labels
}

func (b *Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelled
}

// AttendanceDue reports whether the booking should be flagged as attended:
// the showtime has ended and the booking was not cancelled.
func (b *Booking) AttendanceDue(showtime *Showtime, now time.Time) bool {
	return !b.Attended && !b.IsCancelled() && showtime != nil && !showtime.EndTime.After(now)
}
