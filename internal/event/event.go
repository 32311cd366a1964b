// Package event carries booking lifecycle events from the booking service to
// the notification collaborator. Events are emitted only after the owning
// transaction committed; delivery problems never reach the caller.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"showtime-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindCreated          Kind = "booking.created"
	KindSeatsChanged     Kind = "booking.seats_changed"
	KindCancelled        Kind = "booking.cancelled"
	KindExpired          Kind = "booking.expired"
	KindConfirmed        Kind = "booking.confirmed"
	KindAttended         Kind = "booking.attended"
	KindPaymentReminder  Kind = "booking.payment_reminder"
	KindShowtimeReminder Kind = "booking.showtime_reminder"
)

// DefaultTopic is the RabbitMQ queue and Kafka topic name.
const DefaultTopic = "booking.events"

type Event struct {
	ID            uuid.UUID       `json:"id"`
	Kind          Kind            `json:"kind"`
	BookingID     uuid.UUID       `json:"booking_id"`
	UserID        uuid.UUID       `json:"user_id"`
	ShowtimeID    uuid.UUID       `json:"showtime_id"`
	ShowtimeStart time.Time       `json:"showtime_start"`
	SeatLabels    []string        `json:"seat_labels"`
	Cost          decimal.Decimal `json:"cost"`
	Status        string          `json:"status"`
	Reason        string          `json:"reason,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// New snapshots the booking into an event of the given kind.
func New(kind Kind, b *entity.Booking, showtime *entity.Showtime, now time.Time) Event {
	ev := Event{
		ID:         uuid.New(),
		Kind:       kind,
		BookingID:  b.ID,
		UserID:     b.UserID,
		ShowtimeID: b.ShowtimeID,
		SeatLabels: b.SeatLabels(),
		Cost:       b.Cost,
		Status:     string(b.Status),
		OccurredAt: now.UTC(),
	}
	if showtime != nil {
		ev.ShowtimeStart = showtime.StartTime
	}
	return ev
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func Decode(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Kind == "" || ev.UserID == uuid.Nil {
		return Event{}, fmt.Errorf("decode event: missing kind or user")
	}
	return ev, nil
}

// Publisher delivers events to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Handler consumes one event. Returning an error rejects the message.
type Handler func(ctx context.Context, ev Event) error
