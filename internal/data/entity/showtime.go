package entity

import (
	"time"

	"github.com/google/uuid"
)

type Showtime struct {
	BaseNoDelete
	MovieID      uuid.UUID `db:"movie_id"`
	AuditoriumID uuid.UUID `db:"auditorium_id"`
	StartTime    time.Time `db:"start_time"`
	EndTime      time.Time `db:"end_time"`
	TotalSeats   int       `db:"total_seats"`     // copied from the auditorium at creation
	Available    int       `db:"available_seats"` // cached; only the reservation engine mutates it
}

func (s *Showtime) HasStarted(now time.Time) bool {
	return s.StartTime.Before(now)
}

func (s *Showtime) HasEnded(now time.Time) bool {
	return !s.EndTime.After(now)
}
