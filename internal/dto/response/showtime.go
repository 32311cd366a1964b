package response

import (
	"time"

	"showtime-booking/internal/data/entity"
)

type ShowtimeResponse struct {
	ID             string    `json:"id"`
	MovieID        string    `json:"movie_id"`
	AuditoriumID   string    `json:"auditorium_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
}

// SeatMapResponse is a read-path view; available_seats may lag behind
// in-flight reservations.
type SeatMapResponse struct {
	ShowtimeResponse
	Seats []SeatResponse `json:"seats"`
}

func ShowtimeToResponse(s *entity.Showtime) ShowtimeResponse {
	return ShowtimeResponse{
		ID:             s.ID.String(),
		MovieID:        s.MovieID.String(),
		AuditoriumID:   s.AuditoriumID.String(),
		StartTime:      s.StartTime,
		EndTime:        s.EndTime,
		TotalSeats:     s.TotalSeats,
		AvailableSeats: s.Available,
	}
}
