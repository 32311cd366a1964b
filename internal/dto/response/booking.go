package response

import (
	"time"

	"showtime-booking/internal/data/entity"

	"github.com/shopspring/decimal"
)

type SeatResponse struct {
	ID     string          `json:"id"`
	Label  string          `json:"label"`
	Price  decimal.Decimal `json:"price"`
	Booked bool            `json:"booked"`
}

type BookingResponse struct {
	ID         string               `json:"id"`
	UserID     string               `json:"user_id"`
	ShowtimeID string               `json:"showtime_id"`
	Seats      []SeatResponse       `json:"seats"`
	Cost       decimal.Decimal      `json:"cost"`
	Status     entity.BookingStatus `json:"status"`
	Attended   bool                 `json:"attended"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// Helper converters
func SeatToResponse(s *entity.Seat) SeatResponse {
	return SeatResponse{
		ID:     s.ID.String(),
		Label:  s.Label,
		Price:  s.Price,
		Booked: s.Booked,
	}
}

func SeatsToResponse(seats []*entity.Seat) []SeatResponse {
	out := make([]SeatResponse, len(seats))
	for i, s := range seats {
		out[i] = SeatToResponse(s)
	}
	return out
}

func BookingToResponse(b *entity.Booking) BookingResponse {
	return BookingResponse{
		ID:         b.ID.String(),
		UserID:     b.UserID.String(),
		ShowtimeID: b.ShowtimeID.String(),
		Seats:      SeatsToResponse(b.Seats),
		Cost:       b.Cost,
		Status:     b.Status,
		Attended:   b.Attended,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}
