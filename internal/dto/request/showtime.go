package request

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProvisionShowtimeRequest struct {
	MovieID      string          `json:"movie_id" validate:"required,uuid"`
	AuditoriumID string          `json:"auditorium_id" validate:"required,uuid"`
	StartTime    time.Time       `json:"start_time" validate:"required"`
	EndTime      time.Time       `json:"end_time" validate:"required,gtfield=StartTime"`
	Capacity     int             `json:"capacity" validate:"required,gt=0"`
	Price        decimal.Decimal `json:"price"`
	Rows         []SeatRow       `json:"rows" validate:"omitempty,dive"`
}

// SeatRow describes one row of the auditorium. Price overrides the showtime
// default when set.
type SeatRow struct {
	Label string           `json:"label" validate:"required,alpha,uppercase,max=3"`
	Seats int              `json:"seats" validate:"required,gt=0"`
	Price *decimal.Decimal `json:"price,omitempty"`
}
