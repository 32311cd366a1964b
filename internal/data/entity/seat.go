package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Seat struct {
	BaseNoDelete
	ShowtimeID uuid.UUID       `db:"showtime_id"`
	Label      string          `db:"label"` // A1, A2, B1, etc.
	Booked     bool            `db:"booked"`
	Price      decimal.Decimal `db:"price"`
}

// SumPrices returns the total price of the given seats.
func SumPrices(seats []*Seat) decimal.Decimal {
	total := decimal.Zero
	for _, s := range seats {
		total = total.Add(s.Price)
	}
	return total
}
