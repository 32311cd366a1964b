package usecase

import (
	"testing"
	"time"

	"showtime-booking/internal/dto/request"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func provisionReq(capacity int, rows ...request.SeatRow) *request.ProvisionShowtimeRequest {
	start := time.Date(2026, 4, 1, 19, 0, 0, 0, time.UTC)
	return &request.ProvisionShowtimeRequest{
		MovieID:      uuid.NewString(),
		AuditoriumID: uuid.NewString(),
		StartTime:    start,
		EndTime:      start.Add(2 * time.Hour),
		Capacity:     capacity,
		Rows:         rows,
	}
}

func TestProvisionShowtime_DefaultLayout(t *testing.T) {
	env := newTestEnv(t)

	seatMap, err := env.service.Showtime.ProvisionShowtime(env.ctx, provisionReq(23))
	require.NoError(t, err)

	assert.Equal(t, 23, seatMap.TotalSeats)
	assert.Equal(t, 23, seatMap.AvailableSeats)
	require.Len(t, seatMap.Seats, 23)
	assert.Equal(t, "A1", seatMap.Seats[0].Label)
	assert.Equal(t, "A10", seatMap.Seats[9].Label)
	assert.Equal(t, "C3", seatMap.Seats[22].Label)
	assert.True(t, seatMap.Seats[0].Price.Equal(decimal.RequireFromString("10.00")))

	stored, err := env.repo.Seat.FindByShowtime(env.ctx, uuid.MustParse(seatMap.ID))
	require.NoError(t, err)
	assert.Len(t, stored, 23)
}

func TestProvisionShowtime_CustomRows(t *testing.T) {
	env := newTestEnv(t)
	vip := decimal.RequireFromString("18.50")

	seatMap, err := env.service.Showtime.ProvisionShowtime(env.ctx, provisionReq(5,
		request.SeatRow{Label: "A", Seats: 3},
		request.SeatRow{Label: "B", Seats: 2, Price: &vip},
	))
	require.NoError(t, err)

	require.Len(t, seatMap.Seats, 5)
	assert.Equal(t, "B2", seatMap.Seats[4].Label)
	assert.True(t, seatMap.Seats[4].Price.Equal(vip))
}

func TestProvisionShowtime_Rejections(t *testing.T) {
	env := newTestEnv(t)

	badEnd := provisionReq(4)
	badEnd.EndTime = badEnd.StartTime.Add(-time.Minute)

	negative := provisionReq(4)
	negative.Price = decimal.RequireFromString("-1")

	tests := []struct {
		name string
		req  *request.ProvisionShowtimeRequest
	}{
		{name: "zero capacity", req: provisionReq(0)},
		{name: "end before start", req: badEnd},
		{name: "negative price", req: negative},
		{name: "rows do not sum to capacity", req: provisionReq(4, request.SeatRow{Label: "A", Seats: 3})},
		{name: "duplicate row", req: provisionReq(4, request.SeatRow{Label: "A", Seats: 2}, request.SeatRow{Label: "A", Seats: 2})},
		{name: "lowercase row", req: provisionReq(2, request.SeatRow{Label: "a", Seats: 2})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.service.Showtime.ProvisionShowtime(env.ctx, tt.req)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestGetSeatMap(t *testing.T) {
	env := newTestEnv(t)
	showtime, seats := env.seedShowtime(t, 3)

	_, err := env.service.Booking.CreateBooking(env.ctx, customer(), createReq(showtime.ID, seats[1]))
	require.NoError(t, err)

	seatMap, err := env.service.Showtime.GetSeatMap(env.ctx, showtime.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, seatMap.AvailableSeats)
	assert.False(t, seatMap.Seats[0].Booked)
	assert.True(t, seatMap.Seats[1].Booked)

	_, err = env.service.Showtime.GetSeatMap(env.ctx, uuid.NewString())
	require.ErrorIs(t, err, ErrShowtimeNotFound)
}

func TestRowLabel(t *testing.T) {
	assert.Equal(t, "A", rowLabel(0))
	assert.Equal(t, "Z", rowLabel(25))
	assert.Equal(t, "AA", rowLabel(26))
	assert.Equal(t, "AB", rowLabel(27))
}
