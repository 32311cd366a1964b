package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"showtime-booking/internal/data/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *Store, labels ...string) (*entity.Showtime, []*entity.Seat) {
	t.Helper()
	repo := s.Repository()
	ctx := context.Background()

	showtime := &entity.Showtime{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()},
		StartTime:    time.Now().Add(time.Hour),
		EndTime:      time.Now().Add(3 * time.Hour),
		TotalSeats:   len(labels),
		Available:    len(labels),
	}
	require.NoError(t, repo.Showtime.Create(ctx, showtime))

	seats := make([]*entity.Seat, len(labels))
	for i, l := range labels {
		seats[i] = &entity.Seat{
			BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()},
			ShowtimeID:   showtime.ID,
			Label:        l,
			Price:        decimal.NewFromInt(10),
		}
	}
	require.NoError(t, repo.Seat.CreateBatch(ctx, seats))
	return showtime, seats
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := NewStore()
	repo := s.Repository()
	ctx := context.Background()
	showtime, seats := seed(t, s, "A1", "A2")

	boom := errors.New("boom")
	err := repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		ok, err := repo.Showtime.DecrementAvailable(ctx, showtime.ID, 1)
		require.NoError(t, err)
		require.True(t, ok)
		_, err = repo.Seat.MarkBooked(ctx, showtime.ID, []uuid.UUID{seats[0].ID})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	st, err := repo.Showtime.FindByID(ctx, showtime.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Available)
	booked, err := repo.Seat.CountBooked(ctx, showtime.ID)
	require.NoError(t, err)
	assert.Zero(t, booked)
}

func TestWithTx_NestedJoinsOuter(t *testing.T) {
	s := NewStore()
	repo := s.Repository()
	ctx := context.Background()
	showtime, _ := seed(t, s, "A1")

	boom := errors.New("boom")
	err := repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		err := repo.Tx.WithTx(ctx, func(ctx context.Context) error {
			_, err := repo.Showtime.DecrementAvailable(ctx, showtime.ID, 1)
			return err
		})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	st, err := repo.Showtime.FindByID(ctx, showtime.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Available, "inner work is undone with the outer transaction")
}

func TestSeatGuards(t *testing.T) {
	s := NewStore()
	repo := s.Repository()
	ctx := context.Background()
	showtime, seats := seed(t, s, "A1", "A2")

	n, err := repo.Seat.MarkBooked(ctx, showtime.ID, []uuid.UUID{seats[0].ID, seats[0].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Seat.MarkBooked(ctx, showtime.ID, []uuid.UUID{seats[0].ID, seats[1].ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "already booked seat is not counted")

	ok, err := repo.Showtime.DecrementAvailable(ctx, showtime.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	require.Error(t, repo.Showtime.IncrementAvailable(ctx, showtime.ID, 1), "counter cannot exceed capacity")
}

func TestFindByShowtime_NaturalOrder(t *testing.T) {
	s := NewStore()
	showtime, _ := seed(t, s, "B1", "A10", "A2", "A1")

	seats, err := s.Repository().Seat.FindByShowtime(context.Background(), showtime.ID)
	require.NoError(t, err)

	labels := make([]string, len(seats))
	for i, seat := range seats {
		labels[i] = seat.Label
	}
	assert.Equal(t, []string{"A1", "A2", "A10", "B1"}, labels)
}

func TestBookingSeats_AttachRejectsHeldSeat(t *testing.T) {
	s := NewStore()
	repo := s.Repository()
	ctx := context.Background()
	showtime, seats := seed(t, s, "A1", "A2")

	first := &entity.Booking{BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()}, ShowtimeID: showtime.ID, Status: entity.BookingStatusPending}
	second := &entity.Booking{BaseNoDelete: entity.BaseNoDelete{ID: uuid.New()}, ShowtimeID: showtime.ID, Status: entity.BookingStatusPending}
	require.NoError(t, repo.Booking.Create(ctx, first))
	require.NoError(t, repo.Booking.Create(ctx, second))

	require.NoError(t, repo.BookingSeat.Attach(ctx, first.ID, []uuid.UUID{seats[0].ID}))
	require.Error(t, repo.BookingSeat.Attach(ctx, second.ID, []uuid.UUID{seats[0].ID}))

	got, err := repo.Booking.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1"}, got.SeatLabels())

	require.NoError(t, repo.BookingSeat.DeleteByBookingID(ctx, first.ID))
	got, err = repo.Booking.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Seats)
}
