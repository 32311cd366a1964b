package repository_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/dto/request"
	"showtime-booking/internal/scheduler"
	"showtime-booking/internal/usecase"
	"showtime-booking/pkg/database"
	"showtime-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// openTestDB connects to the database named by TEST_DB_NAME and applies the
// schema. Tests are skipped when it is not set.
func openTestDB(t *testing.T) database.PgxIface {
	t.Helper()
	name := os.Getenv("TEST_DB_NAME")
	if name == "" {
		t.Skip("TEST_DB_NAME not set")
	}

	db, err := database.InitDB(utils.DatabaseConfig{
		Host:     envOr("TEST_DB_HOST", "localhost"),
		Port:     envOr("TEST_DB_PORT", "5432"),
		Name:     name,
		User:     envOr("TEST_DB_USER", "postgres"),
		Password: os.Getenv("TEST_DB_PASS"),
		MaxConns: 20,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestPostgres_BookingLifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewRepository(db, zap.NewNop())
	service := usecase.NewService(repo, usecase.Dependencies{Scheduler: scheduler.NewMemoryQueue()}, zap.NewNop())
	ctx := context.Background()

	start := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	seatMap, err := service.Showtime.ProvisionShowtime(ctx, &request.ProvisionShowtimeRequest{
		MovieID:      uuid.NewString(),
		AuditoriumID: uuid.NewString(),
		StartTime:    start,
		EndTime:      start.Add(2 * time.Hour),
		Capacity:     6,
		Price:        decimal.RequireFromString("8.00"),
	})
	require.NoError(t, err)
	require.Len(t, seatMap.Seats, 6)
	showtimeID := uuid.MustParse(seatMap.ID)

	owner := usecase.Caller{UserID: uuid.New()}
	booking, err := service.Booking.CreateBooking(ctx, owner, &request.CreateBookingRequest{
		ShowtimeID: seatMap.ID,
		SeatIDs:    []string{seatMap.Seats[0].ID, seatMap.Seats[1].ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "16.00", booking.Cost.StringFixed(2))

	_, err = service.Booking.CreateBooking(ctx, usecase.Caller{UserID: uuid.New()}, &request.CreateBookingRequest{
		ShowtimeID: seatMap.ID,
		SeatIDs:    []string{seatMap.Seats[1].ID, seatMap.Seats[2].ID},
	})
	require.ErrorIs(t, err, usecase.ErrSeatsUnavailable)

	edited, err := service.Booking.EditBookingSeats(ctx, owner, booking.ID, &request.EditBookingSeatsRequest{
		SeatIDs: []string{seatMap.Seats[1].ID, seatMap.Seats[5].ID},
	})
	require.NoError(t, err)
	assert.Len(t, edited.Seats, 2)
	requireConsistent(t, repo, showtimeID, 4)

	_, err = service.Booking.CancelBooking(ctx, owner, booking.ID)
	require.NoError(t, err)
	requireConsistent(t, repo, showtimeID, 6)

	stored, err := repo.Booking.FindByID(ctx, uuid.MustParse(booking.ID))
	require.NoError(t, err)
	assert.Empty(t, stored.Seats)
	assert.Equal(t, "16.00", stored.Cost.StringFixed(2))
}

func TestPostgres_ConcurrentReservations(t *testing.T) {
	db := openTestDB(t)
	repo := repository.NewRepository(db, zap.NewNop())
	service := usecase.NewService(repo, usecase.Dependencies{Scheduler: scheduler.NewMemoryQueue()}, zap.NewNop())
	ctx := context.Background()

	start := time.Now().Add(72 * time.Hour).UTC()
	seatMap, err := service.Showtime.ProvisionShowtime(ctx, &request.ProvisionShowtimeRequest{
		MovieID:      uuid.NewString(),
		AuditoriumID: uuid.NewString(),
		StartTime:    start,
		EndTime:      start.Add(2 * time.Hour),
		Capacity:     2,
	})
	require.NoError(t, err)

	const workers = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Booking.CreateBooking(ctx, usecase.Caller{UserID: uuid.New()}, &request.CreateBookingRequest{
				ShowtimeID: seatMap.ID,
				SeatIDs:    []string{seatMap.Seats[0].ID},
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	requireConsistent(t, repo, uuid.MustParse(seatMap.ID), 1)
}

func requireConsistent(t *testing.T, repo *repository.Repository, showtimeID uuid.UUID, wantAvailable int) {
	t.Helper()
	ctx := context.Background()

	st, err := repo.Showtime.FindByID(ctx, showtimeID)
	require.NoError(t, err)
	booked, err := repo.Seat.CountBooked(ctx, showtimeID)
	require.NoError(t, err)

	assert.Equal(t, wantAvailable, st.Available)
	assert.Equal(t, st.TotalSeats-booked, st.Available)
}
