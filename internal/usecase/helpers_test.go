package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/data/memory"
	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/dto/request"
	"showtime-booking/internal/event"
	"showtime-booking/internal/scheduler"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []event.Event
	fail   bool
}

func (p *recordingPublisher) Publish(_ context.Context, ev event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) kinds() []event.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]event.Kind, len(p.events))
	for i, ev := range p.events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func (p *recordingPublisher) last() event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	repo      *repository.Repository
	service   *Service
	publisher *recordingPublisher
	queue     *scheduler.MemoryQueue
	clock     *testClock
	ctx       context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := memory.NewStore().Repository()
	publisher := &recordingPublisher{}
	queue := scheduler.NewMemoryQueue()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	service := NewService(repo, Dependencies{
		Publisher: publisher,
		Scheduler: queue,
		Clock:     clock.Now,
	}, zap.NewNop())

	return &testEnv{
		repo:      repo,
		service:   service,
		publisher: publisher,
		queue:     queue,
		clock:     clock,
		ctx:       context.Background(),
	}
}

// seedShowtime provisions a showtime starting in three days with capacity
// seats at 10.00 each.
func (e *testEnv) seedShowtime(t *testing.T, capacity int) (*entity.Showtime, []*entity.Seat) {
	t.Helper()
	start := e.clock.Now().Add(72 * time.Hour)
	return e.seedShowtimeAt(t, capacity, start, start.Add(2*time.Hour))
}

func (e *testEnv) seedShowtimeAt(t *testing.T, capacity int, start, end time.Time) (*entity.Showtime, []*entity.Seat) {
	t.Helper()

	seatMap, err := e.service.Showtime.ProvisionShowtime(e.ctx, &request.ProvisionShowtimeRequest{
		MovieID:      uuid.NewString(),
		AuditoriumID: uuid.NewString(),
		StartTime:    start,
		EndTime:      end,
		Capacity:     capacity,
		Price:        decimal.RequireFromString("10.00"),
	})
	require.NoError(t, err)

	id := uuid.MustParse(seatMap.ID)
	showtime, err := e.repo.Showtime.FindByID(e.ctx, id)
	require.NoError(t, err)
	seats, err := e.repo.Seat.FindByShowtime(e.ctx, id)
	require.NoError(t, err)
	return showtime, seats
}

func (e *testEnv) available(t *testing.T, showtimeID uuid.UUID) int {
	t.Helper()
	st, err := e.repo.Showtime.FindByID(e.ctx, showtimeID)
	require.NoError(t, err)
	return st.Available
}

// requireConsistent checks available_seats = total - booked.
func (e *testEnv) requireConsistent(t *testing.T, showtimeID uuid.UUID) {
	t.Helper()
	st, err := e.repo.Showtime.FindByID(e.ctx, showtimeID)
	require.NoError(t, err)
	booked, err := e.repo.Seat.CountBooked(e.ctx, showtimeID)
	require.NoError(t, err)
	require.Equal(t, st.TotalSeats-booked, st.Available)
	require.GreaterOrEqual(t, st.Available, 0)
	require.LessOrEqual(t, st.Available, st.TotalSeats)
}

func customer() Caller {
	return Caller{UserID: uuid.New()}
}

func seatIDs(seats ...*entity.Seat) []uuid.UUID {
	ids := make([]uuid.UUID, len(seats))
	for i, s := range seats {
		ids[i] = s.ID
	}
	return ids
}

func seatIDStrings(seats ...*entity.Seat) []string {
	ids := make([]string, len(seats))
	for i, s := range seats {
		ids[i] = s.ID.String()
	}
	return ids
}

func createReq(showtimeID uuid.UUID, seats ...*entity.Seat) *request.CreateBookingRequest {
	return &request.CreateBookingRequest{
		ShowtimeID: showtimeID.String(),
		SeatIDs:    seatIDStrings(seats...),
	}
}
