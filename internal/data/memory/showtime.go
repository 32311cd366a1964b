package memory

import (
	"context"
	"fmt"
	"time"

	"showtime-booking/internal/data/entity"

	"github.com/google/uuid"
)

type showtimeRepo struct{ s *Store }

func (r *showtimeRepo) Create(ctx context.Context, showtime *entity.Showtime) error {
	defer r.s.acquire(ctx)()

	if _, ok := r.s.data.showtimes[showtime.ID]; ok {
		return fmt.Errorf("create showtime: duplicate id %s", showtime.ID)
	}
	r.s.data.showtimes[showtime.ID] = *showtime
	return nil
}

func (r *showtimeRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Showtime, error) {
	defer r.s.acquire(ctx)()

	st, ok := r.s.data.showtimes[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// FindByIDForUpdate is FindByID; the transaction already holds the store lock.
func (r *showtimeRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Showtime, error) {
	return r.FindByID(ctx, id)
}

func (r *showtimeRepo) DecrementAvailable(ctx context.Context, id uuid.UUID, n int) (bool, error) {
	defer r.s.acquire(ctx)()

	st, ok := r.s.data.showtimes[id]
	if !ok || st.Available < n {
		return false, nil
	}
	st.Available -= n
	st.UpdatedAt = time.Now()
	r.s.data.showtimes[id] = st
	return true, nil
}

func (r *showtimeRepo) IncrementAvailable(ctx context.Context, id uuid.UUID, n int) error {
	defer r.s.acquire(ctx)()

	st, ok := r.s.data.showtimes[id]
	if !ok {
		return fmt.Errorf("increment available seats: showtime %s not found", id)
	}
	if st.Available+n > st.TotalSeats {
		return fmt.Errorf("increment available seats: counter would exceed capacity %d", st.TotalSeats)
	}
	st.Available += n
	st.UpdatedAt = time.Now()
	r.s.data.showtimes[id] = st
	return nil
}

type seatRepo struct{ s *Store }

func (r *seatRepo) CreateBatch(ctx context.Context, seats []*entity.Seat) error {
	defer r.s.acquire(ctx)()

	for _, seat := range seats {
		if _, ok := r.s.data.seats[seat.ID]; ok {
			return fmt.Errorf("create seats: duplicate id %s", seat.ID)
		}
		r.s.data.seats[seat.ID] = *seat
	}
	return nil
}

func (r *seatRepo) FindByShowtime(ctx context.Context, showtimeID uuid.UUID) ([]*entity.Seat, error) {
	defer r.s.acquire(ctx)()

	var seats []*entity.Seat
	for _, seat := range r.s.data.seats {
		if seat.ShowtimeID == showtimeID {
			seats = append(seats, &seat)
		}
	}
	sortSeats(seats)
	return seats, nil
}

func (r *seatRepo) FindByIDs(ctx context.Context, showtimeID uuid.UUID, ids []uuid.UUID) ([]*entity.Seat, error) {
	defer r.s.acquire(ctx)()

	var seats []*entity.Seat
	for id := range idSet(ids) {
		seat, ok := r.s.data.seats[id]
		if ok && seat.ShowtimeID == showtimeID {
			seats = append(seats, &seat)
		}
	}
	sortSeats(seats)
	return seats, nil
}

func (r *seatRepo) CountBooked(ctx context.Context, showtimeID uuid.UUID) (int, error) {
	defer r.s.acquire(ctx)()

	count := 0
	for _, seat := range r.s.data.seats {
		if seat.ShowtimeID == showtimeID && seat.Booked {
			count++
		}
	}
	return count, nil
}

func (r *seatRepo) MarkBooked(ctx context.Context, showtimeID uuid.UUID, ids []uuid.UUID) (int64, error) {
	return r.setBooked(ctx, showtimeID, ids, true)
}

func (r *seatRepo) MarkFree(ctx context.Context, showtimeID uuid.UUID, ids []uuid.UUID) (int64, error) {
	return r.setBooked(ctx, showtimeID, ids, false)
}

func (r *seatRepo) setBooked(ctx context.Context, showtimeID uuid.UUID, ids []uuid.UUID, booked bool) (int64, error) {
	defer r.s.acquire(ctx)()

	var n int64
	now := time.Now()
	for id := range idSet(ids) {
		seat, ok := r.s.data.seats[id]
		if !ok || seat.ShowtimeID != showtimeID || seat.Booked == booked {
			continue
		}
		seat.Booked = booked
		seat.UpdatedAt = now
		r.s.data.seats[id] = seat
		n++
	}
	return n, nil
}
