package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"showtime-booking/internal/data/entity"

	"github.com/google/uuid"
)

type bookingRepo struct{ s *Store }

func (r *bookingRepo) Create(ctx context.Context, booking *entity.Booking) error {
	defer r.s.acquire(ctx)()

	if _, ok := r.s.data.bookings[booking.ID]; ok {
		return fmt.Errorf("create booking: duplicate id %s", booking.ID)
	}
	if _, ok := r.s.data.showtimes[booking.ShowtimeID]; !ok {
		return fmt.Errorf("create booking: showtime %s not found", booking.ShowtimeID)
	}
	row := *booking
	row.Seats = nil
	r.s.data.bookings[booking.ID] = row
	return nil
}

func (r *bookingRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	defer r.s.acquire(ctx)()

	if _, ok := r.s.data.bookings[id]; !ok {
		return nil, nil
	}
	return r.s.data.withSeats(id), nil
}

func (r *bookingRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.FindByID(ctx, id)
}

func (r *bookingRepo) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	defer r.s.acquire(ctx)()

	var bookings []*entity.Booking
	for id, b := range r.s.data.bookings {
		if b.UserID == userID {
			bookings = append(bookings, r.s.data.withSeats(id))
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return page(bookings, limit, offset), nil
}

func (r *bookingRepo) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	defer r.s.acquire(ctx)()

	var count int64
	for _, b := range r.s.data.bookings {
		if b.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *bookingRepo) Update(ctx context.Context, booking *entity.Booking) error {
	defer r.s.acquire(ctx)()

	row, ok := r.s.data.bookings[booking.ID]
	if !ok {
		return fmt.Errorf("update booking %s: not found", booking.ID)
	}
	booking.UpdatedAt = time.Now()
	row.Cost = booking.Cost
	row.Status = booking.Status
	row.Attended = booking.Attended
	row.UpdatedAt = booking.UpdatedAt
	r.s.data.bookings[booking.ID] = row
	return nil
}

func (r *bookingRepo) MarkAttended(ctx context.Context, id uuid.UUID) (bool, error) {
	defer r.s.acquire(ctx)()

	row, ok := r.s.data.bookings[id]
	if !ok || row.Attended || row.IsCancelled() {
		return false, nil
	}
	row.Attended = true
	row.UpdatedAt = time.Now()
	r.s.data.bookings[id] = row
	return true, nil
}

func (r *bookingRepo) MarkAttendedEnded(ctx context.Context, now time.Time, limit int) ([]*entity.Booking, error) {
	defer r.s.acquire(ctx)()

	var marked []*entity.Booking
	for id, row := range r.s.data.bookings {
		if limit > 0 && len(marked) >= limit {
			break
		}
		st := r.s.data.showtimes[row.ShowtimeID]
		if row.Status != entity.BookingStatusConfirmed || row.Attended || st.EndTime.After(now) {
			continue
		}
		row.Attended = true
		row.UpdatedAt = time.Now()
		r.s.data.bookings[id] = row
		marked = append(marked, &row)
	}
	return marked, nil
}

func (r *bookingRepo) FindPendingEndedIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	defer r.s.acquire(ctx)()

	var ids []uuid.UUID
	for id, row := range r.s.data.bookings {
		st := r.s.data.showtimes[row.ShowtimeID]
		if row.Status == entity.BookingStatusPending && !st.EndTime.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return page(ids, limit, 0), nil
}

func (r *bookingRepo) FindStartingBetween(ctx context.Context, from, to time.Time) ([]*entity.Booking, error) {
	defer r.s.acquire(ctx)()

	var bookings []*entity.Booking
	for id, row := range r.s.data.bookings {
		st := r.s.data.showtimes[row.ShowtimeID]
		if row.IsCancelled() || !st.StartTime.After(from) || st.StartTime.After(to) {
			continue
		}
		bookings = append(bookings, r.s.data.withSeats(id))
	}
	return bookings, nil
}

// withSeats copies the booking row and attaches the seats it holds.
func (st *state) withSeats(id uuid.UUID) *entity.Booking {
	b := st.bookings[id]
	b.Seats = nil
	for seatID, owner := range st.seatOwners {
		if owner != id {
			continue
		}
		seat := st.seats[seatID]
		b.Seats = append(b.Seats, &seat)
	}
	sortSeats(b.Seats)
	return &b
}

type bookingSeatRepo struct{ s *Store }

func (r *bookingSeatRepo) Attach(ctx context.Context, bookingID uuid.UUID, seatIDs []uuid.UUID) error {
	defer r.s.acquire(ctx)()

	if _, ok := r.s.data.bookings[bookingID]; !ok {
		return fmt.Errorf("attach seats: booking %s not found", bookingID)
	}
	for _, seatID := range seatIDs {
		if _, ok := r.s.data.seats[seatID]; !ok {
			return fmt.Errorf("attach seat %s: not found", seatID)
		}
		if owner, ok := r.s.data.seatOwners[seatID]; ok {
			return fmt.Errorf("attach seat %s to booking %s: already held by %s", seatID, bookingID, owner)
		}
		r.s.data.seatOwners[seatID] = bookingID
	}
	return nil
}

func (r *bookingSeatRepo) Detach(ctx context.Context, bookingID uuid.UUID, seatIDs []uuid.UUID) error {
	defer r.s.acquire(ctx)()

	for _, seatID := range seatIDs {
		if r.s.data.seatOwners[seatID] == bookingID {
			delete(r.s.data.seatOwners, seatID)
		}
	}
	return nil
}

func (r *bookingSeatRepo) DeleteByBookingID(ctx context.Context, bookingID uuid.UUID) error {
	defer r.s.acquire(ctx)()

	for seatID, owner := range r.s.data.seatOwners {
		if owner == bookingID {
			delete(r.s.data.seatOwners, seatID)
		}
	}
	return nil
}
