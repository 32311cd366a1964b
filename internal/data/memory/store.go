// Package memory is an in-process implementation of the repository
// interfaces. A transaction holds the store lock for its whole duration and
// restores a snapshot when fn fails, which gives the same all-or-nothing
// behaviour as the Postgres implementation.
package memory

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"

	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/data/repository"

	"github.com/google/uuid"
)

type state struct {
	users         map[uuid.UUID]entity.User
	sessions      map[uuid.UUID]entity.Session // keyed by token
	showtimes     map[uuid.UUID]entity.Showtime
	seats         map[uuid.UUID]entity.Seat
	bookings      map[uuid.UUID]entity.Booking
	seatOwners    map[uuid.UUID]uuid.UUID // seat -> booking
	notifications map[uuid.UUID]entity.Notification
}

func newState() *state {
	return &state{
		users:         map[uuid.UUID]entity.User{},
		sessions:      map[uuid.UUID]entity.Session{},
		showtimes:     map[uuid.UUID]entity.Showtime{},
		seats:         map[uuid.UUID]entity.Seat{},
		bookings:      map[uuid.UUID]entity.Booking{},
		seatOwners:    map[uuid.UUID]uuid.UUID{},
		notifications: map[uuid.UUID]entity.Notification{},
	}
}

func (st *state) clone() *state {
	return &state{
		users:         maps.Clone(st.users),
		sessions:      maps.Clone(st.sessions),
		showtimes:     maps.Clone(st.showtimes),
		seats:         maps.Clone(st.seats),
		bookings:      maps.Clone(st.bookings),
		seatOwners:    maps.Clone(st.seatOwners),
		notifications: maps.Clone(st.notifications),
	}
}

type Store struct {
	mu   sync.Mutex
	data *state
}

func NewStore() *Store {
	return &Store{data: newState()}
}

type txKey struct{}

// WithTx implements repository.Transactor.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, ok := ctx.Value(txKey{}).(*Store)
	return ok && owner == s
}

// acquire takes the store lock unless ctx already runs inside a transaction
// of this store.
func (s *Store) acquire(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Repository exposes the store through the repository interfaces.
func (s *Store) Repository() *repository.Repository {
	return &repository.Repository{
		Tx:           s,
		User:         &userRepo{s},
		Session:      &sessionRepo{s},
		Showtime:     &showtimeRepo{s},
		Seat:         &seatRepo{s},
		Booking:      &bookingRepo{s},
		BookingSeat:  &bookingSeatRepo{s},
		Notification: &notificationRepo{s},
	}
}

// sortSeats orders labels naturally: A2 before A10, A10 before B1.
func sortSeats(seats []*entity.Seat) {
	sort.Slice(seats, func(i, j int) bool {
		pi, pj := labelRow(seats[i].Label), labelRow(seats[j].Label)
		if pi != pj {
			return pi < pj
		}
		if len(seats[i].Label) != len(seats[j].Label) {
			return len(seats[i].Label) < len(seats[j].Label)
		}
		return seats[i].Label < seats[j].Label
	})
}

func labelRow(label string) string {
	return label[:len(label)-len(strings.TrimLeft(label, "ABCDEFGHIJKLMNOPQRSTUVWXYZ"))]
}

func idSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
