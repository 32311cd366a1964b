package repository

import (
	"showtime-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	Tx           Transactor
	User         UserRepository
	Session      SessionRepository
	Showtime     ShowtimeRepository
	Seat         SeatRepository
	Booking      BookingRepository
	BookingSeat  BookingSeatRepository
	Notification NotificationRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Tx:           NewTransactor(db, log),
		User:         NewUserRepository(db, log),
		Session:      NewSessionRepository(db, log),
		Showtime:     NewShowtimeRepository(db, log),
		Seat:         NewSeatRepository(db, log),
		Booking:      NewBookingRepository(db, log),
		BookingSeat:  NewBookingSeatRepository(db, log),
		Notification: NewNotificationRepository(db, log),
	}
}
