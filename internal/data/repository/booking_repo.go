package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"showtime-booking/internal/data/entity"
	"showtime-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	// FindByIDForUpdate locks the booking row for the rest of the transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	Update(ctx context.Context, booking *entity.Booking) error

	// Lifecycle queries
	MarkAttended(ctx context.Context, id uuid.UUID) (bool, error)
	MarkAttendedEnded(ctx context.Context, now time.Time, limit int) ([]*entity.Booking, error)
	FindPendingEndedIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
	FindStartingBetween(ctx context.Context, from, to time.Time) ([]*entity.Booking, error)
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `b.id, b.user_id, b.showtime_id, b.cost, b.status, b.attended, b.created_at, b.updated_at`

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, user_id, showtime_id, cost, status, attended, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := conn(ctx, r.db).Exec(ctx, query,
		booking.ID,
		booking.UserID,
		booking.ShowtimeID,
		booking.Cost,
		booking.Status,
		booking.Attended,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("user_id", booking.UserID.String()),
			zap.String("showtime_id", booking.ShowtimeID.String()),
		)
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.find(ctx, id, "")
}

func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return r.find(ctx, id, "FOR UPDATE")
}

func (r *bookingRepository) find(ctx context.Context, id uuid.UUID, lock string) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings b WHERE b.id = $1 ` + lock

	booking, err := scanBooking(conn(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking %s: %w", id, err)
	}

	if err := r.loadSeats(ctx, []*entity.Booking{booking}); err != nil {
		return nil, err
	}

	return booking, nil
}

func (r *bookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find bookings by user %s: %w", userID, err)
	}

	bookings, err := r.scanBookings(rows)
	if err != nil {
		return nil, err
	}

	if err := r.loadSeats(ctx, bookings); err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *bookingRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE user_id = $1`

	var count int64
	if err := conn(ctx, r.db).QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return 0, fmt.Errorf("count bookings by user %s: %w", userID, err)
	}

	return count, nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *entity.Booking) error {
	query := `
		UPDATE bookings
		SET cost = $2, status = $3, attended = $4, updated_at = $5
		WHERE id = $1
	`

	booking.UpdatedAt = time.Now()
	tag, err := conn(ctx, r.db).Exec(ctx, query,
		booking.ID,
		booking.Cost,
		booking.Status,
		booking.Attended,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to update booking",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return fmt.Errorf("update booking %s: %w", booking.ID, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update booking %s: not found", booking.ID)
	}

	return nil
}

func (r *bookingRepository) MarkAttended(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE bookings
		SET attended = true, updated_at = NOW()
		WHERE id = $1 AND attended = false AND status <> 'cancelled'
	`

	tag, err := conn(ctx, r.db).Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to mark booking attended",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return false, fmt.Errorf("mark booking %s attended: %w", id, err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *bookingRepository) MarkAttendedEnded(ctx context.Context, now time.Time, limit int) ([]*entity.Booking, error) {
	query := `
		UPDATE bookings b
		SET attended = true, updated_at = NOW()
		WHERE b.id IN (
			SELECT bk.id
			FROM bookings bk
			INNER JOIN showtimes st ON st.id = bk.showtime_id
			WHERE bk.status = 'confirmed' AND bk.attended = false AND st.end_time <= $1
			LIMIT $2
		)
		RETURNING ` + bookingColumns

	rows, err := conn(ctx, r.db).Query(ctx, query, now, limit)
	if err != nil {
		r.log.Error("Failed to mark ended bookings attended", zap.Error(err))
		return nil, fmt.Errorf("mark ended bookings attended: %w", err)
	}

	return r.scanBookings(rows)
}

func (r *bookingRepository) FindPendingEndedIDs(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT b.id
		FROM bookings b
		INNER JOIN showtimes s ON s.id = b.showtime_id
		WHERE b.status = 'pending' AND s.end_time <= $1
		ORDER BY s.end_time
		LIMIT $2
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, now, limit)
	if err != nil {
		r.log.Error("Failed to find pending ended bookings", zap.Error(err))
		return nil, fmt.Errorf("find pending ended bookings: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			r.log.Error("Failed to scan booking ID row", zap.Error(err))
			return nil, fmt.Errorf("scan booking ID row: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func (r *bookingRepository) FindStartingBetween(ctx context.Context, from, to time.Time) ([]*entity.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings b
		INNER JOIN showtimes s ON s.id = b.showtime_id
		WHERE b.status <> 'cancelled' AND s.start_time > $1 AND s.start_time <= $2
		ORDER BY s.start_time
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, from, to)
	if err != nil {
		r.log.Error("Failed to find bookings by showtime window",
			zap.Error(err),
			zap.Time("from", from),
			zap.Time("to", to),
		)
		return nil, fmt.Errorf("find bookings starting between: %w", err)
	}

	bookings, err := r.scanBookings(rows)
	if err != nil {
		return nil, err
	}

	if err := r.loadSeats(ctx, bookings); err != nil {
		return nil, err
	}

	return bookings, nil
}

// loadSeats fills Booking.Seats from booking_seats in one query.
func (r *bookingRepository) loadSeats(ctx context.Context, bookings []*entity.Booking) error {
	if len(bookings) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*entity.Booking, len(bookings))
	ids := make([]uuid.UUID, 0, len(bookings))
	for _, b := range bookings {
		b.Seats = nil
		byID[b.ID] = b
		ids = append(ids, b.ID)
	}

	query := `
		SELECT bs.booking_id, s.id, s.showtime_id, s.label, s.booked, s.price, s.created_at, s.updated_at
		FROM booking_seats bs
		INNER JOIN seats s ON s.id = bs.seat_id
		WHERE bs.booking_id = ANY($1)
		ORDER BY SUBSTRING(s.label FROM '^[A-Z]+'), LENGTH(s.label), s.label
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, ids)
	if err != nil {
		r.log.Error("Failed to load booking seats", zap.Error(err), zap.Int("bookings", len(ids)))
		return fmt.Errorf("load booking seats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bookingID uuid.UUID
		var s entity.Seat
		err := rows.Scan(
			&bookingID,
			&s.ID,
			&s.ShowtimeID,
			&s.Label,
			&s.Booked,
			&s.Price,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan booking seat row", zap.Error(err))
			return fmt.Errorf("scan booking seat row: %w", err)
		}
		if b, ok := byID[bookingID]; ok {
			b.Seats = append(b.Seats, &s)
		}
	}

	return rows.Err()
}

func (r *bookingRepository) scanBookings(rows pgx.Rows) ([]*entity.Booking, error) {
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking rows: %w", err)
	}

	return bookings, nil
}

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var b entity.Booking
	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.ShowtimeID,
		&b.Cost,
		&b.Status,
		&b.Attended,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
