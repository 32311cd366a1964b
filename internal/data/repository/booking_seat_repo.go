package repository

import (
	"context"
	"fmt"
	"time"

	"showtime-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// BookingSeatRepository maintains the booking to seat association. Rows
// exist only while the booking holds the seat.
type BookingSeatRepository interface {
	Attach(ctx context.Context, bookingID uuid.UUID, seatIDs []uuid.UUID) error
	Detach(ctx context.Context, bookingID uuid.UUID, seatIDs []uuid.UUID) error
	DeleteByBookingID(ctx context.Context, bookingID uuid.UUID) error
}

type bookingSeatRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingSeatRepository(db database.PgxIface, log *zap.Logger) BookingSeatRepository {
	return &bookingSeatRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking_seat")),
	}
}

func (r *bookingSeatRepository) Attach(ctx context.Context, bookingID uuid.UUID, seatIDs []uuid.UUID) error {
	if len(seatIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO booking_seats (id, booking_id, seat_id, created_at)
		VALUES ($1, $2, $3, $4)
	`

	now := time.Now()
	batch := &pgx.Batch{}
	for _, seatID := range seatIDs {
		batch.Queue(query, uuid.New(), bookingID, seatID, now)
	}

	results := conn(ctx, r.db).SendBatch(ctx, batch)
	defer results.Close()
	for _, seatID := range seatIDs {
		if _, err := results.Exec(); err != nil {
			r.log.Error("Failed to attach seat",
				zap.Error(err),
				zap.String("booking_id", bookingID.String()),
				zap.String("seat_id", seatID.String()),
			)
			return fmt.Errorf("attach seat %s to booking %s: %w", seatID, bookingID, err)
		}
	}

	return nil
}

func (r *bookingSeatRepository) Detach(ctx context.Context, bookingID uuid.UUID, seatIDs []uuid.UUID) error {
	if len(seatIDs) == 0 {
		return nil
	}

	query := `DELETE FROM booking_seats WHERE booking_id = $1 AND seat_id = ANY($2)`

	_, err := conn(ctx, r.db).Exec(ctx, query, bookingID, seatIDs)
	if err != nil {
		r.log.Error("Failed to detach seats",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
			zap.Int("count", len(seatIDs)),
		)
		return fmt.Errorf("detach seats from booking %s: %w", bookingID, err)
	}

	return nil
}

func (r *bookingSeatRepository) DeleteByBookingID(ctx context.Context, bookingID uuid.UUID) error {
	query := `DELETE FROM booking_seats WHERE booking_id = $1`

	_, err := conn(ctx, r.db).Exec(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to delete booking seats by booking ID",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return fmt.Errorf("delete booking seats by booking ID %s: %w", bookingID, err)
	}

	return nil
}
