package repository

import (
	"context"
	"fmt"

	"showtime-booking/internal/data/entity"
	"showtime-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type SeatRepository interface {
	CreateBatch(ctx context.Context, seats []*entity.Seat) error
	FindByShowtime(ctx context.Context, showtimeID uuid.UUID) ([]*entity.Seat, error)
	FindByIDs(ctx context.Context, showtimeID uuid.UUID, ids []uuid.UUID) ([]*entity.Seat, error)
	CountBooked(ctx context.Context, showtimeID uuid.UUID) (int, error)

	// Guarded writes: only seats in the expected state are touched, the
	// number of rows actually flipped is returned.
	MarkBooked(ctx context.Context, showtimeID uuid.UUID, ids []uuid.UUID) (int64, error)
	MarkFree(ctx context.Context, showtimeID uuid.UUID, ids []uuid.UUID) (int64, error)
}

type seatRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSeatRepository(db database.PgxIface, log *zap.Logger) SeatRepository {
	return &seatRepository{
		db:  db,
		log: log.With(zap.String("repository", "seat")),
	}
}

func (r *seatRepository) CreateBatch(ctx context.Context, seats []*entity.Seat) error {
	if len(seats) == 0 {
		return nil
	}

	query := `
		INSERT INTO seats (id, showtime_id, label, booked, price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, s := range seats {
		batch.Queue(query,
			s.ID, s.ShowtimeID, s.Label, s.Booked, s.Price, s.CreatedAt, s.UpdatedAt,
		)
	}

	results := conn(ctx, r.db).SendBatch(ctx, batch)
	defer results.Close()
	for range seats {
		if _, err := results.Exec(); err != nil {
			r.log.Error("Failed to create seat batch",
				zap.Error(err),
				zap.String("showtime_id", seats[0].ShowtimeID.String()),
			)
			return fmt.Errorf("create seats: %w", err)
		}
	}

	return nil
}

func (r *seatRepository) FindByShowtime(ctx context.Context, showtimeID uuid.UUID) ([]*entity.Seat, error) {
	query := `
		SELECT id, showtime_id, label, booked, price, created_at, updated_at
		FROM seats
		WHERE showtime_id = $1
		ORDER BY SUBSTRING(label FROM '^[A-Z]+'), LENGTH(label), label
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, showtimeID)
	if err != nil {
		r.log.Error("Failed to find seats by showtime",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
		)
		return nil, fmt.Errorf("find seats by showtime %s: %w", showtimeID, err)
	}

	return r.scanSeats(rows)
}

func (r *seatRepository) FindByIDs(ctx context.Context, showtimeID uuid.UUID, ids []uuid.UUID) ([]*entity.Seat, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, showtime_id, label, booked, price, created_at, updated_at
		FROM seats
		WHERE showtime_id = $1 AND id = ANY($2)
		ORDER BY SUBSTRING(label FROM '^[A-Z]+'), LENGTH(label), label
	`

	rows, err := conn(ctx, r.db).Query(ctx, query, showtimeID, ids)
	if err != nil {
		r.log.Error("Failed to find seats by IDs",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
			zap.Int("count", len(ids)),
		)
		return nil, fmt.Errorf("find seats by IDs: %w", err)
	}

	return r.scanSeats(rows)
}

func (r *seatRepository) CountBooked(ctx context.Context, showtimeID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM seats WHERE showtime_id = $1 AND booked = true`

	var count int
	if err := conn(ctx, r.db).QueryRow(ctx, query, showtimeID).Scan(&count); err != nil {
		r.log.Error("Failed to count booked seats",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
		)
		return 0, fmt.Errorf("count booked seats: %w", err)
	}

	return count, nil
}

func (r *seatRepository) MarkBooked(ctx context.Context, showtimeID uuid.UUID, ids []uuid.UUID) (int64, error) {
	return r.setBooked(ctx, showtimeID, ids, true)
}

func (r *seatRepository) MarkFree(ctx context.Context, showtimeID uuid.UUID, ids []uuid.UUID) (int64, error) {
	return r.setBooked(ctx, showtimeID, ids, false)
}

func (r *seatRepository) setBooked(ctx context.Context, showtimeID uuid.UUID, ids []uuid.UUID, booked bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE seats
		SET booked = $3, updated_at = NOW()
		WHERE showtime_id = $1 AND id = ANY($2) AND booked = NOT $3
	`

	tag, err := conn(ctx, r.db).Exec(ctx, query, showtimeID, ids, booked)
	if err != nil {
		r.log.Error("Failed to update seat state",
			zap.Error(err),
			zap.String("showtime_id", showtimeID.String()),
			zap.Bool("booked", booked),
			zap.Int("count", len(ids)),
		)
		return 0, fmt.Errorf("set seats booked=%t: %w", booked, err)
	}

	return tag.RowsAffected(), nil
}

func (r *seatRepository) scanSeats(rows pgx.Rows) ([]*entity.Seat, error) {
	defer rows.Close()

	var seats []*entity.Seat
	for rows.Next() {
		var s entity.Seat
		err := rows.Scan(
			&s.ID,
			&s.ShowtimeID,
			&s.Label,
			&s.Booked,
			&s.Price,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan seat row", zap.Error(err))
			return nil, fmt.Errorf("scan seat row: %w", err)
		}
		seats = append(seats, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seat rows: %w", err)
	}

	return seats, nil
}
