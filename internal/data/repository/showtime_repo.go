package repository

import (
	"context"
	"errors"
	"fmt"

	"showtime-booking/internal/data/entity"
	"showtime-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ShowtimeRepository interface {
	Create(ctx context.Context, showtime *entity.Showtime) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Showtime, error)
	// FindByIDForUpdate locks the showtime row until the surrounding
	// transaction ends, serializing seat mutations for one showtime.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Showtime, error)

	// DecrementAvailable reports false when the counter is below n.
	DecrementAvailable(ctx context.Context, id uuid.UUID, n int) (bool, error)
	IncrementAvailable(ctx context.Context, id uuid.UUID, n int) error
}

type showtimeRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewShowtimeRepository(db database.PgxIface, log *zap.Logger) ShowtimeRepository {
	return &showtimeRepository{
		db:  db,
		log: log.With(zap.String("repository", "showtime")),
	}
}

func (r *showtimeRepository) Create(ctx context.Context, showtime *entity.Showtime) error {
	query := `
		INSERT INTO showtimes (id, movie_id, auditorium_id, start_time, end_time,
		                       total_seats, available_seats, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := conn(ctx, r.db).Exec(ctx, query,
		showtime.ID,
		showtime.MovieID,
		showtime.AuditoriumID,
		showtime.StartTime,
		showtime.EndTime,
		showtime.TotalSeats,
		showtime.Available,
		showtime.CreatedAt,
		showtime.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create showtime",
			zap.Error(err),
			zap.String("movie_id", showtime.MovieID.String()),
			zap.String("auditorium_id", showtime.AuditoriumID.String()),
			zap.Time("start_time", showtime.StartTime),
		)
		return fmt.Errorf("create showtime: %w", err)
	}

	return nil
}

func (r *showtimeRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Showtime, error) {
	return r.find(ctx, id, "")
}

func (r *showtimeRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Showtime, error) {
	return r.find(ctx, id, "FOR UPDATE")
}

func (r *showtimeRepository) find(ctx context.Context, id uuid.UUID, lock string) (*entity.Showtime, error) {
	query := `
		SELECT id, movie_id, auditorium_id, start_time, end_time,
		       total_seats, available_seats, created_at, updated_at
		FROM showtimes
		WHERE id = $1
	` + lock

	var s entity.Showtime
	err := conn(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.MovieID,
		&s.AuditoriumID,
		&s.StartTime,
		&s.EndTime,
		&s.TotalSeats,
		&s.Available,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find showtime by ID",
			zap.Error(err),
			zap.String("showtime_id", id.String()),
		)
		return nil, fmt.Errorf("find showtime %s: %w", id, err)
	}

	return &s, nil
}

func (r *showtimeRepository) DecrementAvailable(ctx context.Context, id uuid.UUID, n int) (bool, error) {
	query := `
		UPDATE showtimes
		SET available_seats = available_seats - $2, updated_at = NOW()
		WHERE id = $1 AND available_seats >= $2
	`

	tag, err := conn(ctx, r.db).Exec(ctx, query, id, n)
	if err != nil {
		r.log.Error("Failed to decrement available seats",
			zap.Error(err),
			zap.String("showtime_id", id.String()),
			zap.Int("count", n),
		)
		return false, fmt.Errorf("decrement available seats: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *showtimeRepository) IncrementAvailable(ctx context.Context, id uuid.UUID, n int) error {
	query := `
		UPDATE showtimes
		SET available_seats = available_seats + $2, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := conn(ctx, r.db).Exec(ctx, query, id, n)
	if err != nil {
		r.log.Error("Failed to increment available seats",
			zap.Error(err),
			zap.String("showtime_id", id.String()),
			zap.Int("count", n),
		)
		return fmt.Errorf("increment available seats: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("increment available seats: showtime %s not found", id)
	}

	return nil
}
