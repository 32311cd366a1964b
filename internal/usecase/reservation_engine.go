package usecase

import (
	"context"
	"errors"
	"fmt"

	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/data/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("showtime-booking/usecase")

// ReservationEngine is the only code path that flips a seat's booked flag or
// moves a showtime's available_seats counter. Every operation is atomic and
// joins the caller's transaction when ctx already carries one.
type ReservationEngine interface {
	ClaimSeats(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID) (*Claim, error)
	ReleaseSeats(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID) (int, error)
	ReconcileSeatSelection(ctx context.Context, booking *entity.Booking, seatIDs []uuid.UUID) (*Reconciliation, error)
}

type Claim struct {
	Seats []*entity.Seat
	Cost  decimal.Decimal
}

// Reconciliation is the outcome of an edit: the final held set plus the
// deltas applied to reach it.
type Reconciliation struct {
	Seats    []*entity.Seat
	Cost     decimal.Decimal
	Released []uuid.UUID
	Claimed  []uuid.UUID
}

type reservationEngine struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewReservationEngine(repo *repository.Repository, log *zap.Logger) ReservationEngine {
	return &reservationEngine{
		repo: repo,
		log:  log.With(zap.String("service", "reservation_engine")),
	}
}

func (e *reservationEngine) ClaimSeats(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID) (*Claim, error) {
	ids := uniqueIDs(seatIDs)
	if len(ids) == 0 {
		return nil, ErrEmptySelection
	}

	ctx, span := tracer.Start(ctx, "ReservationEngine.ClaimSeats", trace.WithAttributes(
		attribute.String("showtime.id", showtimeID.String()),
		attribute.Int("seats.requested", len(ids)),
	))
	defer span.End()

	var claim *Claim
	err := e.repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := e.lockShowtime(ctx, showtimeID); err != nil {
			return err
		}

		var err error
		claim, err = e.claim(ctx, showtimeID, ids)
		return err
	})
	if err != nil {
		e.logFailure("Claim seats failed", err, showtimeID, len(ids))
		recordError(span, err)
		return nil, err
	}

	return claim, nil
}

func (e *reservationEngine) ReleaseSeats(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID) (int, error) {
	ids := uniqueIDs(seatIDs)
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, span := tracer.Start(ctx, "ReservationEngine.ReleaseSeats", trace.WithAttributes(
		attribute.String("showtime.id", showtimeID.String()),
		attribute.Int("seats.requested", len(ids)),
	))
	defer span.End()

	var released int
	err := e.repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := e.lockShowtime(ctx, showtimeID); err != nil {
			return err
		}

		var err error
		released, err = e.release(ctx, showtimeID, ids)
		return err
	})
	if err != nil {
		e.logFailure("Release seats failed", err, showtimeID, len(ids))
		recordError(span, err)
		return 0, err
	}

	span.SetAttributes(attribute.Int("seats.released", released))
	return released, nil
}

func (e *reservationEngine) ReconcileSeatSelection(ctx context.Context, booking *entity.Booking, seatIDs []uuid.UUID) (*Reconciliation, error) {
	target := uniqueIDs(seatIDs)
	if len(target) == 0 {
		return nil, ErrEmptySelection
	}

	toRelease, toClaim := diffIDs(booking.SeatIDs(), target)

	ctx, span := tracer.Start(ctx, "ReservationEngine.ReconcileSeatSelection", trace.WithAttributes(
		attribute.String("booking.id", booking.ID.String()),
		attribute.String("showtime.id", booking.ShowtimeID.String()),
		attribute.Int("seats.release", len(toRelease)),
		attribute.Int("seats.claim", len(toClaim)),
	))
	defer span.End()

	var result *Reconciliation
	err := e.repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := e.lockShowtime(ctx, booking.ShowtimeID); err != nil {
			return err
		}

		// release first so the freed capacity is visible to the claim
		if len(toRelease) > 0 {
			if _, err := e.release(ctx, booking.ShowtimeID, toRelease); err != nil {
				return err
			}
		}
		if len(toClaim) > 0 {
			if _, err := e.claim(ctx, booking.ShowtimeID, toClaim); err != nil {
				return err
			}
		}

		seats, err := e.repo.Seat.FindByIDs(ctx, booking.ShowtimeID, target)
		if err != nil {
			return fmt.Errorf("reload selection: %w", err)
		}

		result = &Reconciliation{
			Seats:    seats,
			Cost:     entity.SumPrices(seats),
			Released: toRelease,
			Claimed:  toClaim,
		}
		return nil
	})
	if err != nil {
		e.logFailure("Reconcile seat selection failed", err, booking.ShowtimeID, len(target))
		recordError(span, err)
		return nil, err
	}

	return result, nil
}

func (e *reservationEngine) lockShowtime(ctx context.Context, showtimeID uuid.UUID) (*entity.Showtime, error) {
	showtime, err := e.repo.Showtime.FindByIDForUpdate(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("lock showtime: %w", err)
	}
	if showtime == nil {
		return nil, ErrShowtimeNotFound
	}
	return showtime, nil
}

// claim must run inside a transaction that holds the showtime lock.
func (e *reservationEngine) claim(ctx context.Context, showtimeID uuid.UUID, ids []uuid.UUID) (*Claim, error) {
	seats, err := e.repo.Seat.FindByIDs(ctx, showtimeID, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch seats: %w", err)
	}
	if len(seats) != len(ids) {
		return nil, ErrInvalidSeatReference
	}
	for _, s := range seats {
		if s.Booked {
			return nil, ErrSeatsUnavailable
		}
	}

	ok, err := e.repo.Showtime.DecrementAvailable(ctx, showtimeID, len(ids))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInsufficientCapacity
	}

	n, err := e.repo.Seat.MarkBooked(ctx, showtimeID, ids)
	if err != nil {
		return nil, err
	}
	if n != int64(len(ids)) {
		return nil, ErrSeatsUnavailable
	}

	for _, s := range seats {
		s.Booked = true
	}

	return &Claim{Seats: seats, Cost: entity.SumPrices(seats)}, nil
}

// release must run inside a transaction that holds the showtime lock.
func (e *reservationEngine) release(ctx context.Context, showtimeID uuid.UUID, ids []uuid.UUID) (int, error) {
	n, err := e.repo.Seat.MarkFree(ctx, showtimeID, ids)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	if err := e.repo.Showtime.IncrementAvailable(ctx, showtimeID, int(n)); err != nil {
		return 0, err
	}

	return int(n), nil
}

func (e *reservationEngine) logFailure(msg string, err error, showtimeID uuid.UUID, count int) {
	fields := []zap.Field{
		zap.Error(err),
		zap.String("showtime_id", showtimeID.String()),
		zap.Int("seat_count", count),
	}

	switch {
	case errors.Is(err, ErrInsufficientCapacity):
		e.log.Error(msg+": available_seats counter out of step with seat inventory", fields...)
	case errors.Is(err, ErrSeatsUnavailable):
		e.log.Warn(msg, fields...)
	case errors.Is(err, ErrInvalidSeatReference), errors.Is(err, ErrShowtimeNotFound):
		e.log.Info(msg, fields...)
	default:
		e.log.Error(msg, fields...)
	}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// diffIDs returns the ids held but not wanted, and wanted but not held.
func diffIDs(held, wanted []uuid.UUID) (release, claim []uuid.UUID) {
	heldSet := make(map[uuid.UUID]struct{}, len(held))
	for _, id := range held {
		heldSet[id] = struct{}{}
	}
	wantedSet := make(map[uuid.UUID]struct{}, len(wanted))
	for _, id := range wanted {
		wantedSet[id] = struct{}{}
		if _, ok := heldSet[id]; !ok {
			claim = append(claim, id)
		}
	}
	for _, id := range held {
		if _, ok := wantedSet[id]; !ok {
			release = append(release, id)
		}
	}
	return release, claim
}
