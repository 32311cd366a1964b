package usecase

import (
	"context"
	"fmt"
	"time"

	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/dto/request"
	"showtime-booking/internal/dto/response"
	"showtime-booking/internal/event"
	"showtime-booking/internal/scheduler"
	"showtime-booking/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type BookingService interface {
	CreateBooking(ctx context.Context, caller Caller, req *request.CreateBookingRequest) (*response.BookingResponse, error)
	EditBookingSeats(ctx context.Context, caller Caller, bookingID string, req *request.EditBookingSeatsRequest) (*response.BookingResponse, error)
	CancelBooking(ctx context.Context, caller Caller, bookingID string) (*response.BookingResponse, error)
	GetBooking(ctx context.Context, caller Caller, bookingID string) (*response.BookingResponse, error)
	GetUserBookings(ctx context.Context, caller Caller, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)

	// Payment collaborator
	ConfirmPayment(ctx context.Context, req *request.ConfirmPaymentRequest) (*response.BookingResponse, error)

	// System driven. Both are no-ops for a booking that is no longer pending.
	ExpireUnpaid(ctx context.Context, bookingID uuid.UUID) error
	CancelEndedUnpaid(ctx context.Context, bookingID uuid.UUID) error
}

type bookingService struct {
	repo      *repository.Repository
	engine    ReservationEngine
	publisher event.Publisher
	scheduler scheduler.Scheduler
	policy    BookingPolicy
	now       func() time.Time
	log       *zap.Logger
}

func NewBookingService(repo *repository.Repository, engine ReservationEngine, deps Dependencies, log *zap.Logger) BookingService {
	deps = deps.withDefaults()
	if deps.Publisher == nil {
		deps.Publisher = event.NewLocalPublisher(log)
	}
	return &bookingService{
		repo:      repo,
		engine:    engine,
		publisher: deps.Publisher,
		scheduler: deps.Scheduler,
		policy:    deps.Policy,
		now:       deps.Clock,
		log:       log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) CreateBooking(ctx context.Context, caller Caller, req *request.CreateBookingRequest) (*response.BookingResponse, error) {
	if err := validate(req); err != nil {
		s.log.Warn("Create booking validation failed", zap.Error(err))
		return nil, err
	}
	if len(req.SeatIDs) == 0 {
		return nil, ErrEmptySelection
	}

	showtimeID := uuid.MustParse(req.ShowtimeID)
	seatIDs, err := utils.ParseUUIDs(req.SeatIDs)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"seat_ids": "Must be a valid UUID"}}
	}

	ctx, span := tracer.Start(ctx, "BookingService.CreateBooking", trace.WithAttributes(
		attribute.String("showtime.id", showtimeID.String()),
		attribute.Int("seats.requested", len(seatIDs)),
	))
	defer span.End()

	var booking *entity.Booking
	var showtime *entity.Showtime
	err = s.repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		showtime, err = s.repo.Showtime.FindByIDForUpdate(ctx, showtimeID)
		if err != nil {
			return err
		}
		if showtime == nil {
			return ErrShowtimeNotFound
		}
		if showtime.HasStarted(s.now()) {
			return transitionError("cannot book a showtime that has already started")
		}

		claim, err := s.engine.ClaimSeats(ctx, showtimeID, seatIDs)
		if err != nil {
			return err
		}

		now := s.now()
		booking = &entity.Booking{
			BaseNoDelete: entity.NewBaseNoDelete(now),
			UserID:       caller.UserID,
			ShowtimeID:   showtimeID,
			Cost:         claim.Cost,
			Status:       entity.BookingStatusPending,
			Seats:        claim.Seats,
		}

		if err := s.repo.Booking.Create(ctx, booking); err != nil {
			return err
		}
		return s.repo.BookingSeat.Attach(ctx, booking.ID, booking.SeatIDs())
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	s.log.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("user_id", caller.UserID.String()),
		zap.String("showtime_id", showtimeID.String()),
		zap.Strings("seats", booking.SeatLabels()),
		zap.String("cost", booking.Cost.StringFixed(2)),
	)

	s.publish(ctx, event.New(event.KindCreated, booking, showtime, s.now()))
	s.scheduleFollowUps(ctx, booking, showtime)

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) EditBookingSeats(ctx context.Context, caller Caller, bookingID string, req *request.EditBookingSeatsRequest) (*response.BookingResponse, error) {
	id, err := parseID(bookingID, "booking_id")
	if err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	if len(req.SeatIDs) == 0 {
		return nil, ErrEmptySelection
	}
	seatIDs, err := utils.ParseUUIDs(req.SeatIDs)
	if err != nil {
		return nil, &ValidationError{Fields: map[string]string{"seat_ids": "Must be a valid UUID"}}
	}

	ctx, span := tracer.Start(ctx, "BookingService.EditBookingSeats", trace.WithAttributes(
		attribute.String("booking.id", id.String()),
	))
	defer span.End()

	var booking *entity.Booking
	var showtime *entity.Showtime
	var changed bool
	err = s.repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.lockBooking(ctx, caller, id)
		if err != nil {
			return err
		}
		if booking.IsCancelled() {
			return transitionError("cannot edit a cancelled booking")
		}

		showtime, err = s.repo.Showtime.FindByID(ctx, booking.ShowtimeID)
		if err != nil {
			return err
		}
		if showtime != nil && showtime.HasStarted(s.now()) {
			return transitionError("cannot edit a booking for a past showtime")
		}

		rec, err := s.engine.ReconcileSeatSelection(ctx, booking, seatIDs)
		if err != nil {
			return err
		}
		changed = len(rec.Released) > 0 || len(rec.Claimed) > 0

		if err := s.repo.BookingSeat.Detach(ctx, booking.ID, rec.Released); err != nil {
			return err
		}
		if err := s.repo.BookingSeat.Attach(ctx, booking.ID, rec.Claimed); err != nil {
			return err
		}

		booking.Seats = rec.Seats
		booking.Cost = rec.Cost
		return s.repo.Booking.Update(ctx, booking)
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	if changed {
		s.log.Info("Booking seats changed",
			zap.String("booking_id", booking.ID.String()),
			zap.Strings("seats", booking.SeatLabels()),
			zap.String("cost", booking.Cost.StringFixed(2)),
		)
		s.publish(ctx, event.New(event.KindSeatsChanged, booking, showtime, s.now()))
	}

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, caller Caller, bookingID string) (*response.BookingResponse, error) {
	id, err := parseID(bookingID, "booking_id")
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "BookingService.CancelBooking", trace.WithAttributes(
		attribute.String("booking.id", id.String()),
	))
	defer span.End()

	var booking *entity.Booking
	var showtime *entity.Showtime
	var released []*entity.Seat
	err = s.repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.lockBooking(ctx, caller, id)
		if err != nil {
			return err
		}

		showtime, err = s.repo.Showtime.FindByID(ctx, booking.ShowtimeID)
		if err != nil {
			return err
		}
		if showtime != nil && showtime.HasStarted(s.now()) {
			return transitionError("cannot cancel a booking for a past showtime")
		}
		// a cancelled booking holds no seats; report the status, not the empty set
		if booking.IsCancelled() {
			return transitionError("booking has already been cancelled")
		}
		if len(booking.Seats) == 0 {
			return transitionError("no seats booked for this booking")
		}

		released = booking.Seats
		return s.cancel(ctx, booking)
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	s.log.Info("Booking cancelled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("cancelled_by", caller.UserID.String()),
		zap.Int("seats_released", len(released)),
	)
	s.publish(ctx, s.releasedEvent(event.KindCancelled, booking, released, showtime, ""))

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) ConfirmPayment(ctx context.Context, req *request.ConfirmPaymentRequest) (*response.BookingResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	id := uuid.MustParse(req.BookingID)

	var booking *entity.Booking
	err := s.repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.lockBooking(ctx, Caller{Staff: true}, id)
		if err != nil {
			return err
		}
		switch booking.Status {
		case entity.BookingStatusPending:
		case entity.BookingStatusCancelled:
			return transitionError("cannot confirm a cancelled booking")
		default:
			return transitionError("booking is already confirmed")
		}

		booking.Status = entity.BookingStatusConfirmed
		return s.repo.Booking.Update(ctx, booking)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking payment confirmed",
		zap.String("booking_id", booking.ID.String()),
		zap.String("reference", req.Reference),
	)
	s.publish(ctx, event.New(event.KindConfirmed, booking, s.findShowtime(ctx, booking.ShowtimeID), s.now()))

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetBooking(ctx context.Context, caller Caller, bookingID string) (*response.BookingResponse, error) {
	id, err := parseID(bookingID, "booking_id")
	if err != nil {
		return nil, err
	}

	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to get booking", zap.Error(err), zap.String("booking_id", bookingID))
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if !caller.canAccess(booking) {
		return nil, ErrForbidden
	}

	s.applyAttendance(ctx, booking, s.findShowtime(ctx, booking.ShowtimeID))

	resp := response.BookingToResponse(booking)
	return &resp, nil
}

func (s *bookingService) GetUserBookings(ctx context.Context, caller Caller, req *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	limit := req.Limit()
	offset := req.Offset()

	bookings, err := s.repo.Booking.FindByUserID(ctx, caller.UserID, limit, offset)
	if err != nil {
		s.log.Error("Failed to get user bookings", zap.Error(err), zap.String("user_id", caller.UserID.String()))
		return nil, fmt.Errorf("get user bookings: %w", err)
	}

	total, err := s.repo.Booking.CountByUserID(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("count user bookings: %w", err)
	}

	showtimes := make(map[uuid.UUID]*entity.Showtime)
	data := make([]response.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		st, ok := showtimes[b.ShowtimeID]
		if !ok {
			st = s.findShowtime(ctx, b.ShowtimeID)
			showtimes[b.ShowtimeID] = st
		}
		s.applyAttendance(ctx, b, st)
		data = append(data, response.BookingToResponse(b))
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	return response.NewPaginatedResponse(data, page, limit, total), nil
}

func (s *bookingService) ExpireUnpaid(ctx context.Context, bookingID uuid.UUID) error {
	return s.cancelUnpaid(ctx, bookingID, event.KindExpired, "payment was not completed in time")
}

func (s *bookingService) CancelEndedUnpaid(ctx context.Context, bookingID uuid.UUID) error {
	return s.cancelUnpaid(ctx, bookingID, event.KindExpired, "showtime ended before payment was completed")
}

// cancelUnpaid cancels a booking that is still pending and does nothing
// otherwise, so repeated or racing runs release seats at most once.
func (s *bookingService) cancelUnpaid(ctx context.Context, bookingID uuid.UUID, kind event.Kind, reason string) error {
	ctx, span := tracer.Start(ctx, "BookingService.cancelUnpaid", trace.WithAttributes(
		attribute.String("booking.id", bookingID.String()),
	))
	defer span.End()

	var booking *entity.Booking
	var released []*entity.Seat
	err := s.repo.Tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.repo.Booking.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking == nil || booking.Status != entity.BookingStatusPending {
			booking = nil
			return nil
		}

		released = booking.Seats
		return s.cancel(ctx, booking)
	})
	if err != nil {
		recordError(span, err)
		return err
	}
	if booking == nil {
		s.log.Debug("Booking no longer pending, nothing to expire", zap.String("booking_id", bookingID.String()))
		return nil
	}

	s.log.Info("Unpaid booking cancelled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("reason", reason),
		zap.Int("seats_released", len(released)),
	)
	s.publish(ctx, s.releasedEvent(kind, booking, released, s.findShowtime(ctx, booking.ShowtimeID), reason))
	return nil
}

// cancel releases every held seat and moves the booking to Cancelled. It
// must run inside a transaction that holds the booking lock.
func (s *bookingService) cancel(ctx context.Context, booking *entity.Booking) error {
	if _, err := s.engine.ReleaseSeats(ctx, booking.ShowtimeID, booking.SeatIDs()); err != nil {
		return err
	}
	if err := s.repo.BookingSeat.DeleteByBookingID(ctx, booking.ID); err != nil {
		return err
	}

	booking.Status = entity.BookingStatusCancelled
	booking.Attended = false
	booking.Seats = nil
	return s.repo.Booking.Update(ctx, booking)
}

func (s *bookingService) lockBooking(ctx context.Context, caller Caller, id uuid.UUID) (*entity.Booking, error) {
	booking, err := s.repo.Booking.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, ErrBookingNotFound
	}
	if !caller.canAccess(booking) {
		return nil, ErrForbidden
	}
	return booking, nil
}

// applyAttendance flips attended on read once the showtime has ended. The
// periodic sweep does the same, whichever runs first emits the event.
func (s *bookingService) applyAttendance(ctx context.Context, booking *entity.Booking, showtime *entity.Showtime) {
	if !booking.AttendanceDue(showtime, s.now()) {
		return
	}

	marked, err := s.repo.Booking.MarkAttended(ctx, booking.ID)
	if err != nil {
		s.log.Warn("Failed to mark booking attended", zap.Error(err), zap.String("booking_id", booking.ID.String()))
		return
	}

	booking.Attended = true
	if marked {
		s.publish(ctx, event.New(event.KindAttended, booking, showtime, s.now()))
	}
}

func (s *bookingService) scheduleFollowUps(ctx context.Context, booking *entity.Booking, showtime *entity.Showtime) {
	if s.scheduler == nil {
		return
	}

	jobs := []scheduler.Job{
		scheduler.NewJob(JobPaymentReminder, booking.ID, booking.CreatedAt.Add(s.policy.PaymentReminderAfter)),
		scheduler.NewJob(JobExpireUnpaid, booking.ID, booking.CreatedAt.Add(s.policy.PaymentDeadline)),
	}
	if remindAt := showtime.StartTime.Add(-s.policy.ShowtimeReminderLead); remindAt.After(s.now()) {
		jobs = append(jobs, scheduler.NewJob(JobShowtimeReminder, booking.ID, remindAt))
	}

	for _, job := range jobs {
		if err := s.scheduler.Schedule(ctx, job); err != nil {
			s.log.Error("Failed to schedule booking job",
				zap.Error(err),
				zap.String("kind", job.Kind),
				zap.String("booking_id", booking.ID.String()),
			)
		}
	}
}

func (s *bookingService) releasedEvent(kind event.Kind, booking *entity.Booking, released []*entity.Seat, showtime *entity.Showtime, reason string) event.Event {
	snapshot := *booking
	snapshot.Seats = released
	ev := event.New(kind, &snapshot, showtime, s.now())
	ev.Reason = reason
	return ev
}

func (s *bookingService) findShowtime(ctx context.Context, id uuid.UUID) *entity.Showtime {
	showtime, err := s.repo.Showtime.FindByID(ctx, id)
	if err != nil {
		s.log.Warn("Failed to load showtime", zap.Error(err), zap.String("showtime_id", id.String()))
		return nil
	}
	return showtime
}

// publish never fails the caller; the reservation has already committed.
func (s *bookingService) publish(ctx context.Context, ev event.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Error("Failed to publish booking event",
			zap.Error(err),
			zap.String("kind", string(ev.Kind)),
			zap.String("booking_id", ev.BookingID.String()),
		)
	}
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &ValidationError{Fields: map[string]string{field: "Must be a valid UUID"}}
	}
	return id, nil
}
