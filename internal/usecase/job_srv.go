package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/event"
	"showtime-booking/internal/scheduler"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deferred job kinds scheduled when a booking is created.
const (
	JobPaymentReminder  = "booking.payment_reminder"
	JobExpireUnpaid     = "booking.expire_unpaid"
	JobShowtimeReminder = "booking.showtime_reminder"
)

// JobService holds the scheduled and periodic booking jobs. Every job may run
// more than once and concurrently with user calls on the same booking.
type JobService interface {
	PaymentReminder(ctx context.Context, job scheduler.Job) error
	ExpireUnpaid(ctx context.Context, job scheduler.Job) error
	ShowtimeReminder(ctx context.Context, job scheduler.Job) error

	SweepEndedShowtimes(ctx context.Context) error
	SendUpcomingReminders(ctx context.Context) error

	Register(d *scheduler.Dispatcher)
}

type jobService struct {
	repo      *repository.Repository
	booking   BookingService
	publisher event.Publisher
	policy    BookingPolicy
	now       func() time.Time
	log       *zap.Logger
}

func NewJobService(repo *repository.Repository, booking BookingService, deps Dependencies, log *zap.Logger) JobService {
	deps = deps.withDefaults()
	if deps.Publisher == nil {
		deps.Publisher = event.NewLocalPublisher(log)
	}
	return &jobService{
		repo:      repo,
		booking:   booking,
		publisher: deps.Publisher,
		policy:    deps.Policy,
		now:       deps.Clock,
		log:       log.With(zap.String("service", "job")),
	}
}

func (s *jobService) Register(d *scheduler.Dispatcher) {
	d.Handle(JobPaymentReminder, s.PaymentReminder)
	d.Handle(JobExpireUnpaid, s.ExpireUnpaid)
	d.Handle(JobShowtimeReminder, s.ShowtimeReminder)
}

func (s *jobService) PaymentReminder(ctx context.Context, job scheduler.Job) error {
	booking, showtime, err := s.load(ctx, job.BookingID)
	if err != nil || booking == nil {
		return err
	}
	if booking.Status != entity.BookingStatusPending {
		return nil
	}

	return s.emit(ctx, event.New(event.KindPaymentReminder, booking, showtime, s.now()))
}

func (s *jobService) ExpireUnpaid(ctx context.Context, job scheduler.Job) error {
	return s.booking.ExpireUnpaid(ctx, job.BookingID)
}

func (s *jobService) ShowtimeReminder(ctx context.Context, job scheduler.Job) error {
	booking, showtime, err := s.load(ctx, job.BookingID)
	if err != nil || booking == nil {
		return err
	}
	if booking.Status != entity.BookingStatusConfirmed || showtime == nil || showtime.HasStarted(s.now()) {
		return nil
	}

	return s.emit(ctx, event.New(event.KindShowtimeReminder, booking, showtime, s.now()))
}

// SweepEndedShowtimes cancels bookings still unpaid when their showtime
// ended and marks confirmed ones attended. Pending bookings go first so they
// are never flagged attended.
func (s *jobService) SweepEndedShowtimes(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "JobService.SweepEndedShowtimes")
	defer span.End()

	now := s.now()
	var errs []error

	pending, err := s.repo.Booking.FindPendingEndedIDs(ctx, now, s.policy.SweepBatchSize)
	if err != nil {
		recordError(span, err)
		return fmt.Errorf("find pending ended bookings: %w", err)
	}
	for _, id := range pending {
		if err := s.booking.CancelEndedUnpaid(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("cancel unpaid booking %s: %w", id, err))
		}
	}

	attended, err := s.repo.Booking.MarkAttendedEnded(ctx, now, s.policy.SweepBatchSize)
	if err != nil {
		errs = append(errs, fmt.Errorf("mark attended: %w", err))
	}
	for _, b := range attended {
		s.publish(ctx, event.New(event.KindAttended, b, s.showtime(ctx, b.ShowtimeID), now))
	}

	if len(pending) > 0 || len(attended) > 0 {
		s.log.Info("Ended showtimes swept",
			zap.Int("cancelled", len(pending)),
			zap.Int("attended", len(attended)),
		)
	}

	if err := errors.Join(errs...); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

// SendUpcomingReminders emits a showtime reminder for every live booking
// starting within the reminder lead. Duplicates collapse in the notifier.
func (s *jobService) SendUpcomingReminders(ctx context.Context) error {
	now := s.now()
	bookings, err := s.repo.Booking.FindStartingBetween(ctx, now, now.Add(s.policy.ShowtimeReminderLead))
	if err != nil {
		return fmt.Errorf("find upcoming bookings: %w", err)
	}

	showtimes := make(map[uuid.UUID]*entity.Showtime)
	for _, b := range bookings {
		st, ok := showtimes[b.ShowtimeID]
		if !ok {
			st = s.showtime(ctx, b.ShowtimeID)
			showtimes[b.ShowtimeID] = st
		}
		s.publish(ctx, event.New(event.KindShowtimeReminder, b, st, now))
	}

	s.log.Debug("Upcoming reminders sent", zap.Int("count", len(bookings)))
	return nil
}

func (s *jobService) load(ctx context.Context, id uuid.UUID) (*entity.Booking, *entity.Showtime, error) {
	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("load booking %s: %w", id, err)
	}
	if booking == nil {
		s.log.Debug("Booking gone, skipping job", zap.String("booking_id", id.String()))
		return nil, nil, nil
	}

	showtime, err := s.repo.Showtime.FindByID(ctx, booking.ShowtimeID)
	if err != nil {
		return nil, nil, fmt.Errorf("load showtime %s: %w", booking.ShowtimeID, err)
	}
	return booking, showtime, nil
}

func (s *jobService) showtime(ctx context.Context, id uuid.UUID) *entity.Showtime {
	st, err := s.repo.Showtime.FindByID(ctx, id)
	if err != nil {
		s.log.Warn("Failed to load showtime", zap.Error(err), zap.String("showtime_id", id.String()))
		return nil
	}
	return st
}

// emit returns the publish error so the dispatcher retries the reminder.
func (s *jobService) emit(ctx context.Context, ev event.Event) error {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Kind, err)
	}
	return nil
}

func (s *jobService) publish(ctx context.Context, ev event.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Error("Failed to publish booking event",
			zap.Error(err),
			zap.String("kind", string(ev.Kind)),
			zap.String("booking_id", ev.BookingID.String()),
		)
	}
}
