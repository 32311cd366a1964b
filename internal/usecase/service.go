package usecase

import (
	"time"

	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/event"
	"showtime-booking/internal/scheduler"
	"showtime-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Service struct {
	Engine       ReservationEngine
	Booking      BookingService
	Showtime     ShowtimeService
	Job          JobService
	Notification NotificationService
}

// BookingPolicy holds the lifecycle timings.
type BookingPolicy struct {
	PaymentReminderAfter time.Duration
	PaymentDeadline      time.Duration
	ShowtimeReminderLead time.Duration
	SweepBatchSize       int
}

func DefaultBookingPolicy() BookingPolicy {
	return BookingPolicy{
		PaymentReminderAfter: 24 * time.Hour,
		PaymentDeadline:      48 * time.Hour,
		ShowtimeReminderLead: 24 * time.Hour,
		SweepBatchSize:       200,
	}
}

func BookingPolicyFromConfig(cfg utils.BookingConfig) BookingPolicy {
	p := DefaultBookingPolicy()
	if cfg.PaymentReminderAfter > 0 {
		p.PaymentReminderAfter = cfg.PaymentReminderAfter
	}
	if cfg.PaymentDeadline > 0 {
		p.PaymentDeadline = cfg.PaymentDeadline
	}
	if cfg.ShowtimeReminderLead > 0 {
		p.ShowtimeReminderLead = cfg.ShowtimeReminderLead
	}
	return p
}

// Dependencies are the collaborators shared by the services.
type Dependencies struct {
	Publisher event.Publisher
	Scheduler scheduler.Scheduler
	Policy    BookingPolicy
	Clock     func() time.Time
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Policy == (BookingPolicy{}) {
		d.Policy = DefaultBookingPolicy()
	}
	if d.Policy.SweepBatchSize <= 0 {
		d.Policy.SweepBatchSize = 200
	}
	return d
}

func NewService(repo *repository.Repository, deps Dependencies, log *zap.Logger) *Service {
	deps = deps.withDefaults()
	engine := NewReservationEngine(repo, log)
	booking := NewBookingService(repo, engine, deps, log)

	return &Service{
		Engine:       engine,
		Booking:      booking,
		Showtime:     NewShowtimeService(repo, log),
		Job:          NewJobService(repo, booking, deps, log),
		Notification: NewNotificationService(repo.Notification, log),
	}
}

// Caller is the authenticated identity the boundary resolved for a request.
type Caller struct {
	UserID uuid.UUID
	Staff  bool
}

func (c Caller) canAccess(b *entity.Booking) bool {
	return c.Staff || b.UserID == c.UserID
}
