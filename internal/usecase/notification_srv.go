package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/dto/request"
	"showtime-booking/internal/dto/response"
	"showtime-booking/internal/event"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const showtimeLayout = "2006-01-02 15:04"

type NotificationService interface {
	// HandleEvent stores the user-facing message for a booking event. The
	// same message is stored once per user, so redelivered events are safe.
	HandleEvent(ctx context.Context, ev event.Event) error
	ListNotifications(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.NotificationListResponse, error)
	MarkRead(ctx context.Context, userID uuid.UUID, notificationID string) error
}

type notificationService struct {
	repo repository.NotificationRepository
	log  *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, log *zap.Logger) NotificationService {
	return &notificationService{
		repo: repo,
		log:  log.With(zap.String("service", "notification")),
	}
}

func (s *notificationService) HandleEvent(ctx context.Context, ev event.Event) error {
	message := NotificationMessage(ev)
	if message == "" {
		s.log.Debug("No notification for event kind", zap.String("kind", string(ev.Kind)))
		return nil
	}

	bookingID := ev.BookingID
	n := &entity.Notification{
		BaseSimple: entity.NewBaseSimple(time.Now()),
		UserID:     ev.UserID,
		BookingID:  &bookingID,
		Kind:       string(ev.Kind),
		Message:    message,
	}

	created, err := s.repo.GetOrCreate(ctx, n)
	if err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	if created {
		s.log.Info("Notification stored",
			zap.String("user_id", ev.UserID.String()),
			zap.String("kind", string(ev.Kind)),
		)
	}
	return nil
}

func (s *notificationService) ListNotifications(ctx context.Context, userID uuid.UUID, req *request.PaginatedRequest) (*response.NotificationListResponse, error) {
	limit := req.Limit()

	items, err := s.repo.FindByUserID(ctx, userID, limit, req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	total, unread, err := s.repo.CountByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}

	data := make([]response.NotificationResponse, len(items))
	for i, n := range items {
		data[i] = response.NotificationToResponse(n)
	}

	page := max(req.Page, 1)
	return &response.NotificationListResponse{
		PaginatedResponse: response.NewPaginatedResponse(data, page, limit, total),
		Unread:            unread,
	}, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID uuid.UUID, notificationID string) error {
	id, err := parseID(notificationID, "notification_id")
	if err != nil {
		return err
	}

	ok, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

// NotificationMessage renders the text shown to the user for an event, or ""
// when the kind produces no notification.
func NotificationMessage(ev event.Event) string {
	ref := shortRef(ev.BookingID)
	when := "your showtime"
	if !ev.ShowtimeStart.IsZero() {
		when = "the showtime on " + ev.ShowtimeStart.UTC().Format(showtimeLayout)
	}
	seats := strings.Join(ev.SeatLabels, ", ")

	switch ev.Kind {
	case event.KindCreated:
		return fmt.Sprintf("Booking %s for %s is reserved (seats %s, total %s). Complete payment to confirm it.", ref, when, seats, ev.Cost.StringFixed(2))
	case event.KindSeatsChanged:
		return fmt.Sprintf("Booking %s now holds seats %s, total %s.", ref, seats, ev.Cost.StringFixed(2))
	case event.KindCancelled:
		return fmt.Sprintf("Booking %s for %s has been cancelled.", ref, when)
	case event.KindExpired:
		msg := fmt.Sprintf("Booking %s for %s was cancelled", ref, when)
		if ev.Reason != "" {
			msg += ": " + ev.Reason
		}
		return msg + "."
	case event.KindConfirmed:
		return fmt.Sprintf("Payment received. Booking %s for %s is confirmed.", ref, when)
	case event.KindAttended:
		return fmt.Sprintf("Thanks for attending %s. We hope you enjoyed the movie.", when)
	case event.KindPaymentReminder:
		return fmt.Sprintf("Booking %s for %s is awaiting payment and will be cancelled if unpaid.", ref, when)
	case event.KindShowtimeReminder:
		return fmt.Sprintf("Reminder: booking %s, %s starts soon (seats %s).", ref, when, seats)
	}
	return ""
}

func shortRef(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}
