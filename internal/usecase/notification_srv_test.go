package usecase

import (
	"testing"
	"time"

	"showtime-booking/internal/dto/request"
	"showtime-booking/internal/event"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(kind event.Kind, userID uuid.UUID) event.Event {
	return event.Event{
		ID:            uuid.New(),
		Kind:          kind,
		BookingID:     uuid.MustParse("3f2a9c1e-0000-4000-8000-000000000001"),
		UserID:        userID,
		ShowtimeStart: time.Date(2026, 3, 4, 19, 30, 0, 0, time.UTC),
		SeatLabels:    []string{"B3", "B4"},
		Cost:          decimal.RequireFromString("25.50"),
	}
}

func TestNotificationMessage(t *testing.T) {
	user := uuid.New()

	tests := []struct {
		kind event.Kind
		want string
	}{
		{event.KindCreated, "Booking 3F2A9C1E for the showtime on 2026-03-04 19:30 is reserved (seats B3, B4, total 25.50). Complete payment to confirm it."},
		{event.KindCancelled, "Booking 3F2A9C1E for the showtime on 2026-03-04 19:30 has been cancelled."},
		{event.KindConfirmed, "Payment received. Booking 3F2A9C1E for the showtime on 2026-03-04 19:30 is confirmed."},
		{event.Kind("booking.unknown"), ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, NotificationMessage(testEvent(tt.kind, user)))
		})
	}

	expired := testEvent(event.KindExpired, user)
	expired.Reason = "payment was not completed in time"
	assert.Equal(t, "Booking 3F2A9C1E for the showtime on 2026-03-04 19:30 was cancelled: payment was not completed in time.", NotificationMessage(expired))
}

func TestHandleEvent_DedupesPerUserAndMessage(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	svc := env.service.Notification

	ev := testEvent(event.KindShowtimeReminder, user)
	require.NoError(t, svc.HandleEvent(env.ctx, ev))
	require.NoError(t, svc.HandleEvent(env.ctx, ev))
	require.NoError(t, svc.HandleEvent(env.ctx, testEvent(event.KindShowtimeReminder, uuid.New())))
	require.NoError(t, svc.HandleEvent(env.ctx, testEvent(event.Kind("booking.unknown"), user)))

	list, err := svc.ListNotifications(env.ctx, user, &request.PaginatedRequest{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, int64(1), list.Pagination.Total)
	assert.Equal(t, int64(1), list.Unread)
	assert.Equal(t, string(event.KindShowtimeReminder), list.Data[0].Kind)
}

func TestMarkRead(t *testing.T) {
	env := newTestEnv(t)
	user := uuid.New()
	svc := env.service.Notification

	require.NoError(t, svc.HandleEvent(env.ctx, testEvent(event.KindCreated, user)))
	list, err := svc.ListNotifications(env.ctx, user, &request.PaginatedRequest{Page: 1, PerPage: 10})
	require.NoError(t, err)
	id := list.Data[0].ID

	require.ErrorIs(t, svc.MarkRead(env.ctx, uuid.New(), id), ErrNotificationNotFound)
	require.NoError(t, svc.MarkRead(env.ctx, user, id))

	list, err = svc.ListNotifications(env.ctx, user, &request.PaginatedRequest{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.Zero(t, list.Unread)
	assert.True(t, list.Data[0].IsRead)
}
