package response

import (
	"time"

	"showtime-booking/internal/data/entity"
)

type NotificationResponse struct {
	ID        string    `json:"id"`
	BookingID *string   `json:"booking_id,omitempty"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type NotificationListResponse struct {
	*PaginatedResponse[NotificationResponse]
	Unread int64 `json:"unread"`
}

func NotificationToResponse(n *entity.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID.String(),
		Kind:      n.Kind,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
	if n.BookingID != nil {
		id := n.BookingID.String()
		resp.BookingID = &id
	}
	return resp
}
