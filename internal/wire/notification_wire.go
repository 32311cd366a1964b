package wire

import (
	"net/http"

	"showtime-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireNotification(r chi.Router, handler *adaptor.NotificationHandler, auth func(http.Handler) http.Handler) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(auth)

		r.Get("/", handler.ListNotifications)
		r.Put("/{id}/read", handler.MarkRead)
	})
}
