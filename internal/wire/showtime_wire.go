package wire

import (
	"net/http"

	"showtime-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireShowtime(r chi.Router, handler *adaptor.ShowtimeHandler, auth, admin func(http.Handler) http.Handler) {
	r.Get("/api/showtimes/{id}/seats", handler.GetSeatMap)

	r.With(auth, admin).Post("/api/admin/showtimes", handler.ProvisionShowtime)
}
