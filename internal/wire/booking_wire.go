package wire

import (
	"net/http"

	"showtime-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireBooking(r chi.Router, handler *adaptor.Handler, auth, admin func(http.Handler) http.Handler) {
	// Owners act on their own bookings; admins on any.
	r.Route("/api/bookings", func(r chi.Router) {
		r.Use(auth)

		r.Post("/", handler.Booking.CreateBooking)
		r.Get("/", handler.Booking.GetUserBookings)
		r.Get("/{id}", handler.Booking.GetBooking)
		r.Put("/{id}/seats", handler.Booking.EditBookingSeats)
		r.Delete("/{id}", handler.Booking.CancelBooking)
	})

	// Payment collaborator callback
	r.With(auth, admin).Post("/api/payments/confirm", handler.Payment.ConfirmPayment)
}
