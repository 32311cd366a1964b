package request

// An empty seat_ids list passes validation on purpose; the booking service
// rejects it with its own error kind.
type CreateBookingRequest struct {
	ShowtimeID string   `json:"showtime_id" validate:"required,uuid"`
	SeatIDs    []string `json:"seat_ids" validate:"dive,uuid"`
}

type EditBookingSeatsRequest struct {
	SeatIDs []string `json:"seat_ids" validate:"dive,uuid"`
}

type ConfirmPaymentRequest struct {
	BookingID string `json:"booking_id" validate:"required,uuid"`
	Reference string `json:"reference" validate:"omitempty,max=128"`
}
