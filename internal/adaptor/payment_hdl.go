package adaptor

import (
	"net/http"

	"showtime-booking/internal/dto/request"
	"showtime-booking/internal/usecase"
	"showtime-booking/pkg/utils"

	"go.uber.org/zap"
)

// PaymentHandler is the callback surface for the payment collaborator.
type PaymentHandler struct {
	service usecase.BookingService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.BookingService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// ConfirmPayment handles POST /api/payments/confirm (admin only)
func (h *PaymentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req request.ConfirmPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := h.service.ConfirmPayment(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "confirm payment")
		return
	}

	utils.ResponseSuccess(w, "Payment confirmed", booking)
}
