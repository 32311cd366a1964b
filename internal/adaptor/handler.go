package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"showtime-booking/internal/usecase"
	"showtime-booking/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Booking      *BookingHandler
	Payment      *PaymentHandler
	Showtime     *ShowtimeHandler
	Notification *NotificationHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Booking:      NewBookingHandler(service.Booking, log),
		Payment:      NewPaymentHandler(service.Booking, log),
		Showtime:     NewShowtimeHandler(service.Showtime, log),
		Notification: NewNotificationHandler(service.Notification, log),
	}
}

// callerFromRequest reads the identity AuthSession stored in the context.
func callerFromRequest(r *http.Request) (usecase.Caller, bool) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		return usecase.Caller{}, false
	}
	return usecase.Caller{
		UserID: userID,
		Staff:  utils.IsAdminFromContext(r.Context()),
	}, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

// writeServiceError maps usecase errors to HTTP responses. Unknown errors
// are logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	var validationErr *usecase.ValidationError
	var transitionErr *usecase.TransitionError

	switch {
	case errors.As(err, &validationErr):
		utils.ResponseBadRequest(w, "Validation failed", validationErr.Fields)

	case errors.Is(err, usecase.ErrEmptySelection),
		errors.Is(err, usecase.ErrInvalidSeatReference):
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.As(err, &transitionErr):
		utils.ResponseUnprocessable(w, transitionErr.Reason)

	case errors.Is(err, usecase.ErrSeatsUnavailable),
		errors.Is(err, usecase.ErrInsufficientCapacity):
		log.Info(operation+" conflict", zap.Error(err))
		utils.ResponseConflict(w, err.Error())

	case errors.Is(err, usecase.ErrBookingNotFound),
		errors.Is(err, usecase.ErrShowtimeNotFound),
		errors.Is(err, usecase.ErrNotificationNotFound):
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrForbidden):
		utils.ResponseForbidden(w, err.Error())

	default:
		log.Error(operation+" failed", zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
