package adaptor

import (
	"net/http"

	"showtime-booking/internal/dto/request"
	"showtime-booking/internal/usecase"
	"showtime-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ShowtimeHandler struct {
	service usecase.ShowtimeService
	log     *zap.Logger
}

func NewShowtimeHandler(service usecase.ShowtimeService, log *zap.Logger) *ShowtimeHandler {
	return &ShowtimeHandler{
		service: service,
		log:     log.With(zap.String("handler", "showtime")),
	}
}

// GetSeatMap handles GET /api/showtimes/{id}/seats (public)
func (h *ShowtimeHandler) GetSeatMap(w http.ResponseWriter, r *http.Request) {
	seatMap, err := h.service.GetSeatMap(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.log, err, "get seat map")
		return
	}

	utils.ResponseSuccess(w, "success", seatMap)
}

// ProvisionShowtime handles POST /api/admin/showtimes (admin only)
func (h *ShowtimeHandler) ProvisionShowtime(w http.ResponseWriter, r *http.Request) {
	var req request.ProvisionShowtimeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	seatMap, err := h.service.ProvisionShowtime(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "provision showtime")
		return
	}

	utils.ResponseCreated(w, "Showtime created", seatMap)
}
