package wire

import (
	"net/http"

	"showtime-booking/internal/adaptor"
	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/usecase"
	"showtime-booking/pkg/middleware"
	"showtime-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the HTTP entry point.
type App struct {
	Router *chi.Mux
}

func Wiring(repo *repository.Repository, service *usecase.Service, cors utils.CORSConfig, logger *zap.Logger) *App {
	handler := adaptor.NewHandler(service, logger)

	return &App{
		Router: setupRouter(handler, repo, cors, logger),
	}
}

func setupRouter(handler *adaptor.Handler, repo *repository.Repository, cors utils.CORSConfig, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(cors))

	auth := middleware.AuthSession(repo.Session, logger)
	admin := middleware.Admin(logger)

	wireBooking(r, handler, auth, admin)
	wireShowtime(r, handler.Showtime, auth, admin)
	wireNotification(r, handler.Notification, auth)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
