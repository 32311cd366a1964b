package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/data/memory"
	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/dto/request"
	"showtime-booking/internal/event"
	"showtime-booking/internal/scheduler"
	"showtime-booking/internal/usecase"
	"showtime-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type apiEnv struct {
	repo     *repository.Repository
	service  *usecase.Service
	server   *httptest.Server
	showtime uuid.UUID
	seats    []*entity.Seat
}

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  map[string]any  `json:"errors"`
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	log := zap.NewNop()
	repo := memory.NewStore().Repository()
	publisher := event.NewLocalPublisher(log)

	service := usecase.NewService(repo, usecase.Dependencies{
		Publisher: publisher,
		Scheduler: scheduler.NewMemoryQueue(),
	}, log)
	publisher.Subscribe(service.Notification.HandleEvent)

	start := time.Now().Add(72 * time.Hour)
	seatMap, err := service.Showtime.ProvisionShowtime(context.Background(), &request.ProvisionShowtimeRequest{
		MovieID:      uuid.NewString(),
		AuditoriumID: uuid.NewString(),
		StartTime:    start,
		EndTime:      start.Add(2 * time.Hour),
		Capacity:     4,
		Price:        decimal.RequireFromString("12.50"),
	})
	require.NoError(t, err)

	showtimeID := uuid.MustParse(seatMap.ID)
	seats, err := repo.Seat.FindByShowtime(context.Background(), showtimeID)
	require.NoError(t, err)

	server := httptest.NewServer(Wiring(repo, service, utils.CORSConfig{AllowedOrigins: []string{"*"}}, log).Router)
	t.Cleanup(server.Close)

	return &apiEnv{repo: repo, service: service, server: server, showtime: showtimeID, seats: seats}
}

// login creates an active user with a live session and returns its token.
func (e *apiEnv) login(t *testing.T, role entity.UserRole) (uuid.UUID, string) {
	t.Helper()
	ctx := context.Background()
	user := &entity.User{
		Base:     entity.Base{ID: uuid.New()},
		Username: "user-" + uuid.NewString()[:8],
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, e.repo.User.Create(ctx, user))

	token := uuid.New()
	require.NoError(t, e.repo.Session.Create(ctx, &entity.Session{
		BaseSimple: entity.BaseSimple{ID: uuid.New()},
		UserID:     user.ID,
		Token:      token,
		ExpiresAt:  time.Now().Add(time.Hour),
	}))
	return user.ID, token.String()
}

func (e *apiEnv) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &payload)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func (e *apiEnv) seatIDs(idx ...int) []string {
	ids := make([]string, len(idx))
	for i, n := range idx {
		ids[i] = e.seats[n].ID.String()
	}
	return ids
}

func bookingID(t *testing.T, env envelope) string {
	t.Helper()
	var data struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.ID
}

func TestHealth(t *testing.T) {
	e := newAPIEnv(t)
	code, _ := e.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAuthRequired(t *testing.T) {
	e := newAPIEnv(t)

	code, _ := e.do(t, http.MethodGet, "/api/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = e.do(t, http.MethodGet, "/api/bookings", uuid.NewString(), nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	_, token := e.login(t, entity.RoleCustomer)
	code, _ = e.do(t, http.MethodPost, "/api/admin/showtimes", token, map[string]any{})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestBookingFlow(t *testing.T) {
	e := newAPIEnv(t)
	_, alice := e.login(t, entity.RoleCustomer)
	_, bob := e.login(t, entity.RoleCustomer)
	_, admin := e.login(t, entity.RoleAdmin)

	code, env := e.do(t, http.MethodPost, "/api/bookings", alice, map[string]any{
		"showtime_id": e.showtime.String(),
		"seat_ids":    e.seatIDs(0, 1),
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	id := bookingID(t, env)

	// overlapping selection
	code, _ = e.do(t, http.MethodPost, "/api/bookings", bob, map[string]any{
		"showtime_id": e.showtime.String(),
		"seat_ids":    e.seatIDs(1, 2),
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = e.do(t, http.MethodPost, "/api/bookings", bob, map[string]any{
		"showtime_id": e.showtime.String(),
		"seat_ids":    []string{},
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = e.do(t, http.MethodPost, "/api/bookings", bob, map[string]any{
		"showtime_id": "nope",
		"seat_ids":    e.seatIDs(2),
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Errors, "showtime_id")

	code, _ = e.do(t, http.MethodGet, "/api/bookings/"+id, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = e.do(t, http.MethodGet, "/api/bookings/"+uuid.NewString(), alice, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = e.do(t, http.MethodPut, "/api/bookings/"+id+"/seats", alice, map[string]any{
		"seat_ids": e.seatIDs(1, 3),
	})
	assert.Equal(t, http.StatusOK, code)

	confirm := map[string]any{"booking_id": id, "reference": "PAY-1"}
	code, _ = e.do(t, http.MethodPost, "/api/payments/confirm", alice, confirm)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = e.do(t, http.MethodPost, "/api/payments/confirm", admin, confirm)
	assert.Equal(t, http.StatusOK, code)
	code, _ = e.do(t, http.MethodPost, "/api/payments/confirm", admin, confirm)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, env = e.do(t, http.MethodGet, "/api/showtimes/"+e.showtime.String()+"/seats", "", nil)
	require.Equal(t, http.StatusOK, code)
	var seatMap struct {
		AvailableSeats int `json:"available_seats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &seatMap))
	assert.Equal(t, 2, seatMap.AvailableSeats)

	code, _ = e.do(t, http.MethodDelete, "/api/bookings/"+id, alice, nil)
	assert.Equal(t, http.StatusOK, code)
	code, env = e.do(t, http.MethodDelete, "/api/bookings/"+id, alice, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "booking has already been cancelled", env.Message)

	code, env = e.do(t, http.MethodGet, "/api/notifications", alice, nil)
	require.Equal(t, http.StatusOK, code)
	var list struct {
		Data   []struct{ Kind string } `json:"data"`
		Unread int64                   `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.NotEmpty(t, list.Data)
	assert.Equal(t, int64(len(list.Data)), list.Unread)
}

func TestProvisionShowtime_Admin(t *testing.T) {
	e := newAPIEnv(t)
	_, admin := e.login(t, entity.RoleAdmin)

	start := time.Now().Add(24 * time.Hour).UTC()
	code, env := e.do(t, http.MethodPost, "/api/admin/showtimes", admin, map[string]any{
		"movie_id":      uuid.NewString(),
		"auditorium_id": uuid.NewString(),
		"start_time":    start,
		"end_time":      start.Add(2 * time.Hour),
		"capacity":      12,
		"price":         "9.00",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)

	var seatMap struct {
		TotalSeats int               `json:"total_seats"`
		Seats      []json.RawMessage `json:"seats"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &seatMap))
	assert.Equal(t, 12, seatMap.TotalSeats)
	assert.Len(t, seatMap.Seats, 12)

	code, _ = e.do(t, http.MethodPost, "/api/admin/showtimes", admin, map[string]any{
		"movie_id": uuid.NewString(),
		"capacity": 0,
	})
	assert.Equal(t, http.StatusBadRequest, code)
}
