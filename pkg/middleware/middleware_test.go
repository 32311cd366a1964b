package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/data/memory"
	"showtime-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORS_Preflight(t *testing.T) {
	h := CORS(utils.CORSConfig{AllowedOrigins: []string{"*"}, MaxAge: 300})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/bookings", nil)
	req.Header.Set("Origin", "https://tickets.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.MethodPut, rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")
	assert.Equal(t, "300", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_AllowList(t *testing.T) {
	h := CORS(utils.CORSConfig{AllowedOrigins: []string{"https://tickets.example"}})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://tickets.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "https://tickets.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://other.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS_CredentialsWithWildcardEchoesOrigin(t *testing.T) {
	h := CORS(utils.CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
	req.Header.Set("Origin", "https://tickets.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://tickets.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")
}

func TestRecover(t *testing.T) {
	h := Recover(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAuthSession(t *testing.T) {
	repo := memory.NewStore().Repository()
	ctx := context.Background()

	active := &entity.User{Base: entity.Base{ID: uuid.New()}, Role: entity.RoleAdmin, IsActive: true}
	inactive := &entity.User{Base: entity.Base{ID: uuid.New()}, Role: entity.RoleCustomer}
	require.NoError(t, repo.User.Create(ctx, active))
	require.NoError(t, repo.User.Create(ctx, inactive))

	session := func(userID uuid.UUID, expires time.Time) string {
		token := uuid.New()
		require.NoError(t, repo.Session.Create(ctx, &entity.Session{
			BaseSimple: entity.BaseSimple{ID: uuid.New()},
			UserID:     userID,
			Token:      token,
			ExpiresAt:  expires,
		}))
		return token.String()
	}
	valid := session(active.ID, time.Now().Add(time.Hour))
	expired := session(active.ID, time.Now().Add(-time.Minute))
	disabled := session(inactive.ID, time.Now().Add(time.Hour))

	var seen uuid.UUID
	h := AuthSession(repo.Session, zap.NewNop())(Admin(zap.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = utils.GetUserIDFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}),
	))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized},
		{"malformed token", "Bearer abc", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"inactive user", "Bearer " + disabled, http.StatusUnauthorized},
		{"valid lowercase scheme", "bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, active.ID, seen)
}

func TestAdmin_RejectsCustomer(t *testing.T) {
	h := Admin(zap.NewNop())(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(utils.SetUserContext(req.Context(), uuid.New(), string(entity.RoleCustomer)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
