package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fishing-club-booking/internal/config"
	"github.com/iliyamo/fishing-club-booking/internal/handler"
	"github.com/iliyamo/fishing-club-booking/internal/repository"
	"github.com/iliyamo/fishing-club-booking/internal/router"
	"github.com/iliyamo/fishing-club-booking/internal/service"
	"github.com/iliyamo/fishing-club-booking/internal/service/memstore"
)

const secret = "test-secret"

type refreshRow struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type fakeTokens struct {
	mu   sync.Mutex
	rows map[string]*refreshRow
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[hash] = &refreshRow{userID: userID, exp: exp}
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string, now time.Time) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[hash]
	if !ok || r.revoked || !r.exp.After(now) {
		return 0, repository.ErrNotFound
	}
	return r.userID, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[hash]
	if !ok || r.revoked {
		return repository.ErrNotFound
	}
	r.revoked = true
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.userID == userID {
			r.revoked = true
		}
	}
	return nil
}

type okPinger struct{ err error }

func (p okPinger) PingContext(context.Context) error { return p.err }

type memUploader struct{}

func (memUploader) Upload(_ context.Context, key, _ string, _ []byte) (string, error) {
	return "https://cdn.test/" + key, nil
}

type app struct {
	e      *echo.Echo
	store  *memstore.Store
	tokens *fakeTokens
}

func newApp(t *testing.T) *app {
	t.Helper()
	store := memstore.New()
	tokens := &fakeTokens{rows: map[string]*refreshRow{}}
	cfg := config.Config{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}

	accounts := service.NewAccountService(store, cfg.BcryptCost)
	reservations := service.NewReservationService(store, time.UTC, "reservation.events", 5)
	inventory := service.NewInventoryService(store)
	ratings := service.NewRatingService(store)

	e := echo.New()
	router.RegisterRoutes(e, okPinger{})
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, accounts, tokens), secret)
	router.RegisterPublic(e, handler.NewPublicHandler(inventory, service.NewAvailabilityService(store, time.UTC), ratings,
		service.NewWeatherClient(config.WeatherConfig{})), config.CacheConfig{}, nil)
	router.RegisterFisher(e, handler.NewFisherHandler(reservations, ratings), secret, router.FisherOptions{})
	router.RegisterClub(e, handler.NewClubHandler(inventory, ratings, service.NewLogoStorageWith(memUploader{}, 1024)),
		handler.NewClubReservationHandler(reservations), secret, 1024)
	router.RegisterNotifications(e, handler.NewNotificationHandler(service.NewNotificationService(store), nil), secret)
	return &app{e: e, store: store, tokens: tokens}
}

func (a *app) call(method, path string, body any, token string) *httptest.ResponseRecorder {
	var rdr *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

type session struct {
	ID      uint64
	Access  string
	Refresh string
}

func (a *app) register(t *testing.T, body map[string]any) session {
	t.Helper()
	rec := a.call(http.MethodPost, "/v1/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		User struct {
			ID uint64 `json:"id"`
		} `json:"user"`
		Access  struct{ Token string } `json:"access"`
		Refresh struct{ Token string } `json:"refresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return session{ID: out.User.ID, Access: out.Access.Token, Refresh: out.Refresh.Token}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func bookingDate() string {
	return time.Now().UTC().AddDate(0, 0, 30).Format("2006-01-02")
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	rec := a.call(http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok","db":"up"}`, rec.Body.String())

	e := echo.New()
	router.RegisterRoutes(e, okPinger{err: fmt.Errorf("down")})
	r := httptest.NewRecorder()
	e.ServeHTTP(r, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, r.Code)
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t)
	s := a.register(t, map[string]any{"email": "ana@example.com", "password": "hunter22", "name": "Ana"})

	rec := a.call(http.MethodPost, "/v1/auth/register", map[string]any{"email": "ana@example.com", "password": "hunter22"}, "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = a.call(http.MethodPost, "/v1/auth/login", map[string]any{"email": "ana@example.com", "password": "nope-nope"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.call(http.MethodPost, "/v1/auth/login", map[string]any{"email": "ana@example.com", "password": "hunter22"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.call(http.MethodGet, "/v1/me", nil, s.Access)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[map[string]any](t, rec)
	require.Equal(t, "FISHER", me["role"])

	// rotation revokes the presented refresh token
	rec = a.call(http.MethodPost, "/v1/auth/refresh", map[string]any{"refresh_token": s.Refresh}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.call(http.MethodPost, "/v1/auth/refresh", map[string]any{"refresh_token": s.Refresh}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.call(http.MethodPost, "/v1/me/device-tokens", map[string]any{"token": "fcm-1"}, s.Access)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.call(http.MethodPost, "/v1/auth/logout", nil, s.Access)
	require.Equal(t, http.StatusNoContent, rec.Code)
	for _, r := range a.tokens.rows {
		require.True(t, r.revoked)
	}
}

func TestReservationLifecycleOverHTTP(t *testing.T) {
	a := newApp(t)
	club := a.register(t, map[string]any{"email": "club@example.com", "password": "hunter22", "role": "CLUB", "club_name": "Laguna"})
	fisher := a.register(t, map[string]any{"email": "f@example.com", "password": "hunter22", "name": "Fede", "phone": "555"})
	other := a.register(t, map[string]any{"email": "g@example.com", "password": "hunter22"})

	rec := a.call(http.MethodPut, "/v1/club/boats", map[string]any{"items": []map[string]any{
		{"kind": "motor", "capacity": 3, "count": 1, "price_cents": 10000},
	}}, club.Access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.call(http.MethodPut, "/v1/club/bait", map[string]any{"available": true, "price_cents": 700}, club.Access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// fishers cannot reach club routes and vice versa
	require.Equal(t, http.StatusForbidden, a.call(http.MethodGet, "/v1/club/boats", nil, fisher.Access).Code)
	require.Equal(t, http.StatusForbidden, a.call(http.MethodGet, "/v1/my-reservations", nil, club.Access).Code)

	date := bookingDate()
	body := map[string]any{"club_id": club.ID, "boat_kind": "motor", "capacity": 3, "date": date, "party_size": 2, "bait_packs": 1}
	rec = a.call(http.MethodPost, "/v1/reservations", body, fisher.Access)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]any](t, rec)
	require.Equal(t, "PENDING", created["state"])
	require.EqualValues(t, 10700, created["total_cents"])
	id := uint64(created["id"].(float64))

	rec = a.call(http.MethodPost, "/v1/reservations", body, other.Access)
	require.Equal(t, http.StatusConflict, rec.Code)

	avail := decode[struct {
		Items []service.BoatAvailability `json:"items"`
	}](t, a.call(http.MethodGet, fmt.Sprintf("/v1/clubs/%d/availability?date=%s", club.ID, date), nil, ""))
	require.Len(t, avail.Items, 1)
	require.Zero(t, avail.Items[0].Remaining)

	rec = a.call(http.MethodGet, fmt.Sprintf("/v1/reservations/%d", id), nil, other.Access)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.call(http.MethodGet, "/v1/club/reservations?view=day&date="+date, nil, club.Access)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[service.ReservationPage](t, rec)
	require.Equal(t, 1, page.Total)

	rec = a.call(http.MethodPost, fmt.Sprintf("/v1/club/reservations/%d/confirm", id), map[string]any{"message": "Dock 3"}, club.Access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "CONFIRMED", decode[map[string]any](t, rec)["state"])

	rec = a.call(http.MethodGet, "/v1/notifications/unread-count", nil, fisher.Access)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"unread":1}`, rec.Body.String())

	rec = a.call(http.MethodPost, fmt.Sprintf("/v1/club/reservations/%d/confirm", id), nil, club.Access)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = a.call(http.MethodPatch, fmt.Sprintf("/v1/reservations/%d", id), map[string]any{"party_size": 3}, fisher.Access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "PENDING", decode[map[string]any](t, rec)["state"])

	rec = a.call(http.MethodPost, fmt.Sprintf("/v1/reservations/%d/cancel", id), nil, fisher.Access)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "CANCELLED", decode[map[string]any](t, rec)["state"])

	rec = a.call(http.MethodGet, "/v1/my-reservations", nil, fisher.Access)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[struct {
		Items []map[string]any `json:"items"`
	}](t, rec)
	require.Len(t, mine.Items, 1)
}

func TestReservationValidationErrors(t *testing.T) {
	a := newApp(t)
	club := a.register(t, map[string]any{"email": "club@example.com", "password": "hunter22", "role": "CLUB", "club_name": "Laguna"})
	fisher := a.register(t, map[string]any{"email": "f@example.com", "password": "hunter22"})

	cases := []struct {
		name string
		body map[string]any
		code int
		err  string
	}{
		{"missing club", map[string]any{"boat_kind": "motor", "capacity": 3, "date": bookingDate(), "party_size": 1}, http.StatusBadRequest, "BAD_REQUEST"},
		{"bad date", map[string]any{"club_id": club.ID, "boat_kind": "motor", "capacity": 3, "date": "soon", "party_size": 1}, http.StatusBadRequest, "BAD_REQUEST"},
		{"party over capacity", map[string]any{"club_id": club.ID, "boat_kind": "motor", "capacity": 3, "date": bookingDate(), "party_size": 9}, http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{"unknown boat", map[string]any{"club_id": club.ID, "boat_kind": "yacht", "capacity": 3, "date": bookingDate(), "party_size": 1}, http.StatusNotFound, "NOT_FOUND"},
		// the default catalog has no units yet
		{"no stock", map[string]any{"club_id": club.ID, "boat_kind": "motor", "capacity": 3, "date": bookingDate(), "party_size": 1}, http.StatusConflict, "CONFLICT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := a.call(http.MethodPost, "/v1/reservations", tc.body, fisher.Access)
			require.Equal(t, tc.code, rec.Code, rec.Body.String())
			require.Equal(t, tc.err, decode[errBody](t, rec).Code)
		})
	}

	rec := a.call(http.MethodPost, "/v1/reservations", map[string]any{"club_id": club.ID}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPublicBrowseAndRatings(t *testing.T) {
	a := newApp(t)
	club := a.register(t, map[string]any{"email": "club@example.com", "password": "hunter22", "role": "CLUB", "club_name": "Laguna", "location": "Cordoba"})
	fisher := a.register(t, map[string]any{"email": "f@example.com", "password": "hunter22", "name": "Fede"})

	rec := a.call(http.MethodGet, "/v1/clubs", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Items []map[string]any `json:"items"`
	}](t, rec)
	require.Len(t, list.Items, 1)

	rec = a.call(http.MethodGet, "/v1/clubs/999", nil, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.call(http.MethodPut, fmt.Sprintf("/v1/clubs/%d/rating", club.ID), map[string]any{"score": 4, "comment": "nice"}, fisher.Access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.call(http.MethodPut, fmt.Sprintf("/v1/clubs/%d/rating", club.ID), map[string]any{"score": 7}, fisher.Access)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = a.call(http.MethodGet, "/v1/rankings", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"average_rating":4`)

	rec = a.call(http.MethodGet, "/v1/club/ratings", nil, club.Access)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "nice")

	// weather is not configured in tests
	rec = a.call(http.MethodGet, fmt.Sprintf("/v1/weather?club_id=%d", club.ID), nil, "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestClubLogoUpload(t *testing.T) {
	a := newApp(t)
	club := a.register(t, map[string]any{"email": "club@example.com", "password": "hunter22", "role": "CLUB", "club_name": "Laguna"})

	upload := func(content []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, err := w.CreateFormFile("logo", "logo.png")
		require.NoError(t, err)
		_, _ = part.Write(content)
		require.NoError(t, w.Close())
		req := httptest.NewRequest(http.MethodPost, "/v1/club/logo", &buf)
		req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+club.Access)
		rec := httptest.NewRecorder()
		a.e.ServeHTTP(rec, req)
		return rec
	}

	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	rec := upload(png)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	url := decode[map[string]string](t, rec)["logo_url"]
	require.Contains(t, url, fmt.Sprintf("logos/%d/", club.ID))

	rec = a.call(http.MethodGet, "/v1/club/profile", nil, club.Access)
	require.Contains(t, rec.Body.String(), url)

	rec = upload([]byte("just text"))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestNotificationsInbox(t *testing.T) {
	a := newApp(t)
	club := a.register(t, map[string]any{"email": "club@example.com", "password": "hunter22", "role": "CLUB", "club_name": "Laguna"})
	fisher := a.register(t, map[string]any{"email": "f@example.com", "password": "hunter22"})
	rec := a.call(http.MethodPut, "/v1/club/boats/item", map[string]any{"kind": "motor", "capacity": 3, "count": 5, "price_cents": 100}, club.Access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for i := 0; i < 2; i++ {
		rec := a.call(http.MethodPost, "/v1/reservations", map[string]any{
			"club_id": club.ID, "boat_kind": "motor", "capacity": 3, "date": bookingDate(), "party_size": 1,
		}, fisher.Access)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec = a.call(http.MethodGet, "/v1/notifications?unread=true", nil, club.Access)
	require.Equal(t, http.StatusOK, rec.Code)
	inbox := decode[struct {
		Items []struct {
			ID uint64 `json:"id"`
		} `json:"items"`
	}](t, rec)
	require.Len(t, inbox.Items, 2)

	rec = a.call(http.MethodPatch, fmt.Sprintf("/v1/notifications/%d/read", inbox.Items[0].ID), nil, fisher.Access)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.call(http.MethodPatch, fmt.Sprintf("/v1/notifications/%d/read", inbox.Items[0].ID), nil, club.Access)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.call(http.MethodPost, "/v1/notifications/read-all", nil, club.Access)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"updated":1}`, rec.Body.String())

	// no hub configured
	rec = a.call(http.MethodGet, "/v1/ws", nil, club.Access)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
