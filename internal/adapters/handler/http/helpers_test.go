package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	adapterHTTP "github.com/comitanigiacomo/kanso-habits/internal/adapters/handler/http"
	"github.com/comitanigiacomo/kanso-habits/internal/adapters/handler/http/middleware"
	"github.com/comitanigiacomo/kanso-habits/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-habits/internal/core/domain"
	"github.com/comitanigiacomo/kanso-habits/internal/core/engine"
	"github.com/comitanigiacomo/kanso-habits/internal/core/services"
	"github.com/comitanigiacomo/kanso-habits/internal/logger"
)

// testToday is a Wednesday.
var testToday = time.Date(2024, time.March, 13, 15, 4, 0, 0, time.UTC)

func day(offset int) string {
	return testToday.AddDate(0, 0, offset).Format(domain.DayLayout)
}

// inlineQueue runs scheduled recomputes immediately so tests can observe them.
type inlineQueue struct {
	streaks *services.StreakService
}

func (q inlineQueue) Enqueue(habitID string) {
	_, _ = q.streaks.Recompute(context.Background(), habitID)
}

type testEnv struct {
	router *gin.Engine
	store  *repository.MemoryStore
	tokens *services.TokenService
}

func newTestEnv(t *testing.T, limiter middleware.Limiter) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.Discard()
	store := repository.NewMemoryStore()
	calendar := engine.NewCalendar(time.UTC, func() time.Time { return testToday })

	tokens := services.NewTokenService("handler-test-secret", "kanso-test", time.Hour, store.Users())
	streaks := services.NewStreakService(store.Habits(), store.Entries(), store.Streaks(), calendar, log)

	router := adapterHTTP.NewRouter(adapterHTTP.RouterDependencies{
		AuthHandler: adapterHTTP.NewAuthHandler(services.NewAuthService(store.Users(), tokens)),
		HabitHandler: adapterHTTP.NewHabitHandler(services.NewHabitService(
			store.Habits(), store.Entries(), store.Streaks(), streaks, inlineQueue{streaks}, calendar, log,
		)),
		EntryHandler:     adapterHTTP.NewEntryHandler(services.NewEntryService(store.Habits(), store.Entries(), streaks, calendar)),
		AnalyticsHandler: adapterHTTP.NewAnalyticsHandler(services.NewAnalyticsService(store.Habits(), store.Entries(), store.Streaks(), calendar)),
		Tokens:           tokens,
		Limiter:          limiter,
		AllowedOrigins:   []string{"*"},
		Log:              log,
		StartTime:        time.Now(),
	})

	return &testEnv{router: router, store: store, tokens: tokens}
}

// user stores an account directly and returns a bearer token for it.
func (e *testEnv) user(t *testing.T, id string) string {
	t.Helper()

	u, err := domain.NewUser(id, id+"@kanso.test")
	require.NoError(t, err)
	require.NoError(t, e.store.Users().Create(context.Background(), u))

	token, _, err := e.tokens.GenerateToken(id)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// createHabit posts a habit and returns its id.
func (e *testEnv) createHabit(t *testing.T, token, title, frequency string) string {
	t.Helper()

	w := e.do(http.MethodPost, "/api/v1/habits", token, map[string]string{"title": title, "frequency": frequency})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var h domain.Habit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &h))
	return h.ID
}

func (e *testEnv) putEntry(t *testing.T, token, habitID, date, status string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(http.MethodPut, "/api/v1/entries", token, map[string]string{
		"habit_id": habitID,
		"date":     date,
		"status":   status,
	})
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type streakJSON struct {
	HabitID string `json:"habit_id"`
	Current int    `json:"current_streak"`
	Longest int    `json:"longest_streak"`
}

type entryJSON struct {
	ID      string `json:"id"`
	HabitID string `json:"habit_id"`
	Date    string `json:"date"`
	Status  string `json:"status"`
}

type entryResultJSON struct {
	Entry  entryJSON  `json:"entry"`
	Streak streakJSON `json:"streak"`
}

type habitDayJSON struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Frequency string  `json:"frequency"`
	Status    *string `json:"status"`
	Current   int     `json:"current_streak"`
	Longest   int     `json:"longest_streak"`
}

type dayListingJSON struct {
	Date   string         `json:"date"`
	Habits []habitDayJSON `json:"habits"`
}
