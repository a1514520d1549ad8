package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/habits/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/habits/:id", "204"))

	for i := 0; i < 3; i++ {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/habits/h-"+string(rune('a'+i)), nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, before+3, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/habits/:id", "204")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "unmatched", "404")), 1.0)
	assert.Equal(t, 0.0, testutil.ToFloat64(httpInFlight))
}

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(streakRecomputes.WithLabelValues("DAILY", "ok"))
	RecordStreakRecompute("DAILY", "ok", 3*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(streakRecomputes.WithLabelValues("DAILY", "ok")))

	dropped := testutil.ToFloat64(streakQueueDropped)
	RecordStreakJobDropped()
	assert.Equal(t, dropped+1, testutil.ToFloat64(streakQueueDropped))

	RecordAnalyticsReport(10 * time.Millisecond)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	for _, name := range []string{
		"kanso_streaks_recomputes_total",
		"kanso_streaks_queue_dropped_total",
		"kanso_analytics_report_duration_seconds",
	} {
		assert.True(t, strings.Contains(body, name), name)
	}
}
