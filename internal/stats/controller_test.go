package stats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitspot/pkg/ratelimit"
)

func newTestRouter(t *testing.T) (*testEngine, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	e := newTestEngine(t)
	engine := gin.New()
	api := engine.Group("/api/v1")
	limiter := ratelimit.NewLimiter(nil, &ratelimit.Config{Enabled: false, WindowDuration: time.Minute, Requests: 10})
	SetupStatsRoutes(api, NewController(e.service), limiter)
	return e, engine
}

func TestTrackViewEndpoint(t *testing.T) {
	e, engine := newTestRouter(t)
	hostID := uuid.New()
	act, _ := e.createActivity(hostID, 10, 1000, time.Now().AddDate(0, 0, 7))

	viewer := uuid.New().String()
	body, _ := json.Marshal(map[string]interface{}{
		"activity_id": act.ID.String(),
		"viewer_id":   viewer,
		"source":      "search",
		"device_type": "web",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/track/views", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)

	am := e.activityMetrics(act.ID)
	assert.Equal(t, 1, am.ViewCount)
	assert.Equal(t, 1, am.UniqueViewerCount)
}

func TestTrackViewRejectsBadBody(t *testing.T) {
	_, engine := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/track/views", bytes.NewReader([]byte(`{"activity_id":"not-a-uuid"}`)))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetHostMetricsEndpoint(t *testing.T) {
	e, engine := newTestRouter(t)
	hostID := uuid.New()
	act, event := e.createActivity(hostID, 10, 1500, time.Now().AddDate(0, 0, 7))
	e.confirmBooking(uuid.New(), act, event)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/stats/hosts/%s", hostID), nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Status string      `json:"status"`
		Data   HostMetrics `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "success", envelope.Status)
	assert.Equal(t, 1, envelope.Data.TotalBookings)
}

func TestGetActivityMetricsNotFound(t *testing.T) {
	_, engine := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/stats/activities/%s", uuid.New()), nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRecomputeEndpoint(t *testing.T) {
	e, engine := newTestRouter(t)
	hostID := uuid.New()
	act, _ := e.createActivity(hostID, 10, 1500, time.Now().AddDate(0, 0, 7))
	bookingFixture(t, e, uuid.New(), act.ID, true, 1500)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/stats/admin/hosts/%s/recompute", hostID), nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, e.hostMetrics(hostID).TotalBookings)
}

func TestAdminSnapshotEndpointValidatesDate(t *testing.T) {
	_, engine := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stats/admin/snapshots/daily?date=30-08-2026", nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetHostDailySnapshotEndpoint(t *testing.T) {
	e, engine := newTestRouter(t)
	hostID := uuid.New()
	day := startOfDay(time.Now().AddDate(0, 0, -3))
	ledgerDay(t, e, hostID, day, 2, 800)

	w := httptest.NewRecorder()
	buildURL := fmt.Sprintf("/api/v1/stats/admin/snapshots/daily?date=%s", day.Format("2006-01-02"))
	req := httptest.NewRequest(http.MethodPost, buildURL, nil)
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	url := fmt.Sprintf("/api/v1/stats/hosts/%s/snapshots/daily?date=%s", hostID, day.Format("2006-01-02"))
	req = httptest.NewRequest(http.MethodGet, url, nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Status string            `json:"status"`
		Data   HostDailySnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "success", envelope.Status)
	assert.Equal(t, 2, envelope.Data.NewBookings)
}

func TestGetHostDailySnapshotNotFound(t *testing.T) {
	_, engine := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/stats/hosts/%s/snapshots/daily", uuid.New()), nil)
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetHostMonthlySnapshotEndpoint(t *testing.T) {
	e, engine := newTestRouter(t)
	hostID := uuid.New()
	day := startOfMonth(time.Now())
	ledgerDay(t, e, hostID, day, 3, 1000)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stats/admin/snapshots/monthly", nil)
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	url := fmt.Sprintf("/api/v1/stats/hosts/%s/snapshots/monthly?year=%d&month=%d", hostID, day.Year(), int(day.Month()))
	req = httptest.NewRequest(http.MethodGet, url, nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Status string              `json:"status"`
		Data   HostMonthlySnapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 3, envelope.Data.NewBookings)
}
