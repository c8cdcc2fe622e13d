package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cardlink/backend/internal/domain/analytics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveView("qr")
	m.ObserveView("qr")
	m.ObserveContactSave("nfc")
	m.ObservePurge(analytics.DeleteResult{ViewEvents: 3, ContactSaveEvents: 1, DailyViews: 2})
	m.ObserveRequest("/v1/public/profiles/{slug}", http.MethodGet, 200, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProfileViews.WithLabelValues("qr")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ContactSaves.WithLabelValues("nfc")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.AnalyticsPurged.WithLabelValues("viewEvents")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AnalyticsPurged.WithLabelValues("userDailyViews")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/v1/public/profiles/{slug}", "GET", "200")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveView("qr")
		m.ObserveContactSave("qr")
		m.ObservePurge(analytics.DeleteResult{ViewEvents: 1})
		m.ObserveRequest("/", "GET", 200, time.Second)
	})
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ObserveView("link")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `cardlink_profile_views_total{source="link"} 1`))
}
