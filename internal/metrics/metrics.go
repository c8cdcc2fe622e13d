// Package metrics owns the Prometheus collectors. A nil *Metrics is valid
// and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"cardlink/backend/internal/domain/analytics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	ProfileViews    *prometheus.CounterVec
	ContactSaves    *prometheus.CounterVec
	AnalyticsPurged *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardlink_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cardlink_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		ProfileViews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardlink_profile_views_total",
			Help: "Recorded profile views by source.",
		}, []string{"source"}),
		ContactSaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardlink_contact_saves_total",
			Help: "Recorded contact saves by source.",
		}, []string{"source"}),
		AnalyticsPurged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cardlink_analytics_purged_documents_total",
			Help: "Analytics documents deleted by collection.",
		}, []string{"collection"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.ProfileViews,
		m.ContactSaves,
		m.AnalyticsPurged,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Metrics) ObserveView(source string) {
	if m == nil {
		return
	}
	m.ProfileViews.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveContactSave(source string) {
	if m == nil {
		return
	}
	m.ContactSaves.WithLabelValues(source).Inc()
}

func (m *Metrics) ObservePurge(res analytics.DeleteResult) {
	if m == nil {
		return
	}
	m.AnalyticsPurged.WithLabelValues("viewEvents").Add(float64(res.ViewEvents))
	m.AnalyticsPurged.WithLabelValues("contactSaveEvents").Add(float64(res.ContactSaveEvents))
	m.AnalyticsPurged.WithLabelValues("userDailyViews").Add(float64(res.DailyViews))
}
