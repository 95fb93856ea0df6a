// Package metrics exposes portal counters in Prometheus format. The
// counters live on a private registry so tests and embedders never
// fight over the global one.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts the portal's interesting events.
type Metrics struct {
	registry *prometheus.Registry

	scans   *prometheus.CounterVec
	uploads *prometheus.CounterVec
	logins  *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		scans: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campusgate_scans_total",
			Help: "Plate scans by alert level.",
		}, []string{"alert"}),
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campusgate_uploads_total",
			Help: "Evidence photo uploads by verdict.",
		}, []string{"authorized"}),
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "campusgate_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveScan(alert string) {
	m.scans.WithLabelValues(alert).Inc()
}

func (m *Metrics) ObserveUpload(authorized bool) {
	m.uploads.WithLabelValues(strconv.FormatBool(authorized)).Inc()
}

// Login outcomes recorded by ObserveLogin.
const (
	LoginOK          = "ok"
	LoginRejected    = "rejected"
	LoginRateLimited = "rate_limited"
)

func (m *Metrics) ObserveLogin(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the standard exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
