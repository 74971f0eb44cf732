// Package metrics exposes the limiter's quota and pacing state to
// Prometheus, for operators who want to watch a long-running bot without
// tailing its logs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"engagebot/pkg/actionlog"
	"engagebot/pkg/ratelimit"
)

// Metrics holds the registered collectors.
type Metrics struct {
	actionsTotal *prometheus.CounterVec
	denialsTotal *prometheus.CounterVec

	consecutiveErrors  prometheus.Gauge
	activityMultiplier prometheus.Gauge
	quietPeriod        prometheus.Gauge
	hourlyUsed         prometheus.Gauge
	dailyUsed          prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers the bot's collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "engagebot",
			Name:      "actions_total",
			Help:      "Actions recorded, by type and result.",
		}, []string{"type", "result"}),
		denialsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "engagebot",
			Name:      "denials_total",
			Help:      "Quota denials, by reason class.",
		}, []string{"reason"}),
		consecutiveErrors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "engagebot",
			Name:      "consecutive_errors",
			Help:      "Current consecutive failure streak.",
		}),
		activityMultiplier: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "engagebot",
			Name:      "activity_multiplier",
			Help:      "Current time-of-day activity multiplier.",
		}),
		quietPeriod: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "engagebot",
			Name:      "quiet_period",
			Help:      "1 when the current hour is a quiet period.",
		}),
		hourlyUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "engagebot",
			Name:      "hourly_actions_used",
			Help:      "Actions counted in the trailing hour.",
		}),
		dailyUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "engagebot",
			Name:      "daily_actions_used",
			Help:      "Actions counted in the trailing day.",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.actionsTotal,
		m.denialsTotal,
		m.consecutiveErrors,
		m.activityMultiplier,
		m.quietPeriod,
		m.hourlyUsed,
		m.dailyUsed,
	)

	return m
}

// RecordAction counts a recorded action.
func (m *Metrics) RecordAction(actionType actionlog.Type, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	m.actionsTotal.WithLabelValues(string(actionType), result).Inc()
}

// RecordDenial counts a quota denial by its reason class.
func (m *Metrics) RecordDenial(decision ratelimit.Decision) {
	if decision.Allowed {
		return
	}
	m.denialsTotal.WithLabelValues(decision.Code).Inc()
}

// ObserveStatus refreshes the gauges from a limiter status snapshot.
func (m *Metrics) ObserveStatus(status ratelimit.Status) {
	m.consecutiveErrors.Set(float64(status.ConsecutiveErrors))
	m.activityMultiplier.Set(status.ActivityMultiplier)
	if status.InQuietPeriod {
		m.quietPeriod.Set(1)
	} else {
		m.quietPeriod.Set(0)
	}
	m.hourlyUsed.Set(float64(status.HourlyActions.Used))
	m.dailyUsed.Set(float64(status.DailyActions.Used))
}

// Handler returns the HTTP handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve starts an HTTP server exposing /metrics on addr. It blocks, so run
// it in its own goroutine.
func (m *Metrics) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
