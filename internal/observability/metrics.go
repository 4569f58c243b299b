// Package observability exposes Prometheus metrics for the session server.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Move results recorded by MovesTotal
const (
	MoveAccepted = "accepted"
	MoveRejected = "rejected"
	MoveFailed   = "failed"
)

// Metrics contains the counters and gauges recorded by the services
type Metrics struct {
	SessionsCreated    *prometheus.CounterVec
	SessionsFinished   prometheus.Counter
	MovesTotal         *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
	Observers          *prometheus.GaugeVec
	BusyRepaired       prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ttt_sessions_created_total",
				Help: "Session creation attempts by outcome code",
			},
			[]string{"result"},
		),
		SessionsFinished: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ttt_sessions_finished_total",
				Help: "Sessions moved to the concluded status",
			},
		),
		MovesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ttt_moves_total",
				Help: "Submitted moves by result",
			},
			[]string{"result"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ttt_notifications_total",
				Help: "Move notifications published by transport and outcome",
			},
			[]string{"transport", "result"},
		),
		Observers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ttt_observers",
				Help: "Currently connected observers by transport",
			},
			[]string{"transport"},
		),
		BusyRepaired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ttt_busy_repaired_total",
				Help: "Busy references overwritten by reconcile",
			},
		),
	}

	reg.MustRegister(
		m.SessionsCreated,
		m.SessionsFinished,
		m.MovesTotal,
		m.NotificationsTotal,
		m.Observers,
		m.BusyRepaired,
	)
	return m
}

// NewRegistry returns a registry with the Go and process collectors plus the
// server metrics
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg, NewMetrics(reg)
}

// Handler serves the registry in the Prometheus exposition format
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Discard returns metrics registered with a throwaway registry, for tests and
// callers that do not expose /metrics
func Discard() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
