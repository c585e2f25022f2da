// Package metrics exposes the Prometheus collectors of the locator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "locator_runs_total",
		Help: "Locate runs by terminal outcome (found, not_found, fault, rejected).",
	}, []string{"outcome"})

	StepFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "locator_step_failures_total",
		Help: "Recoverable step failures by step name.",
	}, []string{"step"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "locator_run_duration_seconds",
		Help:    "Wall time of a locate run.",
		Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80},
	})

	RunsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "locator_runs_in_flight",
		Help: "1 while a locate run holds the target surface.",
	})

	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "locator_requests_total",
		Help: "Locate requests received by the transport, by status.",
	}, []string{"status"})
)

const (
	OutcomeFound    = "found"
	OutcomeNotFound = "not_found"
	OutcomeFault    = "fault"
	OutcomeRejected = "rejected"
)
