package metrics

import (
	"net/http"
	"time"
	"vehicle-checkout/internal/checkout"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CheckoutMetrics struct {
	Attempts *prometheus.CounterVec
	StepMS   *prometheus.HistogramVec
	gatherer prometheus.Gatherer
}

// NewCheckoutMetrics registers the collectors on reg. Pass a fresh registry in tests.
func NewCheckoutMetrics(reg *prometheus.Registry) *CheckoutMetrics {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vehicle",
		Subsystem: "checkout",
		Name:      "attempts_total",
		Help:      "Checkout attempts by terminal state, outcome and failure kind.",
	}, []string{"state", "outcome", "kind"})
	steps := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vehicle",
		Subsystem: "checkout",
		Name:      "step_duration_ms",
		Help:      "Backend call latency per checkout step in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"step", "status"})

	reg.MustRegister(attempts, steps)
	return &CheckoutMetrics{Attempts: attempts, StepMS: steps, gatherer: reg}
}

func (m *CheckoutMetrics) StepCompleted(step checkout.State, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StepMS.WithLabelValues(string(step), status).Observe(float64(d.Milliseconds()))
}

func (m *CheckoutMetrics) AttemptSettled(state checkout.State, outcome checkout.Outcome, kind checkout.Kind) {
	m.Attempts.WithLabelValues(string(state), string(outcome), string(kind)).Inc()
}

func (m *CheckoutMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
