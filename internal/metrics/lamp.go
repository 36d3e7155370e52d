// Package metrics provides Prometheus metrics for the lamp controller.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lampnode"

var lampStates = []string{"off", "on", "blink"}

var (
	lampState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "lamp",
		Name:      "state",
		Help:      "1 for the committed lamp state, 0 for the others",
	}, []string{"state"})

	stateChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lamp",
		Name:      "state_changes_total",
		Help:      "Committed state changes by source",
	}, []string{"source"})

	buttonPresses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "button",
		Name:      "presses_total",
		Help:      "Debounced button presses handled by the control loop",
	})

	pushReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "push",
		Name:      "received_total",
		Help:      "Push notifications by outcome",
	}, []string{"outcome"})

	backendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "requests_total",
		Help:      "Backend requests by operation and status code (0 on transport error)",
	}, []string{"operation", "code"})

	backendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "backend",
		Name:      "request_duration_seconds",
		Help:      "Backend request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	identityResolved = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "identity",
		Name:      "resolved",
		Help:      "1 once the backend object id for the slot is cached",
	}, []string{"slot"})
)

// SetLampState marks state as the committed one.
func SetLampState(state string) {
	for _, s := range lampStates {
		v := 0.0
		if s == state {
			v = 1
		}
		lampState.WithLabelValues(s).Set(v)
	}
}

// IncStateChange counts a commit from source.
func IncStateChange(source string) {
	stateChanges.WithLabelValues(source).Inc()
}

// IncButtonPress counts a handled press.
func IncButtonPress() {
	buttonPresses.Inc()
}

// IncPushReceived counts a push notification by outcome.
func IncPushReceived(outcome string) {
	pushReceived.WithLabelValues(outcome).Inc()
}

// ObserveBackendRequest records a completed backend request.
func ObserveBackendRequest(operation string, code int, seconds float64) {
	backendRequests.WithLabelValues(operation, strconv.Itoa(code)).Inc()
	backendDuration.WithLabelValues(operation).Observe(seconds)
}

// SetIdentityResolved flags slot as resolved.
func SetIdentityResolved(slot string) {
	identityResolved.WithLabelValues(slot).Set(1)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
