// Package metrics defines the prometheus collectors exposed on the
// shell's debug HTTP surface: optimizer fast-path decisions live in
// internal/optimizer (registered there so that package stays usable
// standalone); this package owns per-operator timing and poller health.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OperatorDuration buckets wall-clock time observed through Timer,
// labeled by the name passed to Timer. The engine does not record into
// it; its only caller is the poller, which times each provider fetch
// under the label "provider_fetch".
var OperatorDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "saq",
		Subsystem: "engine",
		Name:      "operator_duration_seconds",
		Help:      "Time spent evaluating a single operator step, by operator name.",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	},
	[]string{"operator"},
)

// ProviderFetchDuration tracks how long each provider's /all_data fetch
// takes, labeled by provider source name.
var ProviderFetchDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "saq",
		Subsystem: "provider",
		Name:      "fetch_duration_seconds",
		Help:      "Time spent fetching and decoding one provider's /all_data response.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"source"},
)

// ProviderFetchTotal counts fetch outcomes, labeled by source and result
// ("ok", "network_error", "malformed"); a non-2xx status is counted as
// "network_error".
var ProviderFetchTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "saq",
		Subsystem: "provider",
		Name:      "fetch_total",
		Help:      "Provider fetch attempts, by source and outcome.",
	},
	[]string{"source", "result"},
)

func init() {
	prometheus.MustRegister(OperatorDuration, ProviderFetchDuration, ProviderFetchTotal)
}

// Timer starts a stopwatch for an OperatorDuration observation under the
// given label; call the returned func when the timed work returns.
func Timer(operator string) func() {
	start := time.Now()
	return func() {
		OperatorDuration.WithLabelValues(operator).Observe(time.Since(start).Seconds())
	}
}
