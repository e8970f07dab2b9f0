package process

import (
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess       = "success"
	outcomeFailure       = "failure"
	outcomeTimeout       = "timeout"
	outcomeLaunchFailure = "launch_failure"
)

var (
	invocationCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cisource_process_invocations_total",
			Help: "Number of external VCS processes run, by executable and outcome.",
		},
		[]string{"executable", "outcome"},
	)

	durationHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cisource_process_duration_seconds",
			Help:    "Wall-clock duration of external VCS processes.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		},
		[]string{"executable"},
	)
)

func observe(executable, outcome string, d time.Duration) {
	name := filepath.Base(executable)
	invocationCounter.WithLabelValues(name, outcome).Inc()
	durationHistogram.WithLabelValues(name).Observe(d.Seconds())
}
