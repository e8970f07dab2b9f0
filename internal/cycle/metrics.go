package cycle

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sergeknystautas/cisource/internal/build"
)

var cycleCounter = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cisource_build_cycles_total",
		Help: "Build cycles by project and outcome.",
	},
	[]string{"project", "status"},
)

func observeCycle(project string, status build.Status) {
	cycleCounter.WithLabelValues(project, string(status)).Inc()
}
