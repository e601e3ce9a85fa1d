package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sample outcomes recorded in chronos_samples_total.
const (
	resultMerged   = "merged"
	resultInserted = "inserted"
	resultSkipped  = "skipped"
	resultFailed   = "failed"
)

// Metrics holds the tracker's Prometheus collectors.
type Metrics struct {
	Samples       *prometheus.CounterVec
	IdleSamples   prometheus.Counter
	TrayRefreshes *prometheus.CounterVec
	GoalPercent   prometheus.Gauge
	Backups       *prometheus.CounterVec
}

// NewMetrics registers the tracker collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Samples: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chronos_samples_total",
			Help: "Sampling ticks, partitioned by outcome",
		}, []string{"result"}),
		IdleSamples: factory.NewCounter(prometheus.CounterOpts{
			Name: "chronos_idle_samples_total",
			Help: "Samples recorded while the user was idle",
		}),
		TrayRefreshes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chronos_tray_refreshes_total",
			Help: "Today-summary refreshes, partitioned by outcome",
		}, []string{"result"}),
		GoalPercent: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chronos_goal_percentage",
			Help: "Today's productive time as a percentage of the daily goal",
		}),
		Backups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chronos_backups_total",
			Help: "Scheduled backups, partitioned by outcome",
		}, []string{"result"}),
	}
}
