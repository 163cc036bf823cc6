package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	FrameProcessed = "processed"
	FrameSkipped   = "skipped"
)

type Manager struct {
	// counters
	CounterFrames *prometheus.CounterVec
	CounterReps   *prometheus.CounterVec
	CounterRuns   *prometheus.CounterVec

	// gauges
	GaugeActiveRuns prometheus.Gauge

	// histograms
	HistRunDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("formcheck", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("formcheck", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterFrames := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "frames_total",
		Help:      "The total number of frames fed to the rep machine, by status",
	}, []string{"exercise", "status"})
	counterReps := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "reps_total",
		Help:      "The total number of completed repetitions",
	}, []string{"exercise", "error_tag"})
	counterRuns := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "runs_total",
		Help:      "The total number of analysis runs, by final status",
	}, []string{"exercise", "status"})

	gaugeActiveRuns := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_runs",
		Help:      "Number of analysis runs in progress",
	})

	histRunDuration := factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Buckets: []float64{
				0.01, 0.1, 0.5, 1, 5, 10,
				30, 60, 120, 300, 600,
			},
			Name: "run_duration_seconds",
			Help: "Total duration of an analysis run in seconds",
		},
	)

	return &Manager{
		CounterFrames:   counterFrames,
		CounterReps:     counterReps,
		CounterRuns:     counterRuns,
		GaugeActiveRuns: gaugeActiveRuns,
		HistRunDuration: histRunDuration,
	}
}
