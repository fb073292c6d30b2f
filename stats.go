package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

type stats struct {
	triggers           *prometheus.CounterVec
	attempts           prometheus.Counter
	outcomes           *prometheus.CounterVec
	updateDuration     prometheus.Histogram
	snapshotSaveErrors prometheus.Counter
	cpuUsage           prometheus.Gauge
	memoryUsage        prometheus.Gauge
}

func newStats(reg prometheus.Registerer) *stats {
	s := &stats{
		triggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nekocard_triggers_total",
				Help: "Trigger events by throttle decision",
			},
			[]string{"decision"},
		),
		attempts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nekocard_set_group_card_calls_total",
				Help: "Remote set_group_card calls issued, retries included",
			},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nekocard_card_updates_total",
				Help: "Finished card update sequences by final state",
			},
			[]string{"state"},
		),
		updateDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nekocard_card_update_duration_seconds",
				Help:    "Time from trigger to the end of the update sequence",
				Buckets: prometheus.DefBuckets,
			},
		),
		snapshotSaveErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "nekocard_snapshot_save_errors_total",
				Help: "Snapshots that could not be persisted",
			},
		),
		cpuUsage: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nekocard_cpu_usage_percent",
				Help: "CPU usage from the latest snapshot",
			},
		),
		memoryUsage: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "nekocard_memory_usage_percent",
				Help: "Memory usage from the latest snapshot",
			},
		),
	}

	reg.MustRegister(
		s.triggers,
		s.attempts,
		s.outcomes,
		s.updateDuration,
		s.snapshotSaveErrors,
		s.cpuUsage,
		s.memoryUsage,
	)
	return s
}

func (s *stats) observeSnapshot(snap Snapshot) {
	s.cpuUsage.Set(snap.CPUUsage)
	s.memoryUsage.Set(snap.MemoryUsage)
}
