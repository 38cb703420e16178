package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiosync_jobs_processed_total",
		Help: "Total number of sync jobs processed, by final status",
	}, []string{"status"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "audiosync_job_duration_seconds",
		Help:    "Duration of the sync job pipeline",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	}, []string{"stage"})

	BridgeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiosync_bridge_events_total",
		Help: "Total number of decoded worker events, by type",
	}, []string{"type"})

	DecodeFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audiosync_decode_failures_total",
		Help: "Total number of worker output lines that failed to decode",
	})

	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "audiosync_active_jobs",
		Help: "Number of sync jobs currently running",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiosync_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
