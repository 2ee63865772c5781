package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shopnearby"

// JobMetrics records runs of background maintenance loops.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	items    *prometheus.CounterVec
}

// NewJobMetrics registers the job collectors on reg. A nil registerer yields a no-op recorder.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Duration of background job runs in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Background job runs by result.",
	}, []string{"job", "result"})
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_items_total",
		Help:      "Items processed by background jobs.",
	}, []string{"job"})
	reg.MustRegister(duration, runs, items)
	return &JobMetrics{duration: duration, runs: runs, items: items}
}

// ObserveRun records one run of job.
func (j *JobMetrics) ObserveRun(job string, took time.Duration, processed int, err error) {
	if j == nil || j.duration == nil {
		return
	}
	job = normalizeLabel(job)
	j.duration.WithLabelValues(job).Observe(took.Seconds())
	j.runs.WithLabelValues(job, resultLabel(err)).Inc()
	if processed > 0 {
		j.items.WithLabelValues(job).Add(float64(processed))
	}
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

func resultLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
