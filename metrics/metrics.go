// Package metrics exposes conversion counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registry = prometheus.NewRegistry()

	jobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pixshift",
		Name:      "jobs_total",
		Help:      "Jobs that reached a terminal state, by outcome and target format.",
	}, []string{"outcome", "format"})

	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pixshift",
		Name:      "job_duration_seconds",
		Help:      "Time from dispatch to terminal state for one job.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"format"})

	activeJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pixshift",
		Name:      "active_jobs",
		Help:      "Jobs currently holding a limiter slot.",
	})

	bytesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pixshift",
		Name:      "bytes_total",
		Help:      "Bytes read from sources and written to outputs of converted jobs.",
	}, []string{"direction"})

	batchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pixshift",
		Name:      "batches_total",
		Help:      "Batch runs, by result.",
	}, []string{"result"})

	publishTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pixshift",
		Name:      "publish_total",
		Help:      "File uploads to publish targets, by target type and result.",
	}, []string{"target", "result"})
)

func init() {
	Registry.MustRegister(
		jobsTotal, jobDuration, activeJobs, bytesTotal, batchesTotal, publishTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// JobStarted marks a job as holding a limiter slot and returns a func that
// records its terminal outcome.
func JobStarted(format string) func(outcome string) {
	activeJobs.Inc()
	start := time.Now()
	return func(outcome string) {
		activeJobs.Dec()
		jobDuration.WithLabelValues(format).Observe(time.Since(start).Seconds())
		jobsTotal.WithLabelValues(outcome, format).Inc()
	}
}

// Converted adds the sizes of a converted job.
func Converted(in, out uint64) {
	bytesTotal.WithLabelValues("in").Add(float64(in))
	bytesTotal.WithLabelValues("out").Add(float64(out))
}

// Batch counts one batch run.
func Batch(result string) {
	batchesTotal.WithLabelValues(result).Inc()
}

// Published counts one upload attempt.
func Published(target string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	publishTotal.WithLabelValues(target, result).Inc()
}
