package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records runs of the scheduled maintenance jobs.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	rows     *prometheus.CounterVec
}

// NewJobMetrics registers the maintenance job collectors on reg.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "maintenance_job_duration_seconds",
		Help:    "Duration of maintenance jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_job_runs_total",
		Help: "Maintenance job executions by result.",
	}, []string{"job", "result"})
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "maintenance_job_rows_deleted_total",
		Help: "Rows removed by retention jobs.",
	}, []string{"job"})
	reg.MustRegister(duration, runs, rows)
	return &JobMetrics{duration: duration, runs: runs, rows: rows}
}

// ObserveRun records one run of job with its duration and whether it failed.
func (j *JobMetrics) ObserveRun(job string, elapsed time.Duration, err error) {
	if j == nil || j.runs == nil {
		return
	}
	job = normalizeLabel(job)
	result := "success"
	if err != nil {
		result = "failure"
	}
	j.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	j.runs.WithLabelValues(job, result).Inc()
}

// AddRowsDeleted adds n to the deleted row counter for job.
func (j *JobMetrics) AddRowsDeleted(job string, n int64) {
	if j == nil || j.rows == nil || n <= 0 {
		return
	}
	j.rows.WithLabelValues(normalizeLabel(job)).Add(float64(n))
}
