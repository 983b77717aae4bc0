// Package metrics exposes the scheduler's operational counters and
// histograms as real Prometheus collectors, replacing the teacher's own
// hand-rolled "Prometheus-style" collector with the actual client library
// (see DESIGN.md).
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder is the narrow metrics surface the scheduler thread calls into
// (BatchAcquired, JobStarted, JobCompleted); nothing in this module calls
// JobMisfired or WorkerPoolSaturation. A no-op Recorder is trivial to
// construct for tests that don't care about metrics.
type Recorder interface {
	JobStarted(jobGroup, jobName string)
	JobCompleted(jobGroup, jobName string, durationSeconds float64, failed bool)
	JobMisfired(jobGroup, jobName string)
	BatchAcquired(size int)
	WorkerPoolSaturation(inUse, capacity int)
}

// PrometheusRecorder registers and updates a fixed set of collectors on
// the supplied registry (prometheus.DefaultRegisterer if nil).
type PrometheusRecorder struct {
	jobsStarted   *prometheus.CounterVec
	jobsCompleted *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	jobsMisfired  *prometheus.CounterVec
	batchSize     prometheus.Histogram
	poolSaturation prometheus.Gauge
}

func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PrometheusRecorder{
		jobsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goschedule", Name: "jobs_started_total", Help: "Jobs handed to a JobRunShell.",
		}, []string{"group", "job"}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goschedule", Name: "jobs_completed_total", Help: "Jobs that finished running, by outcome.",
		}, []string{"group", "job", "outcome"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "goschedule", Name: "job_duration_seconds", Help: "Wall-clock duration of a job's Execute call.",
			Buckets: prometheus.DefBuckets,
		}, []string{"group", "job"}),
		jobsMisfired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goschedule", Name: "jobs_misfired_total", Help: "Triggers that missed their scheduled fire time beyond the misfire threshold.",
		}, []string{"group", "job"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "goschedule", Name: "acquire_batch_size", Help: "Number of triggers returned by a single AcquireNextTriggers call.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
		poolSaturation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "goschedule", Name: "worker_pool_in_use_ratio", Help: "Fraction of worker pool capacity currently occupied.",
		}),
	}
	reg.MustRegister(r.jobsStarted, r.jobsCompleted, r.jobDuration, r.jobsMisfired, r.batchSize, r.poolSaturation)
	return r
}

func (r *PrometheusRecorder) JobStarted(group, name string) {
	r.jobsStarted.WithLabelValues(group, name).Inc()
}

func (r *PrometheusRecorder) JobCompleted(group, name string, durationSeconds float64, failed bool) {
	outcome := "success"
	if failed {
		outcome = "error"
	}
	r.jobsCompleted.WithLabelValues(group, name, outcome).Inc()
	r.jobDuration.WithLabelValues(group, name).Observe(durationSeconds)
}

func (r *PrometheusRecorder) JobMisfired(group, name string) {
	r.jobsMisfired.WithLabelValues(group, name).Inc()
}

func (r *PrometheusRecorder) BatchAcquired(size int) {
	r.batchSize.Observe(float64(size))
}

func (r *PrometheusRecorder) WorkerPoolSaturation(inUse, capacity int) {
	if capacity <= 0 {
		return
	}
	r.poolSaturation.Set(float64(inUse) / float64(capacity))
}

// NoopRecorder discards every observation; useful in tests or when a
// caller does not want Prometheus wired up at all.
type NoopRecorder struct{}

func (NoopRecorder) JobStarted(string, string)                   {}
func (NoopRecorder) JobCompleted(string, string, float64, bool)  {}
func (NoopRecorder) JobMisfired(string, string)                  {}
func (NoopRecorder) BatchAcquired(int)                           {}
func (NoopRecorder) WorkerPoolSaturation(int, int)                {}

var _ Recorder = (*PrometheusRecorder)(nil)
var _ Recorder = NoopRecorder{}
