// Package metrics exposes scheduler activity to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/RezaEskandarii/driveq/internal/observer"
	"github.com/RezaEskandarii/driveq/internal/state"
	"github.com/RezaEskandarii/driveq/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "driveq"

// QueueSource is satisfied by the scheduler.
type QueueSource interface {
	QueueInfo() []types.QueueInfo
}

// Metrics owns its registry so that several schedulers, or tests, can live
// in one process.
type Metrics struct {
	registry *prometheus.Registry
	now      func() time.Time

	JobsSubmittedTotal *prometheus.CounterVec
	JobsRetriedTotal   *prometheus.CounterVec
	JobsCompletedTotal *prometheus.CounterVec
	JobDurationSeconds *prometheus.HistogramVec
}

var _ observer.Listener = (*Metrics)(nil)

func New(queues QueueSource) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry: reg,
		now:      time.Now,
		JobsSubmittedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_submitted_total",
				Help:      "Total number of jobs submitted, by queue and job type",
			},
			[]string{"queue", "type"},
		),
		JobsRetriedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_retried_total",
				Help:      "Total number of retryable failures that were requeued",
			},
			[]string{"queue", "type"},
		),
		JobsCompletedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "jobs_completed_total",
				Help:      "Total number of jobs that reached a terminal status",
			},
			[]string{"queue", "status"},
		),
		// 10ms to ~163s
		JobDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "job_duration_seconds",
				Help:      "Time from submission to terminal status",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 15),
			},
			[]string{"queue"},
		),
	}

	if queues != nil {
		reg.MustRegister(newQueueCollector(queues))
	}
	reg.MustRegister(collectors.NewGoCollector())
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) OnJobAdded(info types.JobInfo) {
	m.JobsSubmittedTotal.WithLabelValues(info.Class.String(), info.Type.String()).Inc()
}

func (m *Metrics) OnJobUpdated(info types.JobInfo) {
	if info.Status == state.StatusRetrying {
		m.JobsRetriedTotal.WithLabelValues(info.Class.String(), info.Type.String()).Inc()
	}
}

func (m *Metrics) OnJobDone(info types.JobInfo, _ error) {
	queue := info.Class.String()
	m.JobsCompletedTotal.WithLabelValues(queue, string(info.Status)).Inc()
	if !info.CreatedAt.IsZero() {
		m.JobDurationSeconds.WithLabelValues(queue).Observe(m.now().Sub(info.CreatedAt).Seconds())
	}
}
