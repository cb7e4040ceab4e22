package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// queueCollector reads queue state at scrape time instead of mirroring it
// into gauges on every change.
type queueCollector struct {
	source QueueSource

	pending  *prometheus.Desc
	running  *prometheus.Desc
	capacity *prometheus.Desc
	failures *prometheus.Desc
	wait     *prometheus.Desc
}

func newQueueCollector(source QueueSource) *queueCollector {
	labels := []string{"queue"}
	return &queueCollector{
		source:   source,
		pending:  prometheus.NewDesc(namespace+"_queue_pending", "Jobs waiting in the queue", labels, nil),
		running:  prometheus.NewDesc(namespace+"_queue_running", "Jobs currently running", labels, nil),
		capacity: prometheus.NewDesc(namespace+"_queue_capacity", "Maximum concurrent jobs", labels, nil),
		failures: prometheus.NewDesc(namespace+"_queue_throttle_failures", "Consecutive retryable failures", labels, nil),
		wait:     prometheus.NewDesc(namespace+"_queue_throttle_wait_seconds", "Remaining backoff before the next dispatch", labels, nil),
	}
}

func (c *queueCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pending
	ch <- c.running
	ch <- c.capacity
	ch <- c.failures
	ch <- c.wait
}

func (c *queueCollector) Collect(ch chan<- prometheus.Metric) {
	for _, q := range c.source.QueueInfo() {
		ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(q.Pending), q.Name)
		ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, float64(q.Running), q.Name)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(q.Cap), q.Name)
		ch <- prometheus.MustNewConstMetric(c.failures, prometheus.GaugeValue, float64(q.FailureCount), q.Name)
		ch <- prometheus.MustNewConstMetric(c.wait, prometheus.GaugeValue, q.ThrottleWait.Seconds(), q.Name)
	}
}
