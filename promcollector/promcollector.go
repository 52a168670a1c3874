// Package promcollector exports run metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc, _ := promcollector.New(reg, "slotmatch")
//	m, _ := slotmatch.New(src, slotmatch.WithMetricsCollector(mc))
package promcollector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements slotmatch.MetricsCollector.
type Collector struct {
	latency       *prometheus.HistogramVec
	ops           *prometheus.CounterVec
	snapshotBytes prometheus.Counter
	snapshotUsers prometheus.Gauge
	events        prometheus.Counter
	partitions    prometheus.Counter
}

// New creates a Collector and registers it with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of snapshot loads, partition evaluations and runs",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Operations by kind, strategy and status",
		}, []string{"op", "strategy", "status"}),
		snapshotBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_bytes_total",
			Help:      "Bytes of user masks loaded",
		}),
		snapshotUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_users",
			Help:      "Users in the most recently loaded snapshot",
		}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_evaluated_total",
			Help:      "Events evaluated by successful partitions",
		}),
		partitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partitions_total",
			Help:      "Partitions evaluated",
		}),
	}
	for _, col := range []prometheus.Collector{c.latency, c.ops, c.snapshotBytes, c.snapshotUsers, c.events, c.partitions} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordSnapshotLoad implements slotmatch.MetricsCollector.
func (c *Collector) RecordSnapshotLoad(users, bytes int, d time.Duration, err error) {
	s := status(err)
	c.latency.WithLabelValues("snapshot_load", s).Observe(d.Seconds())
	c.ops.WithLabelValues("snapshot_load", "", s).Inc()
	if err == nil {
		c.snapshotBytes.Add(float64(bytes))
		c.snapshotUsers.Set(float64(users))
	}
}

// RecordPartition implements slotmatch.MetricsCollector.
func (c *Collector) RecordPartition(events int, d time.Duration, err error) {
	s := status(err)
	c.latency.WithLabelValues("partition", s).Observe(d.Seconds())
	c.ops.WithLabelValues("partition", "", s).Inc()
	c.partitions.Inc()
	if err == nil {
		c.events.Add(float64(events))
	}
}

// RecordRun implements slotmatch.MetricsCollector.
func (c *Collector) RecordRun(strategy string, _, _ int, d time.Duration, err error) {
	s := status(err)
	c.latency.WithLabelValues("run", s).Observe(d.Seconds())
	c.ops.WithLabelValues("run", strategy, s).Inc()
}

// Operations returns the per-operation counter vector.
func (c *Collector) Operations() *prometheus.CounterVec { return c.ops }

// SnapshotBytes returns the counter of loaded snapshot bytes.
func (c *Collector) SnapshotBytes() prometheus.Counter { return c.snapshotBytes }

// EventsEvaluated returns the counter of evaluated events.
func (c *Collector) EventsEvaluated() prometheus.Counter { return c.events }

// Partitions returns the counter of evaluated partitions.
func (c *Collector) Partitions() prometheus.Counter { return c.partitions }
