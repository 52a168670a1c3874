package slotmatch

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; see the
// promcollector package for Prometheus.
type MetricsCollector interface {
	// RecordSnapshotLoad is called after every user snapshot load. Strategies
	// that fetch per worker call it once per worker.
	RecordSnapshotLoad(users, bytes int, duration time.Duration, err error)

	// RecordPartition is called after each partition is evaluated.
	// events is the number of events in the partition.
	RecordPartition(events int, duration time.Duration, err error)

	// RecordRun is called once per ComputeMatchCounts call.
	RecordRun(strategy string, events, partitions int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSnapshotLoad(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordPartition(int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordRun(string, int, int, time.Duration, error)  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SnapshotLoads      atomic.Int64
	SnapshotLoadErrors atomic.Int64
	SnapshotBytes      atomic.Int64
	PartitionCount     atomic.Int64
	PartitionErrors    atomic.Int64
	PartitionNanos     atomic.Int64
	EventsEvaluated    atomic.Int64
	RunCount           atomic.Int64
	RunErrors          atomic.Int64
	RunTotalNanos      atomic.Int64
}

// RecordSnapshotLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotLoad(_, bytes int, _ time.Duration, err error) {
	b.SnapshotLoads.Add(1)
	if err != nil {
		b.SnapshotLoadErrors.Add(1)
		return
	}
	b.SnapshotBytes.Add(int64(bytes))
}

// RecordPartition implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPartition(events int, duration time.Duration, err error) {
	b.PartitionCount.Add(1)
	b.PartitionNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PartitionErrors.Add(1)
		return
	}
	b.EventsEvaluated.Add(int64(events))
}

// RecordRun implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRun(_ string, _, _ int, duration time.Duration, err error) {
	b.RunCount.Add(1)
	b.RunTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RunErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SnapshotLoads:      b.SnapshotLoads.Load(),
		SnapshotLoadErrors: b.SnapshotLoadErrors.Load(),
		SnapshotBytes:      b.SnapshotBytes.Load(),
		PartitionCount:     b.PartitionCount.Load(),
		PartitionErrors:    b.PartitionErrors.Load(),
		PartitionAvgNanos:  avg(b.PartitionNanos.Load(), b.PartitionCount.Load()),
		EventsEvaluated:    b.EventsEvaluated.Load(),
		RunCount:           b.RunCount.Load(),
		RunErrors:          b.RunErrors.Load(),
		RunAvgNanos:        avg(b.RunTotalNanos.Load(), b.RunCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SnapshotLoads      int64
	SnapshotLoadErrors int64
	SnapshotBytes      int64
	PartitionCount     int64
	PartitionErrors    int64
	PartitionAvgNanos  int64
	EventsEvaluated    int64
	RunCount           int64
	RunErrors          int64
	RunAvgNanos        int64
}
