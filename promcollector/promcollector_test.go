package promcollector_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/slotmatch"
	"github.com/hupe1980/slotmatch/promcollector"
	"github.com/hupe1980/slotmatch/store/memstore"
	"github.com/hupe1980/slotmatch/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ slotmatch.MetricsCollector = (*promcollector.Collector)(nil)

func TestCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := promcollector.New(reg, "test")
	require.NoError(t, err)

	c.RecordSnapshotLoad(10, 420, time.Millisecond, nil)
	c.RecordSnapshotLoad(0, 0, time.Millisecond, errors.New("boom"))
	c.RecordPartition(5, time.Millisecond, nil)
	c.RecordPartition(5, time.Millisecond, errors.New("boom"))
	c.RecordRun("in-process", 10, 2, time.Millisecond, nil)

	assert.Equal(t, 420.0, promtest.ToFloat64(c.SnapshotBytes()))
	assert.Equal(t, 5.0, promtest.ToFloat64(c.EventsEvaluated()))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, n := range []string{
		"test_operation_latency_seconds",
		"test_operations_total",
		"test_snapshot_bytes_total",
		"test_snapshot_users",
		"test_events_evaluated_total",
		"test_partitions_total",
	} {
		assert.True(t, names[n], n)
	}

	assert.Equal(t, 5, promtest.CollectAndCount(c.Operations()))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.Operations().WithLabelValues("run", "in-process", "ok")))
}

func TestCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := promcollector.New(reg, "dup")
	require.NoError(t, err)
	_, err = promcollector.New(reg, "dup")
	assert.Error(t, err)
}

func TestCollector_WithMatcher(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := promcollector.New(reg, "slotmatch")
	require.NoError(t, err)

	rng := testutil.NewRNG(1)
	src := memstore.New(rng.Users(20, 42), rng.Events(12, 42))
	m, err := slotmatch.New(src, slotmatch.WithPageSize(5), slotmatch.WithMetricsCollector(c))
	require.NoError(t, err)
	_, err = m.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 12.0, promtest.ToFloat64(c.EventsEvaluated()))
	assert.Equal(t, 3.0, promtest.ToFloat64(c.Partitions()))
	assert.Equal(t, float64(20*42), promtest.ToFloat64(c.SnapshotBytes()))
}
