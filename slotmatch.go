package slotmatch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/slotmatch/aggregate"
	"github.com/hupe1980/slotmatch/distribute"
	"github.com/hupe1980/slotmatch/mask"
	"github.com/hupe1980/slotmatch/match"
	"github.com/hupe1980/slotmatch/partition"
	"github.com/hupe1980/slotmatch/snapshot"
	"github.com/hupe1980/slotmatch/store"
	"golang.org/x/sync/errgroup"
)

// Counts maps event id to the number of users whose mask covers the event.
type Counts = match.Counts

// Matcher computes per-event match counts over a user and event store.
// It is safe for concurrent use; every call is an independent run.
type Matcher struct {
	src   store.Source
	width int
	opts  options
}

// New creates a Matcher reading from src.
func New(src store.Source, optFns ...Option) (*Matcher, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", ErrInvalidConfig)
	}
	o := applyOptions(optFns)
	if err := o.validate(); err != nil {
		return nil, err
	}
	width, err := mask.Width(o.slots)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &Matcher{src: src, width: width, opts: o}, nil
}

// Width returns the mask width in bytes.
func (m *Matcher) Width() int { return m.width }

// Run computes counts for every event using the configured page size and
// distribution strategy.
func (m *Matcher) Run(ctx context.Context) (*Report, error) {
	return m.run(ctx, partition.Paged{PageSize: m.opts.pageSize}, m.opts.distribution)
}

// ComputeMatchCounts returns, for every event, how many users are available
// for all of its slots. A nil partitioner or strategy selects the
// configured default. Any failure aborts the run; no partial result is
// returned.
func (m *Matcher) ComputeMatchCounts(ctx context.Context, p partition.Partitioner, s distribute.Strategy) (Counts, error) {
	if p == nil {
		p = partition.Paged{PageSize: m.opts.pageSize}
	}
	if s == nil {
		s = m.opts.distribution
	}
	r, err := m.run(ctx, p, s)
	if err != nil {
		return nil, err
	}
	return r.Counts, nil
}

func (m *Matcher) run(ctx context.Context, p partition.Partitioner, s distribute.Strategy) (report *Report, err error) {
	start := time.Now()
	runID := uuid.NewString()
	s = distribute.BindResources(s, m.opts.resources)
	logger := m.opts.logger.WithRun(runID).WithStrategy(s.Name()).WithEvaluator(m.opts.evaluator.Name())

	report = &Report{
		RunID:     runID,
		Strategy:  s.Name(),
		Evaluator: m.opts.evaluator.Name(),
		Width:     m.width,
	}
	defer func() {
		report.Total = time.Since(start)
		m.opts.metricsCollector.RecordRun(s.Name(), report.Events, len(report.Partitions), report.Total, err)
		logger.LogRun(ctx, report.Events, len(report.Partitions), report.Total, err)
		if err != nil {
			report = nil
		}
	}()

	total, err := m.src.CountEvents(ctx)
	if err != nil {
		return report, translateError(err)
	}
	report.Events = total

	parts, err := p.Partition(total)
	if err != nil {
		return report, translateError(err)
	}
	if err := partition.Validate(parts, total); err != nil {
		return report, translateError(err)
	}
	report.Partitions = parts
	if len(parts) == 0 {
		report.Counts = Counts{}
		return report, nil
	}

	var users atomic.Int64
	var loadNanos atomic.Int64
	load := func(ctx context.Context) (*snapshot.Snapshot, error) {
		t := time.Now()
		snap, err := snapshot.Build(ctx, m.src, m.width)
		d := time.Since(t)
		loadNanos.Add(d.Nanoseconds())
		if err != nil {
			m.opts.metricsCollector.RecordSnapshotLoad(0, 0, d, err)
			logger.LogSnapshotLoad(ctx, 0, 0, d, err)
			return nil, err
		}
		users.Store(int64(snap.Len()))
		m.opts.metricsCollector.RecordSnapshotLoad(snap.Len(), snap.Size(), d, nil)
		logger.LogSnapshotLoad(ctx, snap.Len(), snap.Size(), d, nil)
		return snap, nil
	}

	share, err := s.Share(ctx, load)
	if err != nil {
		return report, translateError(err)
	}
	defer func() {
		rerr := share.Release()
		logger.LogRelease(ctx, rerr)
		if rerr != nil {
			err = errors.Join(err, translateError(&ReleaseError{Strategy: s.Name(), cause: rerr}))
		}
	}()

	matchStart := time.Now()
	partials, err := m.evaluate(ctx, share, parts, logger)
	report.Match = time.Since(matchStart)
	report.SnapshotLoad = time.Duration(loadNanos.Load())
	report.Users = int(users.Load())
	if err != nil {
		return report, err
	}

	counts, err := aggregate.Merge(partials...)
	if err != nil {
		return report, translateError(err)
	}
	report.Counts = counts
	return report, nil
}

// evaluate runs one worker per partition on a bounded pool. The first
// failure cancels the others.
func (m *Matcher) evaluate(ctx context.Context, share distribute.Share, parts []partition.Partition, logger *Logger) ([]match.Counts, error) {
	partials := make([]match.Counts, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.workers)
	for i, p := range parts {
		g.Go(func() error {
			if err := m.opts.resources.AcquireWorker(gctx); err != nil {
				return err
			}
			defer m.opts.resources.ReleaseWorker()

			t := time.Now()
			counts, err := m.evaluatePartition(gctx, share, p)
			d := time.Since(t)
			m.opts.metricsCollector.RecordPartition(p.Take, d, err)
			logger.LogPartition(gctx, p, p.Take, d, err)
			if err != nil {
				return translateError(&PartitionError{Partition: p, cause: err})
			}
			partials[i] = counts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return partials, nil
}

func (m *Matcher) evaluatePartition(ctx context.Context, share distribute.Share, p partition.Partition) (_ match.Counts, err error) {
	att, err := share.Attach(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, att.Detach())
	}()

	sc, err := m.opts.evaluator.Prepare(att.Users())
	if err != nil {
		return nil, err
	}
	if sc.Width() != m.width {
		return nil, fmt.Errorf("%w: snapshot is %d bytes wide, want %d", snapshot.ErrWidthMismatch, sc.Width(), m.width)
	}

	records, err := m.src.LoadEventsPage(ctx, p.Skip, p.Take)
	if err != nil {
		return nil, err
	}
	// Every counted event must come back; a short page would drop counts.
	if len(records) != p.Take {
		return nil, fmt.Errorf("%w: page %s returned %d events", match.ErrInvariant, p, len(records))
	}
	if err := m.opts.resources.AcquireIO(ctx, len(records)*m.width); err != nil {
		return nil, err
	}
	events, err := match.EventsFromRecords(records, m.width)
	if err != nil {
		return nil, err
	}
	return match.Evaluate(ctx, sc, events)
}
