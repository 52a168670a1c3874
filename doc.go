// Package slotmatch counts, for every event, how many users are available
// for all of the event's time slots.
//
// Users and events carry availability masks: fixed-width bit vectors with
// one bit per slot (336 half-hour slots per week by default, stored as 42
// big-endian bytes). A user matches an event when the user's mask is a
// superset of the event's mask.
//
// # Quick Start
//
//	src := memstore.New(users, events)
//	m, _ := slotmatch.New(src)
//	counts, _ := m.ComputeMatchCounts(ctx, nil, nil)
//	fmt.Println(counts[42])
//
// # Execution
//
// A run loads the user snapshot once, shares it with a pool of workers
// through a distribute.Strategy, and evaluates disjoint event partitions
// in parallel. Partial results are merged; an event id seen twice is an
// invariant violation.
//
//	m, _ := slotmatch.New(src,
//	    slotmatch.WithWorkers(8),
//	    slotmatch.WithPageSize(500),
//	    slotmatch.WithDistribution(distribute.SharedMemory()),
//	    slotmatch.WithEvaluator(match.Inverted{}),
//	)
//	report, err := m.Run(ctx)
//
// Built-in strategies:
//
//   - distribute.InProcess: one snapshot, shared by pointer (default)
//   - distribute.RedundantFetch: every worker loads its own copy
//   - distribute.SharedMemory: one copy in a memory-mapped /dev/shm segment
//   - distribute.SharedFile: one encoded copy in a blobstore.BlobStore
//
// # Errors
//
// Every failure aborts the run and no partial result is returned. Errors
// match one of ErrStoreUnavailable, ErrDistribution, ErrEncoding,
// ErrInvariantViolation or ErrInvalidConfig via errors.Is. Cancellation
// is returned as the context error.
//
// # Observability
//
// Runs are logged through a slog-backed Logger and reported to a
// MetricsCollector; see the promcollector package for Prometheus.
package slotmatch
