package slotmatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/slotmatch/distribute"
	"github.com/hupe1980/slotmatch/mask"
	"github.com/hupe1980/slotmatch/match"
	"github.com/hupe1980/slotmatch/partition"
	"github.com/hupe1980/slotmatch/snapshot"
	"github.com/hupe1980/slotmatch/store"
)

var (
	// ErrEncoding is returned when a mask value does not fit the configured width.
	ErrEncoding = errors.New("encoding error")
	// ErrStoreUnavailable is returned when the user or event store cannot be read.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDistribution is returned when the snapshot cannot be shared or attached.
	ErrDistribution = errors.New("distribution error")
	// ErrInvariantViolation is returned for logic errors: duplicate event ids,
	// width mismatches, partitions that do not cover the events exactly.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrInvalidConfig is returned by New for unusable options.
	ErrInvalidConfig = errors.New("invalid config")
)

// PartitionError reports the partition a worker was evaluating when it failed.
//
// The original underlying error can be accessed via errors.Unwrap.
type PartitionError struct {
	Partition partition.Partition
	cause     error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("partition %s: %v", e.Partition, e.cause)
}

func (e *PartitionError) Unwrap() error { return e.cause }

// ReleaseError reports that the shared snapshot could not be cleaned up.
// It is joined with the run error, if any.
type ReleaseError struct {
	Strategy string
	cause    error
}

func (e *ReleaseError) Error() string {
	return fmt.Sprintf("release %s share: %v", e.Strategy, e.cause)
}

func (e *ReleaseError) Unwrap() error { return e.cause }

// translateError maps package errors onto the root sentinels. Cancellation
// is returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	switch {
	case errors.Is(err, store.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	case errors.Is(err, distribute.ErrDistribution):
		return fmt.Errorf("%w: %w", ErrDistribution, err)
	case errors.Is(err, mask.ErrEncoding), errors.Is(err, snapshot.ErrCorrupt):
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	case errors.Is(err, match.ErrInvariant),
		errors.Is(err, snapshot.ErrWidthMismatch),
		errors.Is(err, snapshot.ErrUnordered),
		errors.Is(err, partition.ErrCoverage):
		return fmt.Errorf("%w: %w", ErrInvariantViolation, err)
	case errors.Is(err, partition.ErrInvalid):
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return err
}
