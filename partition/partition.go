// Package partition splits the ordered event sequence into contiguous pages.
//
// Evaluating one event costs the same regardless of its mask, so fixed-size
// pages give an even load without dynamic balancing.
package partition

import (
	"errors"
	"fmt"
)

// DefaultPageSize is the reference page size (5 pages for 5000 events).
const DefaultPageSize = 1000

var (
	// ErrInvalid is returned for non-positive page sizes or worker counts.
	ErrInvalid = errors.New("partition: invalid argument")
	// ErrCoverage is returned by Validate when partitions do not cover [0, total) exactly once.
	ErrCoverage = errors.New("partition: ranges do not cover the event sequence")
)

// Partition is a (Skip, Take) window over events ordered by ascending id.
type Partition struct {
	Skip int `json:"skip"`
	Take int `json:"take"`
}

// End returns the exclusive end offset.
func (p Partition) End() int { return p.Skip + p.Take }

func (p Partition) String() string {
	return fmt.Sprintf("[%d,%d)", p.Skip, p.End())
}

// Partitioner assigns event ranges to work units.
type Partitioner interface {
	Partition(total int) ([]Partition, error)
}

// Paged uses a fixed page size.
type Paged struct {
	PageSize int
}

// Partition implements Partitioner.
func (p Paged) Partition(total int) ([]Partition, error) {
	return Pages(total, p.PageSize)
}

// Even splits the events into one page per worker.
type Even struct {
	Workers int
}

// Partition implements Partitioner.
func (e Even) Partition(total int) ([]Partition, error) {
	return Split(total, e.Workers)
}

// Pages covers [0, total) with pages of pageSize; the last page may be shorter.
func Pages(total, pageSize int) ([]Partition, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w: page size %d", ErrInvalid, pageSize)
	}
	if total < 0 {
		return nil, fmt.Errorf("%w: total %d", ErrInvalid, total)
	}
	parts := make([]Partition, 0, (total+pageSize-1)/pageSize)
	for skip := 0; skip < total; skip += pageSize {
		parts = append(parts, Partition{Skip: skip, Take: min(pageSize, total-skip)})
	}
	return parts, nil
}

// Split covers [0, total) with at most workers pages of equal size (ceil(total/workers)).
func Split(total, workers int) ([]Partition, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("%w: workers %d", ErrInvalid, workers)
	}
	if total <= 0 {
		return Pages(total, 1)
	}
	return Pages(total, (total+workers-1)/workers)
}

// Validate checks that parts, in order, cover [0, total) exactly once.
func Validate(parts []Partition, total int) error {
	next := 0
	for i, p := range parts {
		if p.Take <= 0 {
			return fmt.Errorf("%w: partition %d %s is empty", ErrCoverage, i, p)
		}
		if p.Skip != next {
			return fmt.Errorf("%w: partition %d %s starts at %d, want %d", ErrCoverage, i, p, p.Skip, next)
		}
		next = p.End()
	}
	if next != total {
		return fmt.Errorf("%w: covered [0,%d), want [0,%d)", ErrCoverage, next, total)
	}
	return nil
}
