// Package aggregate merges per-partition match counts.
//
// Partitions are disjoint, so every event id is reported exactly once and
// the merge is a plain union. A repeated id means the partitioning is
// broken; it is reported as an invariant violation, never resolved.
package aggregate

import (
	"fmt"

	"github.com/hupe1980/slotmatch/match"
)

// DuplicateKeyError reports an event id present in more than one partial result.
type DuplicateKeyError struct {
	EventID int64
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate event id %d across partitions", e.EventID)
}

func (e *DuplicateKeyError) Unwrap() error { return match.ErrInvariant }

// Merge returns the union of partials. The order of partials does not
// affect the result.
func Merge(partials ...match.Counts) (match.Counts, error) {
	size := 0
	for _, p := range partials {
		size += len(p)
	}
	out := make(match.Counts, size)
	for _, p := range partials {
		for id, n := range p {
			if _, dup := out[id]; dup {
				return nil, &DuplicateKeyError{EventID: id}
			}
			out[id] = n
		}
	}
	return out, nil
}
