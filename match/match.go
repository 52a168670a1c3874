package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/slotmatch/mask"
	"github.com/hupe1980/slotmatch/snapshot"
	"github.com/hupe1980/slotmatch/store"
)

// ErrInvariant is matched by errors that indicate a logic bug upstream:
// width mismatches and duplicate event ids.
var ErrInvariant = errors.New("invariant violation")

// WidthMismatchError reports an event whose encoded width differs from the snapshot's.
type WidthMismatchError struct {
	EventID  int64
	Expected int
	Actual   int
}

func (e *WidthMismatchError) Error() string {
	return fmt.Sprintf("event %d: width mismatch: expected %d bytes, got %d", e.EventID, e.Expected, e.Actual)
}

func (e *WidthMismatchError) Unwrap() error { return ErrInvariant }

// Event is one requirement mask.
type Event struct {
	ID   int64
	Mask mask.Mask
}

// Scanner counts the users of one prepared snapshot that satisfy a requirement.
// Implementations are safe for concurrent use.
type Scanner interface {
	// Width is the mask width in bytes the scanner was prepared for.
	Width() int
	// Count returns how many users have every slot of req set.
	// req must be exactly Width() bytes.
	Count(req mask.Mask) int
}

// Evaluator is an evaluation strategy.
type Evaluator interface {
	Name() string
	// Prepare builds whatever per-snapshot state the strategy needs.
	Prepare(users *snapshot.Snapshot) (Scanner, error)
}

// ByName returns a built-in evaluator by its stable name.
func ByName(name string) (Evaluator, bool) {
	switch name {
	case "bytewise", "plain":
		return Bytewise{}, true
	case "wordwise", "int64":
		return Wordwise{}, true
	case "bitset":
		return Bitset{}, true
	case "inverted":
		return Inverted{}, true
	default:
		return nil, false
	}
}

// Names lists the built-in evaluators.
func Names() []string {
	return []string{"bytewise", "wordwise", "bitset", "inverted"}
}

// EventsFromRecords converts store records, rejecting any whose width differs from width.
func EventsFromRecords(records []store.Record, width int) ([]Event, error) {
	events := make([]Event, len(records))
	for i, r := range records {
		if len(r.Mask) != width {
			return nil, &WidthMismatchError{EventID: r.ID, Expected: width, Actual: len(r.Mask)}
		}
		events[i] = Event{ID: r.ID, Mask: mask.Mask(r.Mask)}
	}
	return events, nil
}

// Evaluate counts matches for every event in the batch.
// It stops early only if ctx is canceled.
func Evaluate(ctx context.Context, sc Scanner, events []Event) (Counts, error) {
	counts := make(Counts, len(events))
	width := sc.Width()
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(ev.Mask) != width {
			return nil, &WidthMismatchError{EventID: ev.ID, Expected: width, Actual: len(ev.Mask)}
		}
		if _, dup := counts[ev.ID]; dup {
			return nil, fmt.Errorf("%w: event %d appears twice in one batch", ErrInvariant, ev.ID)
		}
		counts[ev.ID] = sc.Count(ev.Mask)
	}
	return counts, nil
}
