// Package store defines the data-access boundary of the matching engine.
//
// Adapters decode rows into typed Records once, here; nothing downstream
// parses loosely-typed data. Built-in adapters:
//
//   - memstore: in-memory, with fault injection for tests
//   - pebblestore: embedded ordered key-value store
//   - dynamostore: Amazon DynamoDB table
package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable is matched by every error caused by the backing store
// being unreachable or failing a query. The core never retries.
var ErrUnavailable = errors.New("store unavailable")

// Record is one decoded row: an id and its encoded mask.
type Record struct {
	ID   int64
	Mask []byte
}

// UserSource provides the bulk user snapshot.
type UserSource interface {
	// LoadAllUserMasks returns every user, ascending by id.
	LoadAllUserMasks(ctx context.Context) ([]Record, error)
}

// EventSource provides paged access to events.
type EventSource interface {
	// LoadEventsPage returns up to take events after skipping skip, ascending by id.
	LoadEventsPage(ctx context.Context, skip, take int) ([]Record, error)
	// CountEvents returns the total number of events.
	CountEvents(ctx context.Context) (int, error)
}

// Source is the full read interface consumed by the matcher.
type Source interface {
	UserSource
	EventSource
}

// Unavailable wraps err so that it matches ErrUnavailable.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

// CheckPage validates paging arguments shared by every adapter.
func CheckPage(skip, take int) error {
	if skip < 0 || take < 0 {
		return fmt.Errorf("store: invalid page skip=%d take=%d", skip, take)
	}
	return nil
}
