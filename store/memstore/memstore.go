// Package memstore is an in-memory store.Source.
//
// It is primarily used by tests and benchmarks: records are kept sorted by
// id, and faults can be injected per operation to exercise error paths.
package memstore

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/slotmatch/store"
)

// Op names an operation for fault injection.
type Op string

const (
	OpLoadUsers  Op = "load_users"
	OpLoadEvents Op = "load_events"
	OpCountEvent Op = "count_events"
)

// ErrInjected is the default injected error.
var ErrInjected = errors.New("memstore: injected fault")

// Fault defines failure behavior for one operation.
type Fault struct {
	// After lets this many calls succeed before failing. 0 fails the first call.
	After int64
	// Err is returned on failure; ErrInjected if nil.
	Err error
}

// Store is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	users  []store.Record
	events []store.Record
	faults map[Op]Fault
	calls  map[Op]*atomic.Int64
}

// New creates a store holding copies of users and events.
func New(users, events []store.Record) *Store {
	s := &Store{
		faults: make(map[Op]Fault),
		calls: map[Op]*atomic.Int64{
			OpLoadUsers:  {},
			OpLoadEvents: {},
			OpCountEvent: {},
		},
	}
	s.users = sortedCopy(users)
	s.events = sortedCopy(events)
	return s
}

func sortedCopy(in []store.Record) []store.Record {
	out := make([]store.Record, len(in))
	for i, r := range in {
		out[i] = store.Record{ID: r.ID, Mask: slices.Clone(r.Mask)}
	}
	slices.SortFunc(out, func(a, b store.Record) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// AddUser appends a user with the next free id and returns the id.
func (s *Store) AddUser(m []byte) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := nextID(s.users)
	s.users = append(s.users, store.Record{ID: id, Mask: slices.Clone(m)})
	return id
}

// AddEvent appends an event with the next free id and returns the id.
func (s *Store) AddEvent(m []byte) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := nextID(s.events)
	s.events = append(s.events, store.Record{ID: id, Mask: slices.Clone(m)})
	return id
}

// ids start at 1, like a serial column.
func nextID(rs []store.Record) int64 {
	if len(rs) == 0 {
		return 1
	}
	return rs[len(rs)-1].ID + 1
}

// InjectFault makes op fail according to f.
func (s *Store) InjectFault(op Op, f Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = f
}

// ClearFaults removes all injected faults and resets call counters.
func (s *Store) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[Op]Fault)
	for _, c := range s.calls {
		c.Store(0)
	}
}

// Calls returns how many times op has been invoked.
func (s *Store) Calls(op Op) int64 {
	return s.calls[op].Load()
}

func (s *Store) check(op Op) error {
	n := s.calls[op].Add(1)
	f, ok := s.faults[op]
	if !ok || n <= f.After {
		return nil
	}
	err := f.Err
	if err == nil {
		err = ErrInjected
	}
	return store.Unavailable(string(op), err)
}

// LoadAllUserMasks implements store.UserSource.
func (s *Store) LoadAllUserMasks(ctx context.Context) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(OpLoadUsers); err != nil {
		return nil, err
	}
	return sortedCopy(s.users), nil
}

// LoadEventsPage implements store.EventSource.
func (s *Store) LoadEventsPage(ctx context.Context, skip, take int) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := store.CheckPage(skip, take); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(OpLoadEvents); err != nil {
		return nil, err
	}
	if skip >= len(s.events) {
		return nil, nil
	}
	end := min(skip+take, len(s.events))
	return sortedCopy(s.events[skip:end]), nil
}

// CountEvents implements store.EventSource.
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(OpCountEvent); err != nil {
		return 0, err
	}
	return len(s.events), nil
}
