// Package pebblestore keeps user and event masks in a Pebble key-value store.
//
// Records live under "u|" and "e|" followed by the id as 8 big-endian bytes
// with the sign bit flipped, so Pebble's byte order is ascending id order
// for negative ids too.
package pebblestore

import (
	"context"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/v2"
	"github.com/cockroachdb/pebble/v2/vfs"
	"github.com/hupe1980/slotmatch/store"
)

const keyLen = 2 + 8

var (
	userPrefix  = []byte("u|")
	eventPrefix = []byte("e|")
)

type options struct {
	fs   vfs.FS
	sync bool
}

// Option configures Open.
type Option func(*options)

// WithFS opens the database on fs instead of the OS file system.
func WithFS(fs vfs.FS) Option {
	return func(o *options) { o.fs = fs }
}

// WithSync makes every ingest batch fsync before returning. Default true.
func WithSync(sync bool) Option {
	return func(o *options) { o.sync = sync }
}

// Store implements store.Source on top of Pebble.
type Store struct {
	db   *pebble.DB
	sync bool
}

// Open opens or creates the database in dir.
func Open(dir string, optFns ...Option) (*Store, error) {
	o := options{sync: true}
	for _, fn := range optFns {
		fn(&o)
	}
	popts := &pebble.Options{}
	if o.fs != nil {
		popts.FS = o.fs
	}
	db, err := pebble.Open(dir, popts)
	if err != nil {
		return nil, store.Unavailable("open", errors.Wrapf(err, "pebblestore: open %q", dir))
	}
	return &Store{db: db, sync: o.sync}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeKey(prefix []byte, id int64) []byte {
	k := make([]byte, keyLen)
	copy(k, prefix)
	binary.BigEndian.PutUint64(k[2:], uint64(id)^(1<<63))
	return k
}

func decodeKey(k []byte) (int64, error) {
	if len(k) != keyLen {
		return 0, errors.Newf("pebblestore: malformed key %x", k)
	}
	return int64(binary.BigEndian.Uint64(k[2:]) ^ (1 << 63)), nil
}

// bounds returns the key range covering every record under prefix.
func bounds(prefix []byte) *pebble.IterOptions {
	upper := append([]byte(nil), prefix...)
	upper[len(upper)-1]++
	return &pebble.IterOptions{LowerBound: prefix, UpperBound: upper}
}

// PutUsers writes user records in one batch, replacing existing ids.
func (s *Store) PutUsers(ctx context.Context, records []store.Record) error {
	return s.put(ctx, "put_users", userPrefix, records)
}

// PutEvents writes event records in one batch, replacing existing ids.
func (s *Store) PutEvents(ctx context.Context, records []store.Record) error {
	return s.put(ctx, "put_events", eventPrefix, records)
}

func (s *Store) put(ctx context.Context, op string, prefix []byte, records []store.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b := s.db.NewBatch()
	defer b.Close()
	for _, r := range records {
		if err := b.Set(encodeKey(prefix, r.ID), r.Mask, nil); err != nil {
			return store.Unavailable(op, errors.Wrapf(err, "pebblestore: stage id %d", r.ID))
		}
	}
	wo := pebble.NoSync
	if s.sync {
		wo = pebble.Sync
	}
	if err := b.Commit(wo); err != nil {
		return store.Unavailable(op, errors.Wrap(err, "pebblestore: commit batch"))
	}
	return nil
}

// scan visits records under prefix in ascending id order, skipping the
// first skip and stopping after take (take < 0 means all). visit may stop
// early by returning false.
func (s *Store) scan(ctx context.Context, prefix []byte, skip int, visit func(id int64, value []byte) bool) error {
	iter, err := s.db.NewIter(bounds(prefix))
	if err != nil {
		return errors.Wrap(err, "pebblestore: new iterator")
	}
	defer iter.Close()

	n := 0
	for valid := iter.First(); valid; valid = iter.Next() {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		n++
		if n <= skip {
			continue
		}
		id, err := decodeKey(iter.Key())
		if err != nil {
			return err
		}
		v, err := iter.ValueAndErr()
		if err != nil {
			return errors.Wrapf(err, "pebblestore: value of id %d", id)
		}
		if !visit(id, v) {
			break
		}
	}
	return errors.Wrap(iter.Error(), "pebblestore: iterate")
}

// LoadAllUserMasks implements store.UserSource.
func (s *Store) LoadAllUserMasks(ctx context.Context) ([]store.Record, error) {
	var out []store.Record
	err := s.scan(ctx, userPrefix, 0, func(id int64, v []byte) bool {
		out = append(out, store.Record{ID: id, Mask: append([]byte(nil), v...)})
		return true
	})
	if err != nil {
		return nil, wrap("load_users", err)
	}
	return out, nil
}

// LoadEventsPage implements store.EventSource.
func (s *Store) LoadEventsPage(ctx context.Context, skip, take int) ([]store.Record, error) {
	if err := store.CheckPage(skip, take); err != nil {
		return nil, err
	}
	if take == 0 {
		return nil, nil
	}
	out := make([]store.Record, 0, take)
	err := s.scan(ctx, eventPrefix, skip, func(id int64, v []byte) bool {
		out = append(out, store.Record{ID: id, Mask: append([]byte(nil), v...)})
		return len(out) < take
	})
	if err != nil {
		return nil, wrap("load_events", err)
	}
	return out, nil
}

// CountEvents implements store.EventSource.
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	n := 0
	err := s.scan(ctx, eventPrefix, 0, func(int64, []byte) bool {
		n++
		return true
	})
	if err != nil {
		return 0, wrap("count_events", err)
	}
	return n, nil
}

// wrap reports storage failures as store.ErrUnavailable and leaves
// cancellation alone.
func wrap(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return store.Unavailable(op, err)
}
