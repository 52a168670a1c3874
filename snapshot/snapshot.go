package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/slotmatch/mask"
	"github.com/hupe1980/slotmatch/store"
)

var (
	// ErrWidthMismatch is returned when a record or buffer does not match the snapshot width.
	ErrWidthMismatch = errors.New("snapshot: width mismatch")
	// ErrUnordered is returned when records are not strictly ascending by id.
	ErrUnordered = errors.New("snapshot: records not ascending by id")
)

// Snapshot is an immutable, ordered set of user masks in one flat buffer.
// User i occupies bytes [i*Width(), (i+1)*Width()).
//
// A Snapshot is safe for concurrent readers; nothing mutates it after construction.
type Snapshot struct {
	data  []byte
	width int
	count int
}

// Build reads every user once from src and packs the masks in ascending id order.
func Build(ctx context.Context, src store.UserSource, width int) (*Snapshot, error) {
	records, err := src.LoadAllUserMasks(ctx)
	if err != nil {
		return nil, err
	}
	return FromRecords(records, width)
}

// FromRecords packs records, which must be ascending by id and exactly width bytes each.
func FromRecords(records []store.Record, width int) (*Snapshot, error) {
	if width <= 0 {
		return nil, fmt.Errorf("%w: width %d", ErrWidthMismatch, width)
	}
	data := make([]byte, len(records)*width)
	for i, r := range records {
		if len(r.Mask) != width {
			return nil, fmt.Errorf("%w: user %d has %d bytes, want %d", ErrWidthMismatch, r.ID, len(r.Mask), width)
		}
		if i > 0 && r.ID <= records[i-1].ID {
			return nil, fmt.Errorf("%w: %d after %d", ErrUnordered, r.ID, records[i-1].ID)
		}
		copy(data[i*width:], r.Mask)
	}
	return &Snapshot{data: data, width: width, count: len(records)}, nil
}

// View wraps buf without copying. The caller keeps buf alive and unmodified
// for the lifetime of the snapshot.
func View(buf []byte, width int) (*Snapshot, error) {
	if width <= 0 || len(buf)%width != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrWidthMismatch, len(buf), width)
	}
	return &Snapshot{data: buf, width: width, count: len(buf) / width}, nil
}

// Len returns the number of users.
func (s *Snapshot) Len() int { return s.count }

// Width returns the mask width in bytes.
func (s *Snapshot) Width() int { return s.width }

// Size returns the payload size in bytes.
func (s *Snapshot) Size() int { return len(s.data) }

// At returns user i's mask. The returned slice aliases the snapshot and must not be modified.
func (s *Snapshot) At(i int) mask.Mask {
	off := i * s.width
	return mask.Mask(s.data[off : off+s.width : off+s.width])
}

// Bytes returns the flat payload. It must not be modified.
func (s *Snapshot) Bytes() []byte { return s.data }

// Equal reports whether both snapshots hold the same masks in the same order.
func (s *Snapshot) Equal(other *Snapshot) bool {
	return s.width == other.width && s.count == other.count && bytes.Equal(s.data, other.data)
}
