package distribute

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/hupe1980/slotmatch/internal/mmap"
	"github.com/hupe1980/slotmatch/internal/resource"
	"github.com/hupe1980/slotmatch/snapshot"
)

type sharedMemory struct {
	opts options
}

// SharedMemory copies the snapshot payload into a named segment of exactly
// users*width bytes. Workers map it read-only and index it in place.
func SharedMemory(optFns ...Option) Strategy {
	return &sharedMemory{opts: applyOptions(optFns)}
}

func (*sharedMemory) Name() string { return "shared-memory" }

func (m *sharedMemory) bind(ctl *resource.Controller) Strategy {
	return &sharedMemory{opts: m.opts.bound(ctl)}
}

func (m *sharedMemory) Share(ctx context.Context, load Loader) (Share, error) {
	snap, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(m.opts.segmentDir, segmentPrefix+uuid.NewString())
	seg, err := mmap.Create(path, snap.Size())
	if err != nil {
		return nil, failure("create segment", err)
	}
	copy(seg.Bytes(), snap.Bytes())
	if err := errors.Join(seg.Sync(), seg.Close()); err != nil {
		return nil, failure("write segment", errors.Join(err, removeSegment(path)))
	}

	return &shmShare{
		path:  path,
		width: snap.Width(),
		count: snap.Len(),
	}, nil
}

type shmShare struct {
	path  string
	width int
	count int

	mu       sync.RWMutex
	released bool
	err      error
}

// Path returns the segment's file name.
func (s *shmShare) Path() string { return s.path }

func (s *shmShare) Attach(ctx context.Context) (Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return nil, ErrReleased
	}

	m, err := mmap.Open(s.path)
	if err != nil {
		return nil, failure("attach segment", err)
	}
	if m.Size() != s.count*s.width {
		_ = m.Close()
		return nil, failure("attach segment", fmt.Errorf("%s has %d bytes, want %d", s.path, m.Size(), s.count*s.width))
	}
	_ = m.Advise(mmap.AccessSequential)

	users, err := snapshot.View(m.Bytes(), s.width)
	if err != nil {
		_ = m.Close()
		return nil, failure("attach segment", err)
	}
	return &attachment{users: users, detach: m.Close}, nil
}

// Release unlinks the segment. Existing mappings stay valid until detached.
func (s *shmShare) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return s.err
	}
	s.released = true
	if err := removeSegment(s.path); err != nil {
		s.err = failure("unlink segment", err)
	}
	return s.err
}

func removeSegment(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
