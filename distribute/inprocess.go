package distribute

import (
	"context"
	"sync"

	"github.com/hupe1980/slotmatch/internal/resource"
	"github.com/hupe1980/slotmatch/snapshot"
)

type inProcess struct {
	opts options
}

// InProcess loads the snapshot once and hands the same pointer to every
// worker. Snapshots are immutable, so no copy is needed. The single copy is
// charged to the resource controller until Release.
func InProcess(optFns ...Option) Strategy {
	return &inProcess{opts: applyOptions(optFns)}
}

func (*inProcess) Name() string { return "in-process" }

func (p *inProcess) bind(ctl *resource.Controller) Strategy {
	return &inProcess{opts: p.opts.bound(ctl)}
}

func (p *inProcess) Share(ctx context.Context, load Loader) (Share, error) {
	snap, err := load(ctx)
	if err != nil {
		return nil, err
	}
	size := int64(snap.Size())
	if err := p.opts.reserve(ctx, size); err != nil {
		return nil, failure("reserve snapshot", err)
	}
	return &inProcessShare{users: snap, size: size, ctl: p.opts.resources}, nil
}

type inProcessShare struct {
	users *snapshot.Snapshot
	size  int64
	ctl   *resource.Controller

	mu       sync.RWMutex
	released bool
}

func (s *inProcessShare) Attach(ctx context.Context) (Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return nil, ErrReleased
	}
	return &attachment{users: s.users}, nil
}

func (s *inProcessShare) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.released {
		s.released = true
		s.ctl.ReleaseMemory(s.size)
	}
	return nil
}
