package distribute

import (
	"context"
	"sync/atomic"

	"github.com/hupe1980/slotmatch/internal/resource"
)

type redundantFetch struct {
	opts options
}

// RedundantFetch gives every worker its own copy by running the loader on
// each Attach. It costs one full user read per worker.
func RedundantFetch(optFns ...Option) Strategy {
	return &redundantFetch{opts: applyOptions(optFns)}
}

func (*redundantFetch) Name() string { return "redundant-fetch" }

func (r *redundantFetch) bind(ctl *resource.Controller) Strategy {
	return &redundantFetch{opts: r.opts.bound(ctl)}
}

func (r *redundantFetch) Share(ctx context.Context, load Loader) (Share, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &redundantShare{load: load, opts: r.opts}, nil
}

type redundantShare struct {
	load     Loader
	opts     options
	released atomic.Bool
}

func (s *redundantShare) Attach(ctx context.Context) (Attachment, error) {
	if s.released.Load() {
		return nil, ErrReleased
	}
	snap, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	ctl := s.opts.resources
	size := int64(snap.Size())
	if err := ctl.AcquireIO(ctx, snap.Size()); err != nil {
		return nil, err
	}
	if err := s.opts.reserve(ctx, size); err != nil {
		return nil, failure("reserve snapshot copy", err)
	}
	return &attachment{
		users: snap,
		detach: func() error {
			ctl.ReleaseMemory(size)
			return nil
		},
	}, nil
}

func (s *redundantShare) Release() error {
	s.released.Store(true)
	return nil
}
