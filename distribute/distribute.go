package distribute

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/hupe1980/slotmatch/blobstore"
	"github.com/hupe1980/slotmatch/internal/resource"
	"github.com/hupe1980/slotmatch/snapshot"
)

var (
	// ErrDistribution is returned when a snapshot cannot be shared with or
	// attached by a worker.
	ErrDistribution = errors.New("distribution failed")
	// ErrReleased is returned by Attach after the share was released.
	ErrReleased = fmt.Errorf("%w: share already released", ErrDistribution)
)

// DefaultSegmentDir is where SharedMemory creates its segments.
const DefaultSegmentDir = "/dev/shm"

// segmentPrefix names every segment and blob a strategy creates.
const segmentPrefix = "slotmatch-"

// Loader produces the snapshot to share. Errors are returned unchanged by
// Share and Attach so store failures keep their identity.
type Loader func(ctx context.Context) (*snapshot.Snapshot, error)

// Strategy shares a snapshot between workers.
type Strategy interface {
	// Name identifies the strategy in logs and reports.
	Name() string
	// Share prepares the snapshot for attachment.
	Share(ctx context.Context, load Loader) (Share, error)
}

// Share is a prepared snapshot. Attach is safe for concurrent use.
type Share interface {
	// Attach returns a read-only view for one worker.
	Attach(ctx context.Context) (Attachment, error)
	// Release frees everything the share created. Only the orchestrator
	// calls it, after all workers detached. It is idempotent.
	Release() error
}

// Attachment is one worker's view of the shared snapshot.
type Attachment interface {
	// Users returns the snapshot. It is valid until Detach.
	Users() *snapshot.Snapshot
	// Detach releases the view. It is idempotent.
	Detach() error
}

type options struct {
	segmentDir  string
	compression snapshot.Compression
	store       blobstore.BlobStore
	blobPrefix  string
	resources   *resource.Controller
	failFast    bool
}

// Option configures a strategy.
type Option func(*options)

// WithSegmentDir sets the directory SharedMemory creates segments in.
func WithSegmentDir(dir string) Option {
	return func(o *options) { o.segmentDir = dir }
}

// WithCompression sets the payload compression SharedFile writes.
func WithCompression(c snapshot.Compression) Option {
	return func(o *options) { o.compression = c }
}

// WithBlobStore sets the store SharedFile writes to.
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) { o.store = store }
}

// WithBlobPrefix sets a name prefix for blobs written by SharedFile.
func WithBlobPrefix(prefix string) Option {
	return func(o *options) { o.blobPrefix = prefix }
}

// WithResourceController charges private snapshot copies and snapshot
// reads to ctl.
func WithResourceController(ctl *resource.Controller) Option {
	return func(o *options) { o.resources = ctl }
}

// WithFailFastMemory makes a snapshot copy that does not fit the memory
// limit fail immediately instead of waiting for other copies to be freed.
func WithFailFastMemory() Option {
	return func(o *options) { o.failFast = true }
}

func applyOptions(optFns []Option) options {
	o := options{
		segmentDir:  defaultSegmentDir(),
		compression: snapshot.CompressionNone,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// defaultSegmentDir falls back to the temp dir where /dev/shm is missing.
func defaultSegmentDir() string {
	if fi, err := os.Stat(DefaultSegmentDir); err == nil && fi.IsDir() {
		return DefaultSegmentDir
	}
	return os.TempDir()
}

// reserve charges n bytes of snapshot copies to the resource controller.
func (o *options) reserve(ctx context.Context, n int64) error {
	if o.failFast {
		return o.resources.AcquireMemory(n)
	}
	return o.resources.WaitMemory(ctx, n)
}

// bindable is implemented by the built-in strategies.
type bindable interface {
	bind(ctl *resource.Controller) Strategy
}

// BindResources returns s charged to ctl when s is a built-in strategy
// configured without a controller of its own. Other strategies and a nil
// ctl return s unchanged.
func BindResources(s Strategy, ctl *resource.Controller) Strategy {
	if ctl == nil {
		return s
	}
	if b, ok := s.(bindable); ok {
		return b.bind(ctl)
	}
	return s
}

func (o options) bound(ctl *resource.Controller) options {
	if o.resources == nil {
		o.resources = ctl
	}
	return o
}

// ByName returns the strategy registered under name.
// SharedFile without WithBlobStore writes to a local store under the temp dir.
func ByName(name string, optFns ...Option) (Strategy, bool) {
	switch name {
	case "in-process", "inprocess", "":
		return InProcess(optFns...), true
	case "redundant-fetch", "redundant":
		return RedundantFetch(optFns...), true
	case "shared-memory", "shm":
		return SharedMemory(optFns...), true
	case "shared-file", "file":
		return SharedFile(optFns...), true
	default:
		return nil, false
	}
}

// Names lists the canonical strategy names.
func Names() []string {
	return []string{"in-process", "redundant-fetch", "shared-memory", "shared-file"}
}

func failure(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDistribution, op, err)
}

// attachment is a view that needs no cleanup beyond an optional closer.
type attachment struct {
	users  *snapshot.Snapshot
	detach func() error
}

func (a *attachment) Users() *snapshot.Snapshot { return a.users }

func (a *attachment) Detach() error {
	if a.detach == nil {
		return nil
	}
	fn := a.detach
	a.detach = nil
	return fn()
}
