package distribute

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/hupe1980/slotmatch/blobstore"
	"github.com/hupe1980/slotmatch/internal/resource"
	"github.com/hupe1980/slotmatch/snapshot"
)

type sharedFile struct {
	opts options
}

// SharedFile encodes the snapshot into a blob that workers open on their
// own. Without WithBlobStore it uses a local store under the temp dir.
func SharedFile(optFns ...Option) Strategy {
	o := applyOptions(optFns)
	if o.store == nil {
		o.store = blobstore.NewLocalStore(filepath.Join(os.TempDir(), "slotmatch"))
	}
	return &sharedFile{opts: o}
}

func (*sharedFile) Name() string { return "shared-file" }

func (f *sharedFile) bind(ctl *resource.Controller) Strategy {
	return &sharedFile{opts: f.opts.bound(ctl)}
}

func (f *sharedFile) Share(ctx context.Context, load Loader) (Share, error) {
	snap, err := load(ctx)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(snap.EncodedSize())
	if _, err := snap.Encode(&buf, f.opts.compression); err != nil {
		return nil, failure("encode snapshot", err)
	}

	name := f.opts.blobPrefix + segmentPrefix + uuid.NewString() + ".snap"
	if err := f.opts.store.Put(ctx, name, buf.Bytes()); err != nil {
		// A failed Put may still leave a partial object behind.
		return nil, failure("write snapshot", errors.Join(err, f.opts.store.Delete(context.Background(), name)))
	}
	return &fileShare{name: name, opts: f.opts}, nil
}

type fileShare struct {
	name string
	opts options

	mu       sync.RWMutex
	released bool
	err      error
}

// Name returns the blob name the snapshot was written to.
func (s *fileShare) Name() string { return s.name }

func (s *fileShare) Attach(ctx context.Context) (Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.released {
		return nil, ErrReleased
	}

	blob, err := s.opts.store.Open(ctx, s.name)
	if err != nil {
		return nil, failure("open snapshot", err)
	}
	ctl := s.opts.resources
	if err := ctl.AcquireIO(ctx, int(blob.Size())); err != nil {
		_ = blob.Close()
		return nil, err
	}

	if a, ok, err := s.attachMapped(blob); ok || err != nil {
		return a, err
	}

	data, err := blobstore.ReadAll(ctx, blob)
	if cerr := blob.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, failure("read snapshot", err)
	}

	h, err := snapshot.ParseHeader(data)
	if err != nil {
		return nil, failure("decode snapshot", err)
	}
	// The encoded buffer is held alongside the decoded copy while decoding.
	size := int64(len(data) + h.RawSize())
	if err := s.opts.reserve(ctx, size); err != nil {
		return nil, failure("reserve snapshot copy", err)
	}
	users, err := snapshot.Decode(data)
	if err != nil {
		ctl.ReleaseMemory(size)
		return nil, failure("decode snapshot", err)
	}
	return &attachment{
		users: users,
		detach: func() error {
			ctl.ReleaseMemory(size)
			return nil
		},
	}, nil
}

// attachMapped decodes an uncompressed blob in place. ok is false when the
// blob cannot be used without a copy; the blob is then still open.
func (s *fileShare) attachMapped(blob blobstore.Blob) (Attachment, bool, error) {
	m, ok := blob.(blobstore.Mappable)
	if !ok {
		return nil, false, nil
	}
	data, err := m.Bytes()
	if err != nil {
		return nil, false, nil
	}
	h, err := snapshot.ParseHeader(data)
	if err != nil || h.Compression != snapshot.CompressionNone {
		return nil, false, nil
	}
	users, err := snapshot.Decode(data)
	if err != nil {
		_ = blob.Close()
		return nil, true, failure("decode snapshot", err)
	}
	return &attachment{users: users, detach: blob.Close}, true, nil
}

// Release deletes the blob. Existing attachments keep their own handles.
func (s *fileShare) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return s.err
	}
	s.released = true
	if err := s.opts.store.Delete(context.Background(), s.name); err != nil {
		s.err = failure("delete snapshot", err)
	}
	return s.err
}
