package distribute

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hupe1980/slotmatch/blobstore"
	"github.com/hupe1980/slotmatch/internal/resource"
	"github.com/hupe1980/slotmatch/snapshot"
	"github.com/hupe1980/slotmatch/store"
	"github.com/hupe1980/slotmatch/store/memstore"
	"github.com/hupe1980/slotmatch/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const width = 42

func loader(src store.UserSource) Loader {
	return func(ctx context.Context) (*snapshot.Snapshot, error) {
		return snapshot.Build(ctx, src, width)
	}
}

func strategies(t *testing.T) []Strategy {
	t.Helper()
	return []Strategy{
		InProcess(),
		RedundantFetch(),
		SharedMemory(WithSegmentDir(t.TempDir())),
		SharedFile(WithBlobStore(blobstore.NewLocalStore(t.TempDir()))),
		SharedFile(WithBlobStore(blobstore.NewMemoryStore()), WithCompression(snapshot.CompressionLZ4)),
		SharedFile(WithBlobStore(blobstore.NewMemoryStore()), WithCompression(snapshot.CompressionZSTD)),
	}
}

func TestStrategies_IdenticalSnapshots(t *testing.T) {
	ctx := context.Background()
	users := testutil.NewRNG(7).Users(500, width)
	src := memstore.New(users, nil)
	want, err := snapshot.FromRecords(users, width)
	require.NoError(t, err)

	for _, st := range strategies(t) {
		t.Run(st.Name(), func(t *testing.T) {
			share, err := st.Share(ctx, loader(src))
			require.NoError(t, err)
			defer share.Release()

			var wg sync.WaitGroup
			errs := make([]error, 4)
			for i := range errs {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					a, err := share.Attach(ctx)
					if err != nil {
						errs[i] = err
						return
					}
					defer a.Detach()
					if !a.Users().Equal(want) {
						errs[i] = assert.AnError
					}
				}(i)
			}
			wg.Wait()
			for _, err := range errs {
				require.NoError(t, err)
			}

			require.NoError(t, share.Release())
			require.NoError(t, share.Release())

			_, err = share.Attach(ctx)
			assert.ErrorIs(t, err, ErrReleased)
			assert.ErrorIs(t, err, ErrDistribution)
		})
	}
}

func TestStrategies_EmptySnapshot(t *testing.T) {
	ctx := context.Background()
	src := memstore.New(nil, nil)

	for _, st := range strategies(t) {
		t.Run(st.Name(), func(t *testing.T) {
			share, err := st.Share(ctx, loader(src))
			require.NoError(t, err)
			defer share.Release()

			a, err := share.Attach(ctx)
			require.NoError(t, err)
			assert.Equal(t, 0, a.Users().Len())
			assert.Equal(t, width, a.Users().Width())
			require.NoError(t, a.Detach())
			require.NoError(t, a.Detach())
		})
	}
}

func TestStrategies_LoaderErrorKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	src := memstore.New(nil, nil)
	src.InjectFault(memstore.OpLoadUsers, memstore.Fault{})

	for _, st := range strategies(t) {
		t.Run(st.Name(), func(t *testing.T) {
			share, err := st.Share(ctx, loader(src))
			if err == nil {
				// RedundantFetch defers the load to Attach.
				defer share.Release()
				_, err = share.Attach(ctx)
			}
			require.ErrorIs(t, err, store.ErrUnavailable)
			assert.NotErrorIs(t, err, ErrDistribution)
		})
	}
}

func TestRedundantFetch_LoadsPerAttach(t *testing.T) {
	ctx := context.Background()
	users := testutil.NewRNG(1).Users(10, width)
	src := memstore.New(users, nil)
	ctl := resource.NewController(resource.Config{})

	share, err := RedundantFetch(WithResourceController(ctl)).Share(ctx, loader(src))
	require.NoError(t, err)
	defer share.Release()
	assert.Equal(t, int64(0), src.Calls(memstore.OpLoadUsers))

	a1, err := share.Attach(ctx)
	require.NoError(t, err)
	a2, err := share.Attach(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), src.Calls(memstore.OpLoadUsers))
	assert.NotSame(t, a1.Users(), a2.Users())
	assert.Equal(t, int64(2*10*width), ctl.MemoryUsage())

	require.NoError(t, a1.Detach())
	require.NoError(t, a2.Detach())
	assert.Zero(t, ctl.MemoryUsage())
}

func TestRedundantFetch_MemoryLimit(t *testing.T) {
	ctx := context.Background()
	src := memstore.New(testutil.NewRNG(1).Users(10, width), nil)
	ctl := resource.NewController(resource.Config{MemoryLimitBytes: 100})

	share, err := RedundantFetch(WithResourceController(ctl)).Share(ctx, loader(src))
	require.NoError(t, err)
	defer share.Release()

	_, err = share.Attach(ctx)
	require.ErrorIs(t, err, ErrDistribution)
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
}

func TestRedundantFetch_FailFastMemory(t *testing.T) {
	ctx := context.Background()
	src := memstore.New(testutil.NewRNG(1).Users(10, width), nil)
	ctl := resource.NewController(resource.Config{MemoryLimitBytes: 10*width + 10})

	share, err := RedundantFetch(WithResourceController(ctl), WithFailFastMemory()).Share(ctx, loader(src))
	require.NoError(t, err)
	defer share.Release()

	a, err := share.Attach(ctx)
	require.NoError(t, err)

	// The second copy does not fit and must not wait for the first.
	_, err = share.Attach(ctx)
	require.ErrorIs(t, err, ErrDistribution)
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)

	require.NoError(t, a.Detach())
	a, err = share.Attach(ctx)
	require.NoError(t, err)
	require.NoError(t, a.Detach())
	assert.Zero(t, ctl.MemoryUsage())
}

func TestBindResources(t *testing.T) {
	ctx := context.Background()
	src := memstore.New(testutil.NewRNG(1).Users(10, width), nil)
	ctl := resource.NewController(resource.Config{})

	share, err := BindResources(InProcess(), ctl).Share(ctx, loader(src))
	require.NoError(t, err)
	assert.Equal(t, int64(10*width), ctl.MemoryUsage())
	require.NoError(t, share.Release())
	require.NoError(t, share.Release())
	assert.Zero(t, ctl.MemoryUsage())

	// A strategy with its own controller keeps it.
	own := resource.NewController(resource.Config{})
	share, err = BindResources(InProcess(WithResourceController(own)), ctl).Share(ctx, loader(src))
	require.NoError(t, err)
	assert.Zero(t, ctl.MemoryUsage())
	assert.Equal(t, int64(10*width), own.MemoryUsage())
	require.NoError(t, share.Release())

	st := InProcess()
	assert.Same(t, st, BindResources(st, nil))
}

func TestInProcess_SharesPointer(t *testing.T) {
	ctx := context.Background()
	src := memstore.New(testutil.NewRNG(1).Users(3, width), nil)

	share, err := InProcess().Share(ctx, loader(src))
	require.NoError(t, err)
	defer share.Release()

	a1, err := share.Attach(ctx)
	require.NoError(t, err)
	a2, err := share.Attach(ctx)
	require.NoError(t, err)
	assert.Same(t, a1.Users(), a2.Users())
	assert.Equal(t, int64(1), src.Calls(memstore.OpLoadUsers))
}

func TestSharedMemory_SegmentLifecycle(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	users := testutil.NewRNG(2).Users(20, width)
	src := memstore.New(users, nil)

	share, err := SharedMemory(WithSegmentDir(dir)).Share(ctx, loader(src))
	require.NoError(t, err)

	path := share.(*shmShare).Path()
	assert.Equal(t, dir, filepath.Dir(path))
	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(20*width), fi.Size())

	a, err := share.Attach(ctx)
	require.NoError(t, err)

	require.NoError(t, share.Release())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Mapped views survive the unlink.
	assert.Equal(t, users[19].Mask, []byte(a.Users().At(19)))
	require.NoError(t, a.Detach())
}

func TestSharedMemory_SetupFailure(t *testing.T) {
	ctx := context.Background()
	src := memstore.New(testutil.NewRNG(2).Users(2, width), nil)

	_, err := SharedMemory(WithSegmentDir(filepath.Join(t.TempDir(), "missing"))).Share(ctx, loader(src))
	assert.ErrorIs(t, err, ErrDistribution)
}

func TestSharedMemory_TruncatedSegment(t *testing.T) {
	ctx := context.Background()
	src := memstore.New(testutil.NewRNG(2).Users(4, width), nil)

	share, err := SharedMemory(WithSegmentDir(t.TempDir())).Share(ctx, loader(src))
	require.NoError(t, err)
	defer share.Release()

	require.NoError(t, os.Truncate(share.(*shmShare).Path(), width))
	_, err = share.Attach(ctx)
	assert.ErrorIs(t, err, ErrDistribution)
}

func TestSharedFile_BlobLifecycle(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	src := memstore.New(testutil.NewRNG(3).Users(50, width), nil)

	share, err := SharedFile(WithBlobStore(bs), WithBlobPrefix("runs/")).Share(ctx, loader(src))
	require.NoError(t, err)

	names, err := bs.List(ctx, "runs/")
	require.NoError(t, err)
	require.Len(t, names, 1)
	assert.Equal(t, share.(*fileShare).Name(), names[0])

	require.NoError(t, share.Release())
	assert.Zero(t, bs.Len())
}

func TestSharedFile_CorruptBlob(t *testing.T) {
	ctx := context.Background()
	bs := blobstore.NewMemoryStore()
	src := memstore.New(testutil.NewRNG(3).Users(5, width), nil)

	share, err := SharedFile(WithBlobStore(bs)).Share(ctx, loader(src))
	require.NoError(t, err)
	defer share.Release()

	require.NoError(t, bs.Put(ctx, share.(*fileShare).Name(), []byte("not a snapshot")))
	_, err = share.Attach(ctx)
	require.ErrorIs(t, err, ErrDistribution)
	assert.ErrorIs(t, err, snapshot.ErrCorrupt)
}

func TestSharedFile_MemoryAccounting(t *testing.T) {
	ctx := context.Background()
	ctl := resource.NewController(resource.Config{})
	src := memstore.New(testutil.NewRNG(4).Users(8, width), nil)

	share, err := SharedFile(
		WithBlobStore(blobstore.NewMemoryStore()),
		WithCompression(snapshot.CompressionZSTD),
		WithResourceController(ctl),
	).Share(ctx, loader(src))
	require.NoError(t, err)
	defer share.Release()

	a, err := share.Attach(ctx)
	require.NoError(t, err)
	assert.Positive(t, ctl.MemoryUsage())
	require.NoError(t, a.Detach())
	assert.Zero(t, ctl.MemoryUsage())
}

func TestByName(t *testing.T) {
	for _, name := range Names() {
		st, ok := ByName(name, WithSegmentDir(t.TempDir()))
		require.True(t, ok, name)
		assert.Equal(t, name, st.Name())
	}
	_, ok := ByName("carrier-pigeon")
	assert.False(t, ok)
}
