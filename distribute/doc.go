// Package distribute makes one user snapshot available to every worker of a
// match run.
//
// A Strategy turns a Loader into a Share. Workers call Share.Attach to get a
// read-only view and Detach when done; the orchestrator alone calls
// Share.Release, exactly once, after every worker has finished. Release is
// idempotent so it can be deferred on every exit path.
//
// Four strategies are provided:
//
//   - InProcess: load once, hand the same immutable *snapshot.Snapshot to
//     every goroutine. This is the default.
//   - RedundantFetch: every Attach runs the loader again. Memory for each copy
//     is charged to the resource controller.
//   - SharedMemory: load once, copy the payload into a named segment under
//     /dev/shm, and let workers map it read-only.
//   - SharedFile: load once, encode the snapshot (optionally compressed) into a
//     blobstore.BlobStore, and let workers open it independently.
//
// Every strategy yields byte-for-byte identical snapshots.
package distribute
