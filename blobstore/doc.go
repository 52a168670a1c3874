// Package blobstore provides the storage abstraction used to hand encoded
// user snapshots to workers.
//
// A snapshot is written once with Put, opened by any number of readers, and
// deleted when the run is over. Implementations must be safe for concurrent
// use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, atomic writes, mmap reads
//   - MemoryStore: in-process map, for tests
//   - minio.Store: MinIO and other S3-compatible servers
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//
// Blobs that can expose their contents without copying implement Mappable.
package blobstore
