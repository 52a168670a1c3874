// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("slotmatch/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	strategy := distribute.SharedFile(distribute.WithBlobStore(store))
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads for large snapshots, with CRC32C integrity checks
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
