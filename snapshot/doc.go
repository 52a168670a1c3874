// Package snapshot holds the availability snapshot: every user mask of one
// matching run, loaded once, ordered by ascending user id and never mutated.
//
// # Layout
//
// Masks are packed back to back in a single buffer. User i occupies bytes
// [i*W, (i+1)*W) where W is the mask width, so workers index a shared region
// directly by user number.
//
// # Encoding
//
// Encode and Decode add a small self-describing header (magic, width, count,
// CRC32-C checksums) so that a snapshot can be handed to workers through a
// file or object store. The payload may be LZ4 or Zstandard compressed;
// uncompressed payloads decode without copying, which makes mmap-backed
// blobs zero-copy.
package snapshot
