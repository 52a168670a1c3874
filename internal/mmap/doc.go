// Package mmap provides memory-mapped file access for zero-copy snapshot sharing.
//
// Open maps an existing file read-only. Create makes a new file of a fixed
// size and maps it read-write with MAP_SHARED, so bytes written through the
// mapping are visible to every later reader of the same path (for example a
// segment under /dev/shm).
//
//	m, err := mmap.Open(path)
//	if err != nil { ... }
//	defer m.Close()
//	data := m.Bytes()
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2), msync(2) and madvise(2)
//   - Windows: CreateFileMapping/MapViewOfFile (advice is a no-op)
//
// Mapping is safe for concurrent reads. Close is idempotent; callers must
// not touch Bytes() after Close returns.
package mmap
