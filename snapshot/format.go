package snapshot

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// ErrCorrupt is returned when an encoded snapshot fails validation.
var ErrCorrupt = errors.New("snapshot: corrupt encoding")

// Encoded layout (little endian):
//
//	[0:8)   magic "SLOTSNAP"
//	[8:10)  version
//	[10]    compression
//	[11]    reserved
//	[12:16) width in bytes
//	[16:24) user count
//	[24:32) stored payload length
//	[32:36) CRC32-C of the raw payload
//	[36:40) CRC32-C of bytes [0:36)
//	[40:)   payload
const (
	HeaderSize = 40
	version    = 1
)

var magic = [8]byte{'S', 'L', 'O', 'T', 'S', 'N', 'A', 'P'}

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// Header describes an encoded snapshot.
type Header struct {
	Compression Compression
	Width       int
	Count       int
	StoredSize  int
	Checksum    uint32
}

// RawSize returns the decoded payload size.
func (h Header) RawSize() int { return h.Width * h.Count }

func (h Header) marshal() [HeaderSize]byte {
	var b [HeaderSize]byte
	copy(b[0:8], magic[:])
	binary.LittleEndian.PutUint16(b[8:], version)
	b[10] = byte(h.Compression)
	binary.LittleEndian.PutUint32(b[12:], uint32(h.Width))
	binary.LittleEndian.PutUint64(b[16:], uint64(h.Count))
	binary.LittleEndian.PutUint64(b[24:], uint64(h.StoredSize))
	binary.LittleEndian.PutUint32(b[32:], h.Checksum)
	binary.LittleEndian.PutUint32(b[36:], crc32.Checksum(b[:36], crc32cTable))
	return b
}

// ParseHeader decodes and validates the fixed header at the start of buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorrupt, len(buf))
	}
	if [8]byte(buf[0:8]) != magic {
		return Header{}, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if got := crc32.Checksum(buf[:36], crc32cTable); got != binary.LittleEndian.Uint32(buf[36:]) {
		return Header{}, fmt.Errorf("%w: header checksum", ErrCorrupt)
	}
	if v := binary.LittleEndian.Uint16(buf[8:]); v != version {
		return Header{}, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}
	h := Header{
		Compression: Compression(buf[10]),
		Width:       int(binary.LittleEndian.Uint32(buf[12:])),
		Count:       int(binary.LittleEndian.Uint64(buf[16:])),
		StoredSize:  int(binary.LittleEndian.Uint64(buf[24:])),
		Checksum:    binary.LittleEndian.Uint32(buf[32:]),
	}
	if h.Width <= 0 || h.Count < 0 || h.StoredSize < 0 {
		return Header{}, fmt.Errorf("%w: invalid dimensions", ErrCorrupt)
	}
	return h, nil
}

// Encode writes the snapshot to w using compression c.
func (s *Snapshot) Encode(w io.Writer, c Compression) (int64, error) {
	stored, eff, err := compress(s.data, c)
	if err != nil {
		return 0, err
	}
	h := Header{
		Compression: eff,
		Width:       s.width,
		Count:       s.count,
		StoredSize:  len(stored),
		Checksum:    crc32.Checksum(s.data, crc32cTable),
	}
	hb := h.marshal()
	n, err := w.Write(hb[:])
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(stored)
	return int64(n + m), err
}

// EncodedSize returns the length Encode would write with CompressionNone.
func (s *Snapshot) EncodedSize() int { return HeaderSize + len(s.data) }

// Decode parses an encoded snapshot. Uncompressed payloads alias buf.
func Decode(buf []byte) (*Snapshot, error) {
	h, err := ParseHeader(buf)
	if err != nil {
		return nil, err
	}
	if len(buf)-HeaderSize < h.StoredSize {
		return nil, fmt.Errorf("%w: truncated payload", ErrCorrupt)
	}
	raw, err := decompress(buf[HeaderSize:HeaderSize+h.StoredSize], h.Compression, h.RawSize())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if crc32.Checksum(raw, crc32cTable) != h.Checksum {
		return nil, fmt.Errorf("%w: payload checksum", ErrCorrupt)
	}
	return &Snapshot{data: raw, width: h.Width, count: h.Count}, nil
}
