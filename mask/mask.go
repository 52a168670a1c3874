package mask

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"
	"strings"
)

// DefaultSlots is the reference slot count (one week of 30 minute slots).
const DefaultSlots = 336

// ErrEncoding is matched by every EncodingError.
var ErrEncoding = errors.New("mask: value does not fit width")

// ErrInvalidWidth is returned for slot counts that are not a positive multiple of 8.
var ErrInvalidWidth = errors.New("mask: invalid width")

// EncodingError reports a value that needs more bits than the target width holds.
type EncodingError struct {
	Width  int // bytes
	BitLen int
	cause  error
}

func (e *EncodingError) Error() string {
	if e.BitLen < 0 {
		return fmt.Sprintf("mask: negative value cannot be encoded in %d bytes", e.Width)
	}
	return fmt.Sprintf("mask: value needs %d bits, width holds %d", e.BitLen, e.Width*8)
}

func (e *EncodingError) Unwrap() error { return e.cause }

// Mask is a fixed-width slot set. Byte 0 is the most significant byte;
// slot i is the i-th least significant bit.
type Mask []byte

// Width converts a slot count into a byte width.
func Width(slots int) (int, error) {
	if slots <= 0 || slots%8 != 0 {
		return 0, fmt.Errorf("%w: %d slots is not a positive multiple of 8", ErrInvalidWidth, slots)
	}
	return slots / 8, nil
}

// New returns an all-zero mask of width bytes.
func New(width int) Mask {
	return make(Mask, width)
}

// Encode writes v as exactly width bytes, most significant byte first.
func Encode(v *big.Int, width int) (Mask, error) {
	if v.Sign() < 0 {
		return nil, &EncodingError{Width: width, BitLen: -1, cause: ErrEncoding}
	}
	if n := v.BitLen(); n > width*8 {
		return nil, &EncodingError{Width: width, BitLen: n, cause: ErrEncoding}
	}
	m := New(width)
	v.FillBytes(m)
	return m, nil
}

// EncodeUint64 is Encode for values that fit a machine word.
func EncodeUint64(v uint64, width int) (Mask, error) {
	return Encode(new(big.Int).SetUint64(v), width)
}

// Decode is the inverse of Encode.
func Decode(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// FromSlots returns a mask of width bytes with the given slots set.
func FromSlots(width int, slots ...int) (Mask, error) {
	m := New(width)
	for _, s := range slots {
		if s < 0 || s >= width*8 {
			return nil, &EncodingError{Width: width, BitLen: s + 1, cause: ErrEncoding}
		}
		m.Set(s)
	}
	return m, nil
}

// Width returns the width in bytes.
func (m Mask) Width() int { return len(m) }

// Set marks slot s. It panics if s is out of range.
func (m Mask) Set(s int) {
	m[len(m)-1-s>>3] |= 1 << (s & 7)
}

// Test reports whether slot s is set.
func (m Mask) Test(s int) bool {
	if s < 0 || s >= len(m)*8 {
		return false
	}
	return m[len(m)-1-s>>3]&(1<<(s&7)) != 0
}

// Slots returns the set slots in ascending order.
func (m Mask) Slots() []int {
	out := make([]int, 0, m.Count())
	for i := len(m) - 1; i >= 0; i-- {
		b := m[i]
		base := (len(m) - 1 - i) * 8
		for b != 0 {
			out = append(out, base+bits.TrailingZeros8(b))
			b &= b - 1
		}
	}
	return out
}

// Count returns the number of set slots.
func (m Mask) Count() int {
	n := 0
	for _, b := range m {
		n += bits.OnesCount8(b)
	}
	return n
}

// IsZero reports whether no slot is set.
func (m Mask) IsZero() bool {
	for _, b := range m {
		if b != 0 {
			return false
		}
	}
	return true
}

// Covers reports whether every slot set in req is also set in m (m & req == req).
// Both masks must have the same width; a mismatch is a programming error and panics.
func (m Mask) Covers(req Mask) bool {
	if len(m) != len(req) {
		panic(fmt.Sprintf("mask: width mismatch %d != %d", len(m), len(req)))
	}
	for i, e := range req {
		if m[i]&e != e {
			return false
		}
	}
	return true
}

// String renders the mask as a binary string, most significant slot first.
func (m Mask) String() string {
	var sb strings.Builder
	sb.Grow(len(m) * 8)
	for _, b := range m {
		fmt.Fprintf(&sb, "%08b", b)
	}
	return sb.String()
}
