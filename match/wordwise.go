package match

import (
	"encoding/binary"

	"github.com/hupe1980/slotmatch/mask"
	"github.com/hupe1980/slotmatch/snapshot"
)

// Wordwise compares 64-bit lanes instead of single bytes. The requirement is
// split once into its non-zero lanes (plus a byte tail when the width is not
// a multiple of 8), so a 42-byte mask with a 3-slot requirement costs one or
// two word compares per user.
type Wordwise struct{}

// Name implements Evaluator.
func (Wordwise) Name() string { return "wordwise" }

// Prepare implements Evaluator.
func (Wordwise) Prepare(users *snapshot.Snapshot) (Scanner, error) {
	return &wordwiseScanner{data: users.Bytes(), width: users.Width()}, nil
}

type wordwiseScanner struct {
	data  []byte
	width int
}

type lane struct {
	off  int
	word uint64
}

type tailByte struct {
	off int
	b   byte
}

func (s *wordwiseScanner) Width() int { return s.width }

func (s *wordwiseScanner) Count(req mask.Mask) int {
	var lanes []lane
	var tail []tailByte
	full := s.width &^ 7
	for off := 0; off < full; off += 8 {
		if w := binary.BigEndian.Uint64(req[off:]); w != 0 {
			lanes = append(lanes, lane{off: off, word: w})
		}
	}
	for off := full; off < s.width; off++ {
		if req[off] != 0 {
			tail = append(tail, tailByte{off: off, b: req[off]})
		}
	}

	n := 0
	for base := 0; base < len(s.data); base += s.width {
		if s.covers(base, lanes, tail) {
			n++
		}
	}
	return n
}

func (s *wordwiseScanner) covers(base int, lanes []lane, tail []tailByte) bool {
	for _, l := range lanes {
		if binary.BigEndian.Uint64(s.data[base+l.off:])&l.word != l.word {
			return false
		}
	}
	for _, t := range tail {
		if s.data[base+t.off]&t.b != t.b {
			return false
		}
	}
	return true
}
