package match

import (
	"github.com/hupe1980/slotmatch/mask"
	"github.com/hupe1980/slotmatch/snapshot"
)

// Bytewise scans every user byte by byte and abandons a user at the first
// byte where e & u != e. Bytes where the requirement is zero can never
// disqualify a user, so only the span between the first and last non-zero
// requirement bytes is compared.
type Bytewise struct{}

// Name implements Evaluator.
func (Bytewise) Name() string { return "bytewise" }

// Prepare implements Evaluator.
func (Bytewise) Prepare(users *snapshot.Snapshot) (Scanner, error) {
	return &bytewiseScanner{data: users.Bytes(), width: users.Width()}, nil
}

type bytewiseScanner struct {
	data  []byte
	width int
}

func (s *bytewiseScanner) Width() int { return s.width }

func (s *bytewiseScanner) Count(req mask.Mask) int {
	lo, hi := span(req)
	if lo == hi {
		return len(s.data) / s.width
	}
	req = req[lo:hi]

	n := 0
	for off := 0; off < len(s.data); off += s.width {
		u := s.data[off+lo : off+hi]
		ok := true
		for i, e := range req {
			if u[i]&e != e {
				ok = false
				break
			}
		}
		if ok {
			n++
		}
	}
	return n
}

// span returns [lo, hi) bounding the non-zero bytes of m; lo == hi if m is zero.
func span(m mask.Mask) (int, int) {
	lo := 0
	for lo < len(m) && m[lo] == 0 {
		lo++
	}
	hi := len(m)
	for hi > lo && m[hi-1] == 0 {
		hi--
	}
	return lo, hi
}
