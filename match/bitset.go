package match

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/slotmatch/mask"
	"github.com/hupe1980/slotmatch/snapshot"
)

// Bitset converts every user into a bitset.BitSet once and tests each
// requirement with IsSuperSet, which works a whole machine word at a time.
type Bitset struct{}

// Name implements Evaluator.
func (Bitset) Name() string { return "bitset" }

// Prepare implements Evaluator.
func (Bitset) Prepare(users *snapshot.Snapshot) (Scanner, error) {
	sets := make([]*bitset.BitSet, users.Len())
	for i := range sets {
		sets[i] = toBitSet(users.At(i))
	}
	return &bitsetScanner{users: sets, width: users.Width()}, nil
}

type bitsetScanner struct {
	users []*bitset.BitSet
	width int
}

func (s *bitsetScanner) Width() int { return s.width }

func (s *bitsetScanner) Count(req mask.Mask) int {
	r := toBitSet(req)
	n := 0
	for _, u := range s.users {
		if u.IsSuperSet(r) {
			n++
		}
	}
	return n
}

// toBitSet maps slot i of m onto bit i of the bitset.
func toBitSet(m mask.Mask) *bitset.BitSet {
	return bitset.From(toWords(m))
}

// toWords packs m little-endian by slot: word j holds slots 64j..64j+63.
func toWords(m mask.Mask) []uint64 {
	words := make([]uint64, (len(m)+7)/8)
	for i, b := range m {
		slot := (len(m) - 1 - i) * 8
		words[slot>>6] |= uint64(b) << (slot & 63)
	}
	return words
}
