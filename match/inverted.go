package match

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/slotmatch/mask"
	"github.com/hupe1980/slotmatch/snapshot"
)

// Inverted builds one roaring posting list per slot (the users that have the
// slot set). The users satisfying a requirement are the intersection of the
// lists of its slots, so short requirements touch only a handful of lists
// instead of every user. A requirement with no slots matches every user.
type Inverted struct{}

// Name implements Evaluator.
func (Inverted) Name() string { return "inverted" }

// Prepare implements Evaluator.
func (Inverted) Prepare(users *snapshot.Snapshot) (Scanner, error) {
	if uint64(users.Len()) > math.MaxUint32 {
		return nil, fmt.Errorf("inverted: %d users exceed the 32-bit posting range", users.Len())
	}
	postings := make([]*roaring.Bitmap, users.Width()*8)
	for i := 0; i < users.Len(); i++ {
		for _, slot := range users.At(i).Slots() {
			if postings[slot] == nil {
				postings[slot] = roaring.New()
			}
			postings[slot].Add(uint32(i))
		}
	}
	for _, p := range postings {
		if p != nil {
			p.RunOptimize()
		}
	}
	return &invertedScanner{postings: postings, users: users.Len(), width: users.Width()}, nil
}

type invertedScanner struct {
	postings []*roaring.Bitmap
	users    int
	width    int
}

func (s *invertedScanner) Width() int { return s.width }

func (s *invertedScanner) Count(req mask.Mask) int {
	slots := req.Slots()
	switch len(slots) {
	case 0:
		return s.users
	case 1:
		if p := s.postings[slots[0]]; p != nil {
			return int(p.GetCardinality())
		}
		return 0
	}

	lists := make([]*roaring.Bitmap, len(slots))
	for i, slot := range slots {
		p := s.postings[slot]
		if p == nil {
			return 0
		}
		lists[i] = p
	}
	if len(lists) == 2 {
		return int(lists[0].AndCardinality(lists[1]))
	}
	return int(roaring.FastAnd(lists...).GetCardinality())
}
