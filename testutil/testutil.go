package testutil

import (
	"math/big"
	"math/rand"
	"sync"

	"github.com/hupe1980/slotmatch/mask"
	"github.com/hupe1980/slotmatch/store"
)

// MaxEventSlots is the longest contiguous requirement generated (3 hours).
const MaxEventSlots = 6

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// UserMask returns a uniformly random mask of width bytes.
func (r *RNG) UserMask(width int) mask.Mask {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userMaskLocked(width)
}

func (r *RNG) userMaskLocked(width int) mask.Mask {
	m := mask.New(width)
	r.rand.Read(m)
	return m
}

// EventMask returns a contiguous run of 1 to MaxEventSlots slots at a random start.
func (r *RNG) EventMask(width int) mask.Mask {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.eventMaskLocked(width)
}

func (r *RNG) eventMaskLocked(width int) mask.Mask {
	slots := width * 8
	duration := 1 + r.rand.Intn(min(MaxEventSlots, slots))
	start := r.rand.Intn(slots - duration + 1)
	m := mask.New(width)
	for s := start; s < start+duration; s++ {
		m.Set(s)
	}
	return m
}

// DenseUserMask returns a mask where each slot is set with probability p.
// High densities make sure multi-slot requirements actually match someone.
func (r *RNG) DenseUserMask(width int, p float64) mask.Mask {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := mask.New(width)
	for s := 0; s < width*8; s++ {
		if r.rand.Float64() < p {
			m.Set(s)
		}
	}
	return m
}

// Users returns n users with ids 1..n.
func (r *RNG) Users(n, width int) []store.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.Record, n)
	for i := range out {
		out[i] = store.Record{ID: int64(i + 1), Mask: r.userMaskLocked(width)}
	}
	return out
}

// Events returns n events with ids 1..n.
func (r *RNG) Events(n, width int) []store.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]store.Record, n)
	for i := range out {
		out[i] = store.Record{ID: int64(i + 1), Mask: r.eventMaskLocked(width)}
	}
	return out
}

// BruteForce computes the exact match count per event using math/big
// integers, independently of the evaluators under test.
func BruteForce(users, events []store.Record) map[int64]int {
	us := make([]*big.Int, len(users))
	for i, u := range users {
		us[i] = new(big.Int).SetBytes(u.Mask)
	}
	out := make(map[int64]int, len(events))
	tmp := new(big.Int)
	for _, e := range events {
		ev := new(big.Int).SetBytes(e.Mask)
		n := 0
		for _, u := range us {
			if tmp.And(u, ev).Cmp(ev) == 0 {
				n++
			}
		}
		out[e.ID] = n
	}
	return out
}
