package testutil

import (
	"testing"

	"github.com/hupe1980/slotmatch/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRNG_Deterministic(t *testing.T) {
	a := NewRNG(42).Users(10, 6)
	b := NewRNG(42).Users(10, 6)
	assert.Equal(t, a, b)

	r := NewRNG(1)
	first := r.UserMask(6)
	r.Reset()
	assert.Equal(t, first, r.UserMask(6))
	assert.Equal(t, int64(1), r.Seed())
}

func TestRNG_EventMaskIsContiguous(t *testing.T) {
	r := NewRNG(3)
	for i := 0; i < 500; i++ {
		m := r.EventMask(42)
		slots := m.Slots()
		require.NotEmpty(t, slots)
		require.LessOrEqual(t, len(slots), MaxEventSlots)
		for j := 1; j < len(slots); j++ {
			require.Equal(t, slots[j-1]+1, slots[j])
		}
		require.Less(t, slots[len(slots)-1], 336)
	}
}

func TestBruteForce(t *testing.T) {
	users := []store.Record{{ID: 1, Mask: []byte{0b00101101}}}

	got := BruteForce(users, []store.Record{{ID: 1, Mask: []byte{0b00001100}}})
	assert.Equal(t, map[int64]int{1: 1}, got)

	got = BruteForce(users, []store.Record{{ID: 1, Mask: []byte{0b00011000}}})
	assert.Equal(t, map[int64]int{1: 0}, got)

	got = BruteForce(nil, []store.Record{{ID: 9, Mask: []byte{0}}})
	assert.Equal(t, map[int64]int{9: 0}, got)
}
