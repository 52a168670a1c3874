package match_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/hupe1980/slotmatch/mask"
	"github.com/hupe1980/slotmatch/match"
	"github.com/hupe1980/slotmatch/snapshot"
	"github.com/hupe1980/slotmatch/store"
	"github.com/hupe1980/slotmatch/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evaluators() []match.Evaluator {
	return []match.Evaluator{match.Bytewise{}, match.Wordwise{}, match.Bitset{}, match.Inverted{}}
}

func prepare(t *testing.T, ev match.Evaluator, users []store.Record, width int) match.Scanner {
	t.Helper()
	snap, err := snapshot.FromRecords(users, width)
	require.NoError(t, err)
	sc, err := ev.Prepare(snap)
	require.NoError(t, err)
	return sc
}

func TestEvaluate_SingleUser(t *testing.T) {
	ctx := context.Background()
	users := []store.Record{{ID: 1, Mask: []byte{0b00101101}}}

	for _, ev := range evaluators() {
		t.Run(ev.Name(), func(t *testing.T) {
			sc := prepare(t, ev, users, 1)

			got, err := match.Evaluate(ctx, sc, []match.Event{{ID: 1, Mask: mask.Mask{0b00001100}}})
			require.NoError(t, err)
			assert.Equal(t, match.Counts{1: 1}, got)

			got, err = match.Evaluate(ctx, sc, []match.Event{{ID: 1, Mask: mask.Mask{0b00011000}}})
			require.NoError(t, err)
			assert.Equal(t, match.Counts{1: 0}, got)
		})
	}
}

func TestEvaluate_ZeroMasks(t *testing.T) {
	ctx := context.Background()
	const width = 42
	full := bytes.Repeat([]byte{0xff}, width)
	users := []store.Record{
		{ID: 1, Mask: make([]byte, width)},
		{ID: 2, Mask: full},
	}
	oneSlot, err := mask.FromSlots(width, 100)
	require.NoError(t, err)
	topSlot, err := mask.FromSlots(width, 335)
	require.NoError(t, err)

	for _, ev := range evaluators() {
		t.Run(ev.Name(), func(t *testing.T) {
			sc := prepare(t, ev, users, width)
			got, err := match.Evaluate(ctx, sc, []match.Event{
				{ID: 10, Mask: mask.New(width)},
				{ID: 11, Mask: oneSlot},
				{ID: 12, Mask: topSlot},
				{ID: 13, Mask: mask.Mask(full)},
			})
			require.NoError(t, err)
			// The zero user only satisfies the zero requirement.
			assert.Equal(t, match.Counts{10: 2, 11: 1, 12: 1, 13: 1}, got)
		})
	}
}

func TestEvaluate_MatchesBruteForce(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(99)

	for _, width := range []int{1, 6, 8, 13, 42} {
		users := make([]store.Record, 300)
		for i := range users {
			users[i] = store.Record{ID: int64(i + 1), Mask: rng.DenseUserMask(width, 0.8)}
		}
		recs := rng.Events(120, width)
		// Non-contiguous requirements too.
		for i := 0; i < 20; i++ {
			recs = append(recs, store.Record{ID: int64(1000 + i), Mask: rng.UserMask(width)})
		}
		want := match.Counts(testutil.BruteForce(users, recs))
		events, err := match.EventsFromRecords(recs, width)
		require.NoError(t, err)

		for _, ev := range evaluators() {
			sc := prepare(t, ev, users, width)
			got, err := match.Evaluate(ctx, sc, events)
			require.NoError(t, err)
			assert.Equal(t, want, got, "evaluator=%s width=%d", ev.Name(), width)
		}
	}
}

func TestEvaluate_EmptySnapshot(t *testing.T) {
	for _, ev := range evaluators() {
		sc := prepare(t, ev, nil, 6)
		got, err := match.Evaluate(context.Background(), sc, []match.Event{
			{ID: 1, Mask: mask.New(6)},
			{ID: 2, Mask: mask.Mask{0, 0, 0, 0, 0, 1}},
		})
		require.NoError(t, err)
		assert.Equal(t, match.Counts{1: 0, 2: 0}, got, ev.Name())
	}
}

func TestEvaluate_Invariants(t *testing.T) {
	ctx := context.Background()
	sc := prepare(t, match.Bytewise{}, []store.Record{{ID: 1, Mask: []byte{1, 2}}}, 2)

	_, err := match.Evaluate(ctx, sc, []match.Event{{ID: 7, Mask: mask.Mask{1}}})
	require.ErrorIs(t, err, match.ErrInvariant)
	var wm *match.WidthMismatchError
	require.ErrorAs(t, err, &wm)
	assert.Equal(t, int64(7), wm.EventID)
	assert.Equal(t, 2, wm.Expected)
	assert.Equal(t, 1, wm.Actual)

	_, err = match.Evaluate(ctx, sc, []match.Event{{ID: 1, Mask: mask.New(2)}, {ID: 1, Mask: mask.New(2)}})
	assert.ErrorIs(t, err, match.ErrInvariant)

	_, err = match.EventsFromRecords([]store.Record{{ID: 3, Mask: []byte{1, 2, 3}}}, 2)
	assert.ErrorIs(t, err, match.ErrInvariant)
}

func TestEvaluate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sc := prepare(t, match.Wordwise{}, nil, 1)
	_, err := match.Evaluate(ctx, sc, []match.Event{{ID: 1, Mask: mask.New(1)}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestByName(t *testing.T) {
	for _, name := range match.Names() {
		ev, ok := match.ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, name, ev.Name())
	}
	ev, ok := match.ByName("plain")
	require.True(t, ok)
	assert.Equal(t, "bytewise", ev.Name())

	_, ok = match.ByName("avx2")
	assert.False(t, ok)
}

func TestCounts_WriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, match.Counts{3: 0, 1: 12, 2: 5}.WriteText(&buf))
	assert.Equal(t, ".1:12\n.2:5\n.3:0\n", buf.String())
	assert.Equal(t, []int64{1, 2, 3}, match.Counts{3: 0, 1: 12, 2: 5}.IDs())
}

func BenchmarkEvaluators(b *testing.B) {
	const width = 42
	rng := testutil.NewRNG(1)
	snap, err := snapshot.FromRecords(rng.Users(10000, width), width)
	require.NoError(b, err)
	events, err := match.EventsFromRecords(rng.Events(100, width), width)
	require.NoError(b, err)

	for _, ev := range evaluators() {
		b.Run(ev.Name(), func(b *testing.B) {
			sc, err := ev.Prepare(snap)
			require.NoError(b, err)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_, _ = match.Evaluate(context.Background(), sc, events)
			}
		})
	}
}
