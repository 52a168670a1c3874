// Package match counts, for each event, the users whose availability covers
// the event's requirement (U & E == E).
//
// # Strategies
//
// The scan is O(events × users × width). Four interchangeable evaluators
// produce identical counts:
//
//   - Bytewise: byte-by-byte with early exit at the first failing byte.
//   - Wordwise: 64-bit lanes, skipping lanes where the requirement is zero.
//   - Bitset: per-user bitset.BitSet and IsSuperSet.
//   - Inverted: roaring posting list per slot, intersected per requirement.
//
// Bytewise and Wordwise scan the snapshot buffer in place and need no
// preparation, which keeps them zero-copy over shared memory. Bitset and
// Inverted build an index in Prepare; that pays off when a worker evaluates
// many events against the same snapshot.
//
// # Usage
//
//	sc, _ := match.Wordwise{}.Prepare(users)
//	counts, err := match.Evaluate(ctx, sc, events)
package match
