// Package testutil provides testing utilities for slotmatch.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded random generator for user and event masks and an
// exact reference counter that does not share code with the evaluators.
//
// # Random Masks
//
//	rng := testutil.NewRNG(seed)
//	users := rng.Users(15, 6)   // 15 users, 48 slots
//	events := rng.Events(5, 6)  // contiguous runs of 1-6 slots
//
// # Ground Truth
//
//	want := testutil.BruteForce(users, events)
package testutil
