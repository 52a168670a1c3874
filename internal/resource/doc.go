// Package resource bounds the shared resources a match run consumes:
// worker slots, memory held by private snapshot copies, and the bandwidth
// used to pull snapshots from storage.
//
// A nil *Controller is valid and imposes no limits.
package resource
