package slotmatch

import (
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/slotmatch/codec"
	"github.com/hupe1980/slotmatch/partition"
)

// Report describes one completed run.
type Report struct {
	RunID      string                `json:"run_id"`
	Strategy   string                `json:"strategy"`
	Evaluator  string                `json:"evaluator"`
	Width      int                   `json:"width"`
	Users      int                   `json:"users"`
	Events     int                   `json:"events"`
	Partitions []partition.Partition `json:"partitions"`

	// SnapshotLoad is the summed time spent loading user snapshots. It
	// exceeds Total when a strategy loads once per worker in parallel.
	SnapshotLoad time.Duration `json:"snapshot_load_ns"`
	Match        time.Duration `json:"match_ns"`
	Total        time.Duration `json:"total_ns"`

	Counts Counts `json:"counts"`
}

// Encode marshals the report with c, or codec.Default if c is nil.
func (r *Report) Encode(c codec.Codec) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	return c.Marshal(r)
}

// DecodeReport is the inverse of Report.Encode.
func DecodeReport(c codec.Codec, data []byte) (*Report, error) {
	if c == nil {
		c = codec.Default
	}
	var r Report
	if err := c.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &r, nil
}

// WriteText writes a short summary line followed by one ".<id>:<count>"
// line per event in ascending id order.
func (r *Report) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "# run=%s strategy=%s evaluator=%s users=%d events=%d partitions=%d load=%s match=%s total=%s\n",
		r.RunID, r.Strategy, r.Evaluator, r.Users, r.Events, len(r.Partitions), r.SnapshotLoad, r.Match, r.Total)
	if err != nil {
		return err
	}
	return r.Counts.WriteText(w)
}

// Encode marshals the report with the matcher's configured codec.
func (m *Matcher) Encode(r *Report) ([]byte, error) {
	return r.Encode(m.opts.codec)
}
