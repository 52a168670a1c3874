package match

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"slices"
)

// Counts maps event id to the number of users that satisfy it.
type Counts map[int64]int

// IDs returns the event ids in ascending order.
func (c Counts) IDs() []int64 {
	return slices.Sorted(maps.Keys(c))
}

// WriteText writes one ".<event_id>:<count>" line per event, ascending by id.
func (c Counts) WriteText(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, id := range c.IDs() {
		if _, err := fmt.Fprintf(bw, ".%d:%d\n", id, c[id]); err != nil {
			return err
		}
	}
	return bw.Flush()
}
