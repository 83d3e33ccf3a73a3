// Package report renders allocator statistics for people and for tools.
//
// Text output is a column-aligned table whose numbers are grouped for the
// requested language (1,048,576 for English, 1.048.576 for German). JSON
// output is the raw Stats, one object per allocator.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/memkit/mem/alloc"
)

// Entry is one named allocator snapshot.
type Entry struct {
	Name string `json:"name"`
	alloc.Stats
}

// Snapshot captures a's current counters under name.
func Snapshot(name string, a alloc.Allocator) Entry {
	return Entry{Name: name, Stats: a.Stats()}
}

var header = []string{"NAME", "KIND", "CAPACITY", "IN USE", "ALLOCS", "FREE BLOCKS", "SEGMENTS", "UTIL"}

// Text writes entries as an aligned table with numbers formatted for tag.
func Text(w io.Writer, tag language.Tag, entries ...Entry) error {
	p := message.NewPrinter(tag)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for i, h := range header {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, h)
	}
	fmt.Fprintln(tw)

	for _, e := range entries {
		p.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%.1f%%\n",
			e.Name, e.Kind, e.Capacity, e.BytesInUse, e.Allocations,
			e.FreeBlocks, e.Segments, e.Utilization()*100)
	}
	return tw.Flush()
}

// Counters writes the free-list event counters of every entry that has any.
func Counters(w io.Writer, tag language.Tag, entries ...Entry) error {
	p := message.NewPrinter(tag)
	for _, e := range entries {
		if e.Grows+e.Splits+e.CoalesceForward+e.CoalesceBackward+e.Relocations == 0 {
			continue
		}
		if _, err := p.Fprintf(w, "%s: %d grows, %d splits, %d forward / %d backward coalesces, %d relocations\n",
			e.Name, e.Grows, e.Splits, e.CoalesceForward, e.CoalesceBackward, e.Relocations); err != nil {
			return err
		}
	}
	return nil
}

// JSON writes entries as an indented JSON array.
func JSON(w io.Writer, entries ...Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

// Bytes formats n with a binary unit suffix, e.g. 1.5 KiB.
func Bytes(tag language.Tag, n int) string {
	const unit = 1024
	p := message.NewPrinter(tag)
	if n < unit {
		return p.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit && exp < 5; m /= unit {
		div *= unit
		exp++
	}
	return p.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
