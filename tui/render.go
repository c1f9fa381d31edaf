// Package tui shows a replay in the terminal: the page table on top and the
// outcome of the latest step below it.
package tui

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/sarchlab/pagesim/pagetable"
)

// FinishedMessage is shown once the whole trace has been replayed.
const FinishedMessage = "Simulation finished!"

// RenderTable writes the page table the way the status bits are usually shown
// on paper: V/I for valid, D/N for dirty, 1/0 for referenced, and N/A for
// pages without a frame.
func RenderTable(w io.Writer, s pagetable.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "Page #\tFrame #\tValid\tDirty\tReference\t")

	for _, e := range s.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n",
			e.PageNumber,
			frameLabel(e.FrameNumber),
			bit(e.Valid, "V", "I"),
			bit(e.Dirty, "D", "N"),
			bit(e.Referenced, "1", "0"),
		)
	}

	return tw.Flush()
}

// RenderLRU writes the resident pages from the most to the least recently
// used.
func RenderLRU(w io.Writer, s pagetable.Snapshot) {
	fmt.Fprintf(w, "Frames used: %d/%d  LRU (MRU -> LRU):",
		len(s.Resident), s.Capacity)

	for _, p := range s.Resident {
		fmt.Fprintf(w, " %d", p)
	}

	fmt.Fprintln(w)
}

func frameLabel(frame int) string {
	if frame == pagetable.Unmapped {
		return "N/A"
	}

	return strconv.Itoa(frame)
}

func bit(set bool, on, off string) string {
	if set {
		return on
	}

	return off
}
