package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/critique/pkg/application"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printSnapshot renders the active variant as plain text.
func printSnapshot(w io.Writer, snap application.Snapshot) {
	mode := string(snap.Tone)
	if snap.Simplified {
		mode += ", simplified"
	}
	fmt.Fprintf(w, "Critique (%s)\n", mode)
	if snap.Challenge != "" {
		fmt.Fprintf(w, "Challenge: %s\n", snap.Challenge)
	}
	fmt.Fprintln(w)

	if snap.Grouping != nil {
		for _, g := range snap.Grouping.Groups {
			marker := "x"
			if !g.Theme.Selected {
				marker = " "
			}
			fmt.Fprintf(w, "[%s] %s (%s)\n", marker, g.Theme.Name, g.Theme.Color)
			if !g.Theme.Selected {
				continue
			}
			for _, p := range g.Points {
				fmt.Fprintf(w, "    - %s\n", p)
			}
		}
		if len(snap.Grouping.Unassigned) > 0 {
			fmt.Fprintln(w, "Other")
			for _, p := range snap.Grouping.Unassigned {
				fmt.Fprintf(w, "    - %s\n", p)
			}
		}
	} else {
		for i, p := range snap.Points {
			fmt.Fprintf(w, "%2d. %s\n", i+1, p)
		}
	}

	if snap.Error != "" {
		fmt.Fprintf(w, "\nLast error: %s\n", snap.Error)
	}
}

// printSynthesis renders a synthesized set with its counters.
func printSynthesis(w io.Writer, s *application.SynthesizedPointSet) {
	fmt.Fprintf(w, "Synthesized %d points from %d runs (%d raw, %d after merging)\n",
		len(s.Points), s.Runs, s.RawCount, s.MergedCount)
	if s.Reduced {
		fmt.Fprintln(w, "Reduced to one point per topic.")
	}
	fmt.Fprintln(w, strings.Repeat("-", 40))
	for i, p := range s.Points {
		fmt.Fprintf(w, "%2d. %s\n", i+1, p)
	}
}
