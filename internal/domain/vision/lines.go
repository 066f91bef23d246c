package vision

import (
	"sort"
	"strings"
)

// groupLines keeps confident fragments and clusters them into text lines by
// their top edge. Lines are ordered top to bottom, words left to right.
func groupLines(fragments []Fragment, minConfidence float64, tolerance int) []string {
	kept := make([]Fragment, 0, len(fragments))
	for _, f := range fragments {
		if f.Confidence > minConfidence && strings.TrimSpace(f.Text) != "" {
			kept = append(kept, f)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Box.Y0 < kept[j].Box.Y0
	})

	var (
		lines  [][]Fragment
		anchor int
	)
	for _, f := range kept {
		if len(lines) > 0 && f.Box.Y0-anchor <= tolerance {
			lines[len(lines)-1] = append(lines[len(lines)-1], f)
			continue
		}
		anchor = f.Box.Y0
		lines = append(lines, []Fragment{f})
	}

	out := make([]string, 0, len(lines))
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].Box.X0 < line[j].Box.X0
		})
		words := make([]string, len(line))
		for i, f := range line {
			words[i] = strings.TrimSpace(f.Text)
		}
		out = append(out, strings.Join(words, " "))
	}
	return out
}
