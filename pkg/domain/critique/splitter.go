// Package critique holds the pure domain of critique synthesis: point
// segmentation, similarity merging, topic reduction, theme grouping and the
// variant/session value objects the application layer coordinates.
package critique

import (
	"regexp"
	"strings"
)

// Delimiter is the token the generation backend is told to put between points.
const Delimiter = "**"

// canonicalSeparator is what Join places between points.
const canonicalSeparator = " " + Delimiter + " "

// PointSet is an ordered list of critique points from one generation.
type PointSet []string

var bulletReplacer = strings.NewReplacer(
	"•", Delimiter,
	"●", Delimiter,
	"▪", Delimiter,
	"◦", Delimiter,
	"‣", Delimiter,
	"\r\n", Delimiter,
	"\r", Delimiter,
	"\n", Delimiter,
)

var enumerationPrefix = regexp.MustCompile(`^(?:\d+\.\s+)+`)

// Split segments generated text into atomic points.
//
// Bullets and line breaks are treated as delimiters, each fragment is trimmed,
// leading "<digits>. " enumerations are removed and empty fragments dropped.
// Text without any delimiter yields a single point.
func Split(text string) PointSet {
	normalized := bulletReplacer.Replace(text)

	fragments := strings.Split(normalized, Delimiter)
	points := make(PointSet, 0, len(fragments))
	for _, fragment := range fragments {
		p := strings.TrimSpace(fragment)
		p = strings.TrimSpace(enumerationPrefix.ReplaceAllString(p, ""))
		if p == "" {
			continue
		}
		points = append(points, p)
	}
	return points
}

// Join renders points with the canonical separator, the inverse of Split.
func Join(points PointSet) string {
	return strings.Join(points, canonicalSeparator)
}

// Clone returns an independent copy.
func (p PointSet) Clone() PointSet {
	if p == nil {
		return nil
	}
	out := make(PointSet, len(p))
	copy(out, p)
	return out
}

// Equal reports whether both sets hold the same points in the same order.
func (p PointSet) Equal(other PointSet) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}
