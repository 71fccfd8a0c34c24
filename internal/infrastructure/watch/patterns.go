package watch

import (
	"path/filepath"

	"github.com/felixgeelhaar/critique/pkg/storage"
)

// PatternFilter decides which paths count as board edits.
type PatternFilter struct {
	Include []string
	Exclude []string
}

func NewPatternFilter(include, exclude []string) *PatternFilter {
	return &PatternFilter{
		Include: include,
		Exclude: exclude,
	}
}

// BoardFilter matches the board file and ignores editor swap and backup files.
func BoardFilter() *PatternFilter {
	return NewPatternFilter(
		[]string{storage.BoardFile},
		[]string{"*.swp", "*~", ".#*", "*.tmp"},
	)
}

// Matches reports whether path passes the filter. Patterns are tried against
// both the base name and the full path.
func (f *PatternFilter) Matches(path string) bool {
	if f.any(f.Exclude, path) {
		return false
	}
	return len(f.Include) == 0 || f.any(f.Include, path)
}

func (f *PatternFilter) any(patterns []string, path string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, path); matched {
			return true
		}
	}
	return false
}
