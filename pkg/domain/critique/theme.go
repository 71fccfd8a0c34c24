package critique

import (
	"fmt"
	"strings"
)

// ThemeColor is the sticky-note color a theme is drawn with on the board.
type ThemeColor string

const (
	ColorYellow ThemeColor = "yellow"
	ColorOrange ThemeColor = "orange"
	ColorRed    ThemeColor = "red"
	ColorPink   ThemeColor = "pink"
	ColorPurple ThemeColor = "purple"
	ColorBlue   ThemeColor = "blue"
	ColorGreen  ThemeColor = "green"
	ColorGray   ThemeColor = "gray"
)

// AllThemeColors lists the palette in board order.
func AllThemeColors() []ThemeColor {
	return []ThemeColor{ColorYellow, ColorOrange, ColorRed, ColorPink, ColorPurple, ColorBlue, ColorGreen, ColorGray}
}

// IsValid reports whether c is part of the palette.
func (c ThemeColor) IsValid() bool {
	for _, known := range AllThemeColors() {
		if c == known {
			return true
		}
	}
	return false
}

// Theme is an externally sourced category. Selected is local UI state.
type Theme struct {
	ID       string     `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string     `json:"name" yaml:"name"`
	Color    ThemeColor `json:"color" yaml:"color"`
	Selected bool       `json:"selected" yaml:"-"`
	// Points are optional membership hints supplied by the theme source.
	Points []string `json:"points,omitempty" yaml:"points,omitempty"`
}

// ThemeGroup is the subsequence of a PointSet bound to one theme.
type ThemeGroup struct {
	Theme  Theme    `json:"theme"`
	Points PointSet `json:"points"`
}

// ThemedGrouping maps themes to the points assigned to them. A point is in
// at most one group; points no theme claims are listed in Unassigned.
type ThemedGrouping struct {
	Groups     []ThemeGroup `json:"groups"`
	Unassigned PointSet     `json:"unassigned,omitempty"`
}

// Assign groups points under themes.
//
// A point goes to the first theme whose Points hint contains it, otherwise
// to the theme whose name and hints share the most tokens with it (first
// theme wins ties). Points sharing nothing with any theme stay unassigned.
// Themes start selected.
func Assign(points PointSet, themes []Theme) ThemedGrouping {
	grouping := ThemedGrouping{Groups: make([]ThemeGroup, len(themes))}
	vocab := make([]map[string]struct{}, len(themes))
	for i, th := range themes {
		th.Selected = true
		grouping.Groups[i] = ThemeGroup{Theme: th, Points: PointSet{}}
		vocab[i] = themeVocabulary(th)
	}

	for _, p := range points {
		idx := hintedTheme(p, themes)
		if idx < 0 {
			idx = closestTheme(p, vocab)
		}
		if idx < 0 {
			grouping.Unassigned = append(grouping.Unassigned, p)
			continue
		}
		grouping.Groups[idx].Points = append(grouping.Groups[idx].Points, p)
	}
	return grouping
}

func hintedTheme(point string, themes []Theme) int {
	needle := strings.ToLower(strings.TrimSpace(point))
	for i, th := range themes {
		for _, hint := range th.Points {
			if strings.ToLower(strings.TrimSpace(hint)) == needle {
				return i
			}
		}
	}
	return -1
}

func themeVocabulary(th Theme) map[string]struct{} {
	vocab := tokenSet(th.Name)
	for _, hint := range th.Points {
		for t := range tokenSet(hint) {
			vocab[t] = struct{}{}
		}
	}
	return vocab
}

func closestTheme(point string, vocab []map[string]struct{}) int {
	best, bestScore := -1, 0
	tokens := tokenSet(point)
	for i, v := range vocab {
		score := 0
		for t := range tokens {
			if _, ok := v[t]; ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}

// Reconcile re-binds groups to a refreshed theme list.
//
// A group matches the first refreshed theme with the same ID, or failing
// that the first whose name equals, contains or is contained in the group's
// name, ignoring case. Unmatched groups keep their previous identity. Local
// selection survives re-binding. Several groups may bind to the same theme.
func Reconcile(grouping ThemedGrouping, refreshed []Theme) ThemedGrouping {
	out := ThemedGrouping{
		Groups:     make([]ThemeGroup, len(grouping.Groups)),
		Unassigned: grouping.Unassigned.Clone(),
	}
	for i, g := range grouping.Groups {
		next := g.Theme
		if match, ok := matchTheme(g.Theme, refreshed); ok {
			next = match
			next.Selected = g.Theme.Selected
			next.Points = append([]string(nil), match.Points...)
		}
		out.Groups[i] = ThemeGroup{Theme: next, Points: g.Points.Clone()}
	}
	return out
}

// Unmatched returns the groups Reconcile would leave under their old identity.
func Unmatched(grouping ThemedGrouping, refreshed []Theme) []string {
	var names []string
	for _, g := range grouping.Groups {
		if _, ok := matchTheme(g.Theme, refreshed); !ok {
			names = append(names, g.Theme.Name)
		}
	}
	return names
}

func matchTheme(current Theme, refreshed []Theme) (Theme, bool) {
	if current.ID != "" {
		for _, th := range refreshed {
			if th.ID != "" && th.ID == current.ID {
				return th, true
			}
		}
	}
	name := strings.ToLower(strings.TrimSpace(current.Name))
	if name == "" {
		return Theme{}, false
	}
	for _, th := range refreshed {
		candidate := strings.ToLower(strings.TrimSpace(th.Name))
		if candidate == "" {
			continue
		}
		if candidate == name || strings.Contains(candidate, name) || strings.Contains(name, candidate) {
			return th, true
		}
	}
	return Theme{}, false
}

// ToggleTheme flips the selection of the named theme (case-insensitive).
// Deselected groups keep their points.
func (g *ThemedGrouping) ToggleTheme(name string) error {
	for i := range g.Groups {
		if strings.EqualFold(g.Groups[i].Theme.Name, name) {
			g.Groups[i].Theme.Selected = !g.Groups[i].Theme.Selected
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrThemeNotFound, name)
}

// TotalPoints counts grouped points regardless of selection.
func (g ThemedGrouping) TotalPoints() int {
	n := 0
	for _, group := range g.Groups {
		n += len(group.Points)
	}
	return n
}

// Selected returns the themes currently selected.
func (g ThemedGrouping) Selected() []Theme {
	var out []Theme
	for _, group := range g.Groups {
		if group.Theme.Selected {
			out = append(out, group.Theme)
		}
	}
	return out
}

// Clone returns a deep copy safe to hand to consumers.
func (g ThemedGrouping) Clone() ThemedGrouping {
	out := ThemedGrouping{
		Groups:     make([]ThemeGroup, len(g.Groups)),
		Unassigned: g.Unassigned.Clone(),
	}
	for i, group := range g.Groups {
		th := group.Theme
		th.Points = append([]string(nil), group.Theme.Points...)
		out.Groups[i] = ThemeGroup{Theme: th, Points: group.Points.Clone()}
	}
	return out
}
