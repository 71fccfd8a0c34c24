package critique

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultSynthesisCap bounds the size of a cross-run synthesized set.
	DefaultSynthesisCap = 10
	// DefaultTopicTokens is how many significant tokens form a topic key.
	DefaultTopicTokens = 3
	// significantTokenLen is the minimum rune length (exclusive) of a topic token.
	significantTokenLen = 3
)

// TopicKey is the first n tokens longer than three characters, lowercased
// and joined by a space. A point without significant tokens has key "".
func TopicKey(point string, n int) string {
	if n <= 0 {
		n = DefaultTopicTokens
	}
	key := make([]string, 0, n)
	for _, t := range Tokens(point) {
		if utf8.RuneCountInString(t) <= significantTokenLen {
			continue
		}
		key = append(key, t)
		if len(key) == n {
			break
		}
	}
	return strings.Join(key, " ")
}

// Reduce hard-caps points by topic clustering. Points sharing a topic key
// collapse to their shortest member; survivors are ordered shortest first
// and truncated to maxPoints. Sets already within the cap are returned as is.
func Reduce(points PointSet, maxPoints, topicTokens int) PointSet {
	if maxPoints <= 0 {
		return PointSet{}
	}
	if len(points) <= maxPoints {
		return points.Clone()
	}

	type candidate struct {
		point string
		index int
		runes int
	}

	order := make([]string, 0)
	groups := make(map[string]candidate)
	for i, p := range points {
		key := TopicKey(p, topicTokens)
		c := candidate{point: p, index: i, runes: utf8.RuneCountInString(p)}
		cur, ok := groups[key]
		if !ok {
			order = append(order, key)
			groups[key] = c
			continue
		}
		if c.runes < cur.runes {
			groups[key] = c
		}
	}

	kept := make([]candidate, 0, len(order))
	for _, key := range order {
		kept = append(kept, groups[key])
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].runes != kept[j].runes {
			return kept[i].runes < kept[j].runes
		}
		return kept[i].index < kept[j].index
	})

	if len(kept) > maxPoints {
		kept = kept[:maxPoints]
	}
	out := make(PointSet, 0, len(kept))
	for _, c := range kept {
		out = append(out, c.point)
	}
	return out
}
