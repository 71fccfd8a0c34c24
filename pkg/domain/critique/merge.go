package critique

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultSimilarityThreshold is the Jaccard overlap above which two points
// are considered restatements of each other.
const DefaultSimilarityThreshold = 0.5

// Tokens lowercases a point and splits it into words, dropping punctuation.
func Tokens(point string) []string {
	return strings.FieldsFunc(strings.ToLower(point), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenSet(point string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range Tokens(point) {
		set[t] = struct{}{}
	}
	return set
}

// Similarity returns the Jaccard overlap of the two points' token sets,
// in [0, 1]. Points without any word tokens never match.
func Similarity(a, b string) float64 {
	return jaccard(tokenSet(a), tokenSet(b))
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if _, ok := b[t]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}

// Merge collapses near-duplicate points.
//
// Every pair whose similarity exceeds threshold is linked and links are
// transitive. Each linked group is represented by its shortest member, the
// earliest one on ties, and the output keeps representatives in their
// original order. Empty and single-point input is returned unchanged.
func Merge(points PointSet, threshold float64) PointSet {
	if len(points) < 2 {
		return points.Clone()
	}

	sets := make([]map[string]struct{}, len(points))
	for i, p := range points {
		sets[i] = tokenSet(p)
	}

	uf := newUnionFind(len(points))
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			if jaccard(sets[i], sets[j]) > threshold {
				uf.union(i, j)
			}
		}
	}

	// best[root] = index of the group's representative
	best := make(map[int]int)
	for i, p := range points {
		root := uf.find(i)
		cur, ok := best[root]
		if !ok || utf8.RuneCountInString(p) < utf8.RuneCountInString(points[cur]) {
			best[root] = i
		}
	}

	keep := make([]int, 0, len(best))
	for _, idx := range best {
		keep = append(keep, idx)
	}
	sort.Ints(keep)

	out := make(PointSet, 0, len(keep))
	for _, idx := range keep {
		out = append(out, points[idx])
	}
	return out
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

// union keeps the smaller index as root so roots are order-independent.
func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
