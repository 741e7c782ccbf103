// Package fuzzy ranks labelled items against a query using case-insensitive
// subsequence matching.
package fuzzy

import (
	"sort"
	"strings"
	"unicode"
)

// Match describes where a query matched inside a label.
type Match struct {
	// Start is the rune index of the first matched character.
	Start int
	// Adjacent counts matched characters that directly follow the previous match.
	Adjacent int
	// Span is the number of runes between the first and last match, inclusive.
	Span int
	// Positions holds the rune index of every matched character.
	Positions []int
}

// Normalize trims surrounding whitespace and lower-cases the query.
func Normalize(query string) []rune {
	return []rune(strings.ToLower(strings.TrimSpace(query)))
}

// MatchLabel reports whether every rune of query occurs in label in order.
// The leftmost alignment is used: it gives the earliest start and, from
// that start, takes every run of consecutive characters it can.
func MatchLabel(query, label string) (Match, bool) {
	q := Normalize(query)
	if len(q) == 0 {
		return Match{}, true
	}

	l := []rune(label)
	positions := make([]int, 0, len(q))
	qi := 0
	for li := 0; li < len(l) && qi < len(q); li++ {
		if unicode.ToLower(l[li]) == q[qi] {
			positions = append(positions, li)
			qi++
		}
	}
	if qi < len(q) {
		return Match{}, false
	}

	m := Match{
		Start:     positions[0],
		Span:      positions[len(positions)-1] - positions[0] + 1,
		Positions: positions,
	}
	for i := 1; i < len(positions); i++ {
		if positions[i] == positions[i-1]+1 {
			m.Adjacent++
		}
	}
	return m, true
}

// better orders two matches: earlier start first, then more contiguous,
// then tighter.
func better(a, b Match) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	if a.Adjacent != b.Adjacent {
		return a.Adjacent > b.Adjacent
	}
	return a.Span < b.Span
}

// Rank returns the items whose label matches query, best match first.
// Ties keep their original order. An empty query returns every item in its
// original order; items that do not match are dropped.
func Rank[T any](query string, items []T, label func(T) string) []T {
	if len(Normalize(query)) == 0 {
		out := make([]T, len(items))
		copy(out, items)
		return out
	}

	type scored struct {
		item  T
		match Match
	}

	hits := make([]scored, 0, len(items))
	for _, item := range items {
		if m, ok := MatchLabel(query, label(item)); ok {
			hits = append(hits, scored{item: item, match: m})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return better(hits[i].match, hits[j].match)
	})

	out := make([]T, len(hits))
	for i, h := range hits {
		out[i] = h.item
	}
	return out
}
