// Package fuzzy ranks corpus entries against a query using subsequence
// matching. It backs both the command palette and the agent jump overlay.
package fuzzy

import (
	"sort"
	"unicode"
)

// Score weights. Contiguous runs and prefix alignment outrank scattered hits.
const (
	hitScore        = 1
	contiguousBonus = 2
	prefixBonus     = 3
)

// Match reports whether query is a case-insensitive subsequence of candidate
// and, if so, how well it fits. Higher scores are better matches. An empty
// query matches everything with score zero.
func Match(query, candidate string) (int, bool) {
	if query == "" {
		return 0, true
	}

	q := []rune(query)
	score := 0
	prev := -2 // index of the previous hit in candidate
	qi := 0
	for ci, r := range []rune(candidate) {
		if qi >= len(q) {
			break
		}
		if !runesEqualFold(r, q[qi]) {
			continue
		}
		score += hitScore
		if ci == prev+1 {
			score += contiguousBonus
		}
		if qi == 0 && ci == 0 {
			score += prefixBonus
		}
		prev = ci
		qi++
	}
	if qi < len(q) {
		return 0, false
	}
	return score, true
}

// Entry is one ranked corpus entry.
type Entry struct {
	Index int // position in the original corpus
	Score int
}

// Rank scores every corpus entry against query and returns the matches
// ordered by score descending, original index ascending. The ordering is
// deterministic for identical inputs. Non-matches are excluded.
func Rank(corpus []string, query string) []Entry {
	matches := make([]Entry, 0, len(corpus))
	for i, candidate := range corpus {
		if score, ok := Match(query, candidate); ok {
			matches = append(matches, Entry{Index: i, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Index < matches[j].Index
	})
	return matches
}

func runesEqualFold(a, b rune) bool {
	return unicode.ToLower(a) == unicode.ToLower(b)
}
