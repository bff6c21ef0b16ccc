package core

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Closest returns the candidate nearest to s by edit distance, compared
// case-insensitively. Nothing is returned when the best match needs more
// than maxDist edits.
func Closest(s string, candidates []string, maxDist int) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	best, bestDist := "", maxDist+1
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(s, strings.ToUpper(c)); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}

// SuggestCategory returns the registered category id closest to s.
func SuggestCategory(s string) (CategoryID, bool) {
	ids := make([]string, len(categories))
	for i, id := range categories {
		ids[i] = string(id)
	}
	best, ok := Closest(s, ids, 3)
	return CategoryID(best), ok
}
