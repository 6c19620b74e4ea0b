package categories

import (
	"github.com/agnivade/levenshtein"

	"financas/internal/core"
)

// maxSuggestDistance bounds how far a typo may be from a registered name.
const maxSuggestDistance = 3

// Suggest returns the registered category of type t closest to name, for
// "did you mean" hints on rejected forms. It reports false when nothing is
// within maxSuggestDistance edits.
func Suggest(name string, t core.TransactionType) (Category, bool) {
	needle := normalize(name)
	if needle == "" {
		return Category{}, false
	}
	var (
		best     Category
		bestDist = maxSuggestDistance + 1
	)
	for _, c := range ByType(t) {
		d := levenshtein.ComputeDistance(needle, normalize(c.Name))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist <= maxSuggestDistance
}
