package ledger

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"strafen/internal/core"
)

// MatchThreshold is the minimum similarity for a fuzzy catalog hit.
const MatchThreshold = 0.5

// Match resolves label to the most similar catalog key. An exact key is
// returned as is; otherwise the best key scoring at least MatchThreshold
// wins, earlier keys winning ties. Without a hit label is returned
// unchanged.
func Match(label string, catalog core.Catalog) string {
	trimmed := strings.TrimSpace(label)
	if _, ok := catalog.Lookup(trimmed); ok {
		return trimmed
	}
	needle := fold(trimmed)
	if needle == "" {
		return label
	}

	best, bestScore := "", 0.0
	for _, key := range catalog.Keys() {
		score := Similarity(needle, fold(key))
		if score > bestScore {
			best, bestScore = key, score
		}
	}
	if best != "" && bestScore >= MatchThreshold {
		return best
	}
	return label
}

// Similarity is 1 - levenshtein(a, b) / max(len(a), len(b)) over runes.
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
