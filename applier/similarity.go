package applier

import (
	"regexp"
	"strings"
)

var wordSplit = regexp.MustCompile(`[^a-z0-9]+`)

func normalizeName(s string) string {
	return strings.Trim(wordSplit.ReplaceAllString(strings.ToLower(s), " "), " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(normalizeName(s)) {
		set[tok] = true
	}
	return set
}

// jaccardSimilarity returns the token Jaccard index between a and b, used
// by P1's name-collision check (spec §4.5: "token Jaccard >= 0.6 on both
// sides, or exact normalized string").
func jaccardSimilarity(a, b string) float64 {
	setA, setB := tokenSet(a), tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// namesCollide reports whether a and b are the same name for P1's purposes:
// an exact normalized match, or a token Jaccard similarity of at least 0.6.
func namesCollide(a, b string) bool {
	if normalizeName(a) == normalizeName(b) {
		return true
	}
	return jaccardSimilarity(a, b) >= 0.6
}
