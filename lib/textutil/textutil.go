package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases and removes all whitespace, it is used to compare
// labels that the portal renders inconsistently.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// BestMatch returns the index of the candidate most similar to target and its
// Jaro-Winkler similarity, or -1 when there are no candidates.
func BestMatch(target string, candidates []string) (int, float64) {
	target = strings.ToLower(strings.TrimSpace(target))

	best := -1
	var mostSimilarity float64
	for i, candidate := range candidates {
		similarity := matchr.JaroWinkler(target, strings.ToLower(strings.TrimSpace(candidate)), false)
		if best < 0 || similarity > mostSimilarity {
			best = i
			mostSimilarity = similarity
		}
	}
	return best, mostSimilarity
}
