package predictive

import (
	"reflect"
	"regexp"
	"strings"
)

var nonWord = regexp.MustCompile(`[^\w\s]`)

// Tokens too common to carry signal for question matching.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "had": true,
	"her": true, "was": true, "one": true, "our": true, "out": true,
	"has": true, "him": true, "his": true, "how": true, "its": true,
	"may": true, "who": true, "did": true, "get": true, "use": true,
	"what": true, "when": true, "where": true, "which": true, "this": true,
	"that": true, "with": true, "from": true, "have": true, "will": true,
	"would": true, "could": true, "should": true, "about": true,
}

// tokenize lower-cases s, strips non-word characters, splits on
// whitespace, and drops stop words and tokens of length <= 2.
// Returns the distinct token set.
func tokenize(s string) map[string]bool {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(s), " ")
	tokens := make(map[string]bool)
	for _, tok := range strings.Fields(cleaned) {
		if len(tok) <= 2 || stopWords[tok] {
			continue
		}
		tokens[tok] = true
	}
	return tokens
}

// TextSimilarity computes token-overlap similarity between two strings:
// 2·|intersection| / (|tokensA| + |tokensB|), clamped to [0,1]. An empty
// token set on either side yields 0. Symmetric by construction.
func TextSimilarity(a, b string) float64 {
	ta, tb := tokenize(a), tokenize(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	inter := 0
	for tok := range ta {
		if tb[tok] {
			inter++
		}
	}

	sim := 2 * float64(inter) / float64(len(ta)+len(tb))
	if sim > 1 {
		sim = 1
	}
	return sim
}

// ContextSimilarity compares two context maps: the share of keys holding
// an equal value in both, over the larger map's size. Two empty maps are
// identical (1.0); one empty and one non-empty share nothing (0.0).
func ContextSimilarity(a, b map[string]any) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	equal := 0
	for k, va := range a {
		if vb, ok := b[k]; ok && reflect.DeepEqual(va, vb) {
			equal++
		}
	}

	max := len(a)
	if len(b) > max {
		max = len(b)
	}
	return float64(equal) / float64(max)
}

// Fingerprint derives the stable question identifier used to key cached
// answers: lower-cased, whitespace-collapsed question text. Matching
// relies on the fingerprint preserving the question's words.
func Fingerprint(question string) string {
	return strings.Join(strings.Fields(strings.ToLower(question)), " ")
}
