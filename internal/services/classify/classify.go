// Package classify guesses a coarse business category from free text.
package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	fallbackCategory   = "professional"
	fallbackConfidence = 0.1
)

type category struct {
	name     string
	keywords []string
}

// Declaration order breaks ties.
var categories = []category{
	{"restaurant", []string{"restaurant", "cafe", "diner", "bistro", "eatery", "food"}},
	{"retail", []string{"retail", "store", "shop", "boutique", "market"}},
	{"salon", []string{"salon", "spa", "beauty", "hair", "nails", "barber"}},
	{"gym", []string{"gym", "fitness", "workout", "training", "yoga", "crossfit"}},
	{"automotive", []string{"auto", "car", "mechanic", "repair", "service", "tire"}},
	{"professional", []string{"lawyer", "accountant", "consultant", "insurance", "real estate", "professional"}},
}

// Classify scores text against each category's keywords (substring matches
// over the total keyword count) and returns the best one. Text matching no
// keyword is ("professional", 0.1).
func Classify(text string) (string, float64) {
	text = fold(text)
	best, bestScore := "", 0.0
	for _, c := range categories {
		hits := 0
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		if score := float64(hits) / float64(len(c.keywords)); score > bestScore {
			best, bestScore = c.name, score
		}
	}
	if best == "" {
		return fallbackCategory, fallbackConfidence
	}
	return best, bestScore
}

func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}
