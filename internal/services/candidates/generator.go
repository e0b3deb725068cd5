// Package candidates derives the domain names a business might own.
package candidates

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"leadscout/internal/domain"
)

var extraTLDs = []string{".net", ".org", ".biz", ".co"}

// Generate returns the generated candidates for a business name, in probing
// order and without repeats. A name with no letters or digits yields nil.
func Generate(name string) []domain.DomainCandidate {
	words := Words(name)
	if len(words) == 0 {
		return nil
	}
	hyphen := strings.Join(words, "-")
	hosts := []string{
		strings.Join(words, ".") + ".com",
		hyphen + ".com",
		strings.Join(words, "") + ".com",
	}
	for _, tld := range extraTLDs {
		hosts = append(hosts, hyphen+tld)
	}

	out := make([]domain.DomainCandidate, 0, len(hosts))
	seen := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		if !ValidHost(h) {
			continue
		}
		out = append(out, domain.DomainCandidate{Domain: h, Origin: domain.OriginGenerated})
	}
	return out
}

// Words folds diacritics, lowercases, drops everything outside ASCII letters,
// digits and whitespace, and splits on whitespace.
func Words(name string) []string {
	folded, _, err := transform.String(foldChain(), name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

// transform.Chain is stateful, so each call builds its own.
func foldChain() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
