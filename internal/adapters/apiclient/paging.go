package apiclient

import (
	"math"
	"net/http"
	"strings"
)

// RadiusMeters converts a radius in kilometers to whole meters, clamped to
// (0, max]. A non-positive radius means the provider maximum.
func RadiusMeters(km float64, max int) int {
	if km <= 0 {
		return max
	}
	m := int(math.Round(km * 1000))
	if m < 1 {
		return 1
	}
	if m > max {
		return max
	}
	return m
}

// NextLink returns the rel="next" target of an RFC 8288 Link header. Targets
// are scanned by their angle brackets since they may contain commas.
func NextLink(h http.Header) string {
	for _, v := range h.Values("Link") {
		for {
			i := strings.IndexByte(v, '<')
			if i < 0 {
				break
			}
			j := strings.IndexByte(v[i:], '>')
			if j < 0 {
				break
			}
			target := v[i+1 : i+j]
			rest := v[i+j+1:]
			params := rest
			if k := strings.IndexByte(rest, '<'); k >= 0 {
				params = rest[:k]
			}
			for _, p := range strings.Split(params, ";") {
				p = strings.Trim(strings.ReplaceAll(p, " ", ""), ",")
				if p == `rel="next"` || p == "rel=next" {
					return target
				}
			}
			v = rest
		}
	}
	return ""
}
