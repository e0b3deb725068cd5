package candidates

import (
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

var validate = validator.New()

// ValidHost reports whether h is a well-formed ASCII host name with a TLD.
func ValidHost(h string) bool {
	if len(h) > 253 {
		return false
	}
	return validate.Var(h, "required,fqdn") == nil
}

// HostFromURL extracts a candidate host from a URL or bare host: lowercased,
// punycoded, without port, trailing dot or leading "www.".
func HostFromURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", false
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil || !ValidHost(ascii) {
		return "", false
	}
	return ascii, true
}

// Registrable reduces a host to its eTLD+1, falling back to the host itself.
func Registrable(host string) string {
	reg, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return reg
}
