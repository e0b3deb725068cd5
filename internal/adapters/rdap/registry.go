// Package rdap looks up domain registrations over RDAP (RFC 9083).
package rdap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"leadscout/internal/adapters/apiclient"
	"leadscout/internal/domain"
)

type Config struct {
	// BaseURL is an RDAP bootstrap redirector or an authoritative server.
	BaseURL           string
	RequestsPerSecond float64
	Timeout           time.Duration
}

type Registry struct {
	base string
	api  *apiclient.Client
}

func New(cfg Config, hc *http.Client, logger *zap.Logger) *Registry {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://rdap.org"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		base: strings.TrimSuffix(cfg.BaseURL, "/"),
		api: apiclient.New(apiclient.Config{
			Provider:          "rdap",
			RequestsPerSecond: cfg.RequestsPerSecond,
			Timeout:           cfg.Timeout,
		}, hc, logger.Named("rdap")),
	}
}

type domainObject struct {
	LDHName string `json:"ldhName"`
	Events  []struct {
		Action string `json:"eventAction"`
		Date   string `json:"eventDate"`
	} `json:"events"`
	Entities []struct {
		Roles      []string          `json:"roles"`
		VCardArray []json.RawMessage `json:"vcardArray"`
	} `json:"entities"`
}

// Lookup reports a 404 as an unregistered domain; any other failure is an error.
func (r *Registry) Lookup(ctx context.Context, registrable string) (domain.Registration, error) {
	reg := domain.Registration{Domain: registrable}
	var obj domainObject
	_, err := r.api.GetJSON(ctx, r.base+"/domain/"+url.PathEscape(registrable),
		http.Header{"Accept": {"application/rdap+json, application/json"}}, &obj)
	if apiclient.HasCode(err, apiclient.ErrCodeNotFound) {
		return reg, nil
	}
	if err != nil {
		return reg, err
	}
	reg.Registered = true
	for _, ev := range obj.Events {
		if ev.Action == "registration" {
			reg.CreatedOn = ev.Date
			break
		}
	}
	for _, ent := range obj.Entities {
		if hasRole(ent.Roles, "registrar") {
			reg.Registrar = vcardFN(ent.VCardArray)
			break
		}
	}
	return reg, nil
}

func hasRole(roles []string, want string) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

// vcardFN extracts the formatted name from a jCard ["vcard", [[name, params, type, value], ...]].
func vcardFN(card []json.RawMessage) string {
	if len(card) < 2 {
		return ""
	}
	var props [][]json.RawMessage
	if err := json.Unmarshal(card[1], &props); err != nil {
		return ""
	}
	for _, p := range props {
		if len(p) < 4 {
			continue
		}
		var name, value string
		if json.Unmarshal(p[0], &name) != nil || name != "fn" {
			continue
		}
		if json.Unmarshal(p[3], &value) == nil {
			return value
		}
	}
	return ""
}
