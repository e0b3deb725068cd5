// Package whois looks up domain registrations over port-43 WHOIS.
package whois

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"go.uber.org/zap"

	"leadscout/internal/domain"
)

type Config struct {
	Timeout time.Duration
}

type Registry struct {
	fetch  func(domain string) (string, error)
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Registry {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := whois.NewClient().SetTimeout(cfg.Timeout)
	return &Registry{
		fetch:  func(d string) (string, error) { return client.Whois(d) },
		logger: logger.Named("whois"),
	}
}

type answer struct {
	raw string
	err error
}

// Lookup runs the WHOIS query in the background so the caller's context can
// abandon it; the client's own timeout bounds the goroutine.
func (r *Registry) Lookup(ctx context.Context, registrable string) (domain.Registration, error) {
	reg := domain.Registration{Domain: registrable}
	ch := make(chan answer, 1)
	go func() {
		raw, err := r.fetch(registrable)
		ch <- answer{raw: raw, err: err}
	}()

	var a answer
	select {
	case <-ctx.Done():
		return reg, ctx.Err()
	case a = <-ch:
	}
	if a.err != nil {
		return reg, fmt.Errorf("whois %s: %w", registrable, a.err)
	}
	return parse(reg, a.raw)
}

func parse(reg domain.Registration, raw string) (domain.Registration, error) {
	info, err := whoisparser.Parse(raw)
	switch {
	case errors.Is(err, whoisparser.ErrNotFoundDomain),
		errors.Is(err, whoisparser.ErrReservedDomain),
		errors.Is(err, whoisparser.ErrPremiumDomain),
		errors.Is(err, whoisparser.ErrBlockedDomain):
		return reg, nil
	case err != nil:
		return reg, fmt.Errorf("whois %s: %w", reg.Domain, err)
	}
	if info.Domain == nil {
		return reg, nil
	}
	reg.Registered = true
	reg.CreatedOn = info.Domain.CreatedDate
	if info.Registrar != nil {
		reg.Registrar = info.Registrar.Name
	}
	return reg, nil
}
