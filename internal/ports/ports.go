package ports

import (
	"context"

	"leadscout/internal/domain"
)

// Directory searches one public business directory by location and category.
type Directory interface {
	Name() domain.Source
	// Configured reports whether credentials are present. An unconfigured
	// directory returns an empty result from Search.
	Configured() bool
	// Search returns the records collected so far together with any provider
	// error; malformed items are skipped, not reported.
	Search(ctx context.Context, q domain.SearchQuery) ([]domain.BusinessRecord, error)
}

// Registry answers whether a registrable domain is currently registered.
type Registry interface {
	Lookup(ctx context.Context, registrable string) (domain.Registration, error)
}

// WebSearch returns result URLs for a free-text query.
type WebSearch interface {
	Configured() bool
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Prober decides whether one candidate domain serves a real website.
type Prober interface {
	Verify(ctx context.Context, domain string) domain.VerificationResult
}

// ProbeCache stores prober verdicts per domain across runs.
type ProbeCache interface {
	Get(ctx context.Context, domain string) (res domain.VerificationResult, found bool, err error)
	Put(ctx context.Context, domain string, res domain.VerificationResult) error
}
