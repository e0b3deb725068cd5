// Package verifier decides whether a business already has a website by probing
// its candidate domains in order of evidence strength.
package verifier

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"leadscout/internal/domain"
	"leadscout/internal/metrics"
	"leadscout/internal/ports"
	"leadscout/internal/services/candidates"
)

// searchFetch is how many links are requested before host filtering.
const searchFetch = 10

// DefaultExcludedHosts are directory, review and social sites that show up in
// search results but never are a business's own website.
var DefaultExcludedHosts = []string{
	"yelp.com", "facebook.com", "instagram.com", "twitter.com", "x.com",
	"linkedin.com", "tripadvisor.com", "yellowpages.com", "foursquare.com",
	"google.com", "mapquest.com", "bbb.org", "youtube.com", "doordash.com",
	"grubhub.com", "ubereats.com", "nextdoor.com", "tiktok.com",
	"pinterest.com", "wikipedia.org", "angi.com", "manta.com",
}

type Config struct {
	// SearchResults caps the search-derived candidates per business.
	SearchResults int
	ExcludedHosts []string
}

type Orchestrator struct {
	searchResults int
	excluded      map[string]struct{}
	prober        ports.Prober
	search        ports.WebSearch
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	logger        *zap.Logger
	now           func() time.Time
}

// New builds an orchestrator. search and m may be nil.
func New(cfg Config, prober ports.Prober, search ports.WebSearch, m *metrics.Metrics, logger *zap.Logger) *Orchestrator {
	if cfg.SearchResults <= 0 {
		cfg.SearchResults = 5
	}
	if cfg.ExcludedHosts == nil {
		cfg.ExcludedHosts = DefaultExcludedHosts
	}
	excluded := make(map[string]struct{}, len(cfg.ExcludedHosts))
	for _, h := range cfg.ExcludedHosts {
		excluded[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		searchResults: cfg.SearchResults,
		excluded:      excluded,
		prober:        prober,
		search:        search,
		metrics:       m,
		tracer:        otel.Tracer("leadscout/verifier"),
		logger:        logger.Named("verifier"),
		now:           time.Now,
	}
}

// attempt tracks the candidates already probed for one business.
type attempt struct {
	o      *Orchestrator
	ctx    context.Context
	seen   map[string]struct{}
	probed int
}

// try probes c unless its domain was already probed and reports a win.
func (a *attempt) try(c domain.DomainCandidate) (domain.VerificationResult, bool) {
	if _, dup := a.seen[c.Domain]; dup {
		return domain.VerificationResult{}, false
	}
	a.seen[c.Domain] = struct{}{}
	a.probed++
	res := a.o.prober.Verify(a.ctx, c.Domain)
	a.o.logger.Debug("candidate probed",
		zap.String("domain", c.Domain),
		zap.String("origin", string(c.Origin)),
		zap.String("status", string(res.Status)))
	if !res.HasWebsite {
		return res, false
	}
	res.Domain = c.Domain
	res.Origin = c.Origin
	return res, true
}

// VerifyBusiness probes the hinted website, then search hits, then generated
// guesses, stopping at the first domain that serves a site. The result is
// attached to rec and returned.
func (o *Orchestrator) VerifyBusiness(ctx context.Context, rec *domain.BusinessRecord) domain.VerificationResult {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "verifier.VerifyBusiness", trace.WithAttributes(
		attribute.String("business.name", rec.Name),
	))
	defer span.End()

	res := o.verify(ctx, rec)
	res.CheckedAt = o.now().UTC()
	rec.Verification = &res

	span.SetAttributes(
		attribute.String("verification.status", string(res.Status)),
		attribute.Int("verification.probed", res.Probed),
	)
	o.metrics.VerificationDone(time.Since(start))
	return res
}

func (o *Orchestrator) verify(ctx context.Context, rec *domain.BusinessRecord) domain.VerificationResult {
	a := &attempt{o: o, ctx: ctx, seen: make(map[string]struct{})}
	finish := func(res domain.VerificationResult) domain.VerificationResult {
		res.Probed = a.probed
		return res
	}

	if host, ok := o.hintedHost(rec.KnownWebsite); ok {
		if res, won := a.try(domain.DomainCandidate{Domain: host, Origin: domain.OriginHinted}); won {
			res.Evidence = domain.EvidenceProviderHint
			return finish(res)
		}
	}
	for _, c := range o.searchCandidates(ctx, rec) {
		if res, won := a.try(c); won {
			return finish(res)
		}
	}
	for _, c := range candidates.Generate(rec.Name) {
		if res, won := a.try(c); won {
			return finish(res)
		}
	}

	status := domain.StatusNoActiveWebsite
	if len(a.seen) == 0 {
		status = domain.StatusNoDomainsFound
	}
	return finish(domain.VerificationResult{Status: status, Evidence: domain.EvidenceNone})
}

// hintedHost drops provider hints that point at a directory or social page.
func (o *Orchestrator) hintedHost(website string) (string, bool) {
	host, ok := candidates.HostFromURL(website)
	if !ok {
		return "", false
	}
	if _, skip := o.excluded[candidates.Registrable(host)]; skip {
		o.logger.Debug("ignoring excluded website hint", zap.String("domain", host))
		return "", false
	}
	return host, true
}

// searchCandidates is best-effort: search errors or missing credentials yield none.
func (o *Orchestrator) searchCandidates(ctx context.Context, rec *domain.BusinessRecord) []domain.DomainCandidate {
	if o.search == nil || !o.search.Configured() {
		return nil
	}
	query := strings.TrimSpace(domain.CleanText(rec.Name+" "+rec.Address) + " official website")
	links, err := o.search.Search(ctx, query, searchFetch)
	if err != nil {
		o.logger.Warn("web search failed", zap.String("business", rec.Name), zap.Error(err))
		return nil
	}
	return o.hostsFromLinks(links)
}

func (o *Orchestrator) hostsFromLinks(links []string) []domain.DomainCandidate {
	out := make([]domain.DomainCandidate, 0, o.searchResults)
	seen := make(map[string]struct{}, len(links))
	for _, link := range links {
		host, ok := candidates.HostFromURL(link)
		if !ok {
			continue
		}
		host = candidates.Registrable(host)
		if _, skip := o.excluded[host]; skip {
			continue
		}
		if _, dup := seen[host]; dup {
			continue
		}
		seen[host] = struct{}{}
		out = append(out, domain.DomainCandidate{Domain: host, Origin: domain.OriginSearch})
		if len(out) == o.searchResults {
			break
		}
	}
	return out
}
