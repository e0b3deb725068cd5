// Package liveness decides whether a single candidate domain serves a real site.
package liveness

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"leadscout/internal/domain"
	"leadscout/internal/metrics"
	"leadscout/internal/ports"
	"leadscout/internal/services/candidates"
)

var parkedIndicators = []string{
	"domain is parked",
	"buy this domain",
	"domain not configured",
	"parked free",
	"domain parking",
	"this domain is for sale",
}

type Config struct {
	// ProbeTimeout bounds each scheme's GET.
	ProbeTimeout  time.Duration
	LookupTimeout time.Duration
	MaxBody       int64
}

func (c *Config) defaults() {
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 10 * time.Second
	}
	if c.LookupTimeout <= 0 {
		c.LookupTimeout = 10 * time.Second
	}
	if c.MaxBody <= 0 {
		c.MaxBody = 2 << 20
	}
}

type Prober struct {
	cfg      Config
	registry ports.Registry
	http     *http.Client
	cache    ports.ProbeCache
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// New builds a prober. cache and m may be nil.
func New(cfg Config, registry ports.Registry, hc *http.Client, cache ports.ProbeCache, m *metrics.Metrics, logger *zap.Logger) *Prober {
	cfg.defaults()
	if hc == nil {
		hc = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{
		cfg:      cfg,
		registry: registry,
		http:     hc,
		cache:    cache,
		metrics:  m,
		logger:   logger.Named("prober"),
		now:      time.Now,
	}
}

// Verify runs the registration check, the HTTP probe and parked detection for
// host. Failures are folded into the returned status.
func (p *Prober) Verify(ctx context.Context, host string) domain.VerificationResult {
	host = strings.ToLower(strings.TrimSpace(host))
	if res, ok := p.cached(ctx, host); ok {
		return res
	}
	res := p.verify(ctx, host)
	p.metrics.ProbeOutcome(string(res.Status))
	if p.cache != nil && res.Status != domain.StatusVerificationError {
		if err := p.cache.Put(ctx, host, res); err != nil {
			p.logger.Warn("probe cache put failed", zap.String("domain", host), zap.Error(err))
		}
	}
	return res
}

func (p *Prober) verify(ctx context.Context, host string) domain.VerificationResult {
	res := domain.VerificationResult{Domain: host, CheckedAt: p.now().UTC()}

	registrable := candidates.Registrable(host)
	reg, lookupErr := p.lookup(ctx, registrable)
	if lookupErr == nil && !reg.Registered {
		res.Status = domain.StatusNotRegistered
		res.Evidence = domain.EvidenceRegistrationLookup
		return res
	}
	res.Registrar = reg.Registrar
	res.RegisteredOn = reg.CreatedOn

	body, ok := p.fetch(ctx, host)
	switch {
	case !ok && lookupErr != nil:
		res.Status = domain.StatusVerificationError
		res.Evidence = domain.EvidenceNone
	case !ok && host != registrable:
		// A subdomain has no registration of its own; the parent's record
		// only counts once the host itself answers.
		res.Registrar, res.RegisteredOn = "", ""
		res.Status = domain.StatusNotRegistered
		res.Evidence = domain.EvidenceRegistrationLookup
	case !ok:
		res.HasWebsite = true
		res.Status = domain.StatusInactive
		res.Evidence = domain.EvidenceRegistrationLookup
	case Parked(body):
		res.Status = domain.StatusParked
		res.Evidence = domain.EvidenceHTTPProbe
	default:
		res.HasWebsite = true
		res.Status = domain.StatusActive
		res.Evidence = domain.EvidenceHTTPProbe
	}
	return res
}

func (p *Prober) lookup(ctx context.Context, registrable string) (domain.Registration, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.LookupTimeout)
	defer cancel()
	reg, err := p.registry.Lookup(ctx, registrable)
	if err != nil {
		p.logger.Debug("registration lookup failed", zap.String("domain", registrable), zap.Error(err))
	}
	return reg, err
}

// fetch returns the body of the first 2xx answer over https, then http.
func (p *Prober) fetch(ctx context.Context, host string) ([]byte, bool) {
	for _, scheme := range []string{"https", "http"} {
		body, err := p.get(ctx, scheme+"://"+host)
		if err != nil {
			p.logger.Debug("probe failed", zap.String("url", scheme+"://"+host), zap.Error(err))
			continue
		}
		return body, true
	}
	return nil, false
}

type statusError int

func (e statusError) Error() string { return "unexpected status " + http.StatusText(int(e)) }

func (p *Prober) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, p.cfg.MaxBody))
		return nil, statusError(resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, p.cfg.MaxBody))
}

func (p *Prober) cached(ctx context.Context, host string) (domain.VerificationResult, bool) {
	if p.cache == nil {
		return domain.VerificationResult{}, false
	}
	res, found, err := p.cache.Get(ctx, host)
	if err != nil {
		p.logger.Warn("probe cache get failed", zap.String("domain", host), zap.Error(err))
		return domain.VerificationResult{}, false
	}
	return res, found
}

// Parked reports whether the visible text of an HTML page carries a parking
// or for-sale notice.
func Parked(page []byte) bool {
	text := strings.ToLower(VisibleText(page))
	for _, ind := range parkedIndicators {
		if strings.Contains(text, ind) {
			return true
		}
	}
	return false
}

// VisibleText returns the page text without script, style and noscript
// content, whitespace collapsed.
func VisibleText(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return domain.CleanText(string(page))
	}
	doc.Find("script, style, noscript").Remove()
	return domain.CleanText(doc.Text())
}
