// Package app assembles adapters and services from configuration. Each
// discovery run gets its own pooled HTTP client, released when the run ends.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"leadscout/internal/adapters/customsearch"
	"leadscout/internal/adapters/foursquare"
	"leadscout/internal/adapters/googleplaces"
	"leadscout/internal/adapters/rdap"
	"leadscout/internal/adapters/whois"
	"leadscout/internal/adapters/yelp"
	"leadscout/internal/config"
	"leadscout/internal/domain"
	"leadscout/internal/metrics"
	"leadscout/internal/ports"
	"leadscout/internal/services/discovery"
	"leadscout/internal/services/liveness"
	"leadscout/internal/services/verifier"
	"leadscout/internal/transport"
)

type Factory struct {
	cfg     *config.Config
	cache   ports.ProbeCache
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewFactory keeps references to process-wide collaborators; cache and m may be nil.
func NewFactory(cfg *config.Config, cache ports.ProbeCache, m *metrics.Metrics, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{cfg: cfg, cache: cache, metrics: m, logger: logger}
}

// Run bundles the services of one run around a shared HTTP client.
type Run struct {
	Pipeline *discovery.Pipeline
	Verifier *verifier.Orchestrator
	client   *transport.Client
}

func (r *Run) Close() { r.client.Close() }

func (f *Factory) NewRun() (*Run, error) {
	c := f.cfg
	client := transport.New(transport.Options{
		MaxIdleConns:        c.Transport.MaxIdleConns,
		MaxIdleConnsPerHost: c.Transport.MaxIdleConnsPerHost,
		MaxConnsPerHost:     c.Transport.MaxConnsPerHost,
		UserAgent:           c.Transport.UserAgent,
	})

	search, err := customsearch.New(customsearch.Config{
		APIKey:   c.Search.APIKey,
		EngineID: c.Search.EngineID,
		Endpoint: c.Search.Endpoint,
		Timeout:  c.Search.Timeout,
	}, client.Client, f.logger)
	if err != nil {
		client.Close()
		return nil, err
	}

	prober := liveness.New(liveness.Config{
		ProbeTimeout:  c.Probe.Timeout,
		LookupTimeout: c.Registry.Timeout,
		MaxBody:       c.Probe.MaxBodyBytes,
	}, f.registry(client), client.Client, f.cache, f.metrics, f.logger)

	orch := verifier.New(verifier.Config{
		SearchResults: c.Search.Results,
		ExcludedHosts: c.Search.Exclude,
	}, prober, search, f.metrics, f.logger)

	pipe := discovery.New(discovery.Config{Workers: c.Discovery.Workers}, f.directories(client), orch, f.metrics, f.logger)
	return &Run{Pipeline: pipe, Verifier: orch, client: client}, nil
}

// directories returns the enabled adapters in configuration order.
func (f *Factory) directories(client *transport.Client) []ports.Directory {
	c := f.cfg.Sources
	var out []ports.Directory
	for _, name := range c.Enabled {
		switch domain.Source(name) {
		case domain.SourceGooglePlaces:
			out = append(out, googleplaces.New(googleplaces.Config{
				APIKey:            c.GooglePlaces.APIKey,
				PlacesURL:         c.GooglePlaces.BaseURL,
				RequestsPerSecond: c.GooglePlaces.RequestsPerSecond,
				Timeout:           c.GooglePlaces.Timeout,
			}, client.Client, f.logger))
		case domain.SourceYelp:
			out = append(out, yelp.New(yelp.Config{
				APIKey:            c.Yelp.APIKey,
				BaseURL:           c.Yelp.BaseURL,
				RequestsPerSecond: c.Yelp.RequestsPerSecond,
				Timeout:           c.Yelp.Timeout,
			}, client.Client, f.logger))
		case domain.SourceFoursquare:
			out = append(out, foursquare.New(foursquare.Config{
				APIKey:            c.Foursquare.APIKey,
				BaseURL:           c.Foursquare.BaseURL,
				RequestsPerSecond: c.Foursquare.RequestsPerSecond,
				Timeout:           c.Foursquare.Timeout,
			}, client.Client, f.logger))
		default:
			f.logger.Warn("unknown source ignored", zap.String("source", name))
		}
	}
	return out
}

func (f *Factory) registry(client *transport.Client) ports.Registry {
	c := f.cfg.Registry
	if c.Kind == "whois" {
		return whois.New(whois.Config{Timeout: c.Timeout}, f.logger)
	}
	return rdap.New(rdap.Config{
		BaseURL:           c.RDAPURL,
		RequestsPerSecond: c.RequestsPerSecond,
		Timeout:           c.Timeout,
	}, client.Client, f.logger)
}

// Discover runs one discovery sweep on a fresh run.
func (f *Factory) Discover(ctx context.Context, q domain.SearchQuery) ([]domain.BusinessRecord, error) {
	run, err := f.NewRun()
	if err != nil {
		return nil, err
	}
	defer run.Close()
	return run.Pipeline.Discover(ctx, q)
}

// Verify checks a single business outside a discovery run.
func (f *Factory) Verify(ctx context.Context, rec *domain.BusinessRecord) (domain.VerificationResult, error) {
	if rec.Name == "" {
		return domain.VerificationResult{}, fmt.Errorf("verify: business name is required")
	}
	run, err := f.NewRun()
	if err != nil {
		return domain.VerificationResult{}, err
	}
	defer run.Close()
	return run.Verifier.VerifyBusiness(ctx, rec), nil
}
