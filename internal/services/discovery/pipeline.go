// Package discovery runs one sweep: directory fan-out, deduplication and
// bounded parallel verification.
package discovery

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"leadscout/internal/domain"
	"leadscout/internal/metrics"
	"leadscout/internal/ports"
	"leadscout/internal/services/dedupe"
)

// BusinessVerifier attaches a verification result to one record.
type BusinessVerifier interface {
	VerifyBusiness(ctx context.Context, rec *domain.BusinessRecord) domain.VerificationResult
}

type Config struct {
	// Workers caps concurrent business verifications.
	Workers int
}

type Pipeline struct {
	sources  []ports.Directory
	verifier BusinessVerifier
	workers  int
	validate *validator.Validate
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	logger   *zap.Logger
}

func New(cfg Config, sources []ports.Directory, v BusinessVerifier, m *metrics.Metrics, logger *zap.Logger) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		sources:  sources,
		verifier: v,
		workers:  cfg.Workers,
		validate: validator.New(),
		metrics:  m,
		tracer:   otel.Tracer("leadscout/discovery"),
		logger:   logger.Named("discovery"),
	}
}

// Discover searches every configured directory, merges duplicates and verifies
// each unique business. It fails with domain.ErrNoSources when no directory is
// configured. On cancellation it returns the records verified so far together
// with the context error.
func (p *Pipeline) Discover(ctx context.Context, q domain.SearchQuery) (out []domain.BusinessRecord, err error) {
	ctx, span := p.tracer.Start(ctx, "discovery.Discover", trace.WithAttributes(
		attribute.String("query.location", q.Location),
		attribute.String("query.business_type", q.BusinessType),
	))
	defer func() {
		outcome := "completed"
		if err != nil {
			outcome = "failed"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		p.metrics.RunFinished(outcome)
		span.SetAttributes(attribute.Int("discovery.records", len(out)))
		span.End()
	}()

	if err := p.validate.Struct(q); err != nil {
		return nil, fmt.Errorf("invalid query: %w", err)
	}
	sources := p.configured()
	if len(sources) == 0 {
		return nil, domain.ErrNoSources
	}

	raw := p.search(ctx, sources, q)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	merged := dedupe.Merge(raw)
	p.logger.Info("directories searched",
		zap.Int("sources", len(sources)),
		zap.Int("raw", len(raw)),
		zap.Int("unique", len(merged)))

	return p.verifyAll(ctx, merged)
}

func (p *Pipeline) configured() []ports.Directory {
	out := make([]ports.Directory, 0, len(p.sources))
	for _, s := range p.sources {
		if s.Configured() {
			out = append(out, s)
		}
	}
	return out
}

// search queries all sources concurrently and concatenates their records in
// source order. Source errors are logged; partial results are kept.
func (p *Pipeline) search(ctx context.Context, sources []ports.Directory, q domain.SearchQuery) []domain.BusinessRecord {
	results := make([][]domain.BusinessRecord, len(sources))
	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			recs, err := src.Search(ctx, q)
			p.metrics.AdapterResult(string(src.Name()), len(recs), err)
			if err != nil {
				p.logger.Warn("directory search failed",
					zap.String("source", string(src.Name())),
					zap.Int("partial", len(recs)),
					zap.Error(err))
			}
			results[i] = recs
			return nil
		})
	}
	_ = g.Wait()

	var all []domain.BusinessRecord
	for _, recs := range results {
		all = append(all, recs...)
	}
	return all
}

// verifyAll verifies records with at most p.workers in flight. Businesses not
// started before ctx ends are dropped; started ones finish under their own
// timeouts.
func (p *Pipeline) verifyAll(ctx context.Context, recs []domain.BusinessRecord) ([]domain.BusinessRecord, error) {
	done := make([]bool, len(recs))
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i := range recs {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			p.verifier.VerifyBusiness(context.WithoutCancel(ctx), &recs[i])
			done[i] = true
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		out := make([]domain.BusinessRecord, 0, len(recs))
		for i, ok := range done {
			if ok {
				out = append(out, recs[i])
			}
		}
		p.logger.Warn("discovery cancelled", zap.Int("verified", len(out)), zap.Int("unique", len(recs)))
		return out, err
	}
	return recs, nil
}
