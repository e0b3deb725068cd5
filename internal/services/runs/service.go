package runs

import (
	"context"
	"strings"

	"leadscout/internal/domain"
	"leadscout/internal/ports"
)

// Service normalizes discovery queries before they are queued.
type Service struct {
	runs ports.RunRepository
}

func New(runs ports.RunRepository) *Service {
	return &Service{runs: runs}
}

func (s *Service) Create(ctx context.Context, q domain.SearchQuery) (string, error) {
	return s.runs.Create(ctx, Normalize(q))
}

func (s *Service) Get(ctx context.Context, runID string) (domain.DiscoveryRun, error) {
	return s.runs.Get(ctx, strings.TrimSpace(runID))
}

func (s *Service) Results(ctx context.Context, runID string) ([]domain.BusinessRecord, error) {
	return s.runs.Results(ctx, strings.TrimSpace(runID))
}

// Normalize collapses whitespace and drops empty or repeated keywords.
func Normalize(q domain.SearchQuery) domain.SearchQuery {
	out := domain.SearchQuery{
		Location:     domain.CleanText(q.Location),
		BusinessType: domain.CleanText(q.BusinessType),
		RadiusKm:     q.RadiusKm,
	}
	seen := make(map[string]struct{}, len(q.Keywords))
	for _, k := range q.Keywords {
		k = domain.CleanText(k)
		key := strings.ToLower(k)
		if k == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Keywords = append(out.Keywords, k)
	}
	return out
}
