package ports

import (
	"context"

	"leadscout/internal/domain"
)

// RunRepository stores discovery runs and the enriched records they produced.
type RunRepository interface {
	Create(ctx context.Context, q domain.SearchQuery) (runID string, err error)
	Get(ctx context.Context, runID string) (domain.DiscoveryRun, error)
	Results(ctx context.Context, runID string) ([]domain.BusinessRecord, error)
}
