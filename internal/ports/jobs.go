package ports

import (
	"context"

	"leadscout/internal/domain"
)

type DiscoveryJob struct {
	ID    string
	RunID string
}

// JobRepository supports claiming and finishing discovery jobs.
type JobRepository interface {
	ClaimNext(ctx context.Context) (job DiscoveryJob, found bool, err error)
	StartJobForRun(ctx context.Context, runID string) (jobID string, err error)
	Query(ctx context.Context, runID string) (domain.SearchQuery, error)
	SaveResults(ctx context.Context, runID string, records []domain.BusinessRecord) error
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, reason string) error
}
