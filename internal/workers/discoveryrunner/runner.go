// Package discoveryrunner executes queued discovery runs in the background.
package discoveryrunner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"leadscout/internal/domain"
	"leadscout/internal/ports"
)

// Processor performs the discovery work for a run id.
type Processor interface {
	Process(ctx context.Context, runID string) error
}

// Discoverer is satisfied by the discovery pipeline and by app.Factory.
type Discoverer interface {
	Discover(ctx context.Context, q domain.SearchQuery) ([]domain.BusinessRecord, error)
}

// PipelineProcessor loads a run's query, discovers and stores the results.
type PipelineProcessor struct {
	Repo       ports.JobRepository
	Discoverer Discoverer
}

func (p PipelineProcessor) Process(ctx context.Context, runID string) error {
	q, err := p.Repo.Query(ctx, runID)
	if err != nil {
		return err
	}
	recs, err := p.Discoverer.Discover(ctx, q)
	if len(recs) > 0 || err == nil {
		if saveErr := p.Repo.SaveResults(context.WithoutCancel(ctx), runID, recs); saveErr != nil {
			return saveErr
		}
	}
	return err
}

// Run starts a dispatcher and concurrency workers that claim jobs and process
// them. The returned channel closes once every worker has exited after ctx ends.
func Run(ctx context.Context, repo ports.JobRepository, processor Processor, concurrency int, pollInterval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if concurrency < 1 {
		close(done)
		return done
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("runner")
	jobsCh := make(chan ports.DiscoveryJob, concurrency)

	go func() {
		defer close(jobsCh)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for {
					job, found, err := repo.ClaimNext(ctx)
					if err != nil {
						if ctx.Err() == nil {
							logger.Error("job claim failed", zap.Error(err))
						}
						break
					}
					if !found {
						break
					}
					select {
					case jobsCh <- job:
					case <-ctx.Done():
						// claimed but never started; release it as failed
						_ = repo.MarkFailed(context.WithoutCancel(ctx), job.ID, "shutdown before start")
						return
					}
				}
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for job := range jobsCh {
				if err := finish(ctx, repo, processor, job); err != nil {
					logger.Warn("job failed", zap.Int("worker", idx), zap.String("job", job.ID), zap.String("run", job.RunID), zap.Error(err))
				}
			}
		}(i)
	}
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

// ProcessInline starts and processes a specific run synchronously using the same
// processor the background workers use.
func ProcessInline(ctx context.Context, repo ports.JobRepository, processor Processor, runID string) error {
	jobID, err := repo.StartJobForRun(ctx, runID)
	if err != nil {
		return err
	}
	return finish(ctx, repo, processor, ports.DiscoveryJob{ID: jobID, RunID: runID})
}

func finish(ctx context.Context, repo ports.JobRepository, processor Processor, job ports.DiscoveryJob) error {
	if err := processor.Process(ctx, job.RunID); err != nil {
		_ = repo.MarkFailed(context.WithoutCancel(ctx), job.ID, err.Error())
		return err
	}
	return repo.MarkCompleted(context.WithoutCancel(ctx), job.ID)
}
