package discoveryrunner

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"leadscout/internal/domain"
	"leadscout/internal/ports"
)

type memJobs struct {
	mu      sync.Mutex
	queue   []ports.DiscoveryJob
	status  map[string]domain.RunStatus // by job id
	reasons map[string]string
	queries map[string]domain.SearchQuery
	results map[string][]domain.BusinessRecord
}

func newMemJobs() *memJobs {
	return &memJobs{
		status:  map[string]domain.RunStatus{},
		reasons: map[string]string{},
		queries: map[string]domain.SearchQuery{},
		results: map[string][]domain.BusinessRecord{},
	}
}

func (m *memJobs) enqueue(runID string, q domain.SearchQuery) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := "job-" + strconv.Itoa(len(m.status)+1)
	m.queue = append(m.queue, ports.DiscoveryJob{ID: id, RunID: runID})
	m.status[id] = domain.RunQueued
	m.queries[runID] = q
	return id
}

func (m *memJobs) ClaimNext(context.Context) (ports.DiscoveryJob, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, j := range m.queue {
		if m.status[j.ID] == domain.RunQueued {
			m.status[j.ID] = domain.RunRunning
			return m.queue[i], true, nil
		}
	}
	return ports.DiscoveryJob{}, false, nil
}

func (m *memJobs) StartJobForRun(_ context.Context, runID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.queue {
		if j.RunID == runID && m.status[j.ID] == domain.RunQueued {
			m.status[j.ID] = domain.RunRunning
			return j.ID, nil
		}
	}
	return "", domain.ErrNotFound
}

func (m *memJobs) Query(_ context.Context, runID string) (domain.SearchQuery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.queries[runID]
	if !ok {
		return q, domain.ErrNotFound
	}
	return q, nil
}

func (m *memJobs) SaveResults(_ context.Context, runID string, recs []domain.BusinessRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[runID] = recs
	return nil
}

func (m *memJobs) MarkCompleted(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[jobID] = domain.RunCompleted
	return nil
}

func (m *memJobs) MarkFailed(_ context.Context, jobID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[jobID] = domain.RunFailed
	m.reasons[jobID] = reason
	return nil
}

func (m *memJobs) statusOf(jobID string) domain.RunStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status[jobID]
}

type fakeDiscoverer struct {
	recs []domain.BusinessRecord
	err  error
}

func (f fakeDiscoverer) Discover(context.Context, domain.SearchQuery) ([]domain.BusinessRecord, error) {
	return f.recs, f.err
}

var q = domain.SearchQuery{Location: "Atlanta, GA", BusinessType: "gym"}

func TestProcessInline_Completes(t *testing.T) {
	repo := newMemJobs()
	jobID := repo.enqueue("run-1", q)
	proc := PipelineProcessor{Repo: repo, Discoverer: fakeDiscoverer{recs: []domain.BusinessRecord{{Name: "Iron Gym", Address: "2 Elm"}}}}

	require.NoError(t, ProcessInline(t.Context(), repo, proc, "run-1"))
	assert.Equal(t, domain.RunCompleted, repo.statusOf(jobID))
	assert.Len(t, repo.results["run-1"], 1)
}

func TestProcessInline_FailureMarksFailed(t *testing.T) {
	repo := newMemJobs()
	jobID := repo.enqueue("run-1", q)
	proc := PipelineProcessor{Repo: repo, Discoverer: fakeDiscoverer{err: domain.ErrNoSources}}

	err := ProcessInline(t.Context(), repo, proc, "run-1")
	assert.ErrorIs(t, err, domain.ErrNoSources)
	assert.Equal(t, domain.RunFailed, repo.statusOf(jobID))
	assert.Equal(t, domain.ErrNoSources.Error(), repo.reasons[jobID])
	assert.NotContains(t, repo.results, "run-1")
}

func TestProcessInline_PartialResultsKeptOnCancel(t *testing.T) {
	repo := newMemJobs()
	jobID := repo.enqueue("run-1", q)
	proc := PipelineProcessor{Repo: repo, Discoverer: fakeDiscoverer{
		recs: []domain.BusinessRecord{{Name: "Iron Gym", Address: "2 Elm"}},
		err:  context.DeadlineExceeded,
	}}

	err := ProcessInline(t.Context(), repo, proc, "run-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, domain.RunFailed, repo.statusOf(jobID))
	assert.Len(t, repo.results["run-1"], 1)
}

func TestProcessInline_UnknownRun(t *testing.T) {
	repo := newMemJobs()
	err := ProcessInline(t.Context(), repo, PipelineProcessor{Repo: repo, Discoverer: fakeDiscoverer{}}, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRun_ProcessesQueuedJobs(t *testing.T) {
	repo := newMemJobs()
	ok := repo.enqueue("run-ok", q)
	bad := repo.enqueue("run-bad", domain.SearchQuery{Location: "x", BusinessType: "y"})
	disc := &switchDiscoverer{fail: map[string]bool{"y": true}}

	ctx, cancel := context.WithCancel(t.Context())
	done := Run(ctx, repo, PipelineProcessor{Repo: repo, Discoverer: disc}, 2, 5*time.Millisecond, zaptest.NewLogger(t))

	assert.Eventually(t, func() bool {
		return repo.statusOf(ok) == domain.RunCompleted && repo.statusOf(bad) == domain.RunFailed
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop")
	}
}

func TestRun_ZeroConcurrency(t *testing.T) {
	done := Run(t.Context(), newMemJobs(), nil, 0, time.Millisecond, nil)
	_, open := <-done
	assert.False(t, open)
}

type switchDiscoverer struct {
	fail map[string]bool
}

func (s *switchDiscoverer) Discover(_ context.Context, q domain.SearchQuery) ([]domain.BusinessRecord, error) {
	if s.fail[q.BusinessType] {
		return nil, errors.New("directory outage")
	}
	return []domain.BusinessRecord{{Name: "A", Address: "B"}}, nil
}
