package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"leadscout/internal/domain"
	"leadscout/internal/ports"
)

// ClaimNext selects the next queued job using SKIP LOCKED and marks it running.
func (db *DB) ClaimNext(ctx context.Context) (job ports.DiscoveryJob, found bool, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return job, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
		SELECT id::text, run_id::text FROM discovery_jobs
		WHERE status = 'queued'
		ORDER BY queued_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`).Scan(&job.ID, &job.RunID)
	if errors.Is(err, pgx.ErrNoRows) {
		return job, false, nil
	}
	if err != nil {
		return job, false, err
	}
	if err = markRunning(ctx, tx, job); err != nil {
		return job, false, err
	}
	return job, true, nil
}

// StartJobForRun claims the queued job of a specific run and returns its id.
func (db *DB) StartJobForRun(ctx context.Context, runID string) (jobID string, err error) {
	if !validID(runID) {
		return "", domain.ErrNotFound
	}
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
		SELECT id::text FROM discovery_jobs
		WHERE run_id = $1 AND status = 'queued'
		FOR UPDATE SKIP LOCKED
	`, runID).Scan(&jobID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("run %s: no queued job: %w", runID, domain.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	if err = markRunning(ctx, tx, ports.DiscoveryJob{ID: jobID, RunID: runID}); err != nil {
		return "", err
	}
	return jobID, nil
}

func markRunning(ctx context.Context, tx pgx.Tx, job ports.DiscoveryJob) error {
	if _, err := tx.Exec(ctx, `
		UPDATE discovery_jobs SET status='running', started_at=now(), attempts=attempts+1 WHERE id=$1
	`, job.ID); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
		UPDATE discovery_runs SET status='running', started_at=COALESCE(started_at, now()) WHERE id=$1
	`, job.RunID)
	return err
}

func (db *DB) Query(ctx context.Context, runID string) (domain.SearchQuery, error) {
	var q domain.SearchQuery
	var raw []byte
	err := db.Pool.QueryRow(ctx, `SELECT query FROM discovery_runs WHERE id = $1`, runID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return q, domain.ErrNotFound
	}
	if err != nil {
		return q, err
	}
	return q, json.Unmarshal(raw, &q)
}

// SaveResults replaces the stored records of a run and updates its count.
func (db *DB) SaveResults(ctx context.Context, runID string, records []domain.BusinessRecord) (err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM business_results WHERE run_id = $1`, runID); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for i, rec := range records {
		raw, mErr := json.Marshal(rec)
		if mErr != nil {
			return mErr
		}
		batch.Queue(`INSERT INTO business_results (run_id, position, record) VALUES ($1, $2, $3)`, runID, i, raw)
	}
	if batch.Len() > 0 {
		if err = tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}
	_, err = tx.Exec(ctx, `UPDATE discovery_runs SET found = $2 WHERE id = $1`, runID, len(records))
	return err
}

func (db *DB) MarkCompleted(ctx context.Context, jobID string) error {
	return db.finish(ctx, jobID, domain.RunCompleted, "")
}

func (db *DB) MarkFailed(ctx context.Context, jobID string, reason string) error {
	return db.finish(ctx, jobID, domain.RunFailed, reason)
}

// finish moves a job and its run to a terminal status atomically.
func (db *DB) finish(ctx context.Context, jobID string, status domain.RunStatus, reason string) (err error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var runID string
	if err = tx.QueryRow(ctx, `
		UPDATE discovery_jobs SET status=$2, finished_at=now() WHERE id=$1 RETURNING run_id::text
	`, jobID, string(status)).Scan(&runID); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		UPDATE discovery_runs SET status=$2, error=$3, finished_at=now() WHERE id=$1
	`, runID, string(status), reason)
	return err
}
