package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"leadscout/internal/domain"
)

// Create stores a queued run and its job row in one transaction.
func (db *DB) Create(ctx context.Context, q domain.SearchQuery) (runID string, err error) {
	raw, err := json.Marshal(q)
	if err != nil {
		return "", err
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

	runID = uuid.NewString()
	if _, err = tx.Exec(ctx, `INSERT INTO discovery_runs (id, query, status) VALUES ($1, $2, 'queued')`, runID, raw); err != nil {
		return "", err
	}
	if _, err = tx.Exec(ctx, `INSERT INTO discovery_jobs (id, run_id) VALUES ($1, $2)`, uuid.NewString(), runID); err != nil {
		return "", err
	}
	return runID, nil
}

func (db *DB) Get(ctx context.Context, runID string) (domain.DiscoveryRun, error) {
	var run domain.DiscoveryRun
	if !validID(runID) {
		return run, domain.ErrNotFound
	}
	var raw []byte
	err := db.Pool.QueryRow(ctx, `
		SELECT id::text, query, status, error, found, created_at, started_at, finished_at
		FROM discovery_runs WHERE id = $1
	`, runID).Scan(&run.ID, &raw, &run.Status, &run.Error, &run.Found, &run.CreatedAt, &run.StartedAt, &run.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return run, domain.ErrNotFound
	}
	if err != nil {
		return run, err
	}
	if err := json.Unmarshal(raw, &run.Query); err != nil {
		return run, fmt.Errorf("decode run %s query: %w", runID, err)
	}
	return run, nil
}

// Results returns the stored records of a run in discovery order.
func (db *DB) Results(ctx context.Context, runID string) ([]domain.BusinessRecord, error) {
	if _, err := db.Get(ctx, runID); err != nil {
		return nil, err
	}
	rows, err := db.Pool.Query(ctx, `SELECT record FROM business_results WHERE run_id = $1 ORDER BY position`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.BusinessRecord{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var rec domain.BusinessRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode result of run %s: %w", runID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
