package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// BeginSyncRun opens the observational record for a change-detection pass.
func (s *Store) BeginSyncRun(ctx context.Context, ownerID int64) (int64, error) {
	ctx = ensureContext(ctx)
	var id int64
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(
			ctx,
			`INSERT INTO sync_runs (owner_id, started_at) VALUES (?, ?) RETURNING id`,
			ownerID,
			formatTime(time.Now().UTC()),
		)
		return row.Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("begin sync run: %w", err)
	}
	return id, nil
}

// FinalizeSyncRun writes the counts and duration for a completed pass.
func (s *Store) FinalizeSyncRun(ctx context.Context, id int64, newCount, changedCount, deletedCount int, duration time.Duration) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE sync_runs
         SET new_count = ?, changed_count = ?, deleted_count = ?, duration_ms = ?, finished_at = ?
         WHERE id = ?`,
		newCount,
		changedCount,
		deletedCount,
		duration.Milliseconds(),
		formatTime(time.Now().UTC()),
		id,
	); err != nil {
		return fmt.Errorf("finalize sync run %d: %w", id, err)
	}
	return nil
}

// AbortSyncRun discards the record of a pass that failed before completing,
// so no partially filled summary survives.
func (s *Store) AbortSyncRun(ctx context.Context, id int64) error {
	if err := s.execWithoutResultRetry(ctx, `DELETE FROM sync_runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("abort sync run %d: %w", id, err)
	}
	return nil
}

// LatestSyncRun returns the most recent run for an owner, or nil.
func (s *Store) LatestSyncRun(ctx context.Context, ownerID int64) (*SyncRun, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT id, owner_id, new_count, changed_count, deleted_count, duration_ms, started_at, finished_at
         FROM sync_runs WHERE owner_id = ? ORDER BY id DESC LIMIT 1`,
		ownerID,
	)

	var (
		run         SyncRun
		startedRaw  string
		finishedRaw sql.NullString
	)
	err := row.Scan(
		&run.ID,
		&run.OwnerID,
		&run.NewCount,
		&run.ChangedCount,
		&run.DeletedCount,
		&run.DurationMS,
		&startedRaw,
		&finishedRaw,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest sync run: %w", err)
	}
	if started, parseErr := parseTimeString(startedRaw); parseErr == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, parseErr := parseTimeString(finishedRaw.String); parseErr == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}
