package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Enqueue inserts a task, or refreshes the equivalent pending task. Tasks are
// keyed by (task_type, related_entity_id): enqueueing the same work twice
// yields the existing row with its not_before reset to now, so producers can
// re-run safely.
func (s *Store) Enqueue(ctx context.Context, t NewTask) (int64, error) {
	if _, ok := typeSet[t.Type]; !ok {
		return 0, fmt.Errorf("enqueue: unknown task type %q", t.Type)
	}

	now := time.Now().UTC()
	notBefore := t.NotBefore
	if notBefore.IsZero() {
		notBefore = now
	}
	priority := t.Priority
	if priority == 0 {
		priority = PriorityFor(t.Type)
	}

	ctx = ensureContext(ctx)
	var id int64
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(
			ctx,
			`INSERT INTO tasks (
                task_type, related_entity_id, not_before, depends_on_task_id,
                is_import, priority, times_seen, created_at
            ) VALUES (?, ?, ?, ?, ?, ?, 0, ?)
            ON CONFLICT (task_type, related_entity_id)
                DO UPDATE SET not_before = ?
            RETURNING id`,
			t.Type,
			t.RelatedEntityID,
			formatTime(notBefore),
			nullableInt64(t.DependsOn),
			boolToInt(IsImportType(t.Type)),
			priority,
			formatTime(now),
			formatTime(now),
		)
		return row.Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("enqueue %s: %w", t.Type, err)
	}
	return id, nil
}

// ClaimNext atomically selects the most urgent claimable task, bumps its
// times_seen counter, and pushes not_before forward by the lease duration.
// The selection and lease run in a single UPDATE so two concurrent claims can
// never return the same row. A nil task with nil error means nothing is
// claimable right now.
func (s *Store) ClaimNext(ctx context.Context, filter ClaimFilter) (*Task, error) {
	now := time.Now().UTC()

	conds := []string{"not_before <= ?", "depends_on_task_id IS NULL"}
	args := []any{formatTime(now.Add(LeaseDuration)), formatTime(now)}
	if filter.Stopping {
		conds = append(conds, "is_import = 0")
	}
	if filter.ExcludeHeavy {
		heavy := HeavyTypes()
		conds = append(conds, "task_type NOT IN ("+makePlaceholders(len(heavy))+")")
		for _, t := range heavy {
			args = append(args, t)
		}
	}

	query := `UPDATE tasks
        SET times_seen = times_seen + 1, not_before = ?
        WHERE id = (
            SELECT id FROM tasks
            WHERE ` + strings.Join(conds, " AND ") + `
            ORDER BY priority DESC, created_at ASC, id ASC
            LIMIT 1
        )
        RETURNING ` + taskColumns

	ctx = ensureContext(ctx)
	var task *Task
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx, query, args...)
		claimed, scanErr := scanTask(row)
		if scanErr != nil {
			return scanErr
		}
		task = claimed
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim next task: %w", err)
	}
	return task, nil
}

// GetTask fetches a task by identifier.
func (s *Store) GetTask(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ListTasks returns all pending tasks in claim order.
func (s *Store) ListTasks(ctx context.Context) ([]*Task, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+taskColumns+` FROM tasks ORDER BY priority DESC, created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// ReleaseDependents clears depends_on_task_id on every task waiting for the
// given task, making them claimable subject to their not_before gate.
func (s *Store) ReleaseDependents(ctx context.Context, taskID int64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE tasks SET depends_on_task_id = NULL WHERE depends_on_task_id = ?`,
		taskID,
	); err != nil {
		return fmt.Errorf("release dependents of %d: %w", taskID, err)
	}
	return nil
}

// Remove deletes a task row. Removing a missing row is not an error.
func (s *Store) Remove(ctx context.Context, taskID int64) error {
	if err := s.execWithoutResultRetry(ctx, `DELETE FROM tasks WHERE id = ?`, taskID); err != nil {
		return fmt.Errorf("remove task %d: %w", taskID, err)
	}
	return nil
}

// RemoveChain deletes a task and, transitively, every task depending on it.
// Used when a chain stage fails permanently: its downstream stages can never
// become claimable and would otherwise leak.
func (s *Store) RemoveChain(ctx context.Context, taskID int64) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`WITH RECURSIVE chain(id) AS (
            SELECT id FROM tasks WHERE id = ?
            UNION ALL
            SELECT t.id FROM tasks t JOIN chain c ON t.depends_on_task_id = c.id
        )
        DELETE FROM tasks WHERE id IN (SELECT id FROM chain)`,
		taskID,
	)
	if err != nil {
		return 0, fmt.Errorf("remove chain %d: %w", taskID, err)
	}
	return res.RowsAffected()
}

// CancelImports deletes pending import-chain tasks for an entity. Called by
// change detection before re-importing a changed file or removing a deleted one.
func (s *Store) CancelImports(ctx context.Context, entityID int64) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM tasks WHERE related_entity_id = ? AND is_import = 1`,
		entityID,
	)
	if err != nil {
		return 0, fmt.Errorf("cancel imports for entity %d: %w", entityID, err)
	}
	return res.RowsAffected()
}

// RescheduleAfter pushes a task's not_before gate delay into the future.
func (s *Store) RescheduleAfter(ctx context.Context, taskID int64, delay time.Duration) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE tasks SET not_before = ? WHERE id = ?`,
		formatTime(time.Now().UTC().Add(delay)),
		taskID,
	); err != nil {
		return fmt.Errorf("reschedule task %d: %w", taskID, err)
	}
	return nil
}

// CountClaimable returns how many tasks a claim could select right now.
func (s *Store) CountClaimable(ctx context.Context, stopping bool) (int, error) {
	query := `SELECT COUNT(1) FROM tasks WHERE not_before <= ? AND depends_on_task_id IS NULL`
	args := []any{formatTime(time.Now().UTC())}
	if stopping {
		query += ` AND is_import = 0`
	}

	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx), query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count claimable: %w", err)
	}
	return count, nil
}

// RecordAttempt appends an immutable processing-log entry for one completed
// task attempt. The scheduler never reads these back.
func (s *Store) RecordAttempt(ctx context.Context, taskType TaskType, duration time.Duration, success bool) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO task_log (task_type, duration_ms, success, created_at) VALUES (?, ?, ?, ?)`,
		taskType,
		duration.Milliseconds(),
		boolToInt(success),
		formatTime(time.Now().UTC()),
	); err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}
