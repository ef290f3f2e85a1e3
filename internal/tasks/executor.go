package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"curator/internal/logging"
	"curator/internal/queue"
)

// Handler executes one claimed task.
type Handler interface {
	Execute(ctx context.Context, task *queue.Task) Outcome
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, task *queue.Task) Outcome

func (f HandlerFunc) Execute(ctx context.Context, task *queue.Task) Outcome {
	return f(ctx, task)
}

// Executor dispatches claimed tasks to their handlers and applies each
// outcome to the queue: delete on success, cascade on permanent failure,
// reschedule or let the lease lapse on transient failure.
type Executor struct {
	store    *queue.Store
	handlers map[queue.TaskType]Handler
	logger   *slog.Logger
}

func NewExecutor(store *queue.Store, logger *slog.Logger) *Executor {
	return &Executor{
		store:    store,
		handlers: make(map[queue.TaskType]Handler),
		logger:   logging.NewComponentLogger(logger, "executor"),
	}
}

// Register binds a handler to a task type, replacing any previous binding.
func (e *Executor) Register(taskType queue.TaskType, handler Handler) {
	e.handlers[taskType] = handler
}

// Run executes a claimed task to completion and settles its queue row.
// Queue bookkeeping failures are logged, not propagated: the lease already
// guards the row, so the worst case is a repeat attempt after expiry.
func (e *Executor) Run(ctx context.Context, task *queue.Task) {
	attemptID := uuid.NewString()
	logger := e.logger.With(
		logging.String(logging.FieldAttemptID, attemptID),
		logging.Int64(logging.FieldTaskID, task.ID),
		logging.String(logging.FieldTaskType, string(task.Type)),
		logging.Int64(logging.FieldEntityID, task.RelatedEntityID),
	)

	handler, ok := e.handlers[task.Type]
	if !ok {
		// An unknown type can never run; treat like a permanent failure so
		// the row does not sit in the queue forever.
		logger.Error("no handler registered for task type")
		e.settle(ctx, logger, task, FailedPermanent(fmt.Errorf("no handler for %s", task.Type)), 0)
		return
	}

	started := time.Now()
	outcome := e.execute(ctx, logger, handler, task)
	duration := time.Since(started)

	if err := e.store.RecordAttempt(ctx, task.Type, duration, outcome.Success); err != nil {
		logger.Warn("failed to record attempt", logging.Error(err))
	}
	e.settle(ctx, logger, task, outcome, duration)
}

// execute confines handler panics to the attempt: a panicking handler settles
// as a transient failure and the lease becomes the retry backstop. A panic
// must never take a worker down with it.
func (e *Executor) execute(ctx context.Context, logger *slog.Logger, handler Handler, task *queue.Task) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler panicked", logging.Any("panic", r))
			outcome = FailedTransient(fmt.Errorf("handler panic: %v", r), 0)
		}
	}()
	return handler.Execute(ctx, task)
}

func (e *Executor) settle(ctx context.Context, logger *slog.Logger, task *queue.Task, outcome Outcome, duration time.Duration) {
	switch {
	case outcome.Success && outcome.RearmAfter > 0:
		if err := e.store.ReleaseDependents(ctx, task.ID); err != nil {
			logger.Warn("failed to release dependents", logging.Error(err))
		}
		if err := e.store.RescheduleAfter(ctx, task.ID, outcome.RearmAfter); err != nil {
			logger.Error("failed to rearm periodic task", logging.Error(err))
		}
		logger.Info("task complete, rearmed",
			logging.Duration("duration", duration),
			logging.Duration("rearm_after", outcome.RearmAfter))

	case outcome.Success:
		if err := e.store.ReleaseDependents(ctx, task.ID); err != nil {
			logger.Warn("failed to release dependents", logging.Error(err))
		}
		if err := e.store.Remove(ctx, task.ID); err != nil {
			logger.Error("failed to remove completed task", logging.Error(err))
		}
		logger.Info("task complete", logging.Duration("duration", duration))

	case outcome.Permanent:
		removed, err := e.store.RemoveChain(ctx, task.ID)
		if err != nil {
			logger.Error("failed to remove failed chain", logging.Error(err))
		}
		logger.Error("task failed permanently",
			logging.Error(outcome.Err),
			logging.Int64("removed_tasks", removed),
			logging.Duration("duration", duration))

	default:
		if outcome.RequeueDelay > 0 {
			if err := e.store.RescheduleAfter(ctx, task.ID, outcome.RequeueDelay); err != nil {
				logger.Error("failed to reschedule task", logging.Error(err))
			}
		}
		logger.Warn("task failed, will retry",
			logging.Error(outcome.Err),
			logging.Duration("requeue_delay", outcome.RequeueDelay),
			logging.Duration("duration", duration))
	}
}
