package workers

import (
	"context"
	"sync"
	"time"

	"curator/internal/logging"
	"curator/internal/queue"
)

// State describes what a worker is doing.
type State string

const (
	StateIdle    State = "idle"
	StateWorking State = "working"
	StateStopped State = "stopped"
)

// WorkerStatus is a point-in-time snapshot of one worker.
type WorkerStatus struct {
	ID           int
	State        State
	VideoCapable bool
	CurrentTask  queue.TaskType
	Processed    int
	LastActive   time.Time
}

type worker struct {
	id           int
	videoCapable bool
	pool         *Pool

	mu         sync.Mutex
	state      State
	current    queue.TaskType
	processed  int
	lastActive time.Time
}

func (w *worker) run(ctx context.Context) {
	logger := w.pool.logger.With(logging.Int(logging.FieldWorkerID, w.id))
	w.setState(StateIdle, "")

	for {
		if ctx.Err() != nil || w.pool.shuttingDown.Load() {
			w.setState(StateStopped, "")
			return
		}

		task, err := w.pool.store.ClaimNext(ctx, queue.ClaimFilter{
			Stopping:     w.pool.stopping.Load(),
			ExcludeHeavy: !w.videoCapable,
		})
		if err != nil {
			// Claim failures are indistinguishable from an empty queue for
			// scheduling purposes; back off and try again.
			logger.Warn("claim failed", logging.Error(err))
			task = nil
		}
		if task == nil {
			w.setState(StateIdle, "")
			select {
			case <-ctx.Done():
			case <-time.After(w.pool.opts.IdleInterval):
			}
			continue
		}

		w.setState(StateWorking, task.Type)
		if task.IsImport {
			w.pool.importsBusy.Add(1)
		}

		// Shutdown must never abandon a claimed task halfway; the task runs
		// on a context that survives pool cancellation.
		w.pool.executor.Run(context.WithoutCancel(ctx), task)

		if task.IsImport {
			w.pool.importsBusy.Add(-1)
		}
		w.mu.Lock()
		w.processed++
		w.mu.Unlock()
	}
}

func (w *worker) setState(state State, current queue.TaskType) {
	w.mu.Lock()
	w.state = state
	w.current = current
	w.lastActive = time.Now()
	w.mu.Unlock()
}

func (w *worker) snapshot() WorkerStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return WorkerStatus{
		ID:           w.id,
		State:        w.state,
		VideoCapable: w.videoCapable,
		CurrentTask:  w.current,
		Processed:    w.processed,
		LastActive:   w.lastActive,
	}
}
