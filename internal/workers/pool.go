package workers

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"curator/internal/logging"
	"curator/internal/queue"
	"curator/internal/tasks"
)

const (
	defaultIdleInterval = time.Second
	shutdownPoll        = 100 * time.Millisecond
)

// Options sizes and paces a pool.
type Options struct {
	// Count is the number of workers. At least one.
	Count int
	// VideoCapable is how many workers may claim transcode tasks.
	VideoCapable int
	// IdleInterval is how long a worker sleeps after finding no work.
	IdleInterval time.Duration
}

// Pool runs a fixed set of workers that claim and execute queue tasks until
// shut down. Claiming is the only coordination between workers; the queue's
// atomic claim guarantees no task runs twice.
type Pool struct {
	store    *queue.Store
	executor *tasks.Executor
	logger   *slog.Logger
	opts     Options

	stopping     atomic.Bool
	shuttingDown atomic.Bool
	importsBusy  atomic.Int64

	mu      sync.Mutex
	workers []*worker
	cancel  context.CancelFunc
}

func NewPool(store *queue.Store, executor *tasks.Executor, logger *slog.Logger, opts Options) *Pool {
	if opts.Count < 1 {
		opts.Count = 1
	}
	if opts.VideoCapable > opts.Count {
		opts.VideoCapable = opts.Count
	}
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = defaultIdleInterval
	}
	return &Pool{
		store:    store,
		executor: executor,
		logger:   logging.NewComponentLogger(logger, "workers"),
		opts:     opts,
	}
}

// Start launches the workers. The first VideoCapable workers may claim
// transcode tasks; the rest filter them out of their claims.
func (p *Pool) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	p.cancel = cancel
	p.workers = make([]*worker, p.opts.Count)
	for i := 0; i < p.opts.Count; i++ {
		w := &worker{
			id:           i + 1,
			videoCapable: i < p.opts.VideoCapable,
			pool:         p,
		}
		p.workers[i] = w
		go w.run(runCtx)
	}
	p.mu.Unlock()

	p.logger.Info("worker pool started",
		logging.Int("count", p.opts.Count),
		logging.Int("video_capable", p.opts.VideoCapable))
}

// SetStopping toggles stopping mode: workers keep draining the queue but stop
// claiming import-chain tasks, so no new file enters the pipeline.
func (p *Pool) SetStopping(stopping bool) {
	p.stopping.Store(stopping)
	p.logger.Info("stopping mode changed", logging.Bool("stopping", stopping))
}

// IsStopping reports whether stopping mode is active.
func (p *Pool) IsStopping() bool {
	return p.stopping.Load()
}

// ImportsInFlight reports whether any worker is executing an import-chain
// task right now.
func (p *Pool) ImportsInFlight() bool {
	return p.importsBusy.Load() > 0
}

// SafelyShutDown stops claiming immediately and waits for every in-flight
// task to finish. Tasks already executing always run to completion; only the
// wait is bounded by ctx.
func (p *Pool) SafelyShutDown(ctx context.Context) error {
	p.shuttingDown.Store(true)
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	workers := p.workers
	p.mu.Unlock()

	ticker := time.NewTicker(shutdownPoll)
	defer ticker.Stop()
	for {
		stopped := 0
		for _, w := range workers {
			if w.snapshot().State == StateStopped {
				stopped++
			}
		}
		if stopped == len(workers) {
			p.logger.Info("worker pool stopped")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Status returns a point-in-time snapshot of every worker.
func (p *Pool) Status() []WorkerStatus {
	p.mu.Lock()
	workers := p.workers
	p.mu.Unlock()

	statuses := make([]WorkerStatus, 0, len(workers))
	for _, w := range workers {
		statuses = append(statuses, w.snapshot())
	}
	return statuses
}
