package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"curator/internal/config"
	"curator/internal/library"
	"curator/internal/logging"
	"curator/internal/media"
	"curator/internal/provider"
	"curator/internal/queue"
	"curator/internal/services/classify"
	"curator/internal/services/elevation"
	"curator/internal/services/geocode"
	"curator/internal/services/ocr"
	"curator/internal/services/plantid"
	"curator/internal/sync"
	"curator/internal/tasks"
	"curator/internal/workers"
)

const shutdownTimeout = 5 * time.Minute

// Daemon owns the long-running pipeline: the worker pool, the change
// detection engine, and the single-instance lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	pool   *workers.Pool
	engine *sync.Engine

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status is daemon runtime information for the CLI.
type Status struct {
	Running         bool
	Stopping        bool
	ImportsInFlight bool
	Workers         []workers.WorkerStatus
	QueueDBPath     string
	LockFilePath    string
	LatestSyncRun   *queue.SyncRun
}

// New wires the full pipeline from configuration. Enrichment clients are only
// constructed for enabled integrations; handlers skip the rest.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, and logger")
	}

	remote := provider.NewHTTPClient(cfg.Provider)

	var pool *workers.Pool
	engine := sync.NewEngine(store, remote, sync.ImportActivityFunc(func() bool {
		return pool != nil && pool.ImportsInFlight()
	}), logger, cfg.Provider.RootPath)

	env := &tasks.Environment{
		Store:        store,
		Library:      library.NewStore(store.DB()),
		Provider:     remote,
		Media:        media.NewRunner(),
		Sync:         engine,
		StagingDir:   cfg.Paths.StagingDir,
		OwnerID:      cfg.Provider.OwnerID,
		SyncInterval: time.Duration(cfg.Workers.SyncIntervalMinutes) * time.Minute,
		Logger:       logger,
	}
	if cfg.Geocode.Enabled {
		env.Geocoder = geocode.NewClient(geocode.Config{APIKey: cfg.Geocode.APIKey, BaseURL: cfg.Geocode.BaseURL}, logger)
	}
	if cfg.Elevation.Enabled {
		env.Elevation = elevation.NewClient(elevation.Config{BaseURL: cfg.Elevation.BaseURL}, logger)
	}
	if cfg.Classify.Enabled {
		env.Classifier = classify.NewClient(classify.Config{APIKey: cfg.Classify.APIKey, BaseURL: cfg.Classify.BaseURL}, logger)
	}
	if cfg.OCR.Enabled {
		env.OCR = ocr.NewClient(ocr.Config{APIKey: cfg.OCR.APIKey, BaseURL: cfg.OCR.BaseURL}, logger)
	}
	if cfg.OCR.PlateEnabled {
		env.Plate = ocr.NewPlateClient(ocr.Config{APIKey: cfg.OCR.PlateAPIKey, BaseURL: cfg.OCR.PlateBaseURL}, logger)
	}
	if cfg.PlantID.Enabled {
		env.Plants = plantid.NewClient(plantid.Config{APIKey: cfg.PlantID.APIKey, BaseURL: cfg.PlantID.BaseURL}, logger)
	}

	executor := tasks.NewExecutor(store, logger)
	tasks.RegisterDefaults(executor, env)

	pool = workers.NewPool(store, executor, logger, workers.Options{
		Count:        cfg.Workers.Count,
		VideoCapable: cfg.Workers.VideoCapable,
		IdleInterval: time.Duration(cfg.Workers.IdleIntervalSeconds) * time.Second,
	})

	lockPath := filepath.Join(cfg.Paths.LogDir, "curatord.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		pool:     pool,
		engine:   engine,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the single-instance lock, launches the worker pool, and
// seeds the periodic change-detection task.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another curator daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.pool.Start(runCtx)

	// Idempotent: a sync-check row for this owner may already exist from a
	// previous run, in which case this just makes it claimable now.
	if _, err := d.store.Enqueue(runCtx, queue.NewTask{
		Type:            queue.TypeSyncCheck,
		RelatedEntityID: d.cfg.Provider.OwnerID,
	}); err != nil {
		d.Stop()
		return fmt.Errorf("seed sync check: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("curator daemon started",
		logging.String("lock", d.lockPath),
		logging.String("db", d.store.Path()))
	return nil
}

// Stop drains in-flight work and releases the daemon lock. Tasks already
// executing run to completion; nothing new is claimed.
func (d *Daemon) Stop() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.pool.SafelyShutDown(shutdownCtx); err != nil {
		d.logger.Warn("worker pool shutdown incomplete", logging.Error(err))
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("curator daemon stopped")
}

// Close stops the daemon and closes the database.
func (d *Daemon) Close() error {
	if d.running.Load() {
		d.Stop()
	}
	return d.store.Close()
}

// SetStopping toggles stopping mode: the queue keeps draining but import
// chains stop being claimed.
func (d *Daemon) SetStopping(stopping bool) {
	d.pool.SetStopping(stopping)
}

// RunSyncNow makes the change-detection task claimable immediately.
func (d *Daemon) RunSyncNow(ctx context.Context) error {
	_, err := d.store.Enqueue(ctx, queue.NewTask{
		Type:            queue.TypeSyncCheck,
		RelatedEntityID: d.cfg.Provider.OwnerID,
	})
	return err
}

// Status reports a point-in-time snapshot for the CLI.
func (d *Daemon) Status(ctx context.Context) (Status, error) {
	latest, err := d.store.LatestSyncRun(ctx, d.cfg.Provider.OwnerID)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Running:         d.running.Load(),
		Stopping:        d.pool.IsStopping(),
		ImportsInFlight: d.pool.ImportsInFlight(),
		Workers:         d.pool.Status(),
		QueueDBPath:     d.store.Path(),
		LockFilePath:    d.lockPath,
		LatestSyncRun:   latest,
	}, nil
}

// ListQueue returns all pending tasks in claim order.
func (d *Daemon) ListQueue(ctx context.Context) ([]*queue.Task, error) {
	return d.store.ListTasks(ctx)
}
