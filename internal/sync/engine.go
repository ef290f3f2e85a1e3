package sync

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"curator/internal/logging"
	"curator/internal/provider"
	"curator/internal/queue"
)

// deletionGrace delays remove-file tasks enqueued while imports are running,
// long enough for any already-claimed import lease to lapse.
const deletionGrace = 2 * time.Minute

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".m4v":  {},
	".avi":  {},
	".mkv":  {},
	".webm": {},
}

// ImportActivity reports whether any import-chain task is currently executing.
type ImportActivity interface {
	ImportsInFlight() bool
}

// ImportActivityFunc adapts a function to the ImportActivity interface.
type ImportActivityFunc func() bool

func (f ImportActivityFunc) ImportsInFlight() bool { return f() }

// Summary describes one completed change-detection pass.
type Summary struct {
	RunID    int64
	New      int
	Changed  int
	Deleted  int
	Duration time.Duration
}

// Engine compares the provider's current listing against the local shadow
// records and enqueues whatever work closes the gap.
type Engine struct {
	store    *queue.Store
	provider provider.Client
	imports  ImportActivity
	logger   *slog.Logger
	rootPath string
}

func NewEngine(store *queue.Store, client provider.Client, imports ImportActivity, logger *slog.Logger, rootPath string) *Engine {
	return &Engine{
		store:    store,
		provider: client,
		imports:  imports,
		logger:   logging.NewComponentLogger(logger, "sync"),
		rootPath: rootPath,
	}
}

// Run performs one full change-detection pass for an owner. A pass that fails
// partway leaves no run record behind; tasks already enqueued stay enqueued,
// since every enqueue is idempotent and the next pass repeats the same work.
func (e *Engine) Run(ctx context.Context, ownerID int64) (*Summary, error) {
	runID, err := e.store.BeginSyncRun(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	started := time.Now()

	summary, err := e.pass(ctx, ownerID)
	if err != nil {
		if abortErr := e.store.AbortSyncRun(ctx, runID); abortErr != nil {
			e.logger.Warn("failed to abort sync run",
				logging.Int64("run_id", runID),
				logging.Error(abortErr))
		}
		return nil, err
	}

	summary.RunID = runID
	summary.Duration = time.Since(started)
	if err := e.store.FinalizeSyncRun(ctx, runID, summary.New, summary.Changed, summary.Deleted, summary.Duration); err != nil {
		return nil, err
	}

	e.logger.Info("sync pass complete",
		logging.Int64(logging.FieldOwnerID, ownerID),
		logging.Int("new", summary.New),
		logging.Int("changed", summary.Changed),
		logging.Int("deleted", summary.Deleted),
		logging.Duration("duration", summary.Duration))
	return summary, nil
}

func (e *Engine) pass(ctx context.Context, ownerID int64) (*Summary, error) {
	entries, err := e.listAll(ctx)
	if err != nil {
		return nil, err
	}
	known, err := e.store.RemoteFilesByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	remoteByPath := make(map[string]provider.Entry, len(entries))
	for _, entry := range entries {
		remoteByPath[entry.Path] = entry
	}
	knownByPath := make(map[string]*queue.RemoteFile, len(known))
	for _, file := range known {
		knownByPath[file.Path] = file
	}

	summary := &Summary{}

	for _, entry := range entries {
		existing, ok := knownByPath[entry.Path]
		if !ok {
			if err := e.handleNew(ctx, ownerID, entry); err != nil {
				return nil, err
			}
			summary.New++
			continue
		}
		if existing.IdentityKey() != entry.ExternalID+"|"+entry.ContentHash {
			if err := e.handleChanged(ctx, existing, entry); err != nil {
				return nil, err
			}
			summary.Changed++
		}
	}

	for _, file := range known {
		if _, ok := remoteByPath[file.Path]; ok {
			continue
		}
		if err := e.handleDeleted(ctx, file); err != nil {
			return nil, err
		}
		summary.Deleted++
	}

	return summary, nil
}

func (e *Engine) listAll(ctx context.Context) ([]provider.Entry, error) {
	var (
		entries []provider.Entry
		cursor  string
	)
	for {
		page, err := e.provider.ListFolder(ctx, e.rootPath, cursor)
		if err != nil {
			return nil, fmt.Errorf("list provider folder: %w", err)
		}
		entries = append(entries, page.Entries...)
		if !page.HasMore {
			return entries, nil
		}
		cursor = page.Cursor
	}
}

func (e *Engine) handleNew(ctx context.Context, ownerID int64, entry provider.Entry) error {
	file, err := e.store.CreateRemoteFile(ctx, ownerID, entry.Path, entry.ExternalID, entry.ContentHash)
	if err != nil {
		return err
	}
	if err := e.enqueueImportChain(ctx, file); err != nil {
		// A shadow record without its chain would make every later pass
		// treat the path as already handled. Undo the record so the next
		// pass re-detects the file as new.
		if _, cancelErr := e.store.CancelImports(ctx, file.ID); cancelErr != nil {
			e.logger.Warn("failed to cancel partial import chain",
				logging.Int64(logging.FieldEntityID, file.ID),
				logging.Error(cancelErr))
		}
		if deleteErr := e.store.DeleteRemoteFile(ctx, file.ID); deleteErr != nil {
			e.logger.Warn("failed to roll back remote file record",
				logging.Int64(logging.FieldEntityID, file.ID),
				logging.Error(deleteErr))
		}
		return err
	}
	e.logger.Info("new remote file",
		logging.String("path", entry.Path),
		logging.Int64(logging.FieldEntityID, file.ID))
	return nil
}

func (e *Engine) handleChanged(ctx context.Context, file *queue.RemoteFile, entry provider.Entry) error {
	if _, err := e.store.CancelImports(ctx, file.ID); err != nil {
		return err
	}
	if err := e.store.UpdateRemoteFileIdentity(ctx, file.ID, entry.ExternalID, entry.ContentHash); err != nil {
		return err
	}
	e.logger.Info("remote file changed",
		logging.String("path", file.Path),
		logging.Int64(logging.FieldEntityID, file.ID))
	return e.enqueueImportChain(ctx, file)
}

func (e *Engine) handleDeleted(ctx context.Context, file *queue.RemoteFile) error {
	if _, err := e.store.CancelImports(ctx, file.ID); err != nil {
		return err
	}
	if err := e.store.DeleteRemoteFile(ctx, file.ID); err != nil {
		return err
	}

	// If an import chain for this file might be mid-flight, push the removal
	// past the lease horizon so the removal never races the import.
	task := queue.NewTask{Type: queue.TypeRemoveFile, RelatedEntityID: file.ID}
	if e.imports != nil && e.imports.ImportsInFlight() {
		task.NotBefore = time.Now().UTC().Add(deletionGrace)
	}
	if _, err := e.store.Enqueue(ctx, task); err != nil {
		return err
	}
	e.logger.Info("remote file deleted",
		logging.String("path", file.Path),
		logging.Int64(logging.FieldEntityID, file.ID))
	return nil
}

// enqueueImportChain creates the dependency-linked stages that bring a file
// into the library. Videos get an extra transcode stage whose still frame then
// flows through the image stage.
func (e *Engine) enqueueImportChain(ctx context.Context, file *queue.RemoteFile) error {
	if isVideoPath(file.Path) {
		importID, err := e.store.Enqueue(ctx, queue.NewTask{Type: queue.TypeImportVideo, RelatedEntityID: file.ID})
		if err != nil {
			return err
		}
		processVideoID, err := e.store.Enqueue(ctx, queue.NewTask{Type: queue.TypeProcessVideo, RelatedEntityID: file.ID, DependsOn: &importID})
		if err != nil {
			return err
		}
		processImageID, err := e.store.Enqueue(ctx, queue.NewTask{Type: queue.TypeProcessImage, RelatedEntityID: file.ID, DependsOn: &processVideoID})
		if err != nil {
			return err
		}
		_, err = e.store.Enqueue(ctx, queue.NewTask{Type: queue.TypeRemoveArtifact, RelatedEntityID: file.ID, DependsOn: &processImageID})
		return err
	}

	importID, err := e.store.Enqueue(ctx, queue.NewTask{Type: queue.TypeImportImage, RelatedEntityID: file.ID})
	if err != nil {
		return err
	}
	processID, err := e.store.Enqueue(ctx, queue.NewTask{Type: queue.TypeProcessImage, RelatedEntityID: file.ID, DependsOn: &importID})
	if err != nil {
		return err
	}
	_, err = e.store.Enqueue(ctx, queue.NewTask{Type: queue.TypeRemoveArtifact, RelatedEntityID: file.ID, DependsOn: &processID})
	return err
}

func isVideoPath(path string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
