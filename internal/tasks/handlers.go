package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"curator/internal/library"
	"curator/internal/media"
	"curator/internal/provider"
	"curator/internal/queue"
	"curator/internal/services/classify"
	"curator/internal/services/elevation"
	"curator/internal/services/geocode"
	"curator/internal/services/ocr"
	"curator/internal/services/plantid"
	"curator/internal/sync"
)

// Environment bundles the collaborators task handlers need. Enrichment
// clients are nil when their integration is disabled; handlers treat a nil
// client as "nothing to do".
type Environment struct {
	Store    *queue.Store
	Library  *library.Store
	Provider provider.Client
	Media    media.Operations
	Sync     *sync.Engine

	Geocoder   *geocode.Client
	Elevation  *elevation.Client
	Classifier *classify.Client
	OCR        *ocr.Client
	Plate      *ocr.PlateClient
	Plants     *plantid.Client

	StagingDir   string
	OwnerID      int64
	SyncInterval time.Duration
	Logger       *slog.Logger
}

// RegisterDefaults binds every known task type to its handler.
func RegisterDefaults(e *Executor, env *Environment) {
	e.Register(queue.TypeSyncCheck, HandlerFunc(env.syncCheck))
	e.Register(queue.TypeImportImage, HandlerFunc(env.importFile))
	e.Register(queue.TypeImportVideo, HandlerFunc(env.importFile))
	e.Register(queue.TypeProcessImage, HandlerFunc(env.processImage))
	e.Register(queue.TypeProcessVideo, HandlerFunc(env.processVideo))
	e.Register(queue.TypeRemoveArtifact, HandlerFunc(env.removeArtifacts))
	e.Register(queue.TypeRemoveFile, HandlerFunc(env.removeFile))
	e.Register(queue.TypeAddressLookup, HandlerFunc(env.addressLookup))
	e.Register(queue.TypeElevation, HandlerFunc(env.elevationLookup))
	e.Register(queue.TypeSubjects, HandlerFunc(env.subjectDetection))
	e.Register(queue.TypeOCRGeneric, HandlerFunc(env.recognizeText))
	e.Register(queue.TypeOCRPlate, HandlerFunc(env.recognizePlate))
	e.Register(queue.TypePlantLookup, HandlerFunc(env.identifyPlants))
}

// stagingPathFor names the downloaded original: "<entity id><remote ext>".
// Processing outputs add their own distinguishing suffixes before the
// extension, so "<id>.*" globs the whole family.
func (env *Environment) stagingPathFor(entityID int64, remotePath string) string {
	return filepath.Join(env.StagingDir, fmt.Sprintf("%d%s", entityID, filepath.Ext(remotePath)))
}

// stillFramePathFor names the frame the transcode stage extracts from a video.
func (env *Environment) stillFramePathFor(entityID int64) string {
	return filepath.Join(env.StagingDir, fmt.Sprintf("%d.still.jpg", entityID))
}

// syncCheck runs one change-detection pass and re-arms itself so the mirror
// stays fresh without an external timer.
func (env *Environment) syncCheck(ctx context.Context, task *queue.Task) Outcome {
	if _, err := env.Sync.Run(ctx, task.RelatedEntityID); err != nil {
		return FailedTransient(err, 0)
	}
	return SucceededRearm(env.SyncInterval)
}

// importFile downloads the original bytes into staging and creates the
// catalog row. Serves both image and video imports; the chains differ only in
// the stages that follow.
func (env *Environment) importFile(ctx context.Context, task *queue.Task) Outcome {
	file, err := env.Store.RemoteFileByID(ctx, task.RelatedEntityID)
	if err != nil {
		return FailedTransient(err, 0)
	}
	if file == nil {
		// Deleted between enqueue and claim; nothing to import.
		return Succeeded()
	}

	dest := env.stagingPathFor(file.ID, file.Path)
	out, err := os.Create(dest)
	if err != nil {
		return FailedTransient(fmt.Errorf("create staging file: %w", err), 0)
	}
	if err := env.Provider.Download(ctx, file.ExternalID, out); err != nil {
		out.Close()
		os.Remove(dest)
		return FailedTransient(fmt.Errorf("download %s: %w", file.Path, err), 0)
	}
	if err := out.Close(); err != nil {
		return FailedTransient(fmt.Errorf("close staging file: %w", err), 0)
	}

	if _, err := env.Library.Create(ctx, file.ID, file.Path); err != nil {
		return FailedTransient(err, 0)
	}
	if err := env.Library.SetStagingPath(ctx, file.ID, dest); err != nil {
		return FailedTransient(err, 0)
	}
	return Succeeded()
}

// processImage inspects the staged image (or a video's still frame), records
// its details, and fans out enrichment tasks.
func (env *Environment) processImage(ctx context.Context, task *queue.Task) Outcome {
	record, outcome := env.mediaRecord(ctx, task.RelatedEntityID)
	if record == nil {
		return outcome
	}
	if record.Corrupt {
		return Succeeded()
	}

	path := record.StagingPath
	if isVideoStaging(path) {
		path = env.stillFramePathFor(task.RelatedEntityID)
	}

	result, err := env.Media.ProcessImage(ctx, path)
	if err != nil {
		return FailedTransient(err, 0)
	}
	if result.Corrupt {
		if err := env.Library.SetCorrupt(ctx, task.RelatedEntityID); err != nil {
			return FailedTransient(err, 0)
		}
		return Succeeded()
	}

	if err := env.Library.SetImageDetails(ctx, task.RelatedEntityID,
		result.Width, result.Height, false, result.DominantColor,
		result.CapturedAt, result.Latitude, result.Longitude); err != nil {
		return FailedTransient(err, 0)
	}

	if err := env.enqueueEnrichment(ctx, task.RelatedEntityID, result); err != nil {
		return FailedTransient(err, 0)
	}
	return Succeeded()
}

// enqueueEnrichment schedules every enabled lookup that applies to the file.
// Location lookups need coordinates; the rest apply to any readable image.
func (env *Environment) enqueueEnrichment(ctx context.Context, entityID int64, result media.ImageResult) error {
	var types []queue.TaskType
	if result.Latitude != nil && result.Longitude != nil {
		if env.Geocoder != nil {
			types = append(types, queue.TypeAddressLookup)
		}
		if env.Elevation != nil {
			types = append(types, queue.TypeElevation)
		}
	}
	if env.Classifier != nil {
		types = append(types, queue.TypeSubjects)
	}
	if env.OCR != nil {
		types = append(types, queue.TypeOCRGeneric)
	}
	if env.Plate != nil {
		types = append(types, queue.TypeOCRPlate)
	}
	if env.Plants != nil {
		types = append(types, queue.TypePlantLookup)
	}

	for _, taskType := range types {
		if _, err := env.Store.Enqueue(ctx, queue.NewTask{Type: taskType, RelatedEntityID: entityID}); err != nil {
			return err
		}
	}
	return nil
}

// processVideo transcodes the staged original and extracts a still frame for
// the image stage that depends on this task.
func (env *Environment) processVideo(ctx context.Context, task *queue.Task) Outcome {
	record, outcome := env.mediaRecord(ctx, task.RelatedEntityID)
	if record == nil {
		return outcome
	}

	result, err := env.Media.ProcessVideo(ctx, record.StagingPath, env.StagingDir)
	if err != nil {
		return FailedTransient(err, 0)
	}
	if result.Corrupt {
		if err := env.Library.SetCorrupt(ctx, task.RelatedEntityID); err != nil {
			return FailedTransient(err, 0)
		}
		return Succeeded()
	}

	if err := env.Library.SetStagingPath(ctx, task.RelatedEntityID, result.TranscodedPath); err != nil {
		return FailedTransient(err, 0)
	}
	return Succeeded()
}

// removeArtifacts deletes the intermediate files a chain left in staging:
// everything in the entity's file family except the current staging path and
// the still frame. The still frame is a delivery asset, not an artifact: the
// enrichment lookups fanned out by the image stage read it, and only the
// remove-file task may erase it.
func (env *Environment) removeArtifacts(ctx context.Context, task *queue.Task) Outcome {
	record, outcome := env.mediaRecord(ctx, task.RelatedEntityID)
	if record == nil {
		return outcome
	}

	matches, err := filepath.Glob(filepath.Join(env.StagingDir, fmt.Sprintf("%d.*", task.RelatedEntityID)))
	if err != nil {
		return FailedTransient(err, 0)
	}
	still := env.stillFramePathFor(task.RelatedEntityID)
	for _, match := range matches {
		if match == record.StagingPath || match == still {
			continue
		}
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return FailedTransient(fmt.Errorf("remove artifact %s: %w", match, err), 0)
		}
	}
	return Succeeded()
}

// removeFile erases all local traces of a file the provider deleted: the
// catalog row, its tags, and every staged file in its family.
func (env *Environment) removeFile(ctx context.Context, task *queue.Task) Outcome {
	if err := env.Library.Delete(ctx, task.RelatedEntityID); err != nil {
		return FailedTransient(err, 0)
	}
	matches, err := filepath.Glob(filepath.Join(env.StagingDir, fmt.Sprintf("%d.*", task.RelatedEntityID)))
	if err != nil {
		return FailedTransient(err, 0)
	}
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return FailedTransient(fmt.Errorf("remove staged file %s: %w", match, err), 0)
		}
	}
	return Succeeded()
}

// mediaRecord loads the catalog row backing a task. A nil record with a
// success outcome means the file disappeared and the task should settle as a
// no-op.
func (env *Environment) mediaRecord(ctx context.Context, entityID int64) (*library.MediaFile, Outcome) {
	record, err := env.Library.ByRemoteFileID(ctx, entityID)
	if err != nil {
		return nil, FailedTransient(err, 0)
	}
	if record == nil {
		return nil, Succeeded()
	}
	return record, Outcome{}
}

func isVideoStaging(path string) bool {
	switch filepath.Ext(path) {
	case ".mp4", ".mov", ".m4v", ".avi", ".mkv", ".webm":
		return true
	}
	return false
}
