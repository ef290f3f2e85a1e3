package queue

import (
	"strings"
	"time"
)

// TaskType identifies the unit of work a task row represents.
type TaskType string

const (
	TypeSyncCheck      TaskType = "sync-check"
	TypeImportImage    TaskType = "file-import-image"
	TypeImportVideo    TaskType = "file-import-video"
	TypeProcessImage   TaskType = "process-image"
	TypeProcessVideo   TaskType = "process-video"
	TypeRemoveArtifact TaskType = "remove-processing-artifact"
	TypeAddressLookup  TaskType = "address-lookup"
	TypeElevation      TaskType = "elevation-lookup"
	TypePlantLookup    TaskType = "plant-lookup"
	TypeOCRGeneric     TaskType = "ocr-generic"
	TypeOCRPlate       TaskType = "ocr-plate"
	TypeSubjects       TaskType = "subject-detection"
	TypeRemoveFile     TaskType = "remove-file"
)

// LeaseDuration is how long a claimed task stays ineligible for re-claim.
// A worker that crashes mid-task simply lets the lease lapse; the task then
// becomes claimable again.
const LeaseDuration = 2 * time.Minute

var allTypes = []TaskType{
	TypeSyncCheck,
	TypeImportImage,
	TypeImportVideo,
	TypeProcessImage,
	TypeProcessVideo,
	TypeRemoveArtifact,
	TypeAddressLookup,
	TypeElevation,
	TypePlantLookup,
	TypeOCRGeneric,
	TypeOCRPlate,
	TypeSubjects,
	TypeRemoveFile,
}

var typeSet = func() map[TaskType]struct{} {
	set := make(map[TaskType]struct{}, len(allTypes))
	for _, t := range allTypes {
		set[t] = struct{}{}
	}
	return set
}()

// importTypes are the stages of an import chain: they bring a newly
// discovered file into the system and are cut off first in stopping mode.
var importTypes = map[TaskType]struct{}{
	TypeImportImage:    {},
	TypeImportVideo:    {},
	TypeProcessImage:   {},
	TypeProcessVideo:   {},
	TypeRemoveArtifact: {},
}

// heavyTypes need a video-capable worker; transcoding holds large transient
// buffers that most workers must not compete for.
var heavyTypes = map[TaskType]struct{}{
	TypeProcessVideo: {},
}

// AllTypes returns the ordered list of known task types.
func AllTypes() []TaskType {
	cp := make([]TaskType, len(allTypes))
	copy(cp, allTypes)
	return cp
}

// ParseTaskType converts a string into a known TaskType.
func ParseTaskType(value string) (TaskType, bool) {
	normalized := TaskType(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := typeSet[normalized]
	return normalized, ok
}

// IsImportType reports whether a task type belongs to an import chain.
func IsImportType(t TaskType) bool {
	_, ok := importTypes[t]
	return ok
}

// IsHeavyType reports whether a task type may only run on video-capable workers.
func IsHeavyType(t TaskType) bool {
	_, ok := heavyTypes[t]
	return ok
}

// HeavyTypes returns the task types restricted to video-capable workers.
func HeavyTypes() []TaskType {
	out := make([]TaskType, 0, len(heavyTypes))
	for t := range heavyTypes {
		out = append(out, t)
	}
	return out
}

// PriorityFor returns the default priority for a task type. Higher is more
// urgent. Removals outrank imports so a deleted file never keeps processing;
// enrichment lookups run when nothing else is waiting.
func PriorityFor(t TaskType) int {
	switch t {
	case TypeRemoveFile:
		return 9
	case TypeImportImage, TypeImportVideo:
		return 8
	case TypeProcessImage, TypeProcessVideo:
		return 7
	case TypeRemoveArtifact:
		return 6
	case TypeSyncCheck:
		return 5
	default:
		return 2
	}
}

// Task is a durable unit of scheduled work.
type Task struct {
	ID              int64
	Type            TaskType
	RelatedEntityID int64
	NotBefore       time.Time
	DependsOnTaskID *int64
	IsImport        bool
	Priority        int
	TimesSeen       int
	CreatedAt       time.Time
}

// NewTask carries the fields callers supply when enqueueing. Zero NotBefore
// means "claimable immediately"; zero Priority means PriorityFor(Type).
type NewTask struct {
	Type            TaskType
	RelatedEntityID int64
	NotBefore       time.Time
	DependsOn       *int64
	Priority        int
}

// ClaimFilter narrows which tasks a claim attempt may select.
type ClaimFilter struct {
	// Stopping excludes import-chain tasks so in-flight chains can drain
	// while no new import work starts.
	Stopping bool
	// ExcludeHeavy excludes task types reserved for video-capable workers.
	ExcludeHeavy bool
}

// TaskLogEntry is an immutable record of one completed task attempt.
type TaskLogEntry struct {
	ID         int64
	Type       TaskType
	DurationMS int64
	Success    bool
	CreatedAt  time.Time
}

// RemoteFile is the local shadow of a provider file, maintained exclusively
// by the change-detection engine and read by task handlers.
type RemoteFile struct {
	ID          int64
	OwnerID     int64
	Path        string
	ExternalID  string
	ContentHash string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IdentityKey is the composite identity used by change detection to spot
// files whose content changed in place.
func (f RemoteFile) IdentityKey() string {
	return f.ExternalID + "|" + f.ContentHash
}

// SyncRun records one change-detection pass, purely for observability.
type SyncRun struct {
	ID           int64
	OwnerID      int64
	NewCount     int
	ChangedCount int
	DeletedCount int
	DurationMS   int64
	StartedAt    time.Time
	FinishedAt   *time.Time
}
