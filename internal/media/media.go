// Package media defines the opaque media-operations collaborator the task
// executor invokes for staged files, plus an ffmpeg/ffprobe-backed runner.
package media

import (
	"context"
	"time"
)

// ImageResult carries the metadata derived from processing a staged image.
type ImageResult struct {
	Width         int
	Height        int
	Corrupt       bool
	DominantColor string
	CapturedAt    *time.Time
	Latitude      *float64
	Longitude     *float64
}

// VideoResult carries the assets derived from processing a staged video.
type VideoResult struct {
	TranscodedPath  string
	StillFramePath  string
	DurationSeconds float64
	Width           int
	Height          int
	Corrupt         bool
}

// Operations is the surface task handlers need from the media toolchain. The
// concrete work (transcode profiles, EXIF parsing) is deliberately outside
// the scheduling core; handlers only wait on these calls and persist results.
type Operations interface {
	ProcessImage(ctx context.Context, path string) (ImageResult, error)
	ProcessVideo(ctx context.Context, path, workDir string) (VideoResult, error)
}
