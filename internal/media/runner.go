package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Runner implements Operations by shelling out to ffprobe and ffmpeg.
type Runner struct {
	FFprobeBinary string
	FFmpegBinary  string
}

// NewRunner returns a runner using the binaries on PATH.
func NewRunner() *Runner {
	return &Runner{FFprobeBinary: "ffprobe", FFmpegBinary: "ffmpeg"}
}

type probeResult struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Tags      struct {
			CreationTime string `json:"creation_time"`
			Location     string `json:"location"`
		} `json:"tags"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		Tags     struct {
			CreationTime string `json:"creation_time"`
			Location     string `json:"location"`
		} `json:"tags"`
	} `json:"format"`
}

func (r *Runner) probe(ctx context.Context, path string) (probeResult, error) {
	binary := strings.TrimSpace(r.FFprobeBinary)
	if binary == "" {
		binary = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return probeResult{}, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(string(output)))
	}
	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return probeResult{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// ProcessImage probes a staged image for dimensions, capture time, and GPS
// coordinates. A file ffprobe cannot read at all is reported as corrupt, not
// as an error, so the pipeline records it and moves on.
func (r *Runner) ProcessImage(ctx context.Context, path string) (ImageResult, error) {
	if strings.TrimSpace(path) == "" {
		return ImageResult{}, errors.New("process image: empty path")
	}

	probed, err := r.probe(ctx, path)
	if err != nil {
		return ImageResult{Corrupt: true}, nil
	}

	result := ImageResult{}
	for _, stream := range probed.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			result.Width = stream.Width
			result.Height = stream.Height
			break
		}
	}
	if result.Width == 0 || result.Height == 0 {
		result.Corrupt = true
		return result, nil
	}

	if captured := parseCreationTime(probed.Format.Tags.CreationTime); captured != nil {
		result.CapturedAt = captured
	}
	if lat, lon, ok := parseISO6709(probed.Format.Tags.Location); ok {
		result.Latitude = &lat
		result.Longitude = &lon
	}
	// Best effort; a file that probes fine but won't decode just goes
	// without a color.
	result.DominantColor = r.dominantColor(ctx, path)
	return result, nil
}

// dominantColor averages the image down to a single pixel and returns it as a
// CSS hex color, or "" when decoding fails.
func (r *Runner) dominantColor(ctx context.Context, path string) string {
	binary := strings.TrimSpace(r.FFmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-i", path,
		"-vf", "scale=1:1", "-frames:v", "1", "-f", "rawvideo", "-pix_fmt", "rgb24", "-")
	output, err := cmd.Output()
	if err != nil || len(output) < 3 {
		return ""
	}
	return hexColor(output[0], output[1], output[2])
}

func hexColor(r, g, b byte) string {
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// ProcessVideo transcodes a staged video into the shared delivery profile and
// extracts a still frame for the image enrichment pass.
func (r *Runner) ProcessVideo(ctx context.Context, path, workDir string) (VideoResult, error) {
	if strings.TrimSpace(path) == "" {
		return VideoResult{}, errors.New("process video: empty path")
	}

	probed, err := r.probe(ctx, path)
	if err != nil {
		return VideoResult{Corrupt: true}, nil
	}

	result := VideoResult{}
	for _, stream := range probed.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			result.Width = stream.Width
			result.Height = stream.Height
			break
		}
	}
	if duration, err := strconv.ParseFloat(probed.Format.Duration, 64); err == nil {
		result.DurationSeconds = duration
	}
	if result.Width == 0 || result.Height == 0 {
		result.Corrupt = true
		return result, nil
	}

	// Suffixed names keep outputs distinct from the source even when the
	// source is already an mp4 in the same directory.
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	result.TranscodedPath = filepath.Join(workDir, base+".web.mp4")
	result.StillFramePath = filepath.Join(workDir, base+".still.jpg")

	binary := strings.TrimSpace(r.FFmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}

	transcode := exec.CommandContext(ctx, binary, "-y", "-v", "error", "-i", path,
		"-c:v", "libx264", "-preset", "fast", "-crf", "23", "-c:a", "aac",
		result.TranscodedPath)
	if output, err := transcode.CombinedOutput(); err != nil {
		return VideoResult{}, fmt.Errorf("ffmpeg transcode: %w: %s", err, strings.TrimSpace(string(output)))
	}

	still := exec.CommandContext(ctx, binary, "-y", "-v", "error", "-i", path,
		"-vf", "thumbnail", "-frames:v", "1", result.StillFramePath)
	if output, err := still.CombinedOutput(); err != nil {
		return VideoResult{}, fmt.Errorf("ffmpeg still frame: %w: %s", err, strings.TrimSpace(string(output)))
	}

	return result, nil
}

func parseCreationTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.000000Z"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// parseISO6709 decodes coordinate strings like "+37.7749-122.4194/" found in
// container location tags.
func parseISO6709(value string) (float64, float64, bool) {
	value = strings.TrimSuffix(strings.TrimSpace(value), "/")
	if value == "" {
		return 0, 0, false
	}
	split := -1
	for i := 1; i < len(value); i++ {
		if value[i] == '+' || value[i] == '-' {
			split = i
		}
	}
	if split <= 0 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(value[:split], 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(value[split:], 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
