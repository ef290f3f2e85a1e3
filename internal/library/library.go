// Package library maintains the processed-media catalog: one row per mirrored
// remote file, enriched in place as pipeline tasks complete.
package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// MediaFile is one catalog entry, keyed by the remote file it mirrors.
type MediaFile struct {
	ID             int64
	RemoteFileID   int64
	DisplayName    string
	StagingPath    string
	Width          int
	Height         int
	Corrupt        bool
	DominantColor  string
	CapturedAt     *time.Time
	Latitude       *float64
	Longitude      *float64
	Address        string
	Elevation      *float64
	RecognizedText string
	PlateText      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasLocation reports whether the file carries usable GPS coordinates.
func (m *MediaFile) HasLocation() bool {
	return m.Latitude != nil && m.Longitude != nil
}

// Tag is a classification label attached to a media file.
type Tag struct {
	ID          int64
	MediaFileID int64
	Label       string
	Confidence  float64
	Source      string
}

// Store reads and writes catalog rows. It shares the queue database so task
// state and catalog state commit through the same file.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DisplayNameFor derives a human-readable name from a remote path, so
// "vacation/beach_day-01.jpg" becomes "Beach Day 01".
func DisplayNameFor(remotePath string) string {
	base := filepath.Base(remotePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return ""
	}
	return cases.Title(language.English, cases.NoLower).String(base)
}

// Create inserts a catalog row for a remote file, or returns the existing row
// if one is already present.
func (s *Store) Create(ctx context.Context, remoteFileID int64, remotePath string) (*MediaFile, error) {
	now := time.Now().UTC().Format(timeFormat)
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO media_files (remote_file_id, display_name, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (remote_file_id) DO NOTHING`,
		remoteFileID, DisplayNameFor(remotePath), now, now)
	if err != nil {
		return nil, fmt.Errorf("create media file: %w", err)
	}
	return s.ByRemoteFileID(ctx, remoteFileID)
}

const mediaColumns = `id, remote_file_id, display_name, staging_path, width, height, corrupt,
    dominant_color, captured_at, latitude, longitude, address, elevation,
    recognized_text, plate_text, created_at, updated_at`

// ByRemoteFileID fetches the catalog row for a remote file, or nil when the
// file has not been imported yet.
func (s *Store) ByRemoteFileID(ctx context.Context, remoteFileID int64) (*MediaFile, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+mediaColumns+" FROM media_files WHERE remote_file_id = ?", remoteFileID)
	file, err := scanMediaFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("media file by remote id %d: %w", remoteFileID, err)
	}
	return file, nil
}

// ByID fetches a catalog row by its own identifier.
func (s *Store) ByID(ctx context.Context, id int64) (*MediaFile, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+mediaColumns+" FROM media_files WHERE id = ?", id)
	file, err := scanMediaFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("media file %d: %w", id, err)
	}
	return file, nil
}

// SetStagingPath records where the downloaded bytes live on disk.
func (s *Store) SetStagingPath(ctx context.Context, remoteFileID int64, path string) error {
	return s.update(ctx, remoteFileID, "staging_path = ?", path)
}

// SetImageDetails stores the inspection result for an image or still frame.
func (s *Store) SetImageDetails(ctx context.Context, remoteFileID int64, width, height int, corrupt bool, dominantColor string, capturedAt *time.Time, lat, lon *float64) error {
	var captured any
	if capturedAt != nil {
		captured = capturedAt.UTC().Format(timeFormat)
	}
	now := time.Now().UTC().Format(timeFormat)
	_, err := s.db.ExecContext(ctx, `
        UPDATE media_files
        SET width = ?, height = ?, corrupt = ?, dominant_color = ?,
            captured_at = ?, latitude = ?, longitude = ?, updated_at = ?
        WHERE remote_file_id = ?`,
		width, height, boolToInt(corrupt), nullableString(dominantColor),
		captured, nullableFloat(lat), nullableFloat(lon), now, remoteFileID)
	if err != nil {
		return fmt.Errorf("set image details for remote file %d: %w", remoteFileID, err)
	}
	return nil
}

// SetCorrupt flags a file the inspectors could not read.
func (s *Store) SetCorrupt(ctx context.Context, remoteFileID int64) error {
	return s.update(ctx, remoteFileID, "corrupt = 1")
}

// SetAddress stores a reverse-geocoded address.
func (s *Store) SetAddress(ctx context.Context, remoteFileID int64, address string) error {
	return s.update(ctx, remoteFileID, "address = ?", address)
}

// SetElevation stores an elevation lookup result in meters.
func (s *Store) SetElevation(ctx context.Context, remoteFileID int64, meters float64) error {
	return s.update(ctx, remoteFileID, "elevation = ?", meters)
}

// SetRecognizedText stores general OCR output.
func (s *Store) SetRecognizedText(ctx context.Context, remoteFileID int64, text string) error {
	return s.update(ctx, remoteFileID, "recognized_text = ?", text)
}

// SetPlateText stores a license-plate reading.
func (s *Store) SetPlateText(ctx context.Context, remoteFileID int64, plate string) error {
	return s.update(ctx, remoteFileID, "plate_text = ?", plate)
}

func (s *Store) update(ctx context.Context, remoteFileID int64, assignment string, args ...any) error {
	now := time.Now().UTC().Format(timeFormat)
	args = append(args, now, remoteFileID)
	_, err := s.db.ExecContext(ctx,
		"UPDATE media_files SET "+assignment+", updated_at = ? WHERE remote_file_id = ?", args...)
	if err != nil {
		return fmt.Errorf("update media file for remote file %d: %w", remoteFileID, err)
	}
	return nil
}

// Delete removes the catalog row and its tags for a remote file.
func (s *Store) Delete(ctx context.Context, remoteFileID int64) error {
	file, err := s.ByRemoteFileID(ctx, remoteFileID)
	if err != nil {
		return err
	}
	if file == nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM media_tags WHERE media_file_id = ?", file.ID); err != nil {
		return fmt.Errorf("delete tags for media file %d: %w", file.ID, err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM media_files WHERE id = ?", file.ID); err != nil {
		return fmt.Errorf("delete media file %d: %w", file.ID, err)
	}
	return nil
}

// ReplaceTags swaps the tags from one source for a fresh set, keeping tags
// written by other sources untouched.
func (s *Store) ReplaceTags(ctx context.Context, mediaFileID int64, source string, tags []Tag) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM media_tags WHERE media_file_id = ? AND source = ?", mediaFileID, source); err != nil {
		return fmt.Errorf("clear %s tags for media file %d: %w", source, mediaFileID, err)
	}
	for _, tag := range tags {
		if strings.TrimSpace(tag.Label) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `
            INSERT INTO media_tags (media_file_id, label, confidence, source)
            VALUES (?, ?, ?, ?)
            ON CONFLICT (media_file_id, label, source) DO UPDATE SET confidence = excluded.confidence`,
			mediaFileID, tag.Label, tag.Confidence, source); err != nil {
			return fmt.Errorf("insert tag %q for media file %d: %w", tag.Label, mediaFileID, err)
		}
	}
	return nil
}

// Tags returns all tags for a media file ordered by confidence.
func (s *Store) Tags(ctx context.Context, mediaFileID int64) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, media_file_id, label, confidence, source
        FROM media_tags WHERE media_file_id = ?
        ORDER BY confidence DESC, label ASC`, mediaFileID)
	if err != nil {
		return nil, fmt.Errorf("tags for media file %d: %w", mediaFileID, err)
	}
	defer rows.Close()

	var tags []Tag
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.MediaFileID, &tag.Label, &tag.Confidence, &tag.Source); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func scanMediaFile(scanner interface{ Scan(dest ...any) error }) (*MediaFile, error) {
	var (
		file        MediaFile
		staging     sql.NullString
		corrupt     int64
		dominant    sql.NullString
		capturedRaw sql.NullString
		lat         sql.NullFloat64
		lon         sql.NullFloat64
		address     sql.NullString
		elevation   sql.NullFloat64
		ocrText     sql.NullString
		plate       sql.NullString
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&file.ID,
		&file.RemoteFileID,
		&file.DisplayName,
		&staging,
		&file.Width,
		&file.Height,
		&corrupt,
		&dominant,
		&capturedRaw,
		&lat,
		&lon,
		&address,
		&elevation,
		&ocrText,
		&plate,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	file.StagingPath = staging.String
	file.Corrupt = corrupt != 0
	file.DominantColor = dominant.String
	file.Address = address.String
	file.RecognizedText = ocrText.String
	file.PlateText = plate.String
	if capturedRaw.Valid {
		if captured, err := parseTimeString(capturedRaw.String); err == nil {
			file.CapturedAt = &captured
		}
	}
	if lat.Valid {
		v := lat.Float64
		file.Latitude = &v
	}
	if lon.Valid {
		v := lon.Float64
		file.Longitude = &v
	}
	if elevation.Valid {
		v := elevation.Float64
		file.Elevation = &v
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		file.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		file.UpdatedAt = updated
	}
	return &file, nil
}

func parseTimeString(value string) (time.Time, error) {
	if t, err := time.Parse(timeFormat, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}
