package queue

import (
	"database/sql"
	"errors"
	"time"
)

// timeFormat keeps trailing zeros so stored UTC timestamps compare correctly
// as strings in SQL predicates and ORDER BY clauses.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(timeFormat, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

const taskColumns = "id, task_type, related_entity_id, not_before, depends_on_task_id, is_import, priority, times_seen, created_at"

func scanTask(scanner interface{ Scan(dest ...any) error }) (*Task, error) {
	var (
		id           int64
		taskType     string
		entityID     int64
		notBeforeRaw string
		dependsOn    sql.NullInt64
		isImport     int64
		priority     int64
		timesSeen    int64
		createdRaw   string
	)

	if err := scanner.Scan(
		&id,
		&taskType,
		&entityID,
		&notBeforeRaw,
		&dependsOn,
		&isImport,
		&priority,
		&timesSeen,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	task := &Task{
		ID:              id,
		Type:            TaskType(taskType),
		RelatedEntityID: entityID,
		IsImport:        isImport != 0,
		Priority:        int(priority),
		TimesSeen:       int(timesSeen),
	}
	if dependsOn.Valid {
		v := dependsOn.Int64
		task.DependsOnTaskID = &v
	}
	if notBefore, err := parseTimeString(notBeforeRaw); err == nil {
		task.NotBefore = notBefore
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		task.CreatedAt = created
	}
	return task, nil
}

const remoteFileColumns = "id, owner_id, path, external_id, content_hash, created_at, updated_at"

func scanRemoteFile(scanner interface{ Scan(dest ...any) error }) (*RemoteFile, error) {
	var (
		file       RemoteFile
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&file.ID,
		&file.OwnerID,
		&file.Path,
		&file.ExternalID,
		&file.ContentHash,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		file.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		file.UpdatedAt = updated
	}
	return &file, nil
}

func nullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
