package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateRemoteFile inserts a shadow record for a newly discovered provider file.
func (s *Store) CreateRemoteFile(ctx context.Context, ownerID int64, path, externalID, contentHash string) (*RemoteFile, error) {
	if path == "" {
		return nil, errors.New("remote file path required")
	}
	now := time.Now().UTC()

	ctx = ensureContext(ctx)
	var id int64
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(
			ctx,
			`INSERT INTO remote_files (owner_id, path, external_id, content_hash, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?)
             RETURNING id`,
			ownerID,
			path,
			externalID,
			contentHash,
			formatTime(now),
			formatTime(now),
		)
		return row.Scan(&id)
	})
	if err != nil {
		return nil, fmt.Errorf("create remote file: %w", err)
	}
	return s.RemoteFileByID(ctx, id)
}

// RemoteFileByID fetches a shadow record by identifier.
func (s *Store) RemoteFileByID(ctx context.Context, id int64) (*RemoteFile, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+remoteFileColumns+` FROM remote_files WHERE id = ?`,
		id,
	)
	file, err := scanRemoteFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get remote file: %w", err)
	}
	return file, nil
}

// RemoteFilesByOwner returns every shadow record for an owner, keyed later by
// path during change detection.
func (s *Store) RemoteFilesByOwner(ctx context.Context, ownerID int64) ([]*RemoteFile, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+remoteFileColumns+` FROM remote_files WHERE owner_id = ? ORDER BY path`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list remote files: %w", err)
	}
	defer rows.Close()

	var files []*RemoteFile
	for rows.Next() {
		file, err := scanRemoteFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// UpdateRemoteFileIdentity rewrites the identity fields after the provider
// reports new content at an existing path.
func (s *Store) UpdateRemoteFileIdentity(ctx context.Context, id int64, externalID, contentHash string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE remote_files SET external_id = ?, content_hash = ?, updated_at = ? WHERE id = ?`,
		externalID,
		contentHash,
		formatTime(time.Now().UTC()),
		id,
	); err != nil {
		return fmt.Errorf("update remote file %d: %w", id, err)
	}
	return nil
}

// DeleteRemoteFile drops the shadow record for a path the provider no longer reports.
func (s *Store) DeleteRemoteFile(ctx context.Context, id int64) error {
	if err := s.execWithoutResultRetry(ctx, `DELETE FROM remote_files WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete remote file %d: %w", id, err)
	}
	return nil
}
