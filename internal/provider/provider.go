// Package provider abstracts the remote storage account curator mirrors.
package provider

import (
	"context"
	"io"
)

// Entry is one file the provider reports under the watched root.
type Entry struct {
	Path        string
	ExternalID  string
	ContentHash string
}

// Page is one slice of a folder listing; follow Cursor while HasMore.
type Page struct {
	Entries []Entry
	Cursor  string
	HasMore bool
}

// Client is the surface the change-detection engine and import handlers need
// from a storage provider.
type Client interface {
	// ListFolder returns one page of the recursive listing under rootPath.
	// Pass an empty cursor for the first page, then the returned cursor.
	ListFolder(ctx context.Context, rootPath, cursor string) (Page, error)
	// Download streams the file with the given provider identifier into dest.
	Download(ctx context.Context, externalID string, dest io.Writer) error
}
