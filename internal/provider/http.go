package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"curator/internal/config"
)

// HTTPClient talks to a Dropbox-style storage API: cursor-paginated listing
// plus a content download endpoint addressed by file identifier.
type HTTPClient struct {
	baseURL     string
	accessToken string
	pageSize    int
	httpClient  *http.Client
}

// NewHTTPClient constructs a provider client from application config.
func NewHTTPClient(cfg config.Provider) *HTTPClient {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		accessToken: cfg.AccessToken,
		pageSize:    cfg.PageSize,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

type listFolderRequest struct {
	Path      string `json:"path,omitempty"`
	Recursive bool   `json:"recursive,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Cursor    string `json:"cursor,omitempty"`
}

type listFolderResponse struct {
	Entries []struct {
		Tag         string `json:".tag"`
		ID          string `json:"id"`
		PathDisplay string `json:"path_display"`
		ContentHash string `json:"content_hash"`
	} `json:"entries"`
	Cursor  string `json:"cursor"`
	HasMore bool   `json:"has_more"`
}

// ListFolder returns one page of the recursive listing under rootPath.
func (c *HTTPClient) ListFolder(ctx context.Context, rootPath, cursor string) (Page, error) {
	endpoint := c.baseURL + "/files/list_folder"
	payload := listFolderRequest{Path: rootPath, Recursive: true, Limit: c.pageSize}
	if cursor != "" {
		endpoint += "/continue"
		payload = listFolderRequest{Cursor: cursor}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Page{}, fmt.Errorf("marshal list request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Page{}, fmt.Errorf("build list request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("list folder: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Page{}, fmt.Errorf("list folder: http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var decoded listFolderResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Page{}, fmt.Errorf("decode list response: %w", err)
	}

	page := Page{Cursor: decoded.Cursor, HasMore: decoded.HasMore}
	for _, entry := range decoded.Entries {
		// Folders appear in recursive listings; only files matter here.
		if entry.Tag != "file" {
			continue
		}
		page.Entries = append(page.Entries, Entry{
			Path:        entry.PathDisplay,
			ExternalID:  entry.ID,
			ContentHash: entry.ContentHash,
		})
	}
	return page, nil
}

// Download streams the file with the given identifier into dest.
func (c *HTTPClient) Download(ctx context.Context, externalID string, dest io.Writer) error {
	arg, err := json.Marshal(map[string]string{"path": externalID})
	if err != nil {
		return fmt.Errorf("marshal download arg: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files/download", nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Dropbox-API-Arg", string(arg))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", externalID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("download %s: http %d: %s", externalID, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if _, err := io.Copy(dest, resp.Body); err != nil {
		return fmt.Errorf("write download %s: %w", externalID, err)
	}
	return nil
}
