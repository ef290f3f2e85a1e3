// Package ocr extracts text from images: a generic document/scene text
// provider and a dedicated license-plate reader, each with its own
// status-code table.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"curator/internal/services"
)

const defaultHTTPTimeout = 30 * time.Second

// Config captures the runtime settings for a text recognition provider.
type Config struct {
	APIKey  string
	BaseURL string
}

// Client calls the generic OCR API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retrier    *services.Retrier
}

// Option customizes a client.
type Option func(*clientCore)

type clientCore struct {
	httpClient *http.Client
	retrier    *services.Retrier
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientCore) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetrier overrides the default retrier (used in tests).
func WithRetrier(retrier *services.Retrier) Option {
	return func(c *clientCore) {
		if retrier != nil {
			c.retrier = retrier
		}
	}
}

func newCore(logger *slog.Logger, opts []Option) clientCore {
	core := clientCore{
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		retrier:    services.NewRetrier(logger),
	}
	for _, opt := range opts {
		opt(&core)
	}
	return core
}

// NewClient constructs a generic OCR client.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	core := newCore(logger, opts)
	return &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimSpace(cfg.BaseURL),
		},
		httpClient: core.httpClient,
		retrier:    core.retrier,
	}
}

type parseResponse struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool `json:"IsErroredOnProcessing"`
	ErrorMessage          any  `json:"ErrorMessage"`
}

// Recognize uploads the image and returns any recognized text.
func (c *Client) Recognize(ctx context.Context, imagePath string) (string, services.Status) {
	var text string
	status := c.retrier.Do(ctx, "ocr recognize", func(ctx context.Context) (services.Status, error) {
		body, contentType, err := multipartImage(imagePath, "file")
		if err != nil {
			return services.Permanent(fmt.Sprintf("ocr read image: %v", err)), nil
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, body)
		if err != nil {
			return services.Status{}, err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("apikey", c.cfg.APIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return services.Status{}, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var payload parseResponse
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return services.Status{}, fmt.Errorf("decode ocr response: %w", err)
			}
			if payload.IsErroredOnProcessing {
				return services.Permanent(fmt.Sprintf("ocr processing error: %v", payload.ErrorMessage)), nil
			}
			var parts []string
			for _, result := range payload.ParsedResults {
				if trimmed := strings.TrimSpace(result.ParsedText); trimmed != "" {
					parts = append(parts, trimmed)
				}
			}
			if len(parts) == 0 {
				return services.NoData(), nil
			}
			text = strings.Join(parts, "\n")
			return services.Success(), nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return services.Throttled(services.RetryAfter(resp)), nil
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return services.Permanent(fmt.Sprintf("ocr rejected: http %d", resp.StatusCode)), nil
		case resp.StatusCode >= 500:
			return services.Status{}, fmt.Errorf("ocr server error: http %d", resp.StatusCode)
		default:
			return services.Permanent(fmt.Sprintf("ocr unexpected response: http %d", resp.StatusCode)), nil
		}
	})
	return text, status
}

func multipartImage(path, field string) (io.Reader, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}
