// Package classify tags the subjects visible in an image via the
// classification provider.
package classify

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

// Config captures the runtime settings for the classification provider.
type Config struct {
	APIKey  string
	BaseURL string
}

// Tag is one detected subject with the provider's confidence.
type Tag struct {
	Label      string
	Confidence float64
}

// Client calls the subject-detection API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retrier    *services.Retrier
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetrier overrides the default retrier (used in tests).
func WithRetrier(retrier *services.Retrier) Option {
	return func(c *Client) {
		if retrier != nil {
			c.retrier = retrier
		}
	}
}

// NewClient constructs a classification client.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimSpace(cfg.BaseURL),
		},
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		retrier:    services.NewRetrier(logger),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type tagsResponse struct {
	Result struct {
		Tags []struct {
			Confidence float64 `json:"confidence"`
			Tag        struct {
				En string `json:"en"`
			} `json:"tag"`
		} `json:"tags"`
	} `json:"result"`
}

// Detect uploads the image and returns the provider's subject tags.
func (c *Client) Detect(ctx context.Context, imagePath string) ([]Tag, services.Status) {
	var tags []Tag
	status := c.retrier.Do(ctx, "classify detect", func(ctx context.Context) (services.Status, error) {
		body, contentType, err := multipartImage(imagePath)
		if err != nil {
			return services.Permanent(fmt.Sprintf("classify read image: %v", err)), nil
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, body)
		if err != nil {
			return services.Status{}, err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Basic "+c.cfg.APIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return services.Status{}, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var payload tagsResponse
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return services.Status{}, fmt.Errorf("decode classify response: %w", err)
			}
			if len(payload.Result.Tags) == 0 {
				return services.NoData(), nil
			}
			tags = tags[:0]
			for _, t := range payload.Result.Tags {
				label := strings.TrimSpace(t.Tag.En)
				if label == "" {
					continue
				}
				tags = append(tags, Tag{Label: label, Confidence: t.Confidence / 100})
			}
			if len(tags) == 0 {
				return services.NoData(), nil
			}
			return services.Success(), nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return services.Throttled(services.RetryAfter(resp)), nil
		case resp.StatusCode == http.StatusUnauthorized,
			resp.StatusCode == http.StatusPaymentRequired,
			resp.StatusCode == http.StatusForbidden:
			return services.Permanent(fmt.Sprintf("classify rejected: http %d", resp.StatusCode)), nil
		case resp.StatusCode >= 500:
			return services.Status{}, fmt.Errorf("classify server error: http %d", resp.StatusCode)
		default:
			return services.Permanent(fmt.Sprintf("classify unexpected response: http %d", resp.StatusCode)), nil
		}
	})
	return tags, status
}

func multipartImage(path string) (io.Reader, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("image", filepath.Base(path))
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
