// Package plantid identifies plant species in an image.
package plantid

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"curator/internal/services"
)

const defaultHTTPTimeout = 30 * time.Second

// Config captures the runtime settings for the plant identification provider.
type Config struct {
	APIKey  string
	BaseURL string
}

// Suggestion is one candidate species with the provider's probability.
type Suggestion struct {
	Name        string
	Probability float64
}

// Client calls the plant identification API.
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

// NewClient constructs a plant identification client.
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

type identifyRequest struct {
	Images []string `json:"images"`
}

type identifyResponse struct {
	Suggestions []struct {
		PlantName   string  `json:"plant_name"`
		Probability float64 `json:"probability"`
	} `json:"suggestions"`
	IsPlant bool `json:"is_plant"`
}

// Identify uploads the image and returns candidate species, best first.
func (c *Client) Identify(ctx context.Context, imagePath string) ([]Suggestion, services.Status) {
	var suggestions []Suggestion
	status := c.retrier.Do(ctx, "plant identify", func(ctx context.Context) (services.Status, error) {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return services.Permanent(fmt.Sprintf("plant read image: %v", err)), nil
		}
		body, err := json.Marshal(identifyRequest{
			Images: []string{base64.StdEncoding.EncodeToString(data)},
		})
		if err != nil {
			return services.Status{}, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
		if err != nil {
			return services.Status{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Api-Key", c.cfg.APIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return services.Status{}, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusCreated:
			var payload identifyResponse
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return services.Status{}, fmt.Errorf("decode plant response: %w", err)
			}
			if !payload.IsPlant || len(payload.Suggestions) == 0 {
				return services.NoData(), nil
			}
			suggestions = suggestions[:0]
			for _, s := range payload.Suggestions {
				name := strings.TrimSpace(s.PlantName)
				if name == "" {
					continue
				}
				suggestions = append(suggestions, Suggestion{Name: name, Probability: s.Probability})
			}
			if len(suggestions) == 0 {
				return services.NoData(), nil
			}
			return services.Success(), nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return services.Throttled(services.RetryAfter(resp)), nil
		case resp.StatusCode == http.StatusUnauthorized,
			resp.StatusCode == http.StatusPaymentRequired,
			resp.StatusCode == http.StatusForbidden:
			return services.Permanent(fmt.Sprintf("plant rejected: http %d", resp.StatusCode)), nil
		case resp.StatusCode >= 500:
			return services.Status{}, fmt.Errorf("plant server error: http %d", resp.StatusCode)
		default:
			return services.Permanent(fmt.Sprintf("plant unexpected response: http %d", resp.StatusCode)), nil
		}
	})
	return suggestions, status
}
