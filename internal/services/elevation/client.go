// Package elevation looks up terrain elevation for capture coordinates.
package elevation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"curator/internal/services"
)

const defaultHTTPTimeout = 15 * time.Second

// Config captures the runtime settings for the elevation service.
type Config struct {
	BaseURL string
}

// Client calls the elevation lookup API.
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

// NewClient constructs an elevation client.
func NewClient(cfg Config, logger *slog.Logger, opts ...Option) *Client {
	client := &Client{
		cfg:        Config{BaseURL: strings.TrimSpace(cfg.BaseURL)},
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		retrier:    services.NewRetrier(logger),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type lookupRequest struct {
	Locations []location `json:"locations"`
}

type location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type lookupResponse struct {
	Results []struct {
		Elevation float64 `json:"elevation"`
	} `json:"results"`
}

// Lookup returns the elevation in meters at the supplied coordinates.
func (c *Client) Lookup(ctx context.Context, lat, lon float64) (float64, services.Status) {
	var elevation float64
	status := c.retrier.Do(ctx, "elevation lookup", func(ctx context.Context) (services.Status, error) {
		body, err := json.Marshal(lookupRequest{Locations: []location{{Latitude: lat, Longitude: lon}}})
		if err != nil {
			return services.Status{}, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
		if err != nil {
			return services.Status{}, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return services.Status{}, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var payload lookupResponse
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return services.Status{}, fmt.Errorf("decode elevation response: %w", err)
			}
			if len(payload.Results) == 0 {
				return services.NoData(), nil
			}
			elevation = payload.Results[0].Elevation
			return services.Success(), nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return services.Throttled(services.RetryAfter(resp)), nil
		case resp.StatusCode >= 500:
			return services.Status{}, fmt.Errorf("elevation server error: http %d", resp.StatusCode)
		default:
			return services.Permanent(fmt.Sprintf("elevation unexpected response: http %d", resp.StatusCode)), nil
		}
	})
	return elevation, status
}
