// Package geocode reverse-geocodes capture coordinates into a postal address.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"curator/internal/services"
)

const defaultHTTPTimeout = 15 * time.Second

// Config captures the runtime settings required to talk to the geocoder.
type Config struct {
	APIKey  string
	BaseURL string
}

// Address is the normalized reverse-geocoding payload.
type Address struct {
	Formatted string
	City      string
	Country   string
}

// Client calls the reverse-geocoding API.
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

// NewClient constructs a geocoding client.
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

type geocodeResponse struct {
	Features []struct {
		Properties struct {
			Formatted string `json:"formatted"`
			City      string `json:"city"`
			Country   string `json:"country"`
		} `json:"properties"`
	} `json:"features"`
}

// Resolve looks up the address at the supplied coordinates. A throttled or
// failing provider is reported through the returned Status, never an error.
func (c *Client) Resolve(ctx context.Context, lat, lon float64) (Address, services.Status) {
	var addr Address
	status := c.retrier.Do(ctx, "geocode resolve", func(ctx context.Context) (services.Status, error) {
		endpoint := fmt.Sprintf("%s?lat=%f&lon=%f&format=geojson&apiKey=%s",
			c.cfg.BaseURL, lat, lon, url.QueryEscape(c.cfg.APIKey))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return services.Status{}, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return services.Status{}, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			var payload geocodeResponse
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return services.Status{}, fmt.Errorf("decode geocode response: %w", err)
			}
			if len(payload.Features) == 0 {
				return services.NoData(), nil
			}
			props := payload.Features[0].Properties
			addr = Address{Formatted: props.Formatted, City: props.City, Country: props.Country}
			return services.Success(), nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return services.Throttled(services.RetryAfter(resp)), nil
		case resp.StatusCode == http.StatusUnauthorized,
			resp.StatusCode == http.StatusPaymentRequired,
			resp.StatusCode == http.StatusForbidden:
			return services.Permanent(fmt.Sprintf("geocode rejected: http %d", resp.StatusCode)), nil
		case resp.StatusCode >= 500:
			return services.Status{}, fmt.Errorf("geocode server error: http %d", resp.StatusCode)
		default:
			return services.Permanent(fmt.Sprintf("geocode unexpected response: http %d", resp.StatusCode)), nil
		}
	})
	return addr, status
}
