package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"curator/internal/services"
)

// PlateClient calls the license-plate recognition API. The plate provider
// throttles per-second rather than per-month, so 429 is an expected steady
// state during large imports.
type PlateClient struct {
	cfg        Config
	httpClient *http.Client
	retrier    *services.Retrier
}

// NewPlateClient constructs a plate recognition client.
func NewPlateClient(cfg Config, logger *slog.Logger, opts ...Option) *PlateClient {
	core := newCore(logger, opts)
	return &PlateClient{
		cfg: Config{
			APIKey:  strings.TrimSpace(cfg.APIKey),
			BaseURL: strings.TrimSpace(cfg.BaseURL),
		},
		httpClient: core.httpClient,
		retrier:    core.retrier,
	}
}

type plateResponse struct {
	Results []struct {
		Plate string  `json:"plate"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// Recognize uploads the image and returns the best plate reading.
func (c *PlateClient) Recognize(ctx context.Context, imagePath string) (string, services.Status) {
	var plate string
	status := c.retrier.Do(ctx, "plate recognize", func(ctx context.Context) (services.Status, error) {
		body, contentType, err := multipartImage(imagePath, "upload")
		if err != nil {
			return services.Permanent(fmt.Sprintf("plate read image: %v", err)), nil
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, body)
		if err != nil {
			return services.Status{}, err
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", "Token "+c.cfg.APIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return services.Status{}, err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusCreated:
			var payload plateResponse
			if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
				return services.Status{}, fmt.Errorf("decode plate response: %w", err)
			}
			if len(payload.Results) == 0 {
				return services.NoData(), nil
			}
			plate = strings.ToUpper(strings.TrimSpace(payload.Results[0].Plate))
			if plate == "" {
				return services.NoData(), nil
			}
			return services.Success(), nil
		case resp.StatusCode == http.StatusTooManyRequests:
			return services.Throttled(services.RetryAfter(resp)), nil
		case resp.StatusCode == http.StatusUnauthorized,
			resp.StatusCode == http.StatusPaymentRequired,
			resp.StatusCode == http.StatusForbidden:
			return services.Permanent(fmt.Sprintf("plate rejected: http %d", resp.StatusCode)), nil
		case resp.StatusCode >= 500:
			return services.Status{}, fmt.Errorf("plate server error: http %d", resp.StatusCode)
		default:
			return services.Permanent(fmt.Sprintf("plate unexpected response: http %d", resp.StatusCode)), nil
		}
	})
	return plate, status
}
