package services

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"curator/internal/logging"
)

// Retrier applies the immediate-retry half of the contract: transient
// connectivity errors (connection reset, timeout) are retried in process with
// a fixed delay, while classified provider responses pass straight through.
type Retrier struct {
	Limit  int
	Delay  time.Duration
	Sleep  func(time.Duration)
	Logger *slog.Logger
}

// NewRetrier returns a retrier with the contract defaults.
func NewRetrier(logger *slog.Logger) *Retrier {
	return &Retrier{
		Limit:  RetryLimit,
		Delay:  RetryDelay,
		Logger: logger,
	}
}

// Do invokes fn until it returns a classified Status, a non-retryable state,
// or the retry limit is exhausted. fn signals a transient connectivity error
// by returning a non-nil error; any Status it returns is final.
func (r *Retrier) Do(ctx context.Context, op string, fn func(context.Context) (Status, error)) Status {
	limit := r.Limit
	if limit <= 0 {
		limit = RetryLimit
	}
	logger := r.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= limit; attempt++ {
		status, err := fn(ctx)
		if err == nil {
			return status
		}
		lastErr = err
		logger.Warn("transient service error",
			logging.String("operation", op),
			logging.Int("attempt", attempt),
			logging.Error(err),
		)
		if attempt == limit {
			break
		}
		if !r.sleep(ctx) {
			break
		}
	}

	detail := "retries exhausted"
	if lastErr != nil {
		detail = lastErr.Error()
	}
	return Transient(detail)
}

func (r *Retrier) sleep(ctx context.Context) bool {
	delay := r.Delay
	if delay <= 0 {
		delay = RetryDelay
	}
	if r.Sleep != nil {
		r.Sleep(delay)
		return ctx.Err() == nil
	}
	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

// RetryAfter extracts a provider-specified backoff from a throttled response.
// Zero means the provider gave none.
func RetryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	value := resp.Header.Get("Retry-After")
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
