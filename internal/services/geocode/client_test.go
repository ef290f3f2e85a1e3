package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"curator/internal/services"
)

func fastRetrier() *services.Retrier {
	return &services.Retrier{Limit: services.RetryLimit, Sleep: func(time.Duration) {}}
}

func TestResolveSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("apiKey"); got != "key" {
			t.Fatalf("unexpected api key %q", got)
		}
		w.Write([]byte(`{"features":[{"properties":{"formatted":"1 Main St, Springfield","city":"Springfield","country":"United States"}}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL}, nil, WithRetrier(fastRetrier()))
	addr, status := client.Resolve(context.Background(), 39.8, -89.6)
	if status.Kind != services.KindSuccess {
		t.Fatalf("expected success, got %#v", status)
	}
	if addr.City != "Springfield" {
		t.Fatalf("unexpected address %#v", addr)
	}
}

func TestResolveNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"features":[]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL}, nil, WithRetrier(fastRetrier()))
	_, status := client.Resolve(context.Background(), 0, 0)
	if status.Kind != services.KindNoData {
		t.Fatalf("expected no-data, got %#v", status)
	}
}

func TestResolveThrottledUsesRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL}, nil, WithRetrier(fastRetrier()))
	_, status := client.Resolve(context.Background(), 0, 0)
	if status.Kind != services.KindThrottled {
		t.Fatalf("expected throttled, got %#v", status)
	}
	if status.RequeueAfter != 2*time.Minute {
		t.Fatalf("expected provider delay 2m, got %s", status.RequeueAfter)
	}
}

func TestResolveServerErrorsExhaustRetries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL}, nil, WithRetrier(fastRetrier()))
	_, status := client.Resolve(context.Background(), 0, 0)
	if calls != services.RetryLimit {
		t.Fatalf("expected %d attempts, got %d", services.RetryLimit, calls)
	}
	if status.Kind != services.KindTransient || status.RequeueAfter != services.TransientRequeueDelay {
		t.Fatalf("expected transient with 60m requeue, got %#v", status)
	}
}

func TestResolvePermanentRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL}, nil, WithRetrier(fastRetrier()))
	_, status := client.Resolve(context.Background(), 0, 0)
	if status.Kind != services.KindPermanent {
		t.Fatalf("expected permanent, got %#v", status)
	}
	if status.RequeueAfter != services.PermanentRequeueDelay {
		t.Fatalf("expected 24h requeue, got %s", status.RequeueAfter)
	}
}
