package ocr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"curator/internal/services"
)

func fastRetrier() *services.Retrier {
	return &services.Retrier{Limit: services.RetryLimit, Sleep: func(time.Duration) {}}
}

func tempImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.jpg")
	if err := os.WriteFile(path, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return path
}

func TestRecognizeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("apikey"); got != "key" {
			t.Fatalf("unexpected api key %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Fatalf("file part missing: %v", err)
		}
		w.Write([]byte(`{"ParsedResults":[{"ParsedText":" STOP "},{"ParsedText":"AHEAD"}],"IsErroredOnProcessing":false}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL}, nil, WithRetrier(fastRetrier()))
	text, status := client.Recognize(context.Background(), tempImage(t))
	if status.Kind != services.KindSuccess {
		t.Fatalf("expected success, got %#v", status)
	}
	if text != "STOP\nAHEAD" {
		t.Fatalf("text = %q, want joined trimmed results", text)
	}
}

func TestRecognizeEmptyTextIsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ParsedResults":[{"ParsedText":"  "}],"IsErroredOnProcessing":false}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL}, nil, WithRetrier(fastRetrier()))
	_, status := client.Recognize(context.Background(), tempImage(t))
	if status.Kind != services.KindNoData {
		t.Fatalf("expected no-data, got %#v", status)
	}
}

func TestRecognizeProcessingErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ParsedResults":[],"IsErroredOnProcessing":true,"ErrorMessage":"file type not supported"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL}, nil, WithRetrier(fastRetrier()))
	_, status := client.Recognize(context.Background(), tempImage(t))
	if status.Kind != services.KindPermanent {
		t.Fatalf("expected permanent, got %#v", status)
	}
}

func TestRecognizeThrottledUsesRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "180")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL}, nil, WithRetrier(fastRetrier()))
	_, status := client.Recognize(context.Background(), tempImage(t))
	if status.Kind != services.KindThrottled {
		t.Fatalf("expected throttled, got %#v", status)
	}
	if status.RequeueAfter != 3*time.Minute {
		t.Fatalf("expected provider delay 3m, got %s", status.RequeueAfter)
	}
}

func TestRecognizeServerErrorsExhaustRetries(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL}, nil, WithRetrier(fastRetrier()))
	_, status := client.Recognize(context.Background(), tempImage(t))
	if calls != services.RetryLimit {
		t.Fatalf("expected %d attempts, got %d", services.RetryLimit, calls)
	}
	if status.Kind != services.KindTransient || status.RequeueAfter != services.TransientRequeueDelay {
		t.Fatalf("expected transient with 60m requeue, got %#v", status)
	}
}

func TestRecognizeUnauthorizedIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL}, nil, WithRetrier(fastRetrier()))
	_, status := client.Recognize(context.Background(), tempImage(t))
	if status.Kind != services.KindPermanent {
		t.Fatalf("expected permanent, got %#v", status)
	}
	if status.RequeueAfter != services.PermanentRequeueDelay {
		t.Fatalf("expected 24h requeue, got %s", status.RequeueAfter)
	}
}
