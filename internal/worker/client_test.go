package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/matmuruaga/sales-advisor-app-sub002/internal/config"
)

func newTestClient(t *testing.T, url string, timeout time.Duration, retries int) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), config.EnrichmentConfig{
		ServiceURL: url,
		Timeout:    timeout,
		MaxRetries: retries,
	}, WithBackOff(func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestClient_DispatchSendsPayloadAndHeaders(t *testing.T) {
	var got DispatchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-ID") != "req-1" || r.Header.Get("User-Agent") != UserAgent {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second, 0)
	err := client.Dispatch(context.Background(), DispatchRequest{
		ContactEmail:        "x@y.com",
		Source:              "linkedin",
		EnrichmentHistoryID: "h-1",
	}, "req-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ContactEmail != "x@y.com" || got.EnrichmentHistoryID != "h-1" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestClient_DispatchDoesNotRetryRejections(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown source"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, time.Second, 3)
	err := client.Dispatch(context.Background(), DispatchRequest{ContactEmail: "x@y.com"}, "")
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestClient_DispatchRetriesTimeouts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 50*time.Millisecond, 2)
	if err := client.Dispatch(context.Background(), DispatchRequest{ContactEmail: "x@y.com"}, ""); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestClient_DispatchGivesUpAfterMaxRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(t, url, 100*time.Millisecond, 2)
	if err := client.Dispatch(context.Background(), DispatchRequest{ContactEmail: "x@y.com"}, ""); err == nil {
		t.Fatalf("expected error for unreachable service")
	}
}

func TestNewClient_RequiresURL(t *testing.T) {
	if _, err := NewClient(context.Background(), config.EnrichmentConfig{}); err == nil {
		t.Fatalf("expected error for empty url")
	}
}
