package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/synaptica-ai/cardio-extract/pkg/gateway/httpclient"
)

func TestCompleteSendsDeterministicJSONRequest(t *testing.T) {
	var got chatRequest
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"Age\": 62}"}}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(Options{BaseURL: srv.URL + "/v1/", APIKey: "sk-test", Model: "gpt-4", JSONMode: true, Timeout: time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	out, err := client.Complete(context.Background(), "extrae")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != `{"Age": 62}` {
		t.Fatalf("unexpected content %q", out)
	}
	if path != "/v1/chat/completions" {
		t.Fatalf("unexpected path %q", path)
	}
	if auth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if got.Temperature != 0 || got.Model != "gpt-4" {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Fatal("expected json_object response format")
	}
	if len(got.Messages) != 2 || got.Messages[1].Content != "extrae" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
}

func TestCompleteRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
	defer srv.Close()

	client, _ := NewClient(Options{BaseURL: srv.URL, Model: "m", Attempts: 2, Timeout: time.Second})
	out, err := client.Complete(context.Background(), "p")
	if err != nil || out != "{}" {
		t.Fatalf("expected retry to succeed, got %q, %v", out, err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestCompleteErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client, _ := NewClient(Options{BaseURL: srv.URL, Model: "m", Timeout: time.Second})
	if _, err := client.Complete(context.Background(), "p"); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid model", http.StatusBadRequest)
	}))
	defer bad.Close()

	client, _ = NewClient(Options{BaseURL: bad.URL, Model: "m", Attempts: 3, Timeout: time.Second})
	_, err := client.Complete(context.Background(), "p")
	var statusErr *httpclient.StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 status error, got %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Options{Model: "m"}); err == nil {
		t.Fatal("expected error for missing base url")
	}
	if _, err := NewClient(Options{BaseURL: "http://localhost"}); err == nil {
		t.Fatal("expected error for missing model")
	}
}
