package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/vinoplan-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, url string) Client {
	t.Helper()
	c, err := NewClient(logger.Nop(), Config{
		BaseURL:    url,
		APIKey:     "test-key",
		Model:      "test-model",
		Timeout:    5 * time.Second,
		MaxRetries: 2,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestGenerateJSONSendsStrictSchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("path=%s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization=%q", got)
		}
		var req responsesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.Text.Format["strict"] != true || req.Text.Format["name"] != "plan" {
			t.Errorf("format=%v", req.Text.Format)
		}
		_, _ = w.Write([]byte(`{"output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"{\"ok\":true}"}]}],"usage":{"input_tokens":5,"output_tokens":3}}`))
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv.URL).GenerateJSON(context.Background(), "sys", "user", "plan", map[string]any{"type": "object"})
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if string(out) != `{"ok":true}` {
		t.Fatalf("out=%s", out)
	}
}

func TestGenerateJSONRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"{}"}]}]}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(t, srv.URL).GenerateJSON(context.Background(), "s", "u", "plan", map[string]any{}); err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls=%d want 2", calls)
	}
}

func TestGenerateJSONDoesNotRetryBadRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).GenerateJSON(context.Background(), "s", "u", "plan", map[string]any{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls=%d want 1", calls)
	}
}

func TestGenerateJSONRefusal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"output":[{"type":"message","role":"assistant","content":[{"type":"refusal","refusal":"no"}]}]}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(t, srv.URL).GenerateJSON(context.Background(), "s", "u", "plan", map[string]any{}); err == nil {
		t.Fatalf("expected refusal error")
	}
}
