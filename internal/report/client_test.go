package report

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/guardrail/internal/core/domain"
)

func testFault() *domain.Fault {
	return &domain.Fault{
		ID:       "f-1",
		Message:  "Payment gateway timeout",
		Kind:     domain.FaultPayment,
		Severity: domain.SeverityCritical,
		Code:     "PAY_504",
		Context: domain.FaultContext{
			Timestamp: time.Now(),
			Client:    domain.ClientInfo{UserAgent: "guardrail-test", URL: "/checkout"},
		},
	}
}

func TestClient_ReportPayloadShape(t *testing.T) {
	var got map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("body decode failed: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	if err := c.Report(context.Background(), testFault()); err != nil {
		t.Fatalf("Report failed: %v", err)
	}

	var errPart struct {
		Message  string `json:"message"`
		Kind     string `json:"kind"`
		Severity string `json:"severity"`
		Code     string `json:"code"`
	}
	if err := json.Unmarshal(got["error"], &errPart); err != nil {
		t.Fatalf("error part: %v", err)
	}
	if errPart.Kind != "payment" || errPart.Severity != "critical" || errPart.Code != "PAY_504" {
		t.Errorf("unexpected error part: %+v", errPart)
	}
	if _, ok := got["context"]; !ok {
		t.Error("payload must carry the fault context")
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	c.backoff = time.Millisecond
	if err := c.Report(context.Background(), testFault()); err != nil {
		t.Fatalf("Report should succeed after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestClient_ClientErrorIsFatal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	c.backoff = time.Millisecond
	if err := c.Report(context.Background(), testFault()); err == nil {
		t.Fatal("4xx should fail the report")
	}
	if calls.Load() != 1 {
		t.Errorf("4xx must not be retried, got %d attempts", calls.Load())
	}
}
