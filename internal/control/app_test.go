package control

import (
	"context"
	"testing"

	"github.com/vietddude/guardrail/internal/core/config"
	"github.com/vietddude/guardrail/internal/core/domain"
	"github.com/vietddude/guardrail/internal/health"
)

func memoryConfig() *config.AppConfig {
	return &config.AppConfig{
		Boundaries: []config.BoundaryConfig{
			{Name: "transaction-form", Kind: "transaction"},
			{Name: "statement-upload", Kind: "upload"},
			{Name: "account-session", Kind: "auth", RecoveryURL: "/login"},
			{Name: "payment-processing", Kind: "critical"},
		},
	}
}

// ============================================================================
// Wiring
// ============================================================================

func TestNewApp_RegistersBoundaries(t *testing.T) {
	app, err := NewApp(memoryConfig())
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	for _, name := range []string{
		"transaction-form", "statement-upload", "account-session", "payment-processing",
	} {
		if app.Boundary(name) == nil {
			t.Errorf("Boundary %q not registered", name)
		}
	}
	if app.Boundary("nonexistent") != nil {
		t.Error("Expected nil for unregistered boundary")
	}
}

func TestNewApp_UnknownBoundaryKind(t *testing.T) {
	cfg := &config.AppConfig{
		Boundaries: []config.BoundaryConfig{{Name: "x", Kind: "mystery"}},
	}
	if _, err := NewApp(cfg); err == nil {
		t.Error("Expected error for unknown boundary kind")
	}
}

func TestNewApp_RetryOverrides(t *testing.T) {
	cfg := memoryConfig()
	cfg.Boundaries[0].MaxRetries = 7

	app, err := NewApp(cfg)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	if got := app.Boundary("transaction-form").AttemptsLeft(); got != 7 {
		t.Errorf("Expected 7 attempts left, got %d", got)
	}
	// Preset untouched for the others
	if got := app.Boundary("statement-upload").AttemptsLeft(); got != 5 {
		t.Errorf("Expected 5 attempts left, got %d", got)
	}
}

// ============================================================================
// Health + restart
// ============================================================================

func TestApp_HealthReport(t *testing.T) {
	app, err := NewApp(memoryConfig())
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	r := app.healthReport(context.Background())
	if r.Status != health.StatusHealthy {
		t.Errorf("Expected healthy, got %s", r.Status)
	}
	if !r.StoreReachable {
		t.Error("Expected store reachable")
	}
	if r.RecoveryPending {
		t.Error("Expected no pending recovery")
	}

	// Preserved data flips the pending flag
	txs := []domain.PendingTransaction{{ID: "tx-1", Amount: 1250, Currency: "USD"}}
	if err := app.Store().SaveTransactions(context.Background(), txs); err != nil {
		t.Fatalf("SaveTransactions failed: %v", err)
	}
	r = app.healthReport(context.Background())
	if !r.RecoveryPending {
		t.Error("Expected pending recovery after preservation")
	}
}

func TestApp_RestartRequestedOnce(t *testing.T) {
	app, err := NewApp(memoryConfig())
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}

	select {
	case <-app.RestartRequested():
		t.Fatal("Restart channel closed before any request")
	default:
	}

	app.requestRestart()
	app.requestRestart() // idempotent

	select {
	case <-app.RestartRequested():
	default:
		t.Error("Expected restart channel to be closed")
	}
}
