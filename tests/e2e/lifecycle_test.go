package e2e

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/guardrail/internal/control"
	"github.com/vietddude/guardrail/internal/core/config"
	"github.com/vietddude/guardrail/internal/core/domain"
)

func appConfig() *config.AppConfig {
	return &config.AppConfig{
		Server: config.ServerConfig{Port: 18091},
		Boundaries: []config.BoundaryConfig{
			{Name: "transaction-form", Kind: "transaction", RetryDelay: time.Millisecond, SettleDelay: 10 * time.Millisecond},
			{Name: "payment-processing", Kind: "critical"},
		},
		Recovery: config.RecoveryConfig{ReplayOnStart: true},
	}
}

func TestGracefulShutdown(t *testing.T) {
	app, err := control.NewApp(appConfig())
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Let the health server come up
	time.Sleep(100 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	if err := app.Stop(stopCtx); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
}

func TestReplayOnStart(t *testing.T) {
	cfg := appConfig()
	cfg.Server.Port = 18092

	app, err := control.NewApp(cfg)
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}

	ctx := context.Background()

	// Preserve work as if a previous run died mid-edit
	txs := []domain.PendingTransaction{
		{ID: "tx-1", Amount: 4599, Currency: "USD", Category: "groceries"},
	}
	if err := app.Store().SaveTransactions(ctx, txs); err != nil {
		t.Fatalf("SaveTransactions failed: %v", err)
	}
	if err := app.Store().SaveChange(ctx, "budget-form", map[string]any{"limit": 500}); err != nil {
		t.Fatalf("SaveChange failed: %v", err)
	}

	txCh, cancelTx := app.Bus().Subscribe(domain.EventRestoreTransactions, 1)
	defer cancelTx()
	chCh, cancelCh := app.Bus().Subscribe(domain.EventRestoreUnsavedChanges, 1)
	defer cancelCh()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if err := app.Start(runCtx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()
		_ = app.Stop(stopCtx)
	}()

	select {
	case ev := <-txCh:
		if len(ev.Transactions) != 1 || ev.Transactions[0].ID != "tx-1" {
			t.Errorf("Unexpected transactions event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Error("No restore-transactions event published")
	}

	select {
	case ev := <-chCh:
		if _, ok := ev.UnsavedChanges["budget-form"]; !ok {
			t.Errorf("Unexpected unsaved-changes event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Error("No restore-unsaved-changes event published")
	}
}

func TestFaultThroughBoundary(t *testing.T) {
	cfg := appConfig()
	cfg.Server.Port = 18093

	app, err := control.NewApp(cfg)
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}

	ctx := context.Background()
	b := app.Boundary("transaction-form")
	if b == nil {
		t.Fatal("transaction-form boundary not registered")
	}

	f := b.Catch(ctx, errors.New("network connection lost"))
	if f.Kind != domain.FaultNetwork {
		t.Errorf("Expected network fault, got %s", f.Kind)
	}
	if !b.State().HasFault {
		t.Error("Expected boundary to hold the fault")
	}

	// History records exactly one entry
	recent, err := app.Logger().Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(recent))
	}
	if recent[0].ID != f.ID {
		t.Errorf("History entry %s does not match caught fault %s", recent[0].ID, f.ID)
	}
}

func TestCriticalFaultRequestsRestart(t *testing.T) {
	cfg := appConfig()
	cfg.Server.Port = 18094

	app, err := control.NewApp(cfg)
	if err != nil {
		t.Fatalf("Failed to create app: %v", err)
	}

	ctx := context.Background()
	b := app.Boundary("payment-processing")

	f := b.Catch(ctx, errors.New("payment charge declined by gateway"))
	if !f.Critical() {
		t.Fatalf("Expected critical fault, got severity %s", f.Severity)
	}
	if b.Retry() {
		t.Error("Critical fault must not allow plain retry")
	}

	if err := b.Recover(ctx); err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	select {
	case <-app.RestartRequested():
	case <-time.After(time.Second):
		t.Error("Rollback recovery did not request a restart")
	}

	// Preserved state wiped by the rollback
	has, err := app.Store().HasAny(ctx)
	if err != nil {
		t.Fatalf("HasAny failed: %v", err)
	}
	if has {
		t.Error("Expected store cleared after rollback")
	}
}
