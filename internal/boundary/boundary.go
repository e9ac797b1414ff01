// Package boundary supervises a protected region: it intercepts failures,
// preserves financial context, classifies and logs the fault, and governs
// retry and recovery through a small state machine.
package boundary

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/guardrail/internal/classify"
	"github.com/vietddude/guardrail/internal/core/domain"
	"github.com/vietddude/guardrail/internal/metrics"
	"github.com/vietddude/guardrail/internal/preserve"
)

// FaultLogger records classified faults. Satisfied by faultlog.Logger.
type FaultLogger interface {
	Log(ctx context.Context, f *domain.Fault)
	LogLocal(ctx context.Context, f *domain.Fault)
}

// Navigator performs the navigation a session-restore recovery requires.
type Navigator interface {
	Navigate(url string) error
}

// State is a snapshot of the coordinator state machine, exposed so a fault
// surface can render strategy-appropriate actions.
type State struct {
	HasFault      bool
	Fault         *domain.Fault
	FaultID       string
	RetryAttempts int
	LastRetry     time.Time
}

// Deps are the shared collaborators a boundary needs. Store and Logger are
// process-wide and injected by reference; boundaries never instantiate their
// own.
type Deps struct {
	Store   preserve.Store
	Logger  FaultLogger
	Nav     Navigator
	Restart func()
	Client  domain.ClientInfo
}

// Boundary is the recovery coordinator for one protected region.
type Boundary struct {
	cfg  Config
	deps Deps

	mu         sync.Mutex
	state      State
	settle     *time.Timer
	rolledBack bool
	closed     bool
}

// New creates a boundary from a config, applying defaults.
func New(cfg Config, deps Deps) *Boundary {
	return &Boundary{cfg: cfg.withDefaults(), deps: deps}
}

// Name returns the protected region's name.
func (b *Boundary) Name() string {
	return b.cfg.Name
}

// Catch intercepts a failure inside the protected region. The order is fixed:
// snapshot financial context, classify, write recovery envelopes, log. Only
// then does the state machine transition to Faulted. Each caught failure
// produces exactly one fault record and one log entry.
func (b *Boundary) Catch(ctx context.Context, err error) *domain.Fault {
	// Snapshot happens unconditionally, even if the fault later proves
	// unrecoverable.
	fin := b.snapshot(ctx)

	f := classify.Classify(err, classify.Options{
		Operation:   b.cfg.Name,
		RecoveryURL: b.cfg.RecoveryURL,
		Client:      b.deps.Client,
		Financial:   fin,
	})

	if f.Recovery.Strategy == domain.StrategySessionRestore {
		b.writeAuthEnvelope(ctx)
	}
	if f.Critical() {
		b.writeCriticalEnvelope(ctx)
	}

	if b.cfg.EnableReporting {
		b.deps.Logger.Log(ctx, f)
	} else {
		b.deps.Logger.LogLocal(ctx, f)
	}

	b.mu.Lock()
	b.state.HasFault = true
	b.state.Fault = f
	b.state.FaultID = f.ID
	b.mu.Unlock()

	if b.cfg.OnFault != nil {
		b.cfg.OnFault(f)
	}
	return f
}

func (b *Boundary) snapshot(ctx context.Context) *domain.FinancialContext {
	fin := &domain.FinancialContext{BatchID: b.cfg.Financial.BatchID}

	if p := b.cfg.Financial.Transactions; p != nil {
		if txs := p(); len(txs) > 0 {
			fin.PendingTransactions = txs
			if err := b.deps.Store.SaveTransactions(ctx, txs); err != nil {
				slog.Warn("Failed to preserve pending transactions", "boundary", b.cfg.Name, "error", err)
			} else {
				metrics.PreservedWritesTotal.WithLabelValues(preserve.KeyPendingTransactions).Inc()
			}
		}
	}

	if p := b.cfg.Financial.UnsavedChanges; p != nil {
		if changes := p(); len(changes) > 0 {
			fin.UnsavedChanges = changes
			for k, v := range changes {
				if err := b.deps.Store.SaveChange(ctx, k, v); err != nil {
					slog.Warn("Failed to preserve unsaved change", "boundary", b.cfg.Name, "key", k, "error", err)
					continue
				}
				metrics.PreservedWritesTotal.WithLabelValues(preserve.KeyUnsavedChanges).Inc()
			}
		}
	}

	if p := b.cfg.Financial.UploadProgress; p != nil && b.cfg.Financial.BatchID != "" {
		fin.UploadProgress = p()
		st := domain.UploadState{
			Timestamp: time.Now(),
			Note:      fmt.Sprintf("interrupted at %.0f%%", fin.UploadProgress),
		}
		if err := b.deps.Store.SaveUploadState(ctx, b.cfg.Financial.BatchID, st); err != nil {
			slog.Warn("Failed to preserve upload state", "boundary", b.cfg.Name, "error", err)
		} else {
			metrics.PreservedWritesTotal.WithLabelValues(preserve.KeyUploadState).Inc()
		}
	}

	if fin.PendingTransactions == nil && fin.UnsavedChanges == nil &&
		fin.UploadProgress == 0 && fin.BatchID == "" {
		return nil
	}
	return fin
}

func (b *Boundary) writeAuthEnvelope(ctx context.Context) {
	changes, err := b.deps.Store.UnsavedChanges(ctx)
	if err != nil {
		slog.Warn("Failed to read unsaved changes for auth envelope", "boundary", b.cfg.Name, "error", err)
	}
	env := &domain.AuthRecoveryEnvelope{
		URL:            b.deps.Client.URL,
		Timestamp:      time.Now(),
		UnsavedChanges: changes,
	}
	if err := b.deps.Store.PutAuthEnvelope(ctx, env); err != nil {
		slog.Warn("Failed to write auth recovery envelope", "boundary", b.cfg.Name, "error", err)
		return
	}
	metrics.PreservedWritesTotal.WithLabelValues(preserve.KeyAuthRecovery).Inc()
}

func (b *Boundary) writeCriticalEnvelope(ctx context.Context) {
	txs, _ := b.deps.Store.Transactions(ctx)
	changes, _ := b.deps.Store.UnsavedChanges(ctx)
	uploads, _ := b.deps.Store.UploadStates(ctx)

	env := &domain.CriticalContextEnvelope{
		Operation:      b.cfg.Name,
		Timestamp:      time.Now(),
		Transactions:   txs,
		UnsavedChanges: changes,
		UploadState:    uploads,
	}
	if err := b.deps.Store.PutCriticalEnvelope(ctx, env); err != nil {
		slog.Warn("Failed to write critical context envelope", "boundary", b.cfg.Name, "error", err)
		return
	}
	metrics.PreservedWritesTotal.WithLabelValues(preserve.KeyCriticalContext).Inc()
}

// Retry attempts to clear the fault and re-enter the protected region. It is
// honored only while a fault exists, retry is enabled, attempts remain and
// the configured delay since the last retry has elapsed; otherwise it is a
// no-op. A honored retry schedules a settle delay before the fault clears so
// the region does not immediately re-trigger the same failure.
func (b *Boundary) Retry() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.state.HasFault || b.closed || !b.cfg.EnableRetry {
		return false
	}
	// Critical faults disable plain retry in favor of explicit recovery.
	if b.state.Fault != nil && b.state.Fault.Critical() {
		return false
	}
	if b.state.RetryAttempts >= b.cfg.MaxRetries {
		return false
	}
	if !b.state.LastRetry.IsZero() && time.Since(b.state.LastRetry) < b.cfg.RetryDelay {
		return false
	}

	b.state.RetryAttempts++
	b.state.LastRetry = time.Now()
	metrics.RetriesTotal.WithLabelValues(b.cfg.Name).Inc()

	if b.settle != nil {
		b.settle.Stop()
	}
	b.settle = time.AfterFunc(b.cfg.SettleDelay, b.settleFired)
	return true
}

// settleFired clears the fault after the settle delay. Retry attempts are
// retained so repeated failures of the same region keep counting toward the
// retry budget; they reset only on full recovery.
func (b *Boundary) settleFired() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.state.HasFault = false
	b.state.Fault = nil
	b.state.FaultID = ""
	b.mu.Unlock()

	if b.cfg.OnRecovery != nil {
		b.cfg.OnRecovery()
	}
}

// Recover executes the strategy attached to the current fault.
func (b *Boundary) Recover(ctx context.Context) error {
	b.mu.Lock()
	f := b.state.Fault
	b.mu.Unlock()
	if f == nil {
		return nil
	}

	switch f.Recovery.Strategy {
	case domain.StrategySessionRestore:
		return b.recoverSession(ctx, f)
	case domain.StrategyDataRecovery:
		return b.recoverData(ctx)
	case domain.StrategyRollback:
		return b.rollback(ctx)
	default: // retry, none
		b.Retry()
		return nil
	}
}

func (b *Boundary) recoverSession(ctx context.Context, f *domain.Fault) error {
	// Refresh the envelope so changes made after the catch are not lost.
	b.writeAuthEnvelope(ctx)
	metrics.RecoveriesTotal.WithLabelValues(string(domain.StrategySessionRestore)).Inc()

	url := f.Recovery.RecoveryURL
	if url == "" {
		url = b.cfg.RecoveryURL
	}
	if b.deps.Nav == nil {
		return fmt.Errorf("session restore for %q requires a navigator", b.cfg.Name)
	}
	if err := b.deps.Nav.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to recovery URL: %w", err)
	}
	return nil
}

func (b *Boundary) recoverData(ctx context.Context) error {
	txs, err := b.deps.Store.Transactions(ctx)
	if err != nil {
		return fmt.Errorf("failed to read preserved transactions: %w", err)
	}
	changes, err := b.deps.Store.UnsavedChanges(ctx)
	if err != nil {
		return fmt.Errorf("failed to read preserved changes: %w", err)
	}
	uploads, err := b.deps.Store.UploadStates(ctx)
	if err != nil {
		return fmt.Errorf("failed to read preserved upload state: %w", err)
	}

	payload := &domain.RecoveryPayload{
		Transactions:   txs,
		UnsavedChanges: changes,
		UploadState:    uploads,
	}
	if b.cfg.OnRecoveryData != nil {
		b.cfg.OnRecoveryData(payload)
	}

	b.mu.Lock()
	b.state = State{}
	b.mu.Unlock()

	metrics.RecoveriesTotal.WithLabelValues(string(domain.StrategyDataRecovery)).Inc()
	if b.cfg.OnRecovery != nil {
		b.cfg.OnRecovery()
	}
	return nil
}

// rollback clears every preserved partition and requests a full restart. It
// is idempotent: a second call before the restart completes does nothing.
func (b *Boundary) rollback(ctx context.Context) error {
	b.mu.Lock()
	if b.rolledBack {
		b.mu.Unlock()
		return nil
	}
	b.rolledBack = true
	b.mu.Unlock()

	if err := b.deps.Store.ClearAll(ctx); err != nil {
		b.mu.Lock()
		b.rolledBack = false
		b.mu.Unlock()
		return fmt.Errorf("rollback failed to clear preserved state: %w", err)
	}

	metrics.RecoveriesTotal.WithLabelValues(string(domain.StrategyRollback)).Inc()
	if b.deps.Restart != nil {
		b.deps.Restart()
	}
	return nil
}

// State returns a snapshot of the coordinator state.
func (b *Boundary) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// AttemptsLeft returns how many retries remain for the current fault.
func (b *Boundary) AttemptsLeft() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	left := b.cfg.MaxRetries - b.state.RetryAttempts
	if left < 0 {
		return 0
	}
	return left
}

// Close tears the boundary down and cancels any pending settle timer.
// In-flight log delivery is fire-and-forget and is not cancelled.
func (b *Boundary) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.settle != nil {
		b.settle.Stop()
		b.settle = nil
	}
}
