// Package restore provides stateless helpers used outside any particular
// protected region, typically at application start or after re-authentication,
// to detect, assemble and replay previously preserved state.
package restore

import (
	"context"
	"fmt"

	"github.com/vietddude/guardrail/internal/core/domain"
	"github.com/vietddude/guardrail/internal/events"
	"github.com/vietddude/guardrail/internal/preserve"
)

// HasRecoveryData reports whether any partition or recovery envelope from a
// previous run is waiting to be replayed.
func HasRecoveryData(ctx context.Context, store preserve.Store) (bool, error) {
	return store.HasAny(ctx)
}

// GetRecoveryData assembles everything preserved by a previous run into one
// payload. The two recovery envelopes are consumed by this read; the three
// partitions are left in place until ClearRecoveryData.
func GetRecoveryData(ctx context.Context, store preserve.Store) (*domain.RecoveryPayload, error) {
	txs, err := store.Transactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read preserved transactions: %w", err)
	}
	changes, err := store.UnsavedChanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read preserved changes: %w", err)
	}
	uploads, err := store.UploadStates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read preserved upload state: %w", err)
	}
	auth, err := store.TakeAuthEnvelope(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to take auth envelope: %w", err)
	}
	critical, err := store.TakeCriticalEnvelope(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to take critical envelope: %w", err)
	}

	return &domain.RecoveryPayload{
		Transactions:    txs,
		UnsavedChanges:  changes,
		UploadState:     uploads,
		AuthRecovery:    auth,
		CriticalContext: critical,
	}, nil
}

// ClearRecoveryData discards everything preserved by a previous run.
func ClearRecoveryData(ctx context.Context, store preserve.Store) error {
	return store.ClearAll(ctx)
}

// Restore broadcasts the payload to interested consumers. The subtree that
// preserved this state may no longer exist, so delivery goes through the
// event channel rather than direct references.
func Restore(bus *events.Broadcaster, payload *domain.RecoveryPayload) {
	if payload == nil || payload.Empty() {
		return
	}

	if len(payload.Transactions) > 0 {
		bus.Publish(domain.RecoveryEvent{
			Type:         domain.EventRestoreTransactions,
			Transactions: payload.Transactions,
		})
	}

	changes := payload.UnsavedChanges
	if len(changes) == 0 && payload.AuthRecovery != nil {
		changes = payload.AuthRecovery.UnsavedChanges
	}
	if len(changes) > 0 {
		bus.Publish(domain.RecoveryEvent{
			Type:           domain.EventRestoreUnsavedChanges,
			UnsavedChanges: changes,
		})
	}
}
