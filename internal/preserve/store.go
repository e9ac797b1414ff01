// Package preserve defines the durable store for financial working-state.
// The store lives outside any failing subtree so that pending transaction
// edits, unsaved form changes and upload progress survive the fault that
// triggered their preservation, including a full process restart.
package preserve

import (
	"context"

	"github.com/vietddude/guardrail/internal/core/domain"
)

// Store persists the three working-state partitions plus the two one-shot
// recovery envelopes. Reads return empty defaults when nothing is stored.
// Writes are last-write-wins per key. Nothing is ever cleared except through
// ClearAll or the Take* envelope reads.
type Store interface {
	SaveTransactions(ctx context.Context, txs []domain.PendingTransaction) error
	Transactions(ctx context.Context) ([]domain.PendingTransaction, error)

	SaveChange(ctx context.Context, key string, value any) error
	UnsavedChanges(ctx context.Context) (map[string]any, error)

	SaveUploadState(ctx context.Context, batchID string, st domain.UploadState) error
	UploadStates(ctx context.Context) (map[string]domain.UploadState, error)

	// Envelopes are write-once per fault and read-once per recovery: Take
	// returns the envelope and deletes it in the same call. A nil envelope
	// with a nil error means nothing was stored. Peek reads without
	// consuming, for inspection surfaces only.
	PutAuthEnvelope(ctx context.Context, env *domain.AuthRecoveryEnvelope) error
	TakeAuthEnvelope(ctx context.Context) (*domain.AuthRecoveryEnvelope, error)
	PeekAuthEnvelope(ctx context.Context) (*domain.AuthRecoveryEnvelope, error)
	PutCriticalEnvelope(ctx context.Context, env *domain.CriticalContextEnvelope) error
	TakeCriticalEnvelope(ctx context.Context) (*domain.CriticalContextEnvelope, error)
	PeekCriticalEnvelope(ctx context.Context) (*domain.CriticalContextEnvelope, error)

	ClearAll(ctx context.Context) error
	HasAny(ctx context.Context) (bool, error)
}
