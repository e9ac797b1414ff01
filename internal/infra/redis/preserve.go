package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vietddude/guardrail/internal/core/domain"
	"github.com/vietddude/guardrail/internal/preserve"
)

// PreserveStore implements preserve.Store on Redis. Single values are stored
// as JSON strings, the two keyed partitions as hashes so writes stay
// last-write-wins per key. No TTLs: preserved financial state lives until an
// explicit clear or a consumed envelope read.
type PreserveStore struct {
	rdb       *redis.Client
	namespace string
}

// NewPreserveStore creates a Redis-backed preservation store.
func NewPreserveStore(client *Client, namespace string) *PreserveStore {
	return &PreserveStore{rdb: client.rdb, namespace: namespace}
}

func (s *PreserveStore) key(name string) string {
	if s.namespace == "" {
		return name
	}
	return fmt.Sprintf("%s:%s", s.namespace, name)
}

// SaveTransactions replaces the preserved pending-transactions partition.
func (s *PreserveStore) SaveTransactions(ctx context.Context, txs []domain.PendingTransaction) error {
	data, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("failed to marshal transactions: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(preserve.KeyPendingTransactions), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to preserve transactions: %w", err)
	}
	return nil
}

// Transactions returns the preserved pending transactions, or nil if none.
func (s *PreserveStore) Transactions(ctx context.Context) ([]domain.PendingTransaction, error) {
	data, err := s.rdb.Get(ctx, s.key(preserve.KeyPendingTransactions)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	var txs []domain.PendingTransaction
	if err := json.Unmarshal(data, &txs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transactions: %w", err)
	}
	return txs, nil
}

// SaveChange preserves one unsaved-changes entry, last write wins per key.
func (s *PreserveStore) SaveChange(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal change %q: %w", key, err)
	}
	if err := s.rdb.HSet(ctx, s.key(preserve.KeyUnsavedChanges), key, data).Err(); err != nil {
		return fmt.Errorf("failed to preserve change %q: %w", key, err)
	}
	return nil
}

// UnsavedChanges returns every preserved unsaved-changes entry.
func (s *PreserveStore) UnsavedChanges(ctx context.Context) (map[string]any, error) {
	raw, err := s.rdb.HGetAll(ctx, s.key(preserve.KeyUnsavedChanges)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get unsaved changes: %w", err)
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	changes := make(map[string]any, len(raw))
	for k, v := range raw {
		var val any
		if err := json.Unmarshal([]byte(v), &val); err != nil {
			continue
		}
		changes[k] = val
	}
	return changes, nil
}

// SaveUploadState preserves the state of one upload batch.
func (s *PreserveStore) SaveUploadState(ctx context.Context, batchID string, st domain.UploadState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal upload state: %w", err)
	}
	if err := s.rdb.HSet(ctx, s.key(preserve.KeyUploadState), batchID, data).Err(); err != nil {
		return fmt.Errorf("failed to preserve upload state: %w", err)
	}
	return nil
}

// UploadStates returns all preserved upload batches.
func (s *PreserveStore) UploadStates(ctx context.Context) (map[string]domain.UploadState, error) {
	raw, err := s.rdb.HGetAll(ctx, s.key(preserve.KeyUploadState)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get upload state: %w", err)
	}
	states := make(map[string]domain.UploadState, len(raw))
	for batchID, v := range raw {
		var st domain.UploadState
		if err := json.Unmarshal([]byte(v), &st); err != nil {
			continue
		}
		states[batchID] = st
	}
	return states, nil
}

// PutAuthEnvelope stores the authentication-recovery envelope.
func (s *PreserveStore) PutAuthEnvelope(ctx context.Context, env *domain.AuthRecoveryEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal auth envelope: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(preserve.KeyAuthRecovery), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store auth envelope: %w", err)
	}
	return nil
}

// TakeAuthEnvelope reads and deletes the authentication-recovery envelope.
func (s *PreserveStore) TakeAuthEnvelope(ctx context.Context) (*domain.AuthRecoveryEnvelope, error) {
	data, err := s.rdb.GetDel(ctx, s.key(preserve.KeyAuthRecovery)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take auth envelope: %w", err)
	}
	var env domain.AuthRecoveryEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal auth envelope: %w", err)
	}
	return &env, nil
}

// PeekAuthEnvelope reads the authentication-recovery envelope without
// consuming it.
func (s *PreserveStore) PeekAuthEnvelope(ctx context.Context) (*domain.AuthRecoveryEnvelope, error) {
	data, err := s.rdb.Get(ctx, s.key(preserve.KeyAuthRecovery)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to peek auth envelope: %w", err)
	}
	var env domain.AuthRecoveryEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal auth envelope: %w", err)
	}
	return &env, nil
}

// PutCriticalEnvelope stores the critical-context envelope.
func (s *PreserveStore) PutCriticalEnvelope(ctx context.Context, env *domain.CriticalContextEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal critical envelope: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key(preserve.KeyCriticalContext), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store critical envelope: %w", err)
	}
	return nil
}

// TakeCriticalEnvelope reads and deletes the critical-context envelope.
func (s *PreserveStore) TakeCriticalEnvelope(ctx context.Context) (*domain.CriticalContextEnvelope, error) {
	data, err := s.rdb.GetDel(ctx, s.key(preserve.KeyCriticalContext)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take critical envelope: %w", err)
	}
	var env domain.CriticalContextEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal critical envelope: %w", err)
	}
	return &env, nil
}

// PeekCriticalEnvelope reads the critical-context envelope without consuming
// it.
func (s *PreserveStore) PeekCriticalEnvelope(ctx context.Context) (*domain.CriticalContextEnvelope, error) {
	data, err := s.rdb.Get(ctx, s.key(preserve.KeyCriticalContext)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to peek critical envelope: %w", err)
	}
	var env domain.CriticalContextEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal critical envelope: %w", err)
	}
	return &env, nil
}

// ClearAll removes every preserved partition and envelope.
func (s *PreserveStore) ClearAll(ctx context.Context) error {
	keys := make([]string, 0, len(preserve.Keys))
	for _, k := range preserve.Keys {
		keys = append(keys, s.key(k))
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear preserved state: %w", err)
	}
	return nil
}

// HasAny reports whether any partition or envelope is non-empty.
func (s *PreserveStore) HasAny(ctx context.Context) (bool, error) {
	keys := make([]string, 0, len(preserve.Keys))
	for _, k := range preserve.Keys {
		keys = append(keys, s.key(k))
	}
	n, err := s.rdb.Exists(ctx, keys...).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check preserved state: %w", err)
	}
	return n > 0, nil
}
