// Package memory provides in-process implementations of the preservation
// store and the fault history. Used in tests and as the fallback when no
// durable backend is configured; preserved state does not survive a restart.
package memory

import (
	"context"
	"sync"

	"github.com/vietddude/guardrail/internal/core/domain"
)

// Store implements preserve.Store in process memory.
type Store struct {
	mu       sync.RWMutex
	txs      []domain.PendingTransaction
	changes  map[string]any
	uploads  map[string]domain.UploadState
	auth     *domain.AuthRecoveryEnvelope
	critical *domain.CriticalContextEnvelope
}

// NewStore creates an empty in-memory preservation store.
func NewStore() *Store {
	return &Store{
		changes: make(map[string]any),
		uploads: make(map[string]domain.UploadState),
	}
}

func (s *Store) SaveTransactions(ctx context.Context, txs []domain.PendingTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append([]domain.PendingTransaction(nil), txs...)
	return nil
}

func (s *Store) Transactions(ctx context.Context) ([]domain.PendingTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.txs) == 0 {
		return nil, nil
	}
	return append([]domain.PendingTransaction(nil), s.txs...), nil
}

func (s *Store) SaveChange(ctx context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes[key] = value
	return nil
}

func (s *Store) UnsavedChanges(ctx context.Context) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.changes))
	for k, v := range s.changes {
		out[k] = v
	}
	return out, nil
}

func (s *Store) SaveUploadState(ctx context.Context, batchID string, st domain.UploadState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[batchID] = st
	return nil
}

func (s *Store) UploadStates(ctx context.Context) (map[string]domain.UploadState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.UploadState, len(s.uploads))
	for k, v := range s.uploads {
		out[k] = v
	}
	return out, nil
}

func (s *Store) PutAuthEnvelope(ctx context.Context, env *domain.AuthRecoveryEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *env
	s.auth = &cp
	return nil
}

func (s *Store) TakeAuthEnvelope(ctx context.Context) (*domain.AuthRecoveryEnvelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	env := s.auth
	s.auth = nil
	return env, nil
}

func (s *Store) PeekAuthEnvelope(ctx context.Context) (*domain.AuthRecoveryEnvelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.auth == nil {
		return nil, nil
	}
	cp := *s.auth
	return &cp, nil
}

func (s *Store) PutCriticalEnvelope(ctx context.Context, env *domain.CriticalContextEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *env
	s.critical = &cp
	return nil
}

func (s *Store) TakeCriticalEnvelope(ctx context.Context) (*domain.CriticalContextEnvelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	env := s.critical
	s.critical = nil
	return env, nil
}

func (s *Store) PeekCriticalEnvelope(ctx context.Context) (*domain.CriticalContextEnvelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.critical == nil {
		return nil, nil
	}
	cp := *s.critical
	return &cp, nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = nil
	s.changes = make(map[string]any)
	s.uploads = make(map[string]domain.UploadState)
	s.auth = nil
	s.critical = nil
	return nil
}

func (s *Store) HasAny(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txs) > 0 || len(s.changes) > 0 || len(s.uploads) > 0 ||
		s.auth != nil || s.critical != nil, nil
}
