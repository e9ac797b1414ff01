package memory

import (
	"context"
	"sync"

	"github.com/vietddude/guardrail/internal/core/domain"
)

// FaultHistory keeps a bounded in-memory log of classified faults, newest
// last. Entries are only evicted once the bound is reached, so nothing is
// dropped before at least one read is possible.
type FaultHistory struct {
	mu     sync.Mutex
	max    int
	faults []*domain.Fault
}

// NewFaultHistory creates a history bounded to max entries (0 = unbounded).
func NewFaultHistory(max int) *FaultHistory {
	return &FaultHistory{max: max}
}

// Append records one fault.
func (h *FaultHistory) Append(ctx context.Context, f *domain.Fault) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.faults = append(h.faults, f)
	if h.max > 0 && len(h.faults) > h.max {
		h.faults = h.faults[len(h.faults)-h.max:]
	}
	return nil
}

// Recent returns up to n of the most recent faults, newest first.
func (h *FaultHistory) Recent(ctx context.Context, n int) ([]*domain.Fault, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 || n > len(h.faults) {
		n = len(h.faults)
	}
	out := make([]*domain.Fault, 0, n)
	for i := len(h.faults) - 1; i >= len(h.faults)-n; i-- {
		out = append(out, h.faults[i])
	}
	return out, nil
}

// Len returns the number of retained entries.
func (h *FaultHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.faults)
}
