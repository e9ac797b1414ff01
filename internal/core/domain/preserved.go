package domain

import "time"

// PendingTransaction is an uncommitted financial record awaiting save.
type PendingTransaction struct {
	ID          string    `json:"id"`
	Amount      int64     `json:"amount"` // minor currency units
	Currency    string    `json:"currency"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// UploadState tracks an interrupted upload batch.
type UploadState struct {
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note"`
}

// AuthRecoveryEnvelope is written when a session-restore fault occurs and
// consumed exactly once during recovery.
type AuthRecoveryEnvelope struct {
	URL            string         `json:"url"`
	Timestamp      time.Time      `json:"timestamp"`
	UnsavedChanges map[string]any `json:"unsaved_changes,omitempty"`
}

// CriticalContextEnvelope is written when a critical fault occurs. It holds a
// full snapshot of all preserved partitions at the moment of failure.
type CriticalContextEnvelope struct {
	Operation      string                 `json:"operation"`
	Timestamp      time.Time              `json:"timestamp"`
	Transactions   []PendingTransaction   `json:"transactions,omitempty"`
	UnsavedChanges map[string]any         `json:"unsaved_changes,omitempty"`
	UploadState    map[string]UploadState `json:"upload_state,omitempty"`
}

// RecoveryPayload assembles everything preserved by a previous run so it can
// be replayed or discarded in one piece.
type RecoveryPayload struct {
	Transactions    []PendingTransaction     `json:"transactions,omitempty"`
	UnsavedChanges  map[string]any           `json:"unsaved_changes,omitempty"`
	UploadState     map[string]UploadState   `json:"upload_state,omitempty"`
	AuthRecovery    *AuthRecoveryEnvelope    `json:"auth_recovery,omitempty"`
	CriticalContext *CriticalContextEnvelope `json:"critical_context,omitempty"`
}

// Empty reports whether the payload carries nothing worth replaying.
func (p *RecoveryPayload) Empty() bool {
	return len(p.Transactions) == 0 &&
		len(p.UnsavedChanges) == 0 &&
		len(p.UploadState) == 0 &&
		p.AuthRecovery == nil &&
		p.CriticalContext == nil
}
