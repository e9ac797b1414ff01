package domain

// RecoveryEvent carries preserved state back to whichever consumer is
// currently mounted. The original failing subtree may no longer exist, so
// delivery goes through a broadcast channel rather than direct references.
type RecoveryEvent struct {
	Type           RecoveryEventType
	Transactions   []PendingTransaction
	UnsavedChanges map[string]any
}

type RecoveryEventType string

const (
	EventRestoreTransactions   RecoveryEventType = "restore_transactions"
	EventRestoreUnsavedChanges RecoveryEventType = "restore_unsaved_changes"
)
