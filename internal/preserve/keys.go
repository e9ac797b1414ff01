package preserve

// Storage keys are a compatibility contract: recovery after a full restart
// depends on reading back exactly what a previous process wrote. Backends may
// namespace them, but the key strings themselves must not change.
const (
	KeyPendingTransactions = "finance_pending_transactions"
	KeyUnsavedChanges      = "finance_unsaved_changes"
	KeyUploadState         = "finance_upload_state"
	KeyAuthRecovery        = "auth_recovery_context"
	KeyCriticalContext     = "critical_error_context"
)

// Keys lists every key the store owns, in a stable order.
var Keys = []string{
	KeyPendingTransactions,
	KeyUnsavedChanges,
	KeyUploadState,
	KeyAuthRecovery,
	KeyCriticalContext,
}
