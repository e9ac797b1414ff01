package domain

import "time"

// FaultKind categorizes a caught failure.
type FaultKind string

const (
	FaultNetwork        FaultKind = "network"
	FaultAuthentication FaultKind = "authentication"
	FaultTransaction    FaultKind = "transaction"
	FaultUpload         FaultKind = "upload"
	FaultPayment        FaultKind = "payment"
	FaultDatabase       FaultKind = "database"
	FaultSessionExpired FaultKind = "session_expired"
	FaultValidation     FaultKind = "validation"
	FaultUnknown        FaultKind = "unknown"
)

// Severity ranks how damaging a fault is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RecoveryStrategy names the policy attached to a fault.
type RecoveryStrategy string

const (
	StrategyRetry          RecoveryStrategy = "retry"
	StrategyRollback       RecoveryStrategy = "rollback"
	StrategySessionRestore RecoveryStrategy = "session_restore"
	StrategyDataRecovery   RecoveryStrategy = "data_recovery"
	StrategyNone           RecoveryStrategy = "none"
)

// Recovery describes which actions a fault surface may offer and what
// recovering actually does.
type Recovery struct {
	Strategy           RecoveryStrategy `json:"strategy"`
	AutoRecoverable    bool             `json:"auto_recoverable"`
	RequiresUserAction bool             `json:"requires_user_action"`
	PreservedData      map[string]any   `json:"preserved_data,omitempty"`
	RecoveryURL        string           `json:"recovery_url,omitempty"`
}

// ClientInfo identifies where the failure was observed.
type ClientInfo struct {
	UserAgent string `json:"user_agent"`
	URL       string `json:"url"`
}

// FinancialContext is the working state captured alongside a fault.
type FinancialContext struct {
	PendingTransactions []PendingTransaction `json:"pending_transactions,omitempty"`
	UnsavedChanges      map[string]any       `json:"unsaved_changes,omitempty"`
	UploadProgress      float64              `json:"upload_progress,omitempty"`
	BatchID             string               `json:"batch_id,omitempty"`
}

// FaultContext is captured once, at classification time, and never mutated.
type FaultContext struct {
	Timestamp      time.Time         `json:"timestamp"`
	Client         ClientInfo        `json:"client_info"`
	Financial      *FinancialContext `json:"financial_context,omitempty"`
	AdditionalData map[string]any    `json:"additional_data,omitempty"`
}

// Fault is a classified failure record. It is immutable once built by the
// classifier.
type Fault struct {
	ID          string       `json:"id"`
	Message     string       `json:"message"`
	Kind        FaultKind    `json:"kind"`
	Severity    Severity     `json:"severity"`
	Recoverable bool         `json:"recoverable"`
	UserMessage string       `json:"user_message"`
	Context     FaultContext `json:"context"`
	Recovery    Recovery     `json:"recovery"`
	Code        string       `json:"code,omitempty"`
	Stack       string       `json:"stack,omitempty"`
}

// Critical reports whether the fault must disable plain retry in favor of an
// explicit recovery action.
func (f *Fault) Critical() bool {
	return f.Severity == SeverityCritical
}
