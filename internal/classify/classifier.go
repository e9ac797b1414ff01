// Package classify turns raw failures into typed, severity-ranked fault
// records with an attached recovery policy.
package classify

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/guardrail/internal/core/domain"
)

// Options carries the ambient context available at classification time.
type Options struct {
	Operation   string
	RecoveryURL string
	Client      domain.ClientInfo
	Financial   *domain.FinancialContext
	Additional  map[string]any
	Code        string
	Stack       string
}

type rule struct {
	kind        domain.FaultKind
	keywords    []string
	severity    domain.Severity
	strategy    domain.RecoveryStrategy
	auto        bool
	userAction  bool
	recoverable bool
	userMessage string
}

// rules are evaluated top to bottom and the first match wins. The order is
// observable behavior: several categories share keywords ("payment gateway
// timeout" would also match the session_expired rule), so a single fixed
// priority is kept rather than letting multiple rules match.
var rules = []rule{
	{
		kind:        domain.FaultNetwork,
		keywords:    []string{"network", "failed to fetch", "fetch", "connection", "offline"},
		severity:    domain.SeverityMedium,
		strategy:    domain.StrategyRetry,
		auto:        true,
		recoverable: true,
		userMessage: "Connection problem detected. Your work has been saved and we'll retry automatically.",
	},
	{
		kind:        domain.FaultAuthentication,
		keywords:    []string{"401", "unauthorized", "authentication", "credential", "token"},
		severity:    domain.SeverityHigh,
		strategy:    domain.StrategySessionRestore,
		userAction:  true,
		recoverable: true,
		userMessage: "Your session needs to be renewed. Your unsaved changes have been preserved.",
	},
	{
		kind:        domain.FaultTransaction,
		keywords:    []string{"transaction", "ledger"},
		severity:    domain.SeverityCritical,
		strategy:    domain.StrategyDataRecovery,
		userAction:  true,
		recoverable: true,
		userMessage: "The transaction could not be completed. No data was lost and your pending changes are preserved for recovery.",
	},
	{
		kind:        domain.FaultUpload,
		keywords:    []string{"upload", "file transfer"},
		severity:    domain.SeverityHigh,
		strategy:    domain.StrategyRetry,
		auto:        true,
		recoverable: true,
		userMessage: "The upload was interrupted. Your progress has been saved so it can resume.",
	},
	{
		kind:        domain.FaultPayment,
		keywords:    []string{"payment", "charge", "gateway", "card"},
		severity:    domain.SeverityCritical,
		strategy:    domain.StrategyRollback,
		userAction:  true,
		recoverable: true,
		userMessage: "The payment could not be processed. No charge was made to your account.",
	},
	{
		kind:        domain.FaultDatabase,
		keywords:    []string{"database", "sql", "persistence"},
		severity:    domain.SeverityHigh,
		strategy:    domain.StrategyDataRecovery,
		auto:        true,
		recoverable: true,
		userMessage: "We're having trouble reaching our servers. Your data is safe and nothing was lost.",
	},
	{
		kind:        domain.FaultSessionExpired,
		keywords:    []string{"session", "expired", "timeout"},
		severity:    domain.SeverityHigh,
		strategy:    domain.StrategySessionRestore,
		userAction:  true,
		recoverable: true,
		userMessage: "Your session has expired. Sign in again to pick up where you left off.",
	},
	{
		kind:        domain.FaultValidation,
		keywords:    []string{"validation", "invalid", "required"},
		severity:    domain.SeverityLow,
		strategy:    domain.StrategyRetry,
		userAction:  true,
		recoverable: true,
		userMessage: "Some of the entered information looks invalid. Please review it and try again.",
	},
}

var fallback = rule{
	kind:        domain.FaultUnknown,
	severity:    domain.SeverityMedium,
	strategy:    domain.StrategyRetry,
	auto:        true,
	recoverable: true,
	userMessage: "Something went wrong. You can try again.",
}

// Classify maps a raw failure plus ambient context into an immutable fault
// record. It performs no I/O; the same error text always yields the same kind,
// severity and recovery policy.
func Classify(err error, opts Options) *domain.Fault {
	msg := err.Error()
	r := match(strings.ToLower(msg))

	fctx := domain.FaultContext{
		Timestamp:      time.Now(),
		Client:         opts.Client,
		Financial:      opts.Financial,
		AdditionalData: opts.Additional,
	}
	if opts.Operation != "" {
		if fctx.AdditionalData == nil {
			fctx.AdditionalData = map[string]any{}
		}
		fctx.AdditionalData["operation"] = opts.Operation
	}

	rec := domain.Recovery{
		Strategy:           r.strategy,
		AutoRecoverable:    r.auto,
		RequiresUserAction: r.userAction,
	}
	if r.strategy == domain.StrategySessionRestore {
		rec.RecoveryURL = opts.RecoveryURL
	}
	if r.strategy == domain.StrategyDataRecovery && opts.Financial != nil {
		rec.PreservedData = map[string]any{
			"pending_transactions": opts.Financial.PendingTransactions,
			"unsaved_changes":      opts.Financial.UnsavedChanges,
		}
	}

	return &domain.Fault{
		ID:          uuid.New().String(),
		Message:     msg,
		Kind:        r.kind,
		Severity:    r.severity,
		Recoverable: r.recoverable,
		UserMessage: r.userMessage,
		Context:     fctx,
		Recovery:    rec,
		Code:        opts.Code,
		Stack:       opts.Stack,
	}
}

func match(lower string) rule {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r
			}
		}
	}
	return fallback
}
