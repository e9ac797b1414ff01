package boundary

import (
	"time"

	"github.com/vietddude/guardrail/internal/core/domain"
)

// FinancialContext supplies the working state a boundary snapshots on catch.
// Providers are optional; a nil provider means the region has no state of
// that shape.
type FinancialContext struct {
	Transactions   func() []domain.PendingTransaction
	UnsavedChanges func() map[string]any
	UploadProgress func() float64
	BatchID        string
}

// Config parameterizes one protected region. The specializations below are
// configurations of the same state machine, not separate implementations.
type Config struct {
	Name            string
	MaxRetries      int
	RetryDelay      time.Duration
	SettleDelay     time.Duration
	EnableRetry     bool
	EnableReporting bool
	RecoveryURL     string
	Financial       FinancialContext

	OnFault        func(f *domain.Fault)
	OnRecovery     func()
	OnRecoveryData func(p *domain.RecoveryPayload)
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "unnamed"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = time.Second
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = 100 * time.Millisecond
	}
	return c
}

// TransactionConfig protects uncommitted transaction edits. Fewer retries:
// repeated replays of a financial write are riskier than of a read.
func TransactionConfig(name string) Config {
	return Config{
		Name:            name,
		MaxRetries:      2,
		RetryDelay:      2 * time.Second,
		EnableRetry:     true,
		EnableReporting: true,
	}
}

// UploadConfig protects file uploads, which are transient enough to retry
// generously.
func UploadConfig(name string) Config {
	return Config{
		Name:            name,
		MaxRetries:      5,
		RetryDelay:      time.Second,
		EnableRetry:     true,
		EnableReporting: true,
	}
}

// AuthConfig protects regions whose failures are session-shaped; recovery
// navigates to the sign-in flow.
func AuthConfig(name, recoveryURL string) Config {
	if recoveryURL == "" {
		recoveryURL = "/login"
	}
	return Config{
		Name:            name,
		MaxRetries:      1,
		RetryDelay:      time.Second,
		EnableRetry:     true,
		EnableReporting: true,
		RecoveryURL:     recoveryURL,
	}
}

// CriticalOperationConfig protects money-movement operations. Plain retry is
// disabled: the only way out of a fault is an explicit recovery action.
func CriticalOperationConfig(name string) Config {
	return Config{
		Name:            name,
		MaxRetries:      1,
		RetryDelay:      time.Second,
		EnableRetry:     false,
		EnableReporting: true,
	}
}
