// Package faultlog records every classified fault and forwards severe ones to
// the remote reporting endpoint, queueing undelivered reports while offline.
package faultlog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/guardrail/internal/core/domain"
	"github.com/vietddude/guardrail/internal/metrics"
)

// History is the append-only local record of classified faults.
type History interface {
	Append(ctx context.Context, f *domain.Fault) error
	Recent(ctx context.Context, n int) ([]*domain.Fault, error)
}

// Reporter delivers a fault record to the remote reporting endpoint.
type Reporter interface {
	Report(ctx context.Context, f *domain.Fault) error
}

// Options configures the logger.
type Options struct {
	// Production forces remote delivery for every fault, not just critical
	// ones.
	Production bool
	// Debug includes raw stack text in the local diagnostic output.
	Debug bool
	Log   *slog.Logger
}

// Logger is the process-wide fault log. Exactly one instance exists for the
// life of the process; boundaries receive it by reference so that connectivity
// tracking and the retry queue are not duplicated.
type Logger struct {
	history    History
	reporter   Reporter
	log        *slog.Logger
	production bool
	debug      bool

	mu     sync.Mutex
	online bool
	queue  []func(context.Context) error

	wg sync.WaitGroup
}

// New creates the process-wide fault logger. The logger starts online;
// connectivity transitions come from the report monitor.
func New(history History, reporter Reporter, opts Options) *Logger {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Logger{
		history:    history,
		reporter:   reporter,
		log:        log,
		production: opts.Production,
		debug:      opts.Debug,
		online:     true,
	}
}

// Log records a fault locally and, for critical faults or production builds,
// attempts best-effort remote delivery. Every caught failure produces exactly
// one history entry and one diagnostic record.
func (l *Logger) Log(ctx context.Context, f *domain.Fault) {
	l.record(ctx, f)

	if l.reporter == nil {
		return
	}
	if !f.Critical() && !l.production {
		return
	}

	l.mu.Lock()
	online := l.online
	l.mu.Unlock()

	if !online {
		l.enqueue(f)
		return
	}

	// Fire-and-forget: delivery never blocks the caller.
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.deliver(f)
	}()
}

// LogLocal records a fault locally without attempting remote delivery. Used
// by boundaries configured with reporting disabled.
func (l *Logger) LogLocal(ctx context.Context, f *domain.Fault) {
	l.record(ctx, f)
}

func (l *Logger) record(ctx context.Context, f *domain.Fault) {
	if err := l.history.Append(ctx, f); err != nil {
		l.log.Warn("Failed to append fault history", "fault_id", f.ID, "error", err)
	}

	attrs := []any{
		"fault_id", f.ID,
		"kind", f.Kind,
		"severity", f.Severity,
		"strategy", f.Recovery.Strategy,
		"recoverable", f.Recoverable,
	}
	if f.Code != "" {
		attrs = append(attrs, "code", f.Code)
	}
	if l.debug && f.Stack != "" {
		attrs = append(attrs, "stack", f.Stack)
	}

	switch f.Severity {
	case domain.SeverityCritical, domain.SeverityHigh:
		l.log.Error(f.Message, attrs...)
	case domain.SeverityMedium:
		l.log.Warn(f.Message, attrs...)
	default:
		l.log.Info(f.Message, attrs...)
	}

	metrics.FaultsTotal.WithLabelValues(string(f.Kind), string(f.Severity)).Inc()
}

func (l *Logger) deliver(f *domain.Fault) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := l.reporter.Report(ctx, f); err != nil {
		l.log.Warn("Fault report delivery failed, queued for retry", "fault_id", f.ID, "error", err)
		metrics.ReportsTotal.WithLabelValues("failed").Inc()
		l.enqueue(f)
		return
	}
	metrics.ReportsTotal.WithLabelValues("delivered").Inc()
}

func (l *Logger) enqueue(f *domain.Fault) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.queue = append(l.queue, func(ctx context.Context) error {
		return l.reporter.Report(ctx, f)
	})
	metrics.ReportQueueDepth.Set(float64(len(l.queue)))
}

// SetOnline updates the connectivity flag. On a transition to online the
// retry queue is drained sequentially; individual failures are swallowed so
// one bad entry cannot block the rest.
func (l *Logger) SetOnline(online bool) {
	l.mu.Lock()
	was := l.online
	l.online = online
	var pending []func(context.Context) error
	if online && !was {
		pending = l.queue
		l.queue = nil
		metrics.ReportQueueDepth.Set(0)
	}
	l.mu.Unlock()

	if len(pending) == 0 {
		return
	}

	l.log.Info("Connectivity restored, draining fault report queue", "pending", len(pending))
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	for _, send := range pending {
		if err := send(ctx); err != nil {
			l.log.Warn("Queued fault report still undeliverable, dropped", "error", err)
			metrics.ReportsTotal.WithLabelValues("failed").Inc()
			continue
		}
		metrics.ReportsTotal.WithLabelValues("delivered").Inc()
	}
}

// Online reports the current connectivity flag.
func (l *Logger) Online() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.online
}

// QueueDepth returns the number of reports waiting for connectivity.
func (l *Logger) QueueDepth() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Recent exposes the local fault history.
func (l *Logger) Recent(ctx context.Context, n int) ([]*domain.Fault, error) {
	return l.history.Recent(ctx, n)
}
