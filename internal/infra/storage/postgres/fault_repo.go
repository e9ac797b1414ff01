package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vietddude/guardrail/internal/core/domain"
)

// FaultHistoryRepo implements the fault history on PostgreSQL.
type FaultHistoryRepo struct {
	db *DB
}

// NewFaultHistoryRepo creates a PostgreSQL fault history repository.
func NewFaultHistoryRepo(db *DB) *FaultHistoryRepo {
	return &FaultHistoryRepo{db: db}
}

// Append records one classified fault.
func (r *FaultHistoryRepo) Append(ctx context.Context, f *domain.Fault) error {
	fctx, err := json.Marshal(f.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal fault context: %w", err)
	}

	query := `
		INSERT INTO fault_history (fault_id, kind, severity, message, user_message, code, recoverable, strategy, context)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		f.ID,
		string(f.Kind),
		string(f.Severity),
		f.Message,
		f.UserMessage,
		f.Code,
		f.Recoverable,
		string(f.Recovery.Strategy),
		fctx,
	); err != nil {
		return fmt.Errorf("failed to append fault: %w", err)
	}
	return nil
}

type faultRow struct {
	FaultID     string    `db:"fault_id"`
	Kind        string    `db:"kind"`
	Severity    string    `db:"severity"`
	Message     string    `db:"message"`
	UserMessage string    `db:"user_message"`
	Code        string    `db:"code"`
	Recoverable bool      `db:"recoverable"`
	Strategy    string    `db:"strategy"`
	Context     []byte    `db:"context"`
	CreatedAt   time.Time `db:"created_at"`
}

// Recent returns up to n of the most recent faults, newest first.
func (r *FaultHistoryRepo) Recent(ctx context.Context, n int) ([]*domain.Fault, error) {
	if n <= 0 {
		n = 50
	}

	query := `
		SELECT fault_id, kind, severity, message, user_message, code, recoverable, strategy, context, created_at
		FROM fault_history
		ORDER BY created_at DESC
		LIMIT $1
	`
	var rows []faultRow
	if err := r.db.SelectContext(ctx, &rows, query, n); err != nil {
		return nil, fmt.Errorf("failed to query fault history: %w", err)
	}

	faults := make([]*domain.Fault, 0, len(rows))
	for _, row := range rows {
		f := &domain.Fault{
			ID:          row.FaultID,
			Message:     row.Message,
			Kind:        domain.FaultKind(row.Kind),
			Severity:    domain.Severity(row.Severity),
			Recoverable: row.Recoverable,
			UserMessage: row.UserMessage,
			Code:        row.Code,
			Recovery:    domain.Recovery{Strategy: domain.RecoveryStrategy(row.Strategy)},
		}
		if len(row.Context) > 0 {
			_ = json.Unmarshal(row.Context, &f.Context)
		}
		faults = append(faults, f)
	}
	return faults, nil
}

// Purge deletes history entries older than the retention period. A zero
// retention keeps everything.
func (r *FaultHistoryRepo) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(
		ctx,
		`DELETE FROM fault_history WHERE created_at < $1`,
		time.Now().Add(-retention),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge fault history: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
