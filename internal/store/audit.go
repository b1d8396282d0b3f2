// Package store persists the audit trail of finished operations.
// Queued work itself is never persisted; only terminal transitions are
// written, so a restart starts with an empty queue but a full history.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/docbatch/pkg/model"

	_ "modernc.org/sqlite"
)

// AuditStore writes and reads audit entries backed by SQLite.
type AuditStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// AuditEntry is one recorded terminal transition.
type AuditEntry struct {
	OperationID string     `json:"operation_id"`
	Type        string     `json:"type"`
	Handler     string     `json:"handler"`
	Method      string     `json:"method"`
	Priority    int        `json:"priority"`
	Status      string     `json:"status"`
	Args        any        `json:"args,omitempty"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RecordedAt  time.Time  `json:"recorded_at"`
}

// NewAuditStore opens (or creates) a SQLite database at dbPath.
// Use ":memory:" for an in-memory database (useful in tests).
func NewAuditStore(dbPath string, logger *slog.Logger) (*AuditStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &AuditStore{
		db:     db,
		logger: logger.With("component", "audit-store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *AuditStore) Close() error {
	return s.db.Close()
}

// Migrate creates the audit table and its indexes.
func (s *AuditStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			operation_id TEXT NOT NULL,
			type TEXT NOT NULL,
			handler TEXT NOT NULL,
			method TEXT NOT NULL,
			priority INTEGER NOT NULL,
			status TEXT NOT NULL,
			args TEXT,
			result TEXT,
			error TEXT,
			created_at TEXT NOT NULL,
			completed_at TEXT,
			recorded_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_operation ON audit_log(operation_id);
		CREATE INDEX IF NOT EXISTS idx_audit_status ON audit_log(status);
	`)
	return err
}

// Record writes one terminal transition. It satisfies queue.AuditSink.
func (s *AuditStore) Record(ctx context.Context, op *model.Operation) error {
	s.logger.Debug("sql", "op", "insert", "table", "audit_log", "operation_id", op.ID)

	argsJSON, err := json.Marshal(op.Args)
	if err != nil {
		return fmt.Errorf("marshal args: %w", err)
	}
	resultJSON, err := json.Marshal(op.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	var completedAt *string
	if op.CompletedAt != nil {
		v := op.CompletedAt.Format(time.RFC3339Nano)
		completedAt = &v
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_log (operation_id, type, handler, method, priority, status, args, result, error, created_at, completed_at, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.ID, string(op.Type), op.Handler, op.Method, op.Priority, string(op.Status),
		string(argsJSON), string(resultJSON), op.Error,
		op.CreatedAt.Format(time.RFC3339Nano), completedAt,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

// List returns audit entries newest first, plus the total row count.
func (s *AuditStore) List(ctx context.Context, opts model.ListOptions) ([]*AuditEntry, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "audit_log", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT operation_id, type, handler, method, priority, status, args, result, error, created_at, completed_at, recorded_at
		 FROM audit_log ORDER BY id DESC LIMIT ? OFFSET ?`,
		opts.Limit, opts.Offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		var argsJSON, resultJSON string
		var createdAt, recordedAt string
		var completedAt *string

		if err := rows.Scan(&e.OperationID, &e.Type, &e.Handler, &e.Method, &e.Priority, &e.Status,
			&argsJSON, &resultJSON, &e.Error, &createdAt, &completedAt, &recordedAt); err != nil {
			return nil, 0, err
		}

		json.Unmarshal([]byte(argsJSON), &e.Args)
		json.Unmarshal([]byte(resultJSON), &e.Result)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		e.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		if completedAt != nil {
			t, _ := time.Parse(time.RFC3339Nano, *completedAt)
			e.CompletedAt = &t
		}

		entries = append(entries, &e)
	}
	return entries, total, rows.Err()
}

// GetByOperation returns the audit entries for one operation id, oldest
// first. An operation normally has exactly one terminal entry.
func (s *AuditStore) GetByOperation(ctx context.Context, operationID string) ([]*AuditEntry, error) {
	s.logger.Debug("sql", "op", "select", "table", "audit_log", "operation_id", operationID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT operation_id, type, handler, method, priority, status, args, result, error, created_at, completed_at, recorded_at
		 FROM audit_log WHERE operation_id = ? ORDER BY id`, operationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		var e AuditEntry
		var argsJSON, resultJSON string
		var createdAt, recordedAt string
		var completedAt *string

		if err := rows.Scan(&e.OperationID, &e.Type, &e.Handler, &e.Method, &e.Priority, &e.Status,
			&argsJSON, &resultJSON, &e.Error, &createdAt, &completedAt, &recordedAt); err != nil {
			return nil, err
		}

		json.Unmarshal([]byte(argsJSON), &e.Args)
		json.Unmarshal([]byte(resultJSON), &e.Result)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		e.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		if completedAt != nil {
			t, _ := time.Parse(time.RFC3339Nano, *completedAt)
			e.CompletedAt = &t
		}

		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
