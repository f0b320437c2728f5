package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Store using SQLite for persistence.
// This is the primary backend: the write-ahead log with full synchronous
// mode makes every committed append durable before Append returns, which
// the cost guard relies on for its read-after-write guarantee.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string

	appendStmt      *sql.Stmt
	sumGlobalStmt   *sql.Stmt
	sumServiceStmt  *sql.Stmt
	sumDocumentStmt *sql.Stmt
	deleteStmt      *sql.Stmt
}

// SQLiteConfig configures the SQLite ledger backend.
type SQLiteConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore creates a SQLite-backed ledger with default settings.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	return NewSQLiteStoreWithConfig(SQLiteConfig{DBPath: dbPath})
}

// NewSQLiteStoreWithConfig creates a SQLite-backed ledger with custom
// configuration.
func NewSQLiteStoreWithConfig(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	// FULL synchronous mode so committed cost events survive power loss.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=FULL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &SQLiteStore{
		db:     db,
		dbPath: cfg.DBPath,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, NewStorageError("sqlite", "init schema", err)
	}

	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, NewStorageError("sqlite", "prepare statements", err)
	}

	return store, nil
}

// initSchema creates the cost log schema if it doesn't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cost_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		service TEXT NOT NULL,
		operation TEXT NOT NULL,
		cost REAL NOT NULL,
		document_id TEXT NOT NULL DEFAULT '',
		run_id TEXT NOT NULL DEFAULT '',
		actor TEXT NOT NULL DEFAULT '',
		metadata TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_cost_log_ts ON cost_log(ts);
	CREATE INDEX IF NOT EXISTS idx_cost_log_service_ts ON cost_log(service, ts);
	CREATE INDEX IF NOT EXISTS idx_cost_log_document_ts ON cost_log(document_id, ts);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.appendStmt, err = s.db.Prepare(`
		INSERT INTO cost_log (ts, service, operation, cost, document_id, run_id, actor, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare append statement: %w", err)
	}

	s.sumGlobalStmt, err = s.db.Prepare(`
		SELECT COALESCE(SUM(cost), 0) FROM cost_log WHERE ts >= ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare global sum statement: %w", err)
	}

	s.sumServiceStmt, err = s.db.Prepare(`
		SELECT COALESCE(SUM(cost), 0) FROM cost_log WHERE service = ? AND ts >= ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare service sum statement: %w", err)
	}

	s.sumDocumentStmt, err = s.db.Prepare(`
		SELECT COALESCE(SUM(cost), 0) FROM cost_log WHERE document_id = ? AND ts >= ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare document sum statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`
		DELETE FROM cost_log WHERE ts < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	return nil
}

// Append durably persists one cost event.
func (s *SQLiteStore) Append(ctx context.Context, event *CostEvent) error {
	if event == nil {
		return NewStorageError("sqlite", "append", fmt.Errorf("event cannot be nil"))
	}
	if event.Service == "" {
		return NewStorageError("sqlite", "append", fmt.Errorf("service cannot be empty"))
	}
	if event.Cost < 0 {
		return NewStorageError("sqlite", "append", fmt.Errorf("cost cannot be negative: %f", event.Cost))
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	var metadataJSON []byte
	if len(event.Metadata) > 0 {
		var err error
		metadataJSON, err = json.Marshal(event.Metadata)
		if err != nil {
			return NewStorageError("sqlite", "append", fmt.Errorf("failed to marshal metadata: %w", err))
		}
	}

	_, err := s.appendStmt.ExecContext(ctx,
		ts.UnixNano(),
		event.Service,
		event.Operation,
		event.Cost,
		event.DocumentID,
		event.RunID,
		event.Actor,
		string(metadataJSON),
	)
	if err != nil {
		return NewStorageError("sqlite", "append", err)
	}

	return nil
}

// SumSince returns the sum of costs matching scope since the given time.
func (s *SQLiteStore) SumSince(ctx context.Context, scope Scope, since time.Time) (float64, error) {
	var row *sql.Row
	switch {
	case scope.DocumentID != "":
		row = s.sumDocumentStmt.QueryRowContext(ctx, scope.DocumentID, since.UnixNano())
	case scope.Service != "":
		row = s.sumServiceStmt.QueryRowContext(ctx, scope.Service, since.UnixNano())
	default:
		row = s.sumGlobalStmt.QueryRowContext(ctx, since.UnixNano())
	}

	var sum float64
	if err := row.Scan(&sum); err != nil {
		return 0, NewStorageError("sqlite", "sum", err)
	}

	return sum, nil
}

// EventsSince returns up to limit events matching scope, newest first.
func (s *SQLiteStore) EventsSince(ctx context.Context, scope Scope, since time.Time, limit int) ([]*CostEvent, error) {
	query := `
		SELECT ts, service, operation, cost, document_id, run_id, actor, metadata
		FROM cost_log WHERE ts >= ?
	`
	args := []interface{}{since.UnixNano()}

	if scope.Service != "" {
		query += " AND service = ?"
		args = append(args, scope.Service)
	}
	if scope.DocumentID != "" {
		query += " AND document_id = ?"
		args = append(args, scope.DocumentID)
	}

	query += " ORDER BY ts DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	var events []*CostEvent
	for rows.Next() {
		var (
			ts           int64
			metadataJSON string
			event        CostEvent
		)
		if err := rows.Scan(&ts, &event.Service, &event.Operation, &event.Cost,
			&event.DocumentID, &event.RunID, &event.Actor, &metadataJSON); err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		event.Timestamp = time.Unix(0, ts)
		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &event.Metadata); err != nil {
				return nil, NewStorageError("sqlite", "scan", fmt.Errorf("failed to unmarshal metadata: %w", err))
			}
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}

	return events, nil
}

// DeleteBefore removes events older than cutoff.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.deleteStmt.ExecContext(ctx, cutoff.UnixNano())
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}

	return removed, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.appendStmt, s.sumGlobalStmt, s.sumServiceStmt, s.sumDocumentStmt, s.deleteStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return s.db.Close()
}
