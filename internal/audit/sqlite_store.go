package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	entry_id         TEXT PRIMARY KEY,
	plan_run_id      TEXT NOT NULL,
	sequence         INTEGER NOT NULL,
	timestamp        TEXT NOT NULL,
	action_type      TEXT NOT NULL,
	tool_name        TEXT,
	arguments_json   TEXT,
	result_json      TEXT,
	user_id          TEXT,
	step_index       INTEGER NOT NULL,
	compliance_flags TEXT NOT NULL,
	risk_indicators  TEXT NOT NULL,
	justification    TEXT,
	previous_hash    TEXT NOT NULL,
	entry_hash       TEXT NOT NULL,
	UNIQUE (plan_run_id, sequence)
);

CREATE INDEX IF NOT EXISTS idx_audit_entries_run ON audit_entries(plan_run_id, sequence);
`

const entryColumns = `entry_id, plan_run_id, sequence, timestamp, action_type, tool_name, arguments_json,
	result_json, user_id, step_index, compliance_flags, risk_indicators, justification, previous_hash, entry_hash`

// #endregion schema

// #region sqlite-store
// SQLiteStore persists entries in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens the database at dbPath and runs migrations.
func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// single connection: sequence allocation and ":memory:" databases depend on it
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	s, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStore wraps an open database and runs migrations.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// #endregion sqlite-store

// #region append
func (s *SQLiteStore) Append(ctx context.Context, e Entry) (Entry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var lastSeq uint64
	head := genesisHash
	err = tx.QueryRowContext(ctx,
		`SELECT sequence, entry_hash FROM audit_entries WHERE plan_run_id = ? ORDER BY sequence DESC LIMIT 1`,
		e.PlanRunID,
	).Scan(&lastSeq, &head)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("read chain head: %w", err)
	}

	sealed, err := seal(e, lastSeq+1, head)
	if err != nil {
		return Entry{}, err
	}

	flags, err := json.Marshal(sealed.ComplianceFlags)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal compliance flags: %w", err)
	}
	risks, err := json.Marshal(sealed.RiskIndicators)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal risk indicators: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO audit_entries (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sealed.EntryID,
		sealed.PlanRunID,
		sealed.Sequence,
		sealed.Timestamp.UTC().Format(time.RFC3339Nano),
		string(sealed.ActionType),
		nullIfEmpty(sealed.ToolName),
		nullIfEmpty(string(sealed.Arguments)),
		nullIfEmpty(string(sealed.Result)),
		nullIfEmpty(sealed.UserID),
		sealed.StepIndex,
		string(flags),
		string(risks),
		nullIfEmpty(sealed.Justification),
		sealed.PreviousHash,
		sealed.EntryHash,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert audit entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Entry{}, fmt.Errorf("commit: %w", err)
	}
	return sealed, nil
}

// #endregion append

// #region query
func (s *SQLiteStore) Entries(ctx context.Context, planRunID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM audit_entries WHERE plan_run_id = ? ORDER BY sequence ASC`,
		planRunID,
	)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT plan_run_id FROM audit_entries ORDER BY plan_run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, id)
	}
	return runs, rows.Err()
}

// #endregion query

// #region helpers
func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e                        Entry
		ts, action, flags, risks string
		tool, args, result, user sql.NullString
		justification            sql.NullString
	)
	err := rows.Scan(
		&e.EntryID, &e.PlanRunID, &e.Sequence, &ts, &action, &tool, &args,
		&result, &user, &e.StepIndex, &flags, &risks, &justification, &e.PreviousHash, &e.EntryHash,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("scan entry: %w", err)
	}

	e.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Entry{}, fmt.Errorf("parse timestamp: %w", err)
	}
	e.ActionType = ActionType(action)
	e.ToolName = tool.String
	e.UserID = user.String
	e.Justification = justification.String
	if args.Valid {
		e.Arguments = json.RawMessage(args.String)
	}
	if result.Valid {
		e.Result = json.RawMessage(result.String)
	}
	if err := json.Unmarshal([]byte(flags), &e.ComplianceFlags); err != nil {
		return Entry{}, fmt.Errorf("unmarshal compliance flags: %w", err)
	}
	if err := json.Unmarshal([]byte(risks), &e.RiskIndicators); err != nil {
		return Entry{}, fmt.Errorf("unmarshal risk indicators: %w", err)
	}
	return e, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
