// Package store archives processed emails in a local SQLite database so the
// dashboard can list, edit, and send drafts across service restarts, and so
// sent replies stay immutable once archived.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mailpilot/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound reports an unknown email id.
var ErrNotFound = errors.New("processed email not found")

// ErrInvalidTransition reports an attempt to move a record out of a terminal
// send status. Only pending records may transition.
var ErrInvalidTransition = errors.New("send status is terminal")

// SQLiteStore persists ProcessedEmail records.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at the given path and runs
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL keeps dashboard reads cheap while a batch is being written.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS processed_emails (
	id             TEXT PRIMARY KEY,
	sender         TEXT NOT NULL,
	subject        TEXT NOT NULL DEFAULT '',
	body           TEXT NOT NULL DEFAULT '',
	date_rfc3339   TEXT NOT NULL DEFAULT '',
	message_id     TEXT NOT NULL DEFAULT '',
	sentiment      TEXT NOT NULL DEFAULT 'neutral',
	priority       TEXT NOT NULL DEFAULT 'not-urgent',
	summary        TEXT NOT NULL DEFAULT '',
	degraded       INTEGER NOT NULL DEFAULT 0,
	extracted_json TEXT NOT NULL DEFAULT '{}',
	context_json   TEXT NOT NULL DEFAULT '[]',
	draft          TEXT NOT NULL DEFAULT '',
	send_status    TEXT NOT NULL DEFAULT 'pending',
	processed_at   TEXT NOT NULL DEFAULT ''
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveBatch upserts the given records. Re-processing the same message id
// refreshes its analysis and draft unless it has already left pending.
func (s *SQLiteStore) SaveBatch(ctx context.Context, emails []model.ProcessedEmail) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO processed_emails
			(id, sender, subject, body, date_rfc3339, message_id,
			 sentiment, priority, summary, degraded, extracted_json,
			 context_json, draft, send_status, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sentiment      = excluded.sentiment,
			priority       = excluded.priority,
			summary        = excluded.summary,
			degraded       = excluded.degraded,
			extracted_json = excluded.extracted_json,
			context_json   = excluded.context_json,
			draft          = excluded.draft,
			processed_at   = excluded.processed_at
		WHERE processed_emails.send_status = 'pending'
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range emails {
		extracted, err := json.Marshal(orEmptyMap(e.Analysis.Extracted))
		if err != nil {
			return fmt.Errorf("encode extracted info for %s: %w", e.Message.ID, err)
		}
		contextJSON, err := json.Marshal(orEmptyContext(e.Context))
		if err != nil {
			return fmt.Errorf("encode context for %s: %w", e.Message.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			e.Message.ID, e.Message.Sender, e.Message.Subject, e.Message.Body,
			e.Message.Date.UTC().Format(time.RFC3339), e.Message.MessageID,
			string(e.Analysis.Sentiment), string(e.Analysis.Priority),
			e.Analysis.Summary, boolToInt(e.Analysis.Degraded),
			string(extracted), string(contextJSON),
			e.Draft, string(e.SendStatus),
			e.ProcessedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

const selectColumns = `id, sender, subject, body, date_rfc3339, message_id,
	sentiment, priority, summary, degraded, extracted_json, context_json,
	draft, send_status, processed_at`

// Get returns one record by message id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (model.ProcessedEmail, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM processed_emails WHERE id = ?", id)
	e, err := scanProcessed(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProcessedEmail{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

// ListAll returns every archived record in processing order.
func (s *SQLiteStore) ListAll(ctx context.Context) ([]model.ProcessedEmail, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM processed_emails ORDER BY processed_at, rowid")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []model.ProcessedEmail
	for rows.Next() {
		e, err := scanProcessed(rows)
		if err != nil {
			return nil, err
		}
		emails = append(emails, e)
	}
	return emails, rows.Err()
}

// UpdateDraft replaces the draft text of a pending record.
func (s *SQLiteStore) UpdateDraft(ctx context.Context, id, draft string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE processed_emails SET draft = ? WHERE id = ? AND send_status = 'pending'",
		draft, id)
	if err != nil {
		return err
	}
	return s.checkAffected(ctx, res, id)
}

// TransitionSendStatus moves a record from pending to the given terminal
// status. The guard is enforced in SQL so concurrent callers cannot revive a
// terminal record.
func (s *SQLiteStore) TransitionSendStatus(ctx context.Context, id string, to model.SendStatus) error {
	if to != model.SendSent && to != model.SendFailed {
		return fmt.Errorf("%w: cannot transition to %q", ErrInvalidTransition, to)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE processed_emails SET send_status = ? WHERE id = ? AND send_status = 'pending'",
		string(to), id)
	if err != nil {
		return err
	}
	return s.checkAffected(ctx, res, id)
}

// checkAffected distinguishes "no such record" from "record is terminal"
// after a guarded update matched nothing.
func (s *SQLiteStore) checkAffected(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var status string
	err = s.db.QueryRowContext(ctx,
		"SELECT send_status FROM processed_emails WHERE id = ?", id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s", ErrInvalidTransition, id, status)
}

// CountByStatus returns record counts per send status.
func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[model.SendStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT send_status, COUNT(*) FROM processed_emails GROUP BY send_status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.SendStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.SendStatus(status)] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProcessed(row scanner) (model.ProcessedEmail, error) {
	var e model.ProcessedEmail
	var dateStr, processedStr, sentiment, priority, status string
	var degraded int
	var extractedJSON, contextJSON string

	err := row.Scan(
		&e.Message.ID, &e.Message.Sender, &e.Message.Subject, &e.Message.Body,
		&dateStr, &e.Message.MessageID,
		&sentiment, &priority, &e.Analysis.Summary, &degraded,
		&extractedJSON, &contextJSON,
		&e.Draft, &status, &processedStr,
	)
	if err != nil {
		return model.ProcessedEmail{}, err
	}

	e.Analysis.Sentiment = model.Sentiment(sentiment)
	e.Analysis.Priority = model.Priority(priority)
	e.Analysis.Degraded = degraded != 0
	e.SendStatus = model.SendStatus(status)

	if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
		e.Message.Date = t
	}
	if t, err := time.Parse(time.RFC3339, processedStr); err == nil {
		e.ProcessedAt = t
	}
	if err := json.Unmarshal([]byte(extractedJSON), &e.Analysis.Extracted); err != nil {
		return model.ProcessedEmail{}, fmt.Errorf("decode extracted info for %s: %w", e.Message.ID, err)
	}
	if len(e.Analysis.Extracted) == 0 {
		e.Analysis.Extracted = nil
	}
	if err := json.Unmarshal([]byte(contextJSON), &e.Context); err != nil {
		return model.ProcessedEmail{}, fmt.Errorf("decode context for %s: %w", e.Message.ID, err)
	}
	if len(e.Context) == 0 {
		e.Context = nil
	}
	return e, nil
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func orEmptyContext(c model.RetrievedContext) model.RetrievedContext {
	if c == nil {
		return model.RetrievedContext{}
	}
	return c
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
