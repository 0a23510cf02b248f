package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/inbox-ai/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertEnvelope inserts or replaces a stored envelope. Attachment
// metadata is replaced along with the row, so re-persisting an envelope
// is idempotent.
func (s *SQLiteStore) UpsertEnvelope(ctx context.Context, env model.Envelope) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO emails (
			uid, mailbox, message_id, thread_id, subject, sender,
			to_recipients, cc_recipients, bcc_recipients,
			sent_at, received_at, body_text, body_html
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			mailbox=excluded.mailbox,
			message_id=excluded.message_id,
			thread_id=excluded.thread_id,
			subject=excluded.subject,
			sender=excluded.sender,
			to_recipients=excluded.to_recipients,
			cc_recipients=excluded.cc_recipients,
			bcc_recipients=excluded.bcc_recipients,
			sent_at=excluded.sent_at,
			received_at=excluded.received_at,
			body_text=excluded.body_text,
			body_html=excluded.body_html`,
		env.UID, env.Mailbox, env.MessageID, env.ThreadID, env.Subject, env.Sender,
		joinRecipients(env.To), joinRecipients(env.Cc), joinRecipients(env.Bcc),
		nullableTime(env.SentAt), nullableTime(env.ReceivedAt),
		env.BodyText, env.BodyHTML,
	)
	if err != nil {
		return fmt.Errorf("upserting envelope %d: %w", env.UID, err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM attachments WHERE email_uid = ?", env.UID,
	); err != nil {
		return fmt.Errorf("clearing attachments for %d: %w", env.UID, err)
	}
	for _, a := range env.Attachments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO attachments (email_uid, filename, content_type, size)
			VALUES (?, ?, ?, ?)`,
			env.UID, a.Filename, a.ContentType, a.Size,
		)
		if err != nil {
			return fmt.Errorf("inserting attachment for %d: %w", env.UID, err)
		}
	}

	return tx.Commit()
}

// GetEnvelope retrieves a stored envelope by UID, or nil when absent.
func (s *SQLiteStore) GetEnvelope(ctx context.Context, uid uint32) (*model.Envelope, error) {
	row := s.db.QueryRowxContext(ctx, `
		SELECT uid, mailbox, message_id, thread_id, subject, sender,
		       to_recipients, cc_recipients, bcc_recipients,
		       sent_at, received_at, body_text, body_html
		FROM emails WHERE uid = ?`, uid)

	env, err := scanEnvelope(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting envelope %d: %w", uid, err)
	}

	attachments, err := s.loadAttachments(ctx, uid)
	if err != nil {
		return nil, err
	}
	env.Attachments = attachments

	return &env, nil
}

// DeleteEnvelope removes an envelope and all cascading enrichment records.
// It reports whether a row was deleted.
func (s *SQLiteStore) DeleteEnvelope(ctx context.Context, uid uint32) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM emails WHERE uid = ?", uid)
	if err != nil {
		return false, fmt.Errorf("deleting envelope %d: %w", uid, err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// GetCheckpoint retrieves the last recorded checkpoint for a mailbox,
// or nil when the mailbox has never been synced.
func (s *SQLiteStore) GetCheckpoint(ctx context.Context, mailbox string) (*model.Checkpoint, error) {
	var cp model.Checkpoint
	err := s.db.QueryRowxContext(ctx,
		"SELECT mailbox, last_uid FROM sync_state WHERE mailbox = ?", mailbox,
	).Scan(&cp.Mailbox, &cp.LastUID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting checkpoint for %s: %w", mailbox, err)
	}
	return &cp, nil
}

// SetCheckpoint inserts or replaces the checkpoint for a mailbox.
func (s *SQLiteStore) SetCheckpoint(ctx context.Context, cp model.Checkpoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (mailbox, last_uid) VALUES (?, ?)
		ON CONFLICT(mailbox) DO UPDATE SET last_uid=excluded.last_uid`,
		cp.Mailbox, cp.LastUID,
	)
	if err != nil {
		return fmt.Errorf("setting checkpoint for %s: %w", cp.Mailbox, err)
	}
	return nil
}

// SetContentHash stores the derived content digest for an envelope.
func (s *SQLiteStore) SetContentHash(ctx context.Context, uid uint32, hash string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE emails SET content_hash = ? WHERE uid = ?", hash, uid,
	)
	if err != nil {
		return fmt.Errorf("setting content hash for %d: %w", uid, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("envelope %d not found", uid)
	}
	return nil
}

// loadAttachments returns the attachment metadata for an envelope.
func (s *SQLiteStore) loadAttachments(ctx context.Context, uid uint32) ([]model.Attachment, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT filename, content_type, size FROM attachments WHERE email_uid = ? ORDER BY id",
		uid,
	)
	if err != nil {
		return nil, fmt.Errorf("querying attachments for %d: %w", uid, err)
	}
	defer rows.Close()

	var attachments []model.Attachment
	for rows.Next() {
		var a model.Attachment
		if err := rows.Scan(&a.Filename, &a.ContentType, &a.Size); err != nil {
			return nil, fmt.Errorf("scanning attachment row: %w", err)
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// rowScanner abstracts sqlx.Row and sqlx.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanEnvelope scans an envelope row in the column order used by the
// envelope SELECT statements.
func scanEnvelope(row rowScanner) (model.Envelope, error) {
	var (
		env        model.Envelope
		to, cc     string
		bcc        string
		sentAt     sql.NullTime
		receivedAt sql.NullTime
	)

	err := row.Scan(
		&env.UID, &env.Mailbox, &env.MessageID, &env.ThreadID,
		&env.Subject, &env.Sender,
		&to, &cc, &bcc,
		&sentAt, &receivedAt,
		&env.BodyText, &env.BodyHTML,
	)
	if err != nil {
		return model.Envelope{}, err
	}

	env.To = splitRecipients(to)
	env.Cc = splitRecipients(cc)
	env.Bcc = splitRecipients(bcc)
	env.SentAt = timePtr(sentAt)
	env.ReceivedAt = timePtr(receivedAt)

	return env, nil
}

// joinRecipients serializes an address list for storage.
func joinRecipients(addrs []string) string {
	return strings.Join(addrs, ",")
}

// splitRecipients restores an address list from its stored form.
func splitRecipients(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	addrs := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			addrs = append(addrs, trimmed)
		}
	}
	return addrs
}

// nullableTime converts an optional timestamp for storage.
func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// timePtr converts a scanned nullable timestamp back to a pointer.
func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
