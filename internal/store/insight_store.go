package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/inbox-ai/internal/model"
)

// UpsertInsight inserts or replaces the current insight for an envelope.
func (s *SQLiteStore) UpsertInsight(ctx context.Context, insight model.Insight) error {
	actionItems, err := json.Marshal(insight.ActionItems)
	if err != nil {
		return fmt.Errorf("marshaling action items for %d: %w", insight.EmailUID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO email_insights (
			email_uid, summary, action_items, priority_score,
			provider, generated_at, used_fallback
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email_uid) DO UPDATE SET
			summary=excluded.summary,
			action_items=excluded.action_items,
			priority_score=excluded.priority_score,
			provider=excluded.provider,
			generated_at=excluded.generated_at,
			used_fallback=excluded.used_fallback`,
		insight.EmailUID, insight.Summary, string(actionItems), insight.Priority,
		insight.Provider, insight.GeneratedAt.UTC(), boolToInt(insight.UsedFallback),
	)
	if err != nil {
		return fmt.Errorf("upserting insight for %d: %w", insight.EmailUID, err)
	}
	return nil
}

// GetInsight retrieves the current insight for an envelope, or nil when
// none has been stored.
func (s *SQLiteStore) GetInsight(ctx context.Context, uid uint32) (*model.Insight, error) {
	row := s.db.QueryRowxContext(ctx, `
		SELECT email_uid, summary, action_items, priority_score,
		       provider, generated_at, used_fallback
		FROM email_insights WHERE email_uid = ?`, uid)

	insight, err := scanInsight(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting insight for %d: %w", uid, err)
	}
	return &insight, nil
}

// ListRecentInsights returns envelope/insight pairs ordered by newest
// insight first, optionally bounded by priority.
func (s *SQLiteStore) ListRecentInsights(
	ctx context.Context,
	filter InsightFilter,
) ([]InsightRecord, error) {
	var conditions []string
	var args []interface{}

	if filter.MinPriority != nil {
		conditions = append(conditions, "i.priority_score >= ?")
		args = append(args, *filter.MinPriority)
	}
	if filter.MaxPriority != nil {
		conditions = append(conditions, "i.priority_score <= ?")
		args = append(args, *filter.MaxPriority)
	}

	query := `
		SELECT e.uid, e.mailbox, e.message_id, e.thread_id, e.subject, e.sender,
		       e.to_recipients, e.cc_recipients, e.bcc_recipients,
		       e.sent_at, e.received_at, e.body_text, e.body_html,
		       i.email_uid, i.summary, i.action_items, i.priority_score,
		       i.provider, i.generated_at, i.used_fallback
		FROM email_insights i
		INNER JOIN emails e ON e.uid = i.email_uid`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY i.generated_at DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT %d", limit)

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying recent insights: %w", err)
	}
	defer rows.Close()

	var records []InsightRecord
	for rows.Next() {
		var (
			env        model.Envelope
			to, cc     string
			bcc        string
			sentAt     sql.NullTime
			receivedAt sql.NullTime
			insight    model.Insight
			items      string
			fallback   int
		)
		err := rows.Scan(
			&env.UID, &env.Mailbox, &env.MessageID, &env.ThreadID,
			&env.Subject, &env.Sender,
			&to, &cc, &bcc,
			&sentAt, &receivedAt,
			&env.BodyText, &env.BodyHTML,
			&insight.EmailUID, &insight.Summary, &items, &insight.Priority,
			&insight.Provider, &insight.GeneratedAt, &fallback,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning insight record: %w", err)
		}
		env.To = splitRecipients(to)
		env.Cc = splitRecipients(cc)
		env.Bcc = splitRecipients(bcc)
		env.SentAt = timePtr(sentAt)
		env.ReceivedAt = timePtr(receivedAt)
		if err := json.Unmarshal([]byte(items), &insight.ActionItems); err != nil {
			return nil, fmt.Errorf("unmarshaling action items: %w", err)
		}
		insight.UsedFallback = fallback != 0

		records = append(records, InsightRecord{Envelope: env, Insight: insight})
	}
	return records, rows.Err()
}

// CountInsights returns the total number of insight records.
func (s *SQLiteStore) CountInsights(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM email_insights"); err != nil {
		return 0, fmt.Errorf("counting insights: %w", err)
	}
	return count, nil
}

// ReplaceCategories replaces the full category set for an envelope.
func (s *SQLiteStore) ReplaceCategories(
	ctx context.Context,
	uid uint32,
	categories []model.Category,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM email_categories WHERE email_uid = ?", uid,
	); err != nil {
		return fmt.Errorf("clearing categories for %d: %w", uid, err)
	}
	for _, c := range categories {
		_, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO email_categories (email_uid, key, label) VALUES (?, ?, ?)",
			uid, c.Key, c.Label,
		)
		if err != nil {
			return fmt.Errorf("inserting category %s for %d: %w", c.Key, uid, err)
		}
	}

	return tx.Commit()
}

// GetCategories returns the current category set for an envelope.
func (s *SQLiteStore) GetCategories(ctx context.Context, uid uint32) ([]model.Category, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT key, label FROM email_categories WHERE email_uid = ? ORDER BY key", uid,
	)
	if err != nil {
		return nil, fmt.Errorf("querying categories for %d: %w", uid, err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.Key, &c.Label); err != nil {
			return nil, fmt.Errorf("scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// FindInsightByContentHash looks up a stored insight whose envelope
// carries the given content digest, along with that envelope's current
// categories. The most recently generated match wins. Returns nil when
// no match exists; the index is an optimization, never a source of truth.
func (s *SQLiteStore) FindInsightByContentHash(
	ctx context.Context,
	hash string,
) (*CachedAnalysis, error) {
	if hash == "" {
		return nil, nil
	}

	row := s.db.QueryRowxContext(ctx, `
		SELECT i.email_uid, i.summary, i.action_items, i.priority_score,
		       i.provider, i.generated_at, i.used_fallback
		FROM email_insights i
		INNER JOIN emails e ON e.uid = i.email_uid
		WHERE e.content_hash = ?
		ORDER BY i.generated_at DESC
		LIMIT 1`, hash)

	insight, err := scanInsight(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding insight by content hash: %w", err)
	}

	categories, err := s.GetCategories(ctx, insight.EmailUID)
	if err != nil {
		return nil, err
	}

	return &CachedAnalysis{Insight: insight, Categories: categories}, nil
}

// scanInsight scans an insight row in the column order used by the
// insight SELECT statements.
func scanInsight(row rowScanner) (model.Insight, error) {
	var (
		insight  model.Insight
		items    string
		fallback int
	)
	err := row.Scan(
		&insight.EmailUID, &insight.Summary, &items, &insight.Priority,
		&insight.Provider, &insight.GeneratedAt, &fallback,
	)
	if err != nil {
		return model.Insight{}, err
	}
	if err := json.Unmarshal([]byte(items), &insight.ActionItems); err != nil {
		return model.Insight{}, fmt.Errorf("unmarshaling action items: %w", err)
	}
	insight.UsedFallback = fallback != 0
	return insight, nil
}
