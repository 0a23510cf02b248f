package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/inbox-ai/internal/model"
)

// AppendDraft inserts a new draft row and returns the stored record with
// its assigned identifier. Draft history is never overwritten.
func (s *SQLiteStore) AppendDraft(ctx context.Context, draft model.Draft) (model.Draft, error) {
	if draft.ID == "" {
		draft.ID = uuid.New().String()
	}

	var confidence interface{}
	if draft.Confidence != nil {
		confidence = *draft.Confidence
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (id, email_uid, body, provider, generated_at, confidence, used_fallback)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		draft.ID, draft.EmailUID, draft.Body, draft.Provider,
		draft.GeneratedAt.UTC(), confidence, boolToInt(draft.UsedFallback),
	)
	if err != nil {
		return model.Draft{}, fmt.Errorf("appending draft for %d: %w", draft.EmailUID, err)
	}

	return draft, nil
}

// LatestDrafts returns the most recent draft for each of the given UIDs.
// UIDs without drafts are absent from the result.
func (s *SQLiteStore) LatestDrafts(
	ctx context.Context,
	uids []uint32,
) (map[uint32]model.Draft, error) {
	if len(uids) == 0 {
		return map[uint32]model.Draft{}, nil
	}

	seen := make(map[uint32]bool, len(uids))
	unique := make([]interface{}, 0, len(uids))
	placeholders := make([]string, 0, len(uids))
	for _, uid := range uids {
		if seen[uid] {
			continue
		}
		seen[uid] = true
		unique = append(unique, uid)
		placeholders = append(placeholders, "?")
	}

	query := fmt.Sprintf(`
		SELECT d.id, d.email_uid, d.body, d.provider, d.generated_at, d.confidence, d.used_fallback
		FROM drafts AS d
		INNER JOIN (
			SELECT email_uid, MAX(generated_at) AS max_generated_at
			FROM drafts
			WHERE email_uid IN (%s)
			GROUP BY email_uid
		) AS latest
		ON latest.email_uid = d.email_uid AND latest.max_generated_at = d.generated_at`,
		strings.Join(placeholders, ","),
	)

	rows, err := s.db.QueryxContext(ctx, query, unique...)
	if err != nil {
		return nil, fmt.Errorf("querying latest drafts: %w", err)
	}
	defer rows.Close()

	results := make(map[uint32]model.Draft)
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		results[draft.EmailUID] = draft
	}
	return results, rows.Err()
}

// ListRecentDrafts returns drafts ordered by generation time descending.
func (s *SQLiteStore) ListRecentDrafts(ctx context.Context, limit int) ([]model.Draft, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, email_uid, body, provider, generated_at, confidence, used_fallback
		FROM drafts
		ORDER BY generated_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent drafts: %w", err)
	}
	defer rows.Close()

	var drafts []model.Draft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, draft)
	}
	return drafts, rows.Err()
}

// scanDraft scans a draft row in the column order used by the draft
// SELECT statements.
func scanDraft(row rowScanner) (model.Draft, error) {
	var (
		draft      model.Draft
		confidence sql.NullFloat64
		fallback   int
	)
	err := row.Scan(
		&draft.ID, &draft.EmailUID, &draft.Body, &draft.Provider,
		&draft.GeneratedAt, &confidence, &fallback,
	)
	if err != nil {
		return model.Draft{}, fmt.Errorf("scanning draft row: %w", err)
	}
	if confidence.Valid {
		value := confidence.Float64
		draft.Confidence = &value
	}
	draft.UsedFallback = fallback != 0
	return draft, nil
}
