package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/inbox-ai/internal/model"
)

// ReplaceFollowUps replaces the full follow-up set for an envelope.
// Tasks without an ID are assigned a new UUID.
func (s *SQLiteStore) ReplaceFollowUps(
	ctx context.Context,
	uid uint32,
	tasks []model.FollowUpTask,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM follow_ups WHERE email_uid = ?", uid,
	); err != nil {
		return fmt.Errorf("clearing follow-ups for %d: %w", uid, err)
	}

	for _, t := range tasks {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		if t.Status == "" {
			t.Status = model.FollowUpStatusOpen
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO follow_ups (id, email_uid, action, due_at, status, created_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, uid, t.Action, nullableTime(t.DueAt), t.Status,
			t.CreatedAt.UTC(), nullableTime(t.CompletedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting follow-up for %d: %w", uid, err)
		}
	}

	return tx.Commit()
}

// ListFollowUps returns follow-up tasks, optionally filtered by status,
// ordered by due date (tasks without one last), then creation time.
func (s *SQLiteStore) ListFollowUps(
	ctx context.Context,
	filter FollowUpFilter,
) ([]model.FollowUpTask, error) {
	query := `
		SELECT id, email_uid, action, due_at, status, created_at, completed_at
		FROM follow_ups`
	var args []interface{}
	if filter.Status != nil {
		query += " WHERE status = ?"
		args = append(args, *filter.Status)
	}
	query += `
		ORDER BY
			CASE WHEN due_at IS NULL THEN 1 ELSE 0 END,
			due_at ASC,
			created_at ASC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying follow-ups: %w", err)
	}
	defer rows.Close()

	var tasks []model.FollowUpTask
	for rows.Next() {
		var (
			t           model.FollowUpTask
			dueAt       sql.NullTime
			completedAt sql.NullTime
		)
		err := rows.Scan(
			&t.ID, &t.EmailUID, &t.Action, &dueAt, &t.Status,
			&t.CreatedAt, &completedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning follow-up row: %w", err)
		}
		t.DueAt = timePtr(dueAt)
		t.CompletedAt = timePtr(completedAt)
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateFollowUpStatus transitions a follow-up between open and done,
// stamping or clearing the completion time accordingly.
func (s *SQLiteStore) UpdateFollowUpStatus(ctx context.Context, id string, status string) error {
	if status != model.FollowUpStatusOpen && status != model.FollowUpStatusDone {
		return fmt.Errorf("invalid follow-up status %q", status)
	}

	var completedAt interface{}
	if status == model.FollowUpStatusDone {
		completedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE follow_ups SET status = ?, completed_at = ? WHERE id = ?",
		status, completedAt, id,
	)
	if err != nil {
		return fmt.Errorf("updating follow-up %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("follow-up %s not found", id)
	}
	return nil
}
