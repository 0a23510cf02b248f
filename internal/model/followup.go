package model

import "time"

// Follow-up status values. Tasks may be reopened after completion.
const (
	FollowUpStatusOpen = "open"
	FollowUpStatusDone = "done"
)

// FollowUpTask is an action item extracted from an envelope's insight,
// with optional scheduling metadata. The set of tasks for an envelope is
// replaced wholesale on each enrichment pass.
type FollowUpTask struct {
	// ID is the store-assigned identifier.
	ID string `json:"id"`

	// EmailUID is the UID of the envelope the task was derived from.
	EmailUID uint32 `json:"email_uid"`

	// Action is the text of the task.
	Action string `json:"action"`

	// DueAt is the estimated due date, if one could be inferred.
	DueAt *time.Time `json:"due_at,omitempty"`

	// Status is one of the FollowUpStatus* constants.
	Status string `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
