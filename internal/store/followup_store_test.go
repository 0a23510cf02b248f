package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/inbox-ai/internal/model"
	"github.com/nhle/inbox-ai/internal/store"
	"github.com/nhle/inbox-ai/tests/testutil"
)

func TestReplaceFollowUpsSwapsWholeSet(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertEnvelope(ctx, testEnvelope(5)))

	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	due := now.AddDate(0, 0, 3)
	require.NoError(t, s.ReplaceFollowUps(ctx, 5, []model.FollowUpTask{
		{EmailUID: 5, Action: "send the deck", DueAt: &due, CreatedAt: now},
		{EmailUID: 5, Action: "book a room", CreatedAt: now},
	}))
	require.NoError(t, s.ReplaceFollowUps(ctx, 5, []model.FollowUpTask{
		{EmailUID: 5, Action: "confirm attendance", CreatedAt: now},
	}))

	tasks, err := s.ListFollowUps(ctx, store.FollowUpFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, "confirm attendance", tasks[0].Action)
	require.NotEmpty(t, tasks[0].ID)
	require.Equal(t, model.FollowUpStatusOpen, tasks[0].Status)
}

func TestListFollowUpsOrdersByDueDateThenCreation(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertEnvelope(ctx, testEnvelope(5)))

	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	soon := now.AddDate(0, 0, 1)
	later := now.AddDate(0, 0, 7)
	require.NoError(t, s.ReplaceFollowUps(ctx, 5, []model.FollowUpTask{
		{EmailUID: 5, Action: "no due date", CreatedAt: now},
		{EmailUID: 5, Action: "due later", DueAt: &later, CreatedAt: now},
		{EmailUID: 5, Action: "due soon", DueAt: &soon, CreatedAt: now},
	}))

	tasks, err := s.ListFollowUps(ctx, store.FollowUpFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	require.Equal(t, "due soon", tasks[0].Action)
	require.Equal(t, "due later", tasks[1].Action)
	require.Equal(t, "no due date", tasks[2].Action)
}

func TestUpdateFollowUpStatusTransitions(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertEnvelope(ctx, testEnvelope(5)))
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.ReplaceFollowUps(ctx, 5, []model.FollowUpTask{
		{EmailUID: 5, Action: "send the deck", CreatedAt: now},
	}))

	tasks, err := s.ListFollowUps(ctx, store.FollowUpFilter{})
	require.NoError(t, err)
	id := tasks[0].ID

	require.NoError(t, s.UpdateFollowUpStatus(ctx, id, model.FollowUpStatusDone))
	tasks, err = s.ListFollowUps(ctx, store.FollowUpFilter{})
	require.NoError(t, err)
	require.Equal(t, model.FollowUpStatusDone, tasks[0].Status)
	require.NotNil(t, tasks[0].CompletedAt)

	require.NoError(t, s.UpdateFollowUpStatus(ctx, id, model.FollowUpStatusOpen))
	tasks, err = s.ListFollowUps(ctx, store.FollowUpFilter{})
	require.NoError(t, err)
	require.Equal(t, model.FollowUpStatusOpen, tasks[0].Status)
	require.Nil(t, tasks[0].CompletedAt)

	require.Error(t, s.UpdateFollowUpStatus(ctx, id, "snoozed"))
	require.Error(t, s.UpdateFollowUpStatus(ctx, "missing-id", model.FollowUpStatusDone))
}

func TestListFollowUpsFiltersByStatus(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertEnvelope(ctx, testEnvelope(5)))
	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.ReplaceFollowUps(ctx, 5, []model.FollowUpTask{
		{EmailUID: 5, Action: "first", CreatedAt: now},
		{EmailUID: 5, Action: "second", CreatedAt: now},
	}))

	tasks, err := s.ListFollowUps(ctx, store.FollowUpFilter{})
	require.NoError(t, err)
	require.NoError(t, s.UpdateFollowUpStatus(ctx, tasks[0].ID, model.FollowUpStatusDone))

	open := model.FollowUpStatusOpen
	openTasks, err := s.ListFollowUps(ctx, store.FollowUpFilter{Status: &open})
	require.NoError(t, err)
	require.Len(t, openTasks, 1)

	done := model.FollowUpStatusDone
	doneTasks, err := s.ListFollowUps(ctx, store.FollowUpFilter{Status: &done})
	require.NoError(t, err)
	require.Len(t, doneTasks, 1)
}
