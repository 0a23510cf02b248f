package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/inbox-ai/internal/model"
	"github.com/nhle/inbox-ai/internal/store"
)

var (
	followUpStatus string
	followUpDone   string
	followUpReopen string
)

var followupsCmd = &cobra.Command{
	Use:   "followups",
	Short: "List and update follow-up tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, st, err := setup()
		if err != nil {
			return err
		}
		defer st.Close()
		defer logger.Sync()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		if followUpDone != "" {
			if err := st.UpdateFollowUpStatus(ctx, followUpDone, model.FollowUpStatusDone); err != nil {
				return err
			}
			fmt.Fprintln(out, successStyle.Render("Marked done: "+followUpDone))
			return nil
		}
		if followUpReopen != "" {
			if err := st.UpdateFollowUpStatus(ctx, followUpReopen, model.FollowUpStatusOpen); err != nil {
				return err
			}
			fmt.Fprintln(out, successStyle.Render("Reopened: "+followUpReopen))
			return nil
		}

		filter := store.FollowUpFilter{}
		if followUpStatus != "" {
			filter.Status = &followUpStatus
		}
		tasks, err := st.ListFollowUps(ctx, filter)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			fmt.Fprintln(out, mutedStyle.Render("No follow-up tasks."))
			return nil
		}

		for _, task := range tasks {
			marker := "[ ]"
			if task.Status == model.FollowUpStatusDone {
				marker = successStyle.Render("[x]")
			}
			due := "no due date"
			if task.DueAt != nil {
				due = "due " + task.DueAt.Format("2006-01-02")
			}
			fmt.Fprintf(out, "%s %s %s\n", marker, truncate(task.Action, 70),
				mutedStyle.Render(fmt.Sprintf("(%s, uid %d, id %s)", due, task.EmailUID, task.ID)))
		}
		return nil
	},
}

func init() {
	followupsCmd.Flags().StringVar(&followUpStatus, "status", "", "Filter by status (open or done)")
	followupsCmd.Flags().StringVar(&followUpDone, "done", "", "Mark the task with this ID as done")
	followupsCmd.Flags().StringVar(&followUpReopen, "reopen", "", "Reopen the task with this ID")
	rootCmd.AddCommand(followupsCmd)
}
