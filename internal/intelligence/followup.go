package intelligence

import (
	"strings"
	"time"

	"github.com/nhle/inbox-ai/internal/model"
)

// FollowUpPlanner turns insight action items into dated follow-up
// tasks using configured scheduling heuristics.
type FollowUpPlanner struct {
	cfg model.FollowUpConfig
	now func() time.Time
}

// NewFollowUpPlanner creates a planner with the given scheduling
// configuration.
func NewFollowUpPlanner(cfg model.FollowUpConfig) *FollowUpPlanner {
	return &FollowUpPlanner{cfg: cfg, now: time.Now}
}

// PlanFollowUps derives one open task per distinct action item. Items
// that differ only in case or surrounding whitespace collapse into one.
func (p *FollowUpPlanner) PlanFollowUps(
	env model.Envelope,
	insight model.Insight,
) []model.FollowUpTask {
	now := p.now().UTC()

	var tasks []model.FollowUpTask
	seen := make(map[string]bool)
	for _, raw := range insight.ActionItems {
		action := strings.TrimSpace(raw)
		if action == "" {
			continue
		}
		lowered := strings.ToLower(action)
		if seen[lowered] {
			continue
		}
		seen[lowered] = true

		tasks = append(tasks, model.FollowUpTask{
			EmailUID:  env.UID,
			Action:    action,
			DueAt:     p.estimateDueAt(action, insight),
			Status:    model.FollowUpStatusOpen,
			CreatedAt: now,
		})
	}
	return tasks
}

// estimateDueAt picks a due date from time phrases in the action text,
// falling back to the priority-based defaults. The insight's generation
// time anchors all offsets.
func (p *FollowUpPlanner) estimateDueAt(action string, insight model.Insight) *time.Time {
	baseline := insight.GeneratedAt
	text := strings.ToLower(action)

	switch {
	case strings.Contains(text, "today"):
		return &baseline
	case strings.Contains(text, "tomorrow"):
		due := baseline.AddDate(0, 0, 1)
		return &due
	case strings.Contains(text, "next week"):
		due := baseline.AddDate(0, 0, 7)
		return &due
	case strings.Contains(text, "next month"):
		due := baseline.AddDate(0, 0, 30)
		return &due
	}

	days := p.cfg.DefaultDueDays
	if insight.Priority >= p.cfg.PriorityThreshold {
		days = p.cfg.PriorityDueDays
	}
	if days == 0 {
		return &baseline
	}
	due := baseline.AddDate(0, 0, days)
	return &due
}
