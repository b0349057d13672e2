package service

import (
	"fmt"
	"log/slog"

	"github.com/templui/gatekeeper/internal/model"
	"github.com/templui/gatekeeper/internal/repository"
)

// DeadlineSync keeps each goal's milestone on the calendar in line with the
// goal. The calendar entry is a projection; the goal's EndDate stays the
// source of truth.
type DeadlineSync struct {
	events repository.CalendarEventRepository
}

func NewDeadlineSync(events repository.CalendarEventRepository) *DeadlineSync {
	return &DeadlineSync{events: events}
}

// Sync reconciles the deadline event for goal and reports whether the
// calendar changed. Completed deadlines are retitled, never deleted.
func (d *DeadlineSync) Sync(goal *model.Goal) (bool, error) {
	return d.SyncRenamed(goal, "")
}

// SyncRenamed is Sync for a goal that was titled previousTitle before the
// current change. Events found by the old title follow the rename.
func (d *DeadlineSync) SyncRenamed(goal *model.Goal, previousTitle string) (bool, error) {
	events, err := d.events.Events()
	if err != nil {
		return false, fmt.Errorf("load calendar: %w", err)
	}

	canonicalID := model.DeadlineEventID(goal.ID)
	deadlineTitle := model.DeadlineTitle(goal.Title)
	titles := map[string]bool{deadlineTitle: true}
	if previousTitle != "" && previousTitle != goal.Title {
		titles[model.DeadlineTitle(previousTitle)] = true
		titles[model.CompletedTitle(previousTitle)] = true
	}

	var canonical *model.CalendarEvent
	var byTitle []*model.CalendarEvent
	for _, e := range events {
		switch {
		case e.ID == canonicalID:
			canonical = e
		case titles[e.Title]:
			byTitle = append(byTitle, e)
		}
	}

	if goal.IsCompleted {
		return d.markCompleted(goal, canonical, byTitle)
	}

	renamed, err := d.retitle(goal, byTitle)
	if err != nil {
		return renamed, err
	}

	if goal.EndDate == nil {
		return renamed, nil
	}
	date := goal.EndDate.Format(model.DateLayout)

	if canonical == nil {
		if len(byTitle) > 0 {
			return renamed, nil
		}
		event := &model.CalendarEvent{
			ID:        canonicalID,
			Title:     deadlineTitle,
			Date:      date,
			Type:      model.EventTypeMilestone,
			ProjectID: goal.ProjectID,
			Color:     model.ColorMilestone,
		}
		if err := d.events.Create(event); err != nil {
			return false, fmt.Errorf("create deadline event: %w", err)
		}
		slog.Info("deadline event created", "goal_id", goal.ID, "date", date)
		return true, nil
	}

	// The canonical event follows the goal: date moves, title edits and a
	// goal that was reopened after completion.
	if canonical.Date == date && canonical.Title == deadlineTitle && canonical.Color == model.ColorMilestone {
		return renamed, nil
	}
	canonical.Date = date
	canonical.Title = deadlineTitle
	canonical.Color = model.ColorMilestone
	if err := d.events.Update(canonical); err != nil {
		return false, fmt.Errorf("update deadline event: %w", err)
	}
	slog.Info("deadline event updated", "goal_id", goal.ID, "date", date)
	return true, nil
}

// retitle moves title-matched events still named after an old goal title
// onto the current one.
func (d *DeadlineSync) retitle(goal *model.Goal, byTitle []*model.CalendarEvent) (bool, error) {
	deadlineTitle := model.DeadlineTitle(goal.Title)
	modified := false
	for _, e := range byTitle {
		if e.Title == deadlineTitle {
			continue
		}
		e.Title = deadlineTitle
		e.Color = model.ColorMilestone
		if err := d.events.Update(e); err != nil {
			return modified, fmt.Errorf("retitle deadline event %s: %w", e.ID, err)
		}
		modified = true
	}
	if modified {
		slog.Info("deadline event renamed", "goal_id", goal.ID)
	}
	return modified, nil
}

func (d *DeadlineSync) markCompleted(goal *model.Goal, canonical *model.CalendarEvent, byTitle []*model.CalendarEvent) (bool, error) {
	targets := byTitle
	if canonical != nil {
		targets = append(targets, canonical)
	}

	completedTitle := model.CompletedTitle(goal.Title)
	modified := false
	for _, e := range targets {
		if e.Title == completedTitle && e.Color == model.ColorCompleted {
			continue
		}
		e.Title = completedTitle
		e.Color = model.ColorCompleted
		if err := d.events.Update(e); err != nil {
			return modified, fmt.Errorf("retitle deadline event %s: %w", e.ID, err)
		}
		modified = true
	}

	if modified {
		slog.Info("deadline event marked completed", "goal_id", goal.ID)
	}
	return modified, nil
}
