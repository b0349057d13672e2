package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/gatekeeper/internal/db/dbtest"
	"github.com/templui/gatekeeper/internal/model"
	"github.com/templui/gatekeeper/internal/repository"
	"github.com/templui/gatekeeper/internal/service"
)

func TestDeadlineSync_CreatesOnceAndIsIdempotent(t *testing.T) {
	events := repository.NewCalendarEventRepository(dbtest.New(t))
	sync := service.NewDeadlineSync(events)

	end := time.Date(2024, 3, 3, 17, 0, 0, 0, time.UTC)
	goal := &model.Goal{ID: "g1", Title: "Ship v1", EndDate: &end, ProjectID: "p1"}

	changed, err := sync.Sync(goal)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = sync.Sync(goal)
	require.NoError(t, err)
	assert.False(t, changed)

	all, err := events.Events()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "goal-deadline-g1", all[0].ID)
	assert.Equal(t, "p1", all[0].ProjectID)
}

func TestDeadlineSync_NoEndDateDoesNothing(t *testing.T) {
	events := repository.NewCalendarEventRepository(dbtest.New(t))

	changed, err := service.NewDeadlineSync(events).Sync(&model.Goal{ID: "g1", Title: "Ship v1"})
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestDeadlineSync_TitleMatchCountsAsExisting(t *testing.T) {
	events := repository.NewCalendarEventRepository(dbtest.New(t))
	require.NoError(t, events.Create(&model.CalendarEvent{
		ID:    "imported-1",
		Title: "Deadline: Ship v1",
		Date:  "2024-03-03",
		Type:  model.EventTypeMilestone,
		Color: model.ColorMilestone,
	}))
	sync := service.NewDeadlineSync(events)

	end := time.Date(2024, 3, 3, 17, 0, 0, 0, time.UTC)
	goal := &model.Goal{ID: "g1", Title: "Ship v1", EndDate: &end}

	changed, err := sync.Sync(goal)
	require.NoError(t, err)
	assert.False(t, changed)

	goal.IsCompleted = true
	changed, err = sync.Sync(goal)
	require.NoError(t, err)
	assert.True(t, changed)

	event, err := events.ByID("imported-1")
	require.NoError(t, err)
	assert.Equal(t, "Completed: Ship v1", event.Title)
	assert.Equal(t, model.ColorCompleted, event.Color)

	changed, err = sync.Sync(goal)
	require.NoError(t, err)
	assert.False(t, changed, "already retitled")
}

func TestDeadlineSync_RenamedCompletedEventIsRestored(t *testing.T) {
	events := repository.NewCalendarEventRepository(dbtest.New(t))
	require.NoError(t, events.Create(&model.CalendarEvent{
		ID:    "imported-1",
		Title: "Completed: Old",
		Date:  "2024-03-03",
		Type:  model.EventTypeMilestone,
		Color: model.ColorCompleted,
	}))
	sync := service.NewDeadlineSync(events)

	end := time.Date(2024, 3, 3, 17, 0, 0, 0, time.UTC)
	goal := &model.Goal{ID: "g1", Title: "New", EndDate: &end}

	changed, err := sync.SyncRenamed(goal, "Old")
	require.NoError(t, err)
	assert.True(t, changed)

	all, err := events.Events()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Deadline: New", all[0].Title)
	assert.Equal(t, model.ColorMilestone, all[0].Color)

	changed, err = sync.SyncRenamed(goal, "New")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestDeadlineSync_ReopenedGoalRestoresDeadline(t *testing.T) {
	events := repository.NewCalendarEventRepository(dbtest.New(t))
	sync := service.NewDeadlineSync(events)

	end := time.Date(2024, 3, 3, 17, 0, 0, 0, time.UTC)
	goal := &model.Goal{ID: "g1", Title: "Ship v1", EndDate: &end}
	_, err := sync.Sync(goal)
	require.NoError(t, err)

	goal.IsCompleted = true
	_, err = sync.Sync(goal)
	require.NoError(t, err)

	goal.IsCompleted = false
	changed, err := sync.Sync(goal)
	require.NoError(t, err)
	assert.True(t, changed)

	event, err := events.ByID("goal-deadline-g1")
	require.NoError(t, err)
	assert.Equal(t, "Deadline: Ship v1", event.Title)
	assert.Equal(t, model.ColorMilestone, event.Color)
}

func TestNotificationTemplates(t *testing.T) {
	end := testNow.Add(36 * time.Hour)
	goals := []*model.Goal{
		{ID: "g1", Title: "Ship v1", Frequency: model.FrequencyDaily, EndDate: &end},
		{ID: "g2", Title: "Write docs", Frequency: model.FrequencyWeekly},
	}

	due := service.DueGoalsNotification(goals, "Gatekeeper")
	assert.Equal(t, service.NotificationDue, due.Kind)
	assert.Equal(t, "Gatekeeper: time to check in", due.Subject)
	assert.Contains(t, due.Body, "**Write docs** (weekly)")
	assert.Equal(t, []string{"g1", "g2"}, due.GoalIDs)

	single := service.DueGoalsNotification(goals[:1], "Gatekeeper")
	assert.Equal(t, `Gatekeeper: time to check in on "Ship v1"`, single.Subject)

	deadline := service.DeadlineNotification(goals[0], testNow, "Gatekeeper")
	assert.Equal(t, service.NotificationDeadline, deadline.Kind)
	assert.Equal(t, `Gatekeeper: "Ship v1" is due in 36 hours`, deadline.Subject)
	assert.Contains(t, deadline.Body, "Current state: -")
	assert.Equal(t, []string{"g1"}, deadline.GoalIDs)
}
