package checkin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/gatekeeper/internal/model"
)

func strp(s string) *string { return &s }
func boolp(b bool) *bool     { return &b }

func TestDispatcher_GoalUpdateAndStamp(t *testing.T) {
	env := newTestEnv(t)
	goal := env.createGoal(t, "Ship v1")
	d := NewDispatcher(env.store, nil)

	env.clock.Advance(time.Hour)
	out := d.Apply(goal.ID, &ReplyResult{NewCurrentState: strp("tests passing"), Reply: "ok"}, env.clock.Now())

	assert.True(t, out.GoalModified)
	assert.False(t, out.TasksModified)
	assert.Empty(t, out.Skipped)

	stored, err := env.goalRepo.ByID(goal.ID)
	require.NoError(t, err)
	assert.Equal(t, "tests passing", stored.CurrentState)
	assert.False(t, stored.IsCompleted)
	require.NotNil(t, stored.LastChecked)
	assert.True(t, stored.LastChecked.Equal(env.clock.Now()))

	out = d.Apply(goal.ID, &ReplyResult{NewCurrentState: strp("tests passing"), Reply: "ok"}, env.clock.Now())
	assert.False(t, out.GoalModified, "same state is not a change")
}

func TestDispatcher_CompleteTaskIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	goal := env.createGoal(t, "Ship v1", withProject("p1"))
	env.addTask(t, "t1", "Write docs", "p1", model.TaskStatusDoing)
	d := NewDispatcher(env.store, nil)

	result := &ReplyResult{Tasks: []TaskAction{{Action: ActionComplete, ID: "t1"}}, Reply: "ok"}

	out := d.Apply(goal.ID, result, env.clock.Now())
	assert.True(t, out.TasksModified)
	after, err := env.tasks.ByID("t1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusDone, after.Status)
	assert.True(t, after.Completed)

	out = d.Apply(goal.ID, result, env.clock.Now())
	assert.False(t, out.TasksModified)
	assert.Empty(t, out.Skipped)
	again, err := env.tasks.ByID("t1")
	require.NoError(t, err)
	assert.Equal(t, after, again)
}

func TestDispatcher_TaskActions(t *testing.T) {
	env := newTestEnv(t)
	goal := env.createGoal(t, "Ship v1", withProject("p1"))
	env.addTask(t, "t1", "Write docs", "p1", model.TaskStatusDone)
	env.addTask(t, "other", "Unrelated", "p2", model.TaskStatusBacklog)
	d := NewDispatcher(env.store, nil)

	out := d.Apply(goal.ID, &ReplyResult{
		Tasks: []TaskAction{
			{Action: ActionCreate, Title: "Record demo"},
			{Action: ActionUpdate, ID: "missing", Status: "done"},
			{Action: ActionUpdate, ID: "t1", Status: "doing"},
			{Action: ActionUpdate, ID: "t1", Status: "blocked"},
			{Action: ActionComplete, ID: "other"},
			{Action: "archive", ID: "t1"},
			{Action: ActionCreate, Title: "record demo"},
		},
		Reply: "ok",
	}, env.clock.Now())

	assert.True(t, out.TasksModified)
	require.Len(t, out.Skipped, 4)
	for _, s := range out.Skipped {
		assert.ErrorIs(t, s.Err, ErrInvalidMutation)
		assert.Equal(t, KindTask, s.Kind)
	}

	t1, err := env.tasks.ByID("t1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusDoing, t1.Status)
	assert.False(t, t1.Completed)

	other, err := env.tasks.ByID("other")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusBacklog, other.Status, "tasks outside the goal's project are untouched")

	tasks, err := env.tasks.ByProject("p1")
	require.NoError(t, err)
	var titles []string
	for _, task := range tasks {
		titles = append(titles, task.Title)
		if task.Title == "Record demo" {
			assert.Equal(t, model.TaskStatusBacklog, task.Status)
		}
	}
	assert.ElementsMatch(t, []string{"Write docs", "Record demo"}, titles, "duplicate create is a no-op")
}

func TestDispatcher_CreateTaskNeedsProject(t *testing.T) {
	env := newTestEnv(t)
	goal := env.createGoal(t, "Ship v1")
	d := NewDispatcher(env.store, nil)

	out := d.Apply(goal.ID, &ReplyResult{Tasks: []TaskAction{{Action: ActionCreate, Title: "Record demo"}}, Reply: "ok"}, env.clock.Now())
	assert.False(t, out.TasksModified)
	require.Len(t, out.Skipped, 1)
	assert.ErrorIs(t, out.Skipped[0].Err, ErrInvalidMutation)
}

func TestDispatcher_EventActions(t *testing.T) {
	env := newTestEnv(t)
	end := baseTime.Add(48 * time.Hour)
	goal := env.createGoal(t, "Ship v1", withProject("p1"), withEnd(end))
	require.NoError(t, env.events.Create(&model.CalendarEvent{ID: "e1", Title: "Demo", Date: "2024-03-02", Type: model.EventTypeEvent, Color: model.ColorEvent}))
	require.NoError(t, env.events.Create(&model.CalendarEvent{ID: "e2", Title: "Old sync", Date: "2024-03-02", Type: model.EventTypeEvent, Color: model.ColorEvent}))
	d := NewDispatcher(env.store, nil)

	out := d.Apply(goal.ID, &ReplyResult{
		CalendarEvents: []EventAction{
			{Action: ActionCreate, Title: strp("Launch"), Date: strp("2024-03-05T10:00:00Z"), Type: strp("milestone")},
			{Action: ActionCreate, Title: strp("Standup"), Date: strp("2024-03-04"), Time: strp("09:30:00"), IsRecurring: boolp(true), RecurrenceType: strp("weekly")},
			{Action: ActionCreate, Title: strp("Bad"), Date: strp("next tuesday")},
			{Action: ActionUpdate, ID: "e1", Date: strp("2024-03-06T15:00"), Time: strp("15:00")},
			{Action: ActionUpdate, ID: "nope", Title: strp("x")},
			{Action: ActionUpdate, ID: model.DeadlineEventID(goal.ID), Date: strp("2025-01-01")},
			{Action: ActionDelete, ID: "e2"},
			{Action: ActionDelete, ID: "e2"},
		},
		Reply: "ok",
	}, env.clock.Now())

	assert.True(t, out.EventsModified)
	require.Len(t, out.Skipped, 4)
	for _, s := range out.Skipped {
		assert.ErrorIs(t, s.Err, ErrInvalidMutation)
	}

	events, err := env.events.Events()
	require.NoError(t, err)
	byTitle := map[string]*model.CalendarEvent{}
	for _, e := range events {
		byTitle[e.Title] = e
	}

	launch := byTitle["Launch"]
	require.NotNil(t, launch)
	assert.Equal(t, "2024-03-05", launch.Date)
	assert.Equal(t, model.ColorMilestone, launch.Color)
	assert.Equal(t, "p1", launch.ProjectID)

	standup := byTitle["Standup"]
	require.NotNil(t, standup)
	assert.Equal(t, model.ColorEvent, standup.Color)
	assert.Equal(t, "09:30", standup.Time)
	assert.True(t, standup.IsRecurring)
	assert.Equal(t, "weekly", standup.RecurrenceType)

	demo := byTitle["Demo"]
	require.NotNil(t, demo)
	assert.Equal(t, "2024-03-06", demo.Date)
	assert.Equal(t, "15:00", demo.Time)

	assert.Nil(t, byTitle["Old sync"])
	assert.Nil(t, byTitle["Bad"])

	deadline, err := env.events.ByID(model.DeadlineEventID(goal.ID))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-03", deadline.Date, "deadline events follow the goal only")
}

func TestDispatcher_CompletionRetitlesDeadline(t *testing.T) {
	env := newTestEnv(t)
	end := baseTime.Add(48 * time.Hour)
	goal := env.createGoal(t, "Ship v1", withEnd(end))
	d := NewDispatcher(env.store, nil)

	out := d.Apply(goal.ID, &ReplyResult{IsCompleted: true, Reply: "Great job!"}, env.clock.Now())
	assert.True(t, out.GoalModified)
	assert.True(t, out.EventsModified)
	assert.True(t, out.Goal.IsCompleted)

	event, err := env.events.ByID(model.DeadlineEventID(goal.ID))
	require.NoError(t, err)
	assert.Equal(t, "Completed: Ship v1", event.Title)
	assert.Equal(t, model.ColorCompleted, event.Color)
}

func TestDispatcher_MissingGoalStillAppliesEvents(t *testing.T) {
	env := newTestEnv(t)
	d := NewDispatcher(env.store, nil)

	out := d.Apply("gone", &ReplyResult{
		IsCompleted:    true,
		Tasks:          []TaskAction{{Action: ActionCreate, Title: "x"}},
		CalendarEvents: []EventAction{{Action: ActionCreate, Title: strp("Review"), Date: strp("2024-03-09")}},
		Reply:          "ok",
	}, env.clock.Now())

	assert.True(t, out.EventsModified)
	assert.Len(t, out.Skipped, 2)
}
