package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/gatekeeper/internal/db/dbtest"
	"github.com/templui/gatekeeper/internal/model"
	"github.com/templui/gatekeeper/internal/repository"
)

func newGoal(id, title string, created time.Time) *model.Goal {
	return &model.Goal{
		ID:        id,
		Title:     title,
		Frequency: model.FrequencyDaily,
		StartDate: created,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestGoalRepository_CreateUpdateDelete(t *testing.T) {
	repo := repository.NewGoalRepository(dbtest.New(t))
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	goal := newGoal("g1", "Ship v1", now)
	end := now.Add(48 * time.Hour)
	goal.EndDate = &end
	goal.ProjectID = "p1"
	require.NoError(t, repo.Create(goal))

	got, err := repo.ByID("g1")
	require.NoError(t, err)
	assert.Equal(t, "Ship v1", got.Title)
	assert.Equal(t, "p1", got.ProjectID)
	require.NotNil(t, got.EndDate)
	assert.True(t, got.EndDate.Equal(end))
	assert.Nil(t, got.LastChecked)

	checked := now.Add(time.Hour)
	got.LastChecked = &checked
	got.IsCompleted = true
	got.CurrentState = "halfway"
	require.NoError(t, repo.Update(got))

	got, err = repo.ByID("g1")
	require.NoError(t, err)
	assert.True(t, got.IsCompleted)
	assert.Equal(t, "halfway", got.CurrentState)
	require.NotNil(t, got.LastChecked)
	assert.True(t, got.LastChecked.Equal(checked))

	require.NoError(t, repo.Delete("g1"))
	_, err = repo.ByID("g1")
	assert.ErrorIs(t, err, repository.ErrGoalNotFound)
	assert.ErrorIs(t, repo.Delete("g1"), repository.ErrGoalNotFound)
}

func TestGoalRepository_IncompleteKeepsCreationOrder(t *testing.T) {
	repo := repository.NewGoalRepository(dbtest.New(t))
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(newGoal("b", "Second", base.Add(time.Minute))))
	require.NoError(t, repo.Create(newGoal("a", "First", base)))
	done := newGoal("c", "Done", base.Add(2*time.Minute))
	done.IsCompleted = true
	require.NoError(t, repo.Create(done))

	goals, err := repo.Incomplete()
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, "a", goals[0].ID)
	assert.Equal(t, "b", goals[1].ID)
}

func TestTaskRepository_OpenFiltersStatus(t *testing.T) {
	repo := repository.NewTaskRepository(dbtest.New(t))
	now := time.Now().UTC()

	tasks := []*model.Task{
		{ID: "t1", Title: "Write docs", ProjectID: "p1", Status: model.TaskStatusBacklog, CreatedAt: now},
		{ID: "t2", Title: "Fix bug", ProjectID: "p1", Status: model.TaskStatusDoing, CreatedAt: now.Add(time.Second)},
		{ID: "t3", Title: "Old", ProjectID: "p1", Status: model.TaskStatusDone, Completed: true, CreatedAt: now},
		{ID: "t4", Title: "Other", ProjectID: "p2", Status: model.TaskStatusBacklog, CreatedAt: now},
	}
	for _, task := range tasks {
		require.NoError(t, repo.Create(task))
	}

	open, err := repo.Open("p1")
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "t1", open[0].ID)
	assert.Equal(t, "t2", open[1].ID)

	open[0].SetStatus(model.TaskStatusDone)
	require.NoError(t, repo.UpdateStatus(open[0]))
	got, err := repo.ByID("t1")
	require.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, model.TaskStatusDone, got.Status)

	err = repo.UpdateStatus(&model.Task{ID: "missing", Status: model.TaskStatusDone})
	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
}

func TestCalendarEventRepository_Related(t *testing.T) {
	repo := repository.NewCalendarEventRepository(dbtest.New(t))

	events := []*model.CalendarEvent{
		{ID: "e1", Title: "Deadline: Ship V1", Date: "2024-03-03", Type: model.EventTypeMilestone},
		{ID: "e2", Title: "Standup", Date: "2024-03-02", Type: model.EventTypeEvent, ProjectID: "p1"},
		{ID: "e3", Title: "Dentist", Date: "2024-03-04", Type: model.EventTypeEvent},
		{ID: "e4", Title: "100% done party", Date: "2024-03-05", Type: model.EventTypeEvent},
	}
	for _, e := range events {
		require.NoError(t, repo.Create(e))
	}

	related, err := repo.Related("p1", "ship v1")
	require.NoError(t, err)
	ids := make([]string, 0, len(related))
	for _, e := range related {
		ids = append(ids, e.ID)
	}
	assert.ElementsMatch(t, []string{"e1", "e2"}, ids)

	related, err = repo.Related("", "%")
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "e4", related[0].ID)

	require.NoError(t, repo.Delete("e3"))
	assert.ErrorIs(t, repo.Delete("e3"), repository.ErrEventNotFound)
}

func TestMessageRepository_AppendOnlyOrder(t *testing.T) {
	repo := repository.NewMessageRepository(dbtest.New(t))
	ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, text := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Append(&model.Message{
			ID:        text,
			GoalID:    "g1",
			Sender:    model.SenderGatekeeper,
			Text:      text,
			Timestamp: ts.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, repo.Append(&model.Message{ID: "other", GoalID: "g2", Sender: model.SenderUser, Text: "x", Timestamp: ts}))

	history, err := repo.History("g1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Text)
	assert.Equal(t, "third", history[2].Text)

	require.NoError(t, repo.DeleteByGoal("g1"))
	history, err = repo.History("g1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestUserContextRepository_DefaultsToEmpty(t *testing.T) {
	repo := repository.NewUserContextRepository(dbtest.New(t))

	uc, err := repo.Get()
	require.NoError(t, err)
	assert.Equal(t, model.UserContext{}, *uc)

	require.NoError(t, repo.Save(&model.UserContext{Name: "Sam", Voice: "blunt"}))
	require.NoError(t, repo.Save(&model.UserContext{Name: "Sam", Voice: "warm"}))
	uc, err = repo.Get()
	require.NoError(t, err)
	assert.Equal(t, "warm", uc.Voice)
}
