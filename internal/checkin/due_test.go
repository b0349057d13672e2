package checkin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/templui/gatekeeper/internal/model"
)

func checkedAt(t time.Time) *time.Time { return &t }

func TestIsDue_Daily(t *testing.T) {
	now := baseTime

	assert.False(t, IsDue(&model.Goal{Frequency: model.FrequencyDaily, LastChecked: checkedAt(now.Add(-23 * time.Hour))}, now))
	assert.True(t, IsDue(&model.Goal{Frequency: model.FrequencyDaily, LastChecked: checkedAt(now.Add(-25 * time.Hour))}, now))
	assert.True(t, IsDue(&model.Goal{Frequency: model.FrequencyDaily, LastChecked: checkedAt(now.Add(-24 * time.Hour))}, now), "threshold is inclusive")
}

func TestIsDue_Cadences(t *testing.T) {
	now := baseTime
	tests := []struct {
		name      string
		frequency model.Frequency
		elapsed   time.Duration
		due       bool
	}{
		{"minute not yet", model.FrequencyMinute, 59 * time.Second, false},
		{"minute", model.FrequencyMinute, time.Minute, true},
		{"hourly not yet", model.FrequencyHourly, 59 * time.Minute, false},
		{"hourly", model.FrequencyHourly, 61 * time.Minute, true},
		{"weekly not yet", model.FrequencyWeekly, 6 * 24 * time.Hour, false},
		{"weekly", model.FrequencyWeekly, 7 * 24 * time.Hour, true},
		{"unknown falls back to daily", model.Frequency("sometimes"), 25 * time.Hour, true},
		{"unknown not yet", model.Frequency("sometimes"), 23 * time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			goal := &model.Goal{Frequency: tt.frequency, LastChecked: checkedAt(now.Add(-tt.elapsed))}
			assert.Equal(t, tt.due, IsDue(goal, now))
		})
	}
}

func TestIsDue_MonthlyFollowsCalendarMonth(t *testing.T) {
	last := time.Date(2024, 1, 31, 18, 0, 0, 0, time.UTC)
	goal := &model.Goal{Frequency: model.FrequencyMonthly, LastChecked: &last}

	assert.True(t, IsDue(goal, time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)), "month changed after one day")
	assert.False(t, IsDue(goal, time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC)))

	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	goal.LastChecked = &early
	assert.False(t, IsDue(goal, time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC)), "29 days in the same month")

	lastYear := time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC)
	goal.LastChecked = &lastYear
	assert.True(t, IsDue(goal, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)), "same month, different year")
}

func TestIsDue_NeverCheckedAndCompleted(t *testing.T) {
	assert.True(t, IsDue(&model.Goal{Frequency: model.FrequencyWeekly}, baseTime))
	assert.False(t, IsDue(&model.Goal{Frequency: model.FrequencyWeekly, IsCompleted: true}, baseTime))
}

func TestDueGoals_OrdersByWaitingTime(t *testing.T) {
	now := baseTime
	goals := []*model.Goal{
		{ID: "recent", Frequency: model.FrequencyDaily, LastChecked: checkedAt(now.Add(-25 * time.Hour))},
		{ID: "fresh", Frequency: model.FrequencyDaily, LastChecked: checkedAt(now.Add(-time.Hour))},
		{ID: "never-a", Frequency: model.FrequencyDaily},
		{ID: "oldest", Frequency: model.FrequencyDaily, LastChecked: checkedAt(now.Add(-72 * time.Hour))},
		{ID: "done", Frequency: model.FrequencyDaily, IsCompleted: true},
		{ID: "never-b", Frequency: model.FrequencyHourly},
	}

	var ids []string
	for _, g := range DueGoals(goals, now) {
		ids = append(ids, g.ID)
	}
	assert.Equal(t, []string{"never-a", "never-b", "oldest", "recent"}, ids)
}

func TestApproachingDeadline(t *testing.T) {
	now := baseTime
	window := DefaultDeadlineWindow

	soon := now.Add(47 * time.Hour)
	later := now.Add(49 * time.Hour)
	past := now.Add(-time.Hour)

	assert.True(t, ApproachingDeadline(&model.Goal{EndDate: &soon}, now, window))
	assert.False(t, ApproachingDeadline(&model.Goal{EndDate: &later}, now, window))
	assert.False(t, ApproachingDeadline(&model.Goal{EndDate: &past}, now, window))
	assert.False(t, ApproachingDeadline(&model.Goal{EndDate: &soon, IsCompleted: true}, now, window))
	assert.False(t, ApproachingDeadline(&model.Goal{}, now, window))
}
