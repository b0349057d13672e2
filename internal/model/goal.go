package model

import (
	"time"
)

type Frequency string

const (
	FrequencyMinute  Frequency = "minute"
	FrequencyHourly  Frequency = "hourly"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyMinute, FrequencyHourly, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

type Goal struct {
	ID           string     `db:"id" json:"id"`
	Title        string     `db:"title" json:"title"`
	DesiredGoal  string     `db:"desired_goal" json:"desiredGoal"`
	StartState   string     `db:"start_state" json:"startState"`
	CurrentState string     `db:"current_state" json:"currentState"`
	EndState     string     `db:"end_state" json:"endState"`
	Frequency    Frequency  `db:"frequency" json:"frequency"`
	StartDate    time.Time  `db:"start_date" json:"startDate"`
	EndDate      *time.Time `db:"end_date" json:"endDate,omitempty"`
	IsCompleted  bool       `db:"is_completed" json:"isCompleted"`
	LastChecked  *time.Time `db:"last_checked" json:"lastChecked,omitempty"`
	ProjectID    string     `db:"project_id" json:"projectId,omitempty"`
	Voice        string     `db:"voice" json:"voice,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// Touch advances LastChecked to t. Earlier timestamps are ignored so the
// value never moves backwards.
func (g *Goal) Touch(t time.Time) {
	if g.LastChecked != nil && !t.After(*g.LastChecked) {
		return
	}
	g.LastChecked = &t
}
