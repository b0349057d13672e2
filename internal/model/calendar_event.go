package model

import (
	"fmt"
	"time"
)

const (
	EventTypeEvent     = "event"
	EventTypeMilestone = "milestone"
)

const (
	ColorEvent     = "#3b82f6"
	ColorMilestone = "#ef4444"
	ColorCompleted = "#22c55e"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

const (
	DeadlineTitlePrefix  = "Deadline: "
	CompletedTitlePrefix = "Completed: "
)

var RecurrenceTypes = []string{"daily", "weekly", "monthly", "yearly"}

type CalendarEvent struct {
	ID                string `db:"id" json:"id"`
	Title             string `db:"title" json:"title"`
	Date              string `db:"date" json:"date"`
	Time              string `db:"time" json:"time,omitempty"`
	Type              string `db:"type" json:"type"`
	ProjectID         string `db:"project_id" json:"projectId,omitempty"`
	Color             string `db:"color" json:"color"`
	IsRecurring       bool   `db:"is_recurring" json:"isRecurring"`
	RecurrenceType    string `db:"recurrence_type" json:"recurrenceType,omitempty"`
	RecurrenceEndDate string `db:"recurrence_end_date" json:"recurrenceEndDate,omitempty"`
}

// DefaultColor returns the color used for an event type when none is given.
func DefaultColor(eventType string) string {
	if eventType == EventTypeMilestone {
		return ColorMilestone
	}
	return ColorEvent
}

func DeadlineEventID(goalID string) string {
	return "goal-deadline-" + goalID
}

func DeadlineTitle(goalTitle string) string {
	return DeadlineTitlePrefix + goalTitle
}

func CompletedTitle(goalTitle string) string {
	return CompletedTitlePrefix + goalTitle
}

// NormalizeDate accepts a date-only, RFC 3339 or "YYYY-MM-DDTHH:MM" value and
// returns it as YYYY-MM-DD. Empty input stays empty.
func NormalizeDate(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	layouts := []string{DateLayout, time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04:05"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(DateLayout), nil
		}
	}
	return "", fmt.Errorf("invalid date %q", value)
}

// NormalizeTime accepts "HH:MM" or "HH:MM:SS" and returns HH:MM.
func NormalizeTime(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	for _, layout := range []string{TimeLayout, "15:04:05", "3:04PM", "3:04 PM"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format(TimeLayout), nil
		}
	}
	return "", fmt.Errorf("invalid time %q", value)
}
