// Package checkin runs the Gatekeeper: it decides which goals are due for a
// review, queues them, and drives one conversational session at a time.
package checkin

import (
	"sort"
	"time"

	"github.com/templui/gatekeeper/internal/model"
)

// DefaultDeadlineWindow is how far ahead an end date counts as approaching.
const DefaultDeadlineWindow = 48 * time.Hour

// Threshold is the minimum time between reviews for a fixed-length cadence.
// Monthly goals are not measured in elapsed time, see IsDue. Unknown
// frequencies are treated as daily.
func Threshold(f model.Frequency) time.Duration {
	switch f {
	case model.FrequencyMinute:
		return time.Minute
	case model.FrequencyHourly:
		return time.Hour
	case model.FrequencyWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// IsDue reports whether goal needs a check-in at now. A goal that was never
// checked is due immediately. Monthly goals become due when the calendar
// month changes, so a goal checked on Jan 31 is due again on Feb 1.
func IsDue(goal *model.Goal, now time.Time) bool {
	if goal.IsCompleted {
		return false
	}
	if goal.LastChecked == nil {
		return true
	}

	last := *goal.LastChecked
	if goal.Frequency == model.FrequencyMonthly {
		last = last.In(now.Location())
		return last.Year() != now.Year() || last.Month() != now.Month()
	}
	return now.Sub(last) >= Threshold(goal.Frequency)
}

// DueGoals returns the due subset of goals, longest-waiting first. Goals that
// were never checked come first; ties keep their input order.
func DueGoals(goals []*model.Goal, now time.Time) []*model.Goal {
	var due []*model.Goal
	for _, g := range goals {
		if IsDue(g, now) {
			due = append(due, g)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i].LastChecked, due[j].LastChecked
		switch {
		case a == nil:
			return b != nil
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
	return due
}

// ApproachingDeadline reports whether an open goal's end date falls within
// window from now. Past deadlines do not count.
func ApproachingDeadline(goal *model.Goal, now time.Time, window time.Duration) bool {
	if goal.IsCompleted || goal.EndDate == nil {
		return false
	}
	left := goal.EndDate.Sub(now)
	return left >= 0 && left <= window
}
