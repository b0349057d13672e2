package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/templui/gatekeeper/internal/model"
)

// DueGoalsNotification builds the notice sent when goals become due.
func DueGoalsNotification(goals []*model.Goal, appName string) Notification {
	subject := fmt.Sprintf("%s: time to check in", appName)
	if len(goals) == 1 {
		subject = fmt.Sprintf("%s: time to check in on %q", appName, goals[0].Title)
	}

	var b strings.Builder
	b.WriteString("These goals are due for a check-in:\n\n")
	ids := make([]string, 0, len(goals))
	for _, g := range goals {
		fmt.Fprintf(&b, "- **%s** (%s)\n", g.Title, g.Frequency)
		ids = append(ids, g.ID)
	}
	b.WriteString("\nThe Gatekeeper will walk through them one at a time.")

	return Notification{Kind: NotificationDue, Subject: subject, Body: b.String(), GoalIDs: ids}
}

// DeadlineNotification builds the advisory sent when a deadline is close.
func DeadlineNotification(goal *model.Goal, now time.Time, appName string) Notification {
	hours := int(math.Round(goal.EndDate.Sub(now).Hours()))
	subject := fmt.Sprintf("%s: %q is due in %d hours", appName, goal.Title, hours)
	body := fmt.Sprintf(`**%s** is due on %s.

Current state: %s

Finish line: %s`,
		goal.Title,
		goal.EndDate.Format("Mon Jan 2 15:04"),
		orDash(goal.CurrentState),
		orDash(goal.EndState),
	)

	return Notification{Kind: NotificationDeadline, Subject: subject, Body: body, GoalIDs: []string{goal.ID}}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
