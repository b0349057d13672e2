package checkin

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/templui/gatekeeper/internal/model"
)

// historyLimit caps how many past messages are quoted back to the model.
const historyLimit = 20

// Snapshot is everything a check-in knows about its goal at one moment.
type Snapshot struct {
	Goal    *model.Goal
	Project *model.Project
	Tasks   []*model.Task
	Events  []*model.CalendarEvent
	User    *model.UserContext
	History []*model.Message
	Now     time.Time
}

// Voice is the goal's tone, or the user's global one when the goal has none.
func (s *Snapshot) Voice() string {
	if v := strings.TrimSpace(s.Goal.Voice); v != "" {
		return v
	}
	if s.User != nil {
		return strings.TrimSpace(s.User.Voice)
	}
	return ""
}

// DaysRemaining returns whole days until the deadline, rounded up, and
// whether the goal has one. Negative means overdue.
func (s *Snapshot) DaysRemaining() (int, bool) {
	if s.Goal.EndDate == nil {
		return 0, false
	}
	left := s.Goal.EndDate.Sub(s.Now).Hours() / 24
	return int(math.Ceil(left)), true
}

func (s *Snapshot) deadlineLine() string {
	days, ok := s.DaysRemaining()
	switch {
	case !ok:
		return "Deadline: none set"
	case days < 0:
		return fmt.Sprintf("Deadline: %s (OVERDUE by %d days)", s.Goal.EndDate.Format(model.DateLayout), -days)
	case days == 0:
		return fmt.Sprintf("Deadline: %s (due today)", s.Goal.EndDate.Format(model.DateLayout))
	default:
		return fmt.Sprintf("Deadline: %s (%d days remaining)", s.Goal.EndDate.Format(model.DateLayout), days)
	}
}

const personaPrompt = `You are the Gatekeeper, an accountability partner who checks in on one goal at a time.
Be direct and specific. Ask about concrete progress since the last check-in and name the next step.`

const replySchema = `Respond with a single JSON object and nothing else:
{
  "isCompleted": boolean,
  "newCurrentState": string or null,
  "tasks": [
    {"action": "create", "title": string},
    {"action": "complete", "id": string},
    {"action": "update", "id": string, "status": "backlog" | "doing" | "done"}
  ],
  "calendarEvents": [
    {"action": "create", "title": string, "date": "YYYY-MM-DD", "time": "HH:MM", "type": "event" | "milestone",
     "isRecurring": boolean, "recurrenceType": "daily" | "weekly" | "monthly" | "yearly", "recurrenceEndDate": "YYYY-MM-DD"},
    {"action": "update", "id": string, "...fields to change": "..."},
    {"action": "delete", "id": string}
  ],
  "reply": string
}
Set isCompleted only when the user clearly says the goal is finished.
Set newCurrentState to a one-sentence summary of where the user is now, or null if nothing changed.
Only reference task and event ids listed above. Leave arrays empty when nothing should change.
"reply" is what you say back to the user and is required.`

const openingSchema = `Respond with a single JSON object and nothing else:
{"message": string}`

// systemContext renders the goal, its surroundings and the recent
// conversation for the model.
func systemContext(s *Snapshot) string {
	var b strings.Builder
	g := s.Goal

	b.WriteString(personaPrompt)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Today is %s.\n", s.Now.Format("Monday, 2006-01-02 15:04"))
	if voice := s.Voice(); voice != "" {
		fmt.Fprintf(&b, "Speak in this voice: %s\n", voice)
	}

	if u := s.User; u != nil && (u.Name != "" || u.Company != "" || u.BackStory != "" || u.AdditionalInfo != "") {
		b.WriteString("\n## About the user\n")
		writeField(&b, "Name", u.Name)
		writeField(&b, "Company", u.Company)
		writeField(&b, "Background", u.BackStory)
		writeField(&b, "Links", u.WebsiteLinks)
		writeField(&b, "Notes", u.AdditionalInfo)
	}

	b.WriteString("\n## Goal\n")
	writeField(&b, "Title", g.Title)
	writeField(&b, "Desired outcome", g.DesiredGoal)
	writeField(&b, "Started from", g.StartState)
	writeField(&b, "Current state", g.CurrentState)
	writeField(&b, "Finish line", g.EndState)
	writeField(&b, "Check-in cadence", string(g.Frequency))
	b.WriteString(s.deadlineLine())
	b.WriteString("\n")
	if s.Project != nil {
		writeField(&b, "Project", s.Project.Name)
	}
	if g.LastChecked != nil {
		writeField(&b, "Last check-in", g.LastChecked.Format("2006-01-02 15:04"))
	}

	b.WriteString("\n## Open tasks\n")
	if len(s.Tasks) == 0 {
		b.WriteString("(none)\n")
	}
	for _, t := range s.Tasks {
		fmt.Fprintf(&b, "- [%s] %s (id: %s)\n", t.Status, t.Title, t.ID)
	}

	b.WriteString("\n## Calendar\n")
	if len(s.Events) == 0 {
		b.WriteString("(none)\n")
	}
	for _, e := range s.Events {
		when := e.Date
		if e.Time != "" {
			when += " " + e.Time
		}
		fmt.Fprintf(&b, "- %s: %s (id: %s)\n", when, e.Title, e.ID)
	}

	if len(s.History) > 0 {
		b.WriteString("\n## Conversation so far\n")
		history := s.History
		if len(history) > historyLimit {
			history = history[len(history)-historyLimit:]
		}
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Sender, m.Text)
		}
	}
	return b.String()
}

func replySystemPrompt(s *Snapshot) string {
	return systemContext(s) + "\n" + replySchema
}

func openingSystemPrompt(s *Snapshot, followUp bool) string {
	task := "Open the first check-in for this goal: greet the user briefly and ask where things stand."
	if followUp {
		task = "A scheduled check-in is due. Ask one pointed follow-up about progress since the conversation above."
	}
	return systemContext(s) + "\n" + task + "\n" + openingSchema
}

func writeField(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}
