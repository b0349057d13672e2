package checkin

import (
	"fmt"
	"strings"
)

// ApologyMessage is appended when a reply could not be processed.
const ApologyMessage = "Sorry, I couldn't process that just now. Nothing was changed. Could you try again in a moment?"

// fallbackOpening builds an opening or follow-up from local data only, for
// when the model is unreachable or answers badly.
func fallbackOpening(s *Snapshot, followUp bool) string {
	var b strings.Builder
	g := s.Goal

	if followUp {
		fmt.Fprintf(&b, "Time for your %s check-in on **%s**.", g.Frequency, g.Title)
	} else {
		fmt.Fprintf(&b, "Let's check in on **%s**.", g.Title)
	}

	if days, ok := s.DaysRemaining(); ok {
		switch {
		case days < 0:
			fmt.Fprintf(&b, " The deadline passed %d days ago.", -days)
		case days == 0:
			b.WriteString(" The deadline is today.")
		case days == 1:
			b.WriteString(" There is 1 day left.")
		default:
			fmt.Fprintf(&b, " There are %d days left.", days)
		}
	}

	if g.CurrentState != "" {
		fmt.Fprintf(&b, "\n\nLast time you said: %s", g.CurrentState)
	} else if g.EndState != "" {
		fmt.Fprintf(&b, "\n\nThe finish line is: %s", g.EndState)
	}

	if len(s.Tasks) > 0 {
		b.WriteString("\n\nOpen tasks:")
		for _, t := range s.Tasks {
			fmt.Fprintf(&b, "\n- %s (%s)", t.Title, t.Status)
		}
	}

	if len(s.Events) > 0 {
		b.WriteString("\n\nOn the calendar:")
		for _, e := range s.Events {
			fmt.Fprintf(&b, "\n- %s %s", e.Date, e.Title)
		}
	}

	if followUp {
		b.WriteString("\n\nWhat progress have you made since we last spoke, and what's next?")
	} else {
		b.WriteString("\n\nWhere do things stand today?")
	}
	return b.String()
}
