package checkin

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/templui/gatekeeper/internal/model"
	"github.com/templui/gatekeeper/internal/repository"
)

// GoalStore is the goal side of the store. GoalService implements it, so
// goal writes share its lock and deadline sync.
type GoalStore interface {
	ByID(goalID string) (*model.Goal, error)
	Mutate(goalID string, fn func(g *model.Goal) error) (*model.Goal, error)
}

// Store groups the collections a check-in reads and writes.
type Store struct {
	Goals    GoalStore
	Tasks    repository.TaskRepository
	Events   repository.CalendarEventRepository
	Messages repository.MessageRepository
	Projects repository.ProjectRepository
	Users    repository.UserContextRepository
}

// snapshot loads the goal with its related tasks and events. Only a missing
// or unreadable goal is an error; the rest degrades to empty.
func (s Store) snapshot(goalID string, history []*model.Message, now time.Time) (*Snapshot, error) {
	goal, err := s.Goals.ByID(goalID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Goal: goal, History: history, Now: now}

	if goal.ProjectID != "" {
		if s.Tasks != nil {
			tasks, err := s.Tasks.Open(goal.ProjectID)
			if err != nil {
				slog.Error("failed to load related tasks", "error", err, "goal_id", goalID)
			}
			snap.Tasks = tasks
		}
		if s.Projects != nil {
			project, err := s.Projects.ByID(goal.ProjectID)
			if err != nil && !errors.Is(err, repository.ErrProjectNotFound) {
				slog.Error("failed to load project", "error", err, "goal_id", goalID)
			}
			snap.Project = project
		}
	}

	if s.Events != nil {
		events, err := s.Events.Related(goal.ProjectID, goal.Title)
		if err != nil {
			slog.Error("failed to load related events", "error", err, "goal_id", goalID)
		}
		snap.Events = events
	}

	if s.Users != nil {
		user, err := s.Users.Get()
		if err != nil {
			slog.Error("failed to load user context", "error", err)
		}
		snap.User = user
	}
	return snap, nil
}

func (s Store) history(goalID string) ([]*model.Message, error) {
	history, err := s.Messages.History(goalID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return history, nil
}
