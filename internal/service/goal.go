package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/templui/gatekeeper/internal/llm"
	"github.com/templui/gatekeeper/internal/model"
	"github.com/templui/gatekeeper/internal/repository"
	"github.com/templui/gatekeeper/internal/validation"
)

var (
	ErrInvalidGoal   = errors.New("invalid goal")
	ErrGoalInSession = errors.New("goal has an open check-in session")
	ErrPersistence   = errors.New("persistence failure")
)

// SessionGuard lets the goal service cancel queued check-ins before a goal
// is deleted. The check-in manager implements it.
type SessionGuard interface {
	Cancel(goalID string) error
}

// GoalInput carries user-editable goal fields. Nil pointers leave the stored
// value untouched on update.
type GoalInput struct {
	Title        *string          `json:"title"`
	DesiredGoal  *string          `json:"desiredGoal"`
	StartState   *string          `json:"startState"`
	CurrentState *string          `json:"currentState"`
	EndState     *string          `json:"endState"`
	Frequency    *model.Frequency `json:"frequency"`
	StartDate    *time.Time       `json:"startDate"`
	EndDate      *time.Time       `json:"endDate"`
	ClearEndDate bool             `json:"clearEndDate"`
	IsCompleted  *bool            `json:"isCompleted"`
	ProjectID    *string          `json:"projectId"`
	Voice        *string          `json:"voice"`
}

type GoalService struct {
	repo     repository.GoalRepository
	messages repository.MessageRepository
	deadline *DeadlineSync
	llm      llm.Client
	guard    SessionGuard
	now      func() time.Time

	// mu serializes read-modify-write cycles on goals so the scheduler, the
	// dispatcher and user edits never overwrite each other.
	mu sync.Mutex
}

func NewGoalService(
	repo repository.GoalRepository,
	messages repository.MessageRepository,
	deadline *DeadlineSync,
	client llm.Client,
) *GoalService {
	return &GoalService{
		repo:     repo,
		messages: messages,
		deadline: deadline,
		llm:      client,
		now:      time.Now,
	}
}

// SetSessionGuard wires the check-in manager once it exists.
func (s *GoalService) SetSessionGuard(guard SessionGuard) {
	s.guard = guard
}

// SetClock overrides time.Now, for tests.
func (s *GoalService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *GoalService) Create(input GoalInput) (*model.Goal, error) {
	now := s.now()
	goal := &model.Goal{
		ID:        uuid.New().String(),
		Frequency: model.FrequencyDaily,
		StartDate: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyInput(goal, input)

	if err := validation.ValidateGoal(goal); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGoal, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.repo.Create(goal)
	if err != nil {
		return nil, fmt.Errorf("%w: create goal: %w", ErrPersistence, err)
	}

	s.syncDeadline(goal, "")
	slog.Info("goal created", "goal_id", goal.ID, "frequency", goal.Frequency)
	return goal, nil
}

func (s *GoalService) ByID(goalID string) (*model.Goal, error) {
	return s.repo.ByID(goalID)
}

func (s *GoalService) Goals(sortBy string) ([]*model.Goal, error) {
	return s.repo.Goals(sortBy)
}

func (s *GoalService) Incomplete() ([]*model.Goal, error) {
	return s.repo.Incomplete()
}

func (s *GoalService) History(goalID string) ([]*model.Message, error) {
	return s.messages.History(goalID)
}

func (s *GoalService) Update(goalID string, input GoalInput) (*model.Goal, error) {
	var validationErr error
	goal, err := s.Mutate(goalID, func(g *model.Goal) error {
		applyInput(g, input)
		validationErr = validation.ValidateGoal(g)
		return validationErr
	})
	if validationErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidGoal, validationErr)
	}
	return goal, err
}

// Mutate loads the goal, applies fn and writes it back while holding the
// goal lock. A change to completion or deadline re-runs the deadline sync.
// Returning an error from fn aborts without writing.
func (s *GoalService) Mutate(goalID string, fn func(g *model.Goal) error) (*model.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	goal, err := s.repo.ByID(goalID)
	if err != nil {
		return nil, err
	}
	before := *goal

	if err := fn(goal); err != nil {
		return nil, err
	}

	// lastChecked never moves backwards, whatever fn did.
	if before.LastChecked != nil && (goal.LastChecked == nil || goal.LastChecked.Before(*before.LastChecked)) {
		goal.LastChecked = before.LastChecked
	}
	goal.UpdatedAt = s.now()

	if err := s.repo.Update(goal); err != nil {
		return nil, fmt.Errorf("%w: update goal: %w", ErrPersistence, err)
	}

	if before.IsCompleted != goal.IsCompleted || !sameTime(before.EndDate, goal.EndDate) || before.Title != goal.Title {
		s.syncDeadline(goal, before.Title)
	}
	return goal, nil
}

// Delete removes a goal and its chat log. A goal that is waiting in the
// check-in queue is dropped from it; one with an open session is refused.
func (s *GoalService) Delete(goalID string) error {
	if _, err := s.repo.ByID(goalID); err != nil {
		return err
	}

	if s.guard != nil {
		if err := s.guard.Cancel(goalID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Delete(goalID); err != nil {
		return err
	}
	if err := s.messages.DeleteByGoal(goalID); err != nil {
		slog.Error("failed to delete chat history", "error", err, "goal_id", goalID)
	}

	slog.Info("goal deleted", "goal_id", goalID)
	return nil
}

func (s *GoalService) syncDeadline(goal *model.Goal, previousTitle string) {
	if s.deadline == nil {
		return
	}
	if _, err := s.deadline.SyncRenamed(goal, previousTitle); err != nil {
		slog.Error("deadline sync failed", "error", err, "goal_id", goal.ID)
	}
}

func applyInput(g *model.Goal, in GoalInput) {
	if in.Title != nil {
		g.Title = strings.TrimSpace(*in.Title)
	}
	if in.DesiredGoal != nil {
		g.DesiredGoal = *in.DesiredGoal
	}
	if in.StartState != nil {
		g.StartState = *in.StartState
	}
	if in.CurrentState != nil {
		g.CurrentState = *in.CurrentState
	}
	if in.EndState != nil {
		g.EndState = *in.EndState
	}
	if in.Frequency != nil {
		g.Frequency = *in.Frequency
	}
	if in.StartDate != nil {
		g.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		end := *in.EndDate
		g.EndDate = &end
	}
	if in.ClearEndDate {
		g.EndDate = nil
	}
	if in.IsCompleted != nil {
		g.IsCompleted = *in.IsCompleted
	}
	if in.ProjectID != nil {
		g.ProjectID = *in.ProjectID
	}
	if in.Voice != nil {
		g.Voice = *in.Voice
	}
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// CreateFromIntake turns a free-text description into a goal. The model is
// asked once for the structured fields; when it is unreachable or answers
// badly the text itself becomes the goal.
func (s *GoalService) CreateFromIntake(ctx context.Context, text, projectID string) (*model.Goal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: intake text is empty", ErrInvalidGoal)
	}

	input, err := s.parseIntake(ctx, text)
	if err != nil {
		slog.Warn("goal intake fell back to plain text", "error", err)
		input = fallbackIntake(text)
	}
	if projectID != "" {
		input.ProjectID = &projectID
	}

	return s.Create(input)
}
