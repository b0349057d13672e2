package checkin

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/templui/gatekeeper/internal/metrics"
	"github.com/templui/gatekeeper/internal/model"
	"github.com/templui/gatekeeper/internal/repository"
	"github.com/templui/gatekeeper/internal/service"
)

// ErrInvalidMutation marks a requested change that cannot be applied, such
// as one naming a task or event that does not exist.
var ErrInvalidMutation = errors.New("invalid mutation")

const (
	KindGoal  = "goal"
	KindTask  = "task"
	KindEvent = "event"
)

// Skipped records one requested change that was not applied.
type Skipped struct {
	Kind   string `json:"kind"`
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
	Err    error  `json:"-"`
	Reason string `json:"reason"`
}

// Outcome reports what a dispatch changed, per category.
type Outcome struct {
	Goal           *model.Goal `json:"goal,omitempty"`
	GoalModified   bool        `json:"goalModified"`
	TasksModified  bool        `json:"tasksModified"`
	EventsModified bool        `json:"eventsModified"`
	Skipped        []Skipped   `json:"skipped,omitempty"`
}

func (o *Outcome) skip(kind, action, id string, err error) {
	o.Skipped = append(o.Skipped, Skipped{Kind: kind, Action: action, ID: id, Err: err, Reason: err.Error()})
}

// Dispatcher applies a ReplyResult to the goal, task and calendar stores.
// Items are applied independently; a failed item is skipped and the rest
// still run. Nothing is rolled back.
type Dispatcher struct {
	store   Store
	metrics *metrics.Metrics

	// mu serializes task and calendar writes.
	mu sync.Mutex
}

func NewDispatcher(store Store, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{store: store, metrics: m}
}

func (d *Dispatcher) Apply(goalID string, result *ReplyResult, now time.Time) *Outcome {
	out := &Outcome{}

	goal, err := d.applyGoal(goalID, result, now, out)
	if err != nil {
		out.skip(KindGoal, ActionUpdate, goalID, err)
		d.metrics.Mutation(KindGoal, false)
		slog.Error("goal update failed", "error", err, "goal_id", goalID)

		// Tasks still need the goal's project.
		goal, err = d.store.Goals.ByID(goalID)
		if err != nil {
			for _, a := range result.Tasks {
				out.skip(KindTask, a.Action, a.ID, err)
			}
			goal = &model.Goal{ID: goalID}
			result = &ReplyResult{CalendarEvents: result.CalendarEvents}
		}
	}
	out.Goal = goal

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, a := range result.Tasks {
		changed, err := d.applyTask(goal, a, now)
		d.record(out, KindTask, a.Action, a.ID, changed, err)
		if changed {
			out.TasksModified = true
		}
	}

	for _, a := range result.CalendarEvents {
		changed, err := d.applyEvent(goal, a)
		d.record(out, KindEvent, a.Action, a.ID, changed, err)
		if changed {
			out.EventsModified = true
		}
	}

	if len(out.Skipped) > 0 {
		slog.Warn("some mutations were skipped", "goal_id", goalID, "skipped", len(out.Skipped))
	}
	return out
}

func (d *Dispatcher) record(out *Outcome, kind, action, id string, changed bool, err error) {
	if err != nil {
		out.skip(kind, action, id, err)
		d.metrics.Mutation(kind, false)
		slog.Warn("mutation skipped", "kind", kind, "action", action, "id", id, "error", err)
		return
	}
	if changed {
		d.metrics.Mutation(kind, true)
	}
}

// applyGoal marks completion, records the new state and stamps the check-in
// time. Completion is one-way here; only a user edit reopens a goal.
func (d *Dispatcher) applyGoal(goalID string, result *ReplyResult, now time.Time, out *Outcome) (*model.Goal, error) {
	var completed, stateChanged bool
	goal, err := d.store.Goals.Mutate(goalID, func(g *model.Goal) error {
		if result.IsCompleted && !g.IsCompleted {
			g.IsCompleted = true
			completed = true
		}
		if result.NewCurrentState != nil && *result.NewCurrentState != g.CurrentState {
			g.CurrentState = *result.NewCurrentState
			stateChanged = true
		}
		g.Touch(now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.GoalModified = completed || stateChanged
	if out.GoalModified {
		d.metrics.Mutation(KindGoal, true)
	}
	// Completion retitles the deadline event inside the goal write.
	if completed && goal.EndDate != nil {
		out.EventsModified = true
	}
	return goal, nil
}

func (d *Dispatcher) applyTask(goal *model.Goal, a TaskAction, now time.Time) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(a.Action)) {
	case ActionCreate:
		return d.createTask(goal, a, now)
	case ActionComplete:
		return d.setTaskStatus(goal, a.ID, model.TaskStatusDone)
	case ActionUpdate:
		status := model.TaskStatus(strings.ToLower(strings.TrimSpace(a.Status)))
		if !status.Valid() {
			return false, fmt.Errorf("%w: unknown task status %q", ErrInvalidMutation, a.Status)
		}
		return d.setTaskStatus(goal, a.ID, status)
	default:
		return false, fmt.Errorf("%w: unknown task action %q", ErrInvalidMutation, a.Action)
	}
}

// createTask adds a backlog task under the goal's project. An open task with
// the same title is left as is.
func (d *Dispatcher) createTask(goal *model.Goal, a TaskAction, now time.Time) (bool, error) {
	title := strings.TrimSpace(a.Title)
	if title == "" {
		return false, fmt.Errorf("%w: task title is empty", ErrInvalidMutation)
	}
	if goal.ProjectID == "" {
		return false, fmt.Errorf("%w: goal has no project for new tasks", ErrInvalidMutation)
	}

	existing, err := d.store.Tasks.Open(goal.ProjectID)
	if err != nil {
		return false, fmt.Errorf("%w: load tasks: %w", service.ErrPersistence, err)
	}
	for _, t := range existing {
		if strings.EqualFold(t.Title, title) {
			return false, nil
		}
	}

	task := &model.Task{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		ProjectID: goal.ProjectID,
		Status:    model.TaskStatusBacklog,
	}
	if err := d.store.Tasks.Create(task); err != nil {
		return false, fmt.Errorf("%w: create task: %w", service.ErrPersistence, err)
	}
	return true, nil
}

func (d *Dispatcher) setTaskStatus(goal *model.Goal, taskID string, status model.TaskStatus) (bool, error) {
	if taskID == "" {
		return false, fmt.Errorf("%w: task id is missing", ErrInvalidMutation)
	}

	task, err := d.store.Tasks.ByID(taskID)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return false, fmt.Errorf("%w: task %q not found", ErrInvalidMutation, taskID)
	}
	if err != nil {
		return false, fmt.Errorf("%w: load task: %w", service.ErrPersistence, err)
	}
	if task.ProjectID != goal.ProjectID {
		return false, fmt.Errorf("%w: task %q belongs to another project", ErrInvalidMutation, taskID)
	}

	if !task.SetStatus(status) {
		return false, nil
	}
	if err := d.store.Tasks.UpdateStatus(task); err != nil {
		return false, fmt.Errorf("%w: update task: %w", service.ErrPersistence, err)
	}
	return true, nil
}

func (d *Dispatcher) applyEvent(goal *model.Goal, a EventAction) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(a.Action)) {
	case ActionCreate:
		return d.createEvent(goal, a)
	case ActionUpdate:
		return d.updateEvent(a)
	case ActionDelete:
		return d.deleteEvent(a.ID)
	default:
		return false, fmt.Errorf("%w: unknown event action %q", ErrInvalidMutation, a.Action)
	}
}

func (d *Dispatcher) createEvent(goal *model.Goal, a EventAction) (bool, error) {
	event := &model.CalendarEvent{
		ID:        uuid.New().String(),
		Type:      model.EventTypeEvent,
		ProjectID: goal.ProjectID,
	}
	if err := patchEvent(event, a); err != nil {
		return false, err
	}
	if event.Title == "" {
		return false, fmt.Errorf("%w: event title is empty", ErrInvalidMutation)
	}
	if event.Date == "" {
		return false, fmt.Errorf("%w: event date is missing", ErrInvalidMutation)
	}
	if a.Color == nil || *a.Color == "" {
		event.Color = model.DefaultColor(event.Type)
	}

	if err := d.store.Events.Create(event); err != nil {
		return false, fmt.Errorf("%w: create event: %w", service.ErrPersistence, err)
	}
	return true, nil
}

func (d *Dispatcher) updateEvent(a EventAction) (bool, error) {
	event, err := d.loadEditableEvent(a.ID)
	if err != nil {
		return false, err
	}

	before := *event
	if err := patchEvent(event, a); err != nil {
		return false, err
	}
	if event.Title == "" {
		return false, fmt.Errorf("%w: event title is empty", ErrInvalidMutation)
	}
	if *event == before {
		return false, nil
	}

	if err := d.store.Events.Update(event); err != nil {
		return false, fmt.Errorf("%w: update event: %w", service.ErrPersistence, err)
	}
	return true, nil
}

func (d *Dispatcher) deleteEvent(eventID string) (bool, error) {
	if _, err := d.loadEditableEvent(eventID); err != nil {
		return false, err
	}
	err := d.store.Events.Delete(eventID)
	if errors.Is(err, repository.ErrEventNotFound) {
		return false, fmt.Errorf("%w: event %q not found", ErrInvalidMutation, eventID)
	}
	if err != nil {
		return false, fmt.Errorf("%w: delete event: %w", service.ErrPersistence, err)
	}
	return true, nil
}

// loadEditableEvent refuses deadline events; they follow their goal.
func (d *Dispatcher) loadEditableEvent(eventID string) (*model.CalendarEvent, error) {
	if eventID == "" {
		return nil, fmt.Errorf("%w: event id is missing", ErrInvalidMutation)
	}
	if strings.HasPrefix(eventID, model.DeadlineEventID("")) {
		return nil, fmt.Errorf("%w: deadline event %q is managed by its goal", ErrInvalidMutation, eventID)
	}

	event, err := d.store.Events.ByID(eventID)
	if errors.Is(err, repository.ErrEventNotFound) {
		return nil, fmt.Errorf("%w: event %q not found", ErrInvalidMutation, eventID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load event: %w", service.ErrPersistence, err)
	}
	return event, nil
}

// patchEvent copies the set fields of a onto e, normalizing dates and times.
func patchEvent(e *model.CalendarEvent, a EventAction) error {
	if a.Title != nil {
		e.Title = strings.TrimSpace(*a.Title)
	}
	if a.Date != nil {
		date, err := model.NormalizeDate(strings.TrimSpace(*a.Date))
		if err != nil || date == "" {
			return fmt.Errorf("%w: bad event date %q", ErrInvalidMutation, *a.Date)
		}
		e.Date = date
	}
	if a.Time != nil {
		t, err := model.NormalizeTime(strings.TrimSpace(*a.Time))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMutation, err)
		}
		e.Time = t
	}
	if a.Type != nil {
		typ := strings.ToLower(strings.TrimSpace(*a.Type))
		if typ != model.EventTypeEvent && typ != model.EventTypeMilestone {
			return fmt.Errorf("%w: unknown event type %q", ErrInvalidMutation, *a.Type)
		}
		if typ != e.Type && a.Color == nil && e.Color == model.DefaultColor(e.Type) {
			e.Color = model.DefaultColor(typ)
		}
		e.Type = typ
	}
	if a.Color != nil && *a.Color != "" {
		e.Color = *a.Color
	}
	if a.ProjectID != nil {
		e.ProjectID = *a.ProjectID
	}
	if a.IsRecurring != nil {
		e.IsRecurring = *a.IsRecurring
	}
	if a.RecurrenceType != nil {
		e.RecurrenceType = strings.ToLower(strings.TrimSpace(*a.RecurrenceType))
	}
	if a.RecurrenceEndDate != nil {
		date, err := model.NormalizeDate(strings.TrimSpace(*a.RecurrenceEndDate))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMutation, err)
		}
		e.RecurrenceEndDate = date
	}

	if !e.IsRecurring {
		e.RecurrenceType = ""
		e.RecurrenceEndDate = ""
		return nil
	}
	if !slices.Contains(model.RecurrenceTypes, e.RecurrenceType) {
		return fmt.Errorf("%w: unknown recurrence %q", ErrInvalidMutation, e.RecurrenceType)
	}
	return nil
}
