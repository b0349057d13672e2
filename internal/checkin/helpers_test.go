package checkin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/templui/gatekeeper/internal/db/dbtest"
	"github.com/templui/gatekeeper/internal/llm"
	"github.com/templui/gatekeeper/internal/model"
	"github.com/templui/gatekeeper/internal/repository"
	"github.com/templui/gatekeeper/internal/service"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type scripted struct {
	content string
	err     error

	// hang blocks the call until its context ends.
	hang bool
}

// scriptedLLM answers from a script. With an empty script every call fails
// as unavailable, which drives the template fallbacks.
type scriptedLLM struct {
	mu       sync.Mutex
	script   []scripted
	requests []llm.Request
	gate     chan struct{}
}

func (c *scriptedLLM) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	next := scripted{err: fmt.Errorf("%w: no script left", llm.ErrProviderUnavailable)}
	if len(c.script) > 0 {
		next = c.script[0]
		c.script = c.script[1:]
	}
	gate := c.gate
	c.mu.Unlock()

	if next.hang {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %w", llm.ErrProviderUnavailable, ctx.Err())
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", llm.ErrProviderUnavailable, ctx.Err())
		}
	}
	if next.err != nil {
		return nil, next.err
	}
	return &llm.Response{Content: next.content}, nil
}

func (c *scriptedLLM) Model() string { return "scripted" }

func (c *scriptedLLM) push(contents ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, content := range contents {
		c.script = append(c.script, scripted{content: content})
	}
}

func (c *scriptedLLM) pushHang() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.script = append(c.script, scripted{hang: true})
}

func (c *scriptedLLM) setGate(gate chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate = gate
}

func (c *scriptedLLM) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func (c *scriptedLLM) lastRequest() llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests[len(c.requests)-1]
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []service.Notification
}

func (n *recordingNotifier) Notify(_ context.Context, note service.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
	return nil
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var kinds []string
	for _, note := range n.notes {
		kinds = append(kinds, note.Kind)
	}
	return kinds
}

// flakyMessages fails the first failures appends, then writes through.
type flakyMessages struct {
	repository.MessageRepository

	mu       sync.Mutex
	failures int
}

func (f *flakyMessages) Append(msg *model.Message) error {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return errors.New("disk full")
	}
	f.mu.Unlock()
	return f.MessageRepository.Append(msg)
}

type testEnv struct {
	clock    *fakeClock
	llm      *scriptedLLM
	goals    *service.GoalService
	goalRepo repository.GoalRepository
	tasks    repository.TaskRepository
	events   repository.CalendarEventRepository
	messages repository.MessageRepository
	store    Store
	manager  *Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := dbtest.New(t)

	env := &testEnv{
		clock:    &fakeClock{now: baseTime},
		llm:      &scriptedLLM{},
		goalRepo: repository.NewGoalRepository(db),
		tasks:    repository.NewTaskRepository(db),
		events:   repository.NewCalendarEventRepository(db),
		messages: repository.NewMessageRepository(db),
	}
	env.goals = service.NewGoalService(env.goalRepo, env.messages, service.NewDeadlineSync(env.events), env.llm)
	env.goals.SetClock(env.clock.Now)

	env.store = Store{
		Goals:    env.goals,
		Tasks:    env.tasks,
		Events:   env.events,
		Messages: env.messages,
		Projects: repository.NewProjectRepository(db),
		Users:    repository.NewUserContextRepository(db),
	}
	env.manager = NewManager(ManagerConfig{
		Session:     env.sessionConfig(),
		IdleTimeout: 30 * time.Minute,
	})
	env.goals.SetSessionGuard(env.manager)
	return env
}

func (e *testEnv) sessionConfig() SessionConfig {
	return SessionConfig{
		Store:        e.store,
		Processor:    NewProcessor(e.llm),
		Dispatcher:   NewDispatcher(e.store, nil),
		ReplyTimeout: 2 * time.Second,
		Now:          e.clock.Now,
	}
}

type goalOpt func(*service.GoalInput)

func withEnd(end time.Time) goalOpt {
	return func(in *service.GoalInput) { in.EndDate = &end }
}

func withProject(id string) goalOpt {
	return func(in *service.GoalInput) { in.ProjectID = &id }
}

func withFrequency(f model.Frequency) goalOpt {
	return func(in *service.GoalInput) { in.Frequency = &f }
}

func (e *testEnv) createGoal(t *testing.T, title string, opts ...goalOpt) *model.Goal {
	t.Helper()
	in := service.GoalInput{Title: &title}
	for _, opt := range opts {
		opt(&in)
	}
	goal, err := e.goals.Create(in)
	require.NoError(t, err)
	return goal
}

func (e *testEnv) touch(t *testing.T, goalID string, at time.Time) {
	t.Helper()
	_, err := e.goals.Mutate(goalID, func(g *model.Goal) error {
		g.Touch(at)
		return nil
	})
	require.NoError(t, err)
}

func (e *testEnv) history(t *testing.T, goalID string) []*model.Message {
	t.Helper()
	history, err := e.messages.History(goalID)
	require.NoError(t, err)
	return history
}

func (e *testEnv) addTask(t *testing.T, id, title, projectID string, status model.TaskStatus) {
	t.Helper()
	require.NoError(t, e.tasks.Create(&model.Task{
		ID:        id,
		Title:     title,
		CreatedAt: e.clock.Now(),
		ProjectID: projectID,
		Status:    status,
		Completed: status == model.TaskStatusDone,
	}))
}
