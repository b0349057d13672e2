package checkin

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/templui/gatekeeper/internal/model"
	"github.com/templui/gatekeeper/internal/repository"
	"github.com/templui/gatekeeper/internal/service"
)

var (
	ErrNoActiveSession = errors.New("no active check-in session")
	// ErrAnotherSessionActive is returned when a manual open is attempted
	// while a different goal holds the session.
	ErrAnotherSessionActive = errors.New("another check-in session is active")
)

const (
	CloseReasonUser    = "user"
	CloseReasonIdle    = "idle"
	CloseReasonMissing = "goal_missing"
	CloseReasonTimeout = "reply_timeout"
)

type EventKind string

const (
	EventSessionOpened EventKind = "session_opened"
	EventSessionClosed EventKind = "session_closed"
	EventEnqueued      EventKind = "enqueued"
)

// Event describes a change in check-in state.
type Event struct {
	Kind      EventKind
	GoalID    string
	Scheduled bool
	Reason    string
	At        time.Time
}

// Listener receives check-in lifecycle events. It is called synchronously
// and must not call back into the Manager.
type Listener interface {
	OnCheckInEvent(Event)
}

type ListenerFunc func(Event)

func (f ListenerFunc) OnCheckInEvent(e Event) { f(e) }

// Archiver stores the conversation of a closed session.
type Archiver interface {
	Archive(ctx context.Context, goal *model.Goal, messages []*model.Message, scheduled bool, closedAt time.Time) (string, error)
}

// Submitter accepts due goals. The scheduler talks to the Manager through it.
type Submitter interface {
	Submit(ctx context.Context, goals []*model.Goal) int
}

// ManagerConfig wires a Manager.
type ManagerConfig struct {
	Session     SessionConfig
	Queue       *Queue
	IdleTimeout time.Duration
	Archiver    Archiver
	Listener    Listener
}

// Status is the queue and active session as seen from outside.
type Status struct {
	Active *View   `json:"active,omitempty"`
	Queue  []Entry `json:"queue"`
}

// Manager owns the check-in queue and the single active session. All
// session starts and stops go through it.
type Manager struct {
	cfg   ManagerConfig
	queue *Queue

	mu      sync.Mutex
	session *Session
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Queue == nil {
		cfg.Queue = NewQueue()
	}
	if cfg.Session.Now == nil {
		cfg.Session.Now = time.Now
	}
	if cfg.Session.ReplyTimeout <= 0 {
		cfg.Session.ReplyTimeout = 45 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	return &Manager{cfg: cfg, queue: cfg.Queue}
}

func (m *Manager) Queue() *Queue {
	return m.queue
}

// Submit queues the given due goals and starts a session if none is active.
// It returns how many goals were newly queued.
func (m *Manager) Submit(ctx context.Context, goals []*model.Goal) int {
	added := 0
	for _, g := range goals {
		if m.queue.Enqueue(g) {
			added++
			m.emit(Event{Kind: EventEnqueued, GoalID: g.ID, Scheduled: true})
		}
	}
	m.cfg.Session.Metrics.SetQueueDepth(m.queue.Len())

	if added > 0 {
		slog.Info("goals queued for check-in", "added", added, "queued", m.queue.Len())
	}
	m.pump(ctx)
	return added
}

// pump starts the next queued session while the lock is free. Goals that
// disappeared while queued are skipped.
func (m *Manager) pump(ctx context.Context) {
	for {
		m.mu.Lock()
		if m.session != nil {
			m.mu.Unlock()
			return
		}
		entry, ok := m.queue.Dequeue()
		if !ok {
			m.mu.Unlock()
			return
		}
		if !m.queue.Acquire(entry.GoalID) {
			m.mu.Unlock()
			return
		}
		s := NewSession(entry.GoalID, true, m.cfg.Session)
		m.session = s
		m.mu.Unlock()

		m.cfg.Session.Metrics.SetQueueDepth(m.queue.Len())
		if err := m.start(ctx, s); err != nil {
			continue
		}
		return
	}
}

func (m *Manager) start(ctx context.Context, s *Session) error {
	// The caller's request may end before the opening message is ready.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.Session.ReplyTimeout+5*time.Second)
	defer cancel()

	_, err := s.Bootstrap(ctx)
	if err != nil {
		if errors.Is(err, ErrBootstrapInFlight) {
			return nil
		}
		slog.Warn("check-in could not start", "goal_id", s.GoalID(), "error", err)
		m.finish(ctx, s, CloseReasonMissing)
		return err
	}

	m.cfg.Session.Metrics.SessionOpened(s.Scheduled())
	m.emit(Event{Kind: EventSessionOpened, GoalID: s.GoalID(), Scheduled: s.Scheduled()})
	slog.Info("check-in session opened", "goal_id", s.GoalID(), "scheduled", s.Scheduled())
	return nil
}

// OpenManual opens a session for goalID at the user's request. Opening the
// goal that already holds the session returns it unchanged.
func (m *Manager) OpenManual(ctx context.Context, goalID string) (View, error) {
	if _, err := m.cfg.Session.Store.Goals.ByID(goalID); err != nil {
		return View{}, err
	}

	m.mu.Lock()
	if s := m.session; s != nil {
		m.mu.Unlock()
		if s.GoalID() != goalID {
			return View{}, ErrAnotherSessionActive
		}
		return s.View(), nil
	}
	if !m.queue.Acquire(goalID) {
		m.mu.Unlock()
		return View{}, ErrAnotherSessionActive
	}
	s := NewSession(goalID, false, m.cfg.Session)
	m.session = s
	m.mu.Unlock()

	m.cfg.Session.Metrics.SetQueueDepth(m.queue.Len())
	if err := m.start(ctx, s); err != nil {
		m.pump(ctx)
		return View{}, err
	}
	return s.View(), nil
}

// Reply forwards a user message to the active session. A non-empty goalID
// must match it. A reply that runs out of time closes the session so the
// queue can move on; the apology is still returned.
func (m *Manager) Reply(ctx context.Context, goalID, text string) (*Exchange, error) {
	s, err := m.active(goalID)
	if err != nil {
		return nil, err
	}
	ex, err := s.Reply(ctx, text)
	if err != nil || !ex.TimedOut {
		return ex, err
	}
	if m.finish(ctx, s, CloseReasonTimeout) {
		m.pump(ctx)
	}
	return ex, nil
}

// Close ends the active session and starts the next queued one.
func (m *Manager) Close(ctx context.Context, goalID string) error {
	s, err := m.active(goalID)
	if err != nil {
		return err
	}
	if !m.finish(ctx, s, CloseReasonUser) {
		return ErrSessionClosed
	}
	m.pump(ctx)
	return nil
}

// Cancel drops a queued entry for goalID. It refuses while the goal holds
// the active session.
func (m *Manager) Cancel(goalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil && m.session.GoalID() == goalID {
		return service.ErrGoalInSession
	}
	if m.queue.Remove(goalID) {
		m.cfg.Session.Metrics.SetQueueDepth(m.queue.Len())
		slog.Info("queued check-in cancelled", "goal_id", goalID)
	}
	return nil
}

// ExpireIdle closes the active session when the user has not answered for
// the idle timeout, then lets the queue move on.
func (m *Manager) ExpireIdle(ctx context.Context, now time.Time) bool {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()

	if s == nil || !s.idle(now, m.cfg.IdleTimeout) {
		return false
	}
	if !m.finish(ctx, s, CloseReasonIdle) {
		return false
	}
	m.pump(ctx)
	return true
}

func (m *Manager) Status() Status {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()

	st := Status{Queue: m.queue.Pending()}
	if s != nil {
		v := s.View()
		st.Active = &v
	}
	return st
}

func (m *Manager) active(goalID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || (goalID != "" && m.session.GoalID() != goalID) {
		return nil, ErrNoActiveSession
	}
	return m.session, nil
}

// finish closes s, releases the lock and archives the transcript. It
// reports false if s was no longer the active session.
func (m *Manager) finish(ctx context.Context, s *Session, reason string) bool {
	m.mu.Lock()
	if m.session != s {
		m.mu.Unlock()
		return false
	}
	messages, err := s.Close()
	m.session = nil
	m.queue.Release(s.GoalID())
	m.mu.Unlock()

	m.cfg.Session.Metrics.SessionClosed()
	m.emit(Event{Kind: EventSessionClosed, GoalID: s.GoalID(), Scheduled: s.Scheduled(), Reason: reason})
	slog.Info("check-in session closed", "goal_id", s.GoalID(), "reason", reason)

	if err == nil && reason != CloseReasonMissing && len(messages) > 0 {
		m.archive(ctx, s, messages)
	}
	return true
}

func (m *Manager) archive(ctx context.Context, s *Session, messages []*model.Message) {
	if m.cfg.Archiver == nil {
		return
	}
	goal, err := m.cfg.Session.Store.Goals.ByID(s.GoalID())
	if errors.Is(err, repository.ErrGoalNotFound) {
		return
	}
	if err != nil {
		slog.Error("failed to load goal for transcript", "error", err, "goal_id", s.GoalID())
		return
	}

	ctx = context.WithoutCancel(ctx)
	key, err := m.cfg.Archiver.Archive(ctx, goal, messages, s.Scheduled(), m.cfg.Session.Now())
	if err != nil {
		slog.Error("failed to archive transcript", "error", err, "goal_id", s.GoalID())
		return
	}
	slog.Info("transcript archived", "goal_id", s.GoalID(), "key", key)
}

func (m *Manager) emit(e Event) {
	if m.cfg.Listener == nil {
		return
	}
	if e.At.IsZero() {
		e.At = m.cfg.Session.Now()
	}
	m.cfg.Listener.OnCheckInEvent(e)
}
