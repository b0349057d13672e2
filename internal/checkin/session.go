package checkin

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/templui/gatekeeper/internal/llm"
	"github.com/templui/gatekeeper/internal/metrics"
	"github.com/templui/gatekeeper/internal/model"
	"golang.org/x/sync/semaphore"
)

var (
	ErrBootstrapInFlight = errors.New("session bootstrap already in progress")
	ErrSessionBusy       = errors.New("session is processing a reply")
	ErrSessionClosed     = errors.New("session is closed")
	ErrSessionNotReady   = errors.New("session has not been opened")
	ErrEmptyReply        = errors.New("reply text is empty")
)

type State int

const (
	StateIdle State = iota
	StateBootstrapping
	StateAwaitingReply
	StateProcessing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBootstrapping:
		return "bootstrapping"
	case StateAwaitingReply:
		return "awaiting_reply"
	case StateProcessing:
		return "processing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SessionConfig holds what a session needs from its owner.
type SessionConfig struct {
	Store        Store
	Processor    *Processor
	Dispatcher   *Dispatcher
	Metrics      *metrics.Metrics
	ReplyTimeout time.Duration
	Now          func() time.Time
}

// Exchange is the result of one user reply.
type Exchange struct {
	User    *model.Message `json:"user"`
	Reply   *model.Message `json:"reply"`
	Failed  bool           `json:"failed"`
	Outcome *Outcome       `json:"outcome,omitempty"`

	// TimedOut marks a failure caused by the reply deadline.
	TimedOut bool `json:"timedOut,omitempty"`
}

// View is a read-only picture of a session.
type View struct {
	GoalID       string           `json:"goalId"`
	Scheduled    bool             `json:"scheduled"`
	State        State            `json:"state"`
	Messages     []*model.Message `json:"messages"`
	LastActivity time.Time        `json:"lastActivity"`
}

// Session is one check-in conversation about a single goal.
type Session struct {
	goalID    string
	scheduled bool
	cfg       SessionConfig

	// boot drops a second Bootstrap while the first is still running.
	boot *semaphore.Weighted

	mu           sync.Mutex
	state        State
	history      []*model.Message
	unsaved      []*model.Message
	lastActivity time.Time
}

func NewSession(goalID string, scheduled bool, cfg SessionConfig) *Session {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = 45 * time.Second
	}
	return &Session{
		goalID:       goalID,
		scheduled:    scheduled,
		cfg:          cfg,
		boot:         semaphore.NewWeighted(1),
		lastActivity: cfg.Now(),
	}
}

func (s *Session) GoalID() string  { return s.goalID }
func (s *Session) Scheduled() bool { return s.scheduled }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		GoalID:       s.goalID,
		Scheduled:    s.scheduled,
		State:        s.state,
		Messages:     s.messagesLocked(),
		LastActivity: s.lastActivity,
	}
}

// Bootstrap opens the conversation. With no history it adds an opening
// message; a scheduled session with history adds one follow-up; a manual
// session with history adds nothing. Model failures fall back to a local
// template, so only a missing goal or history makes it fail.
func (s *Session) Bootstrap(ctx context.Context) ([]*model.Message, error) {
	if !s.boot.TryAcquire(1) {
		return nil, ErrBootstrapInFlight
	}
	defer s.boot.Release(1)

	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return nil, ErrSessionClosed
	case StateIdle:
		s.state = StateBootstrapping
		s.mu.Unlock()
	default:
		// Already open.
		msgs := s.messagesLocked()
		s.mu.Unlock()
		return msgs, nil
	}

	now := s.cfg.Now()
	history, err := s.cfg.Store.history(s.goalID)
	if err == nil {
		var snap *Snapshot
		snap, err = s.cfg.Store.snapshot(s.goalID, history, now)
		if err == nil {
			s.open(ctx, snap)
		}
	}
	if err != nil {
		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()
		return nil, err
	}

	if s.scheduled {
		s.stampChecked(now)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateBootstrapping {
		s.state = StateAwaitingReply
	}
	s.lastActivity = s.cfg.Now()
	return s.messagesLocked(), nil
}

func (s *Session) open(ctx context.Context, snap *Snapshot) {
	s.mu.Lock()
	s.history = append([]*model.Message(nil), snap.History...)
	s.mu.Unlock()

	if len(snap.History) > 0 && !s.scheduled {
		return
	}
	followUp := len(snap.History) > 0

	text, err := s.cfg.Processor.Opening(ctx, snap, followUp)
	if err != nil {
		kind := "opening"
		if followUp {
			kind = "follow_up"
		}
		slog.Warn("check-in opening fell back to template", "goal_id", s.goalID, "error", err)
		s.cfg.Metrics.Fallback(kind)
		text = fallbackOpening(snap, followUp)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(model.SenderGatekeeper, text)
}

// stampChecked records the scheduled review so the goal is not due again
// right away if the user never answers.
func (s *Session) stampChecked(now time.Time) {
	_, err := s.cfg.Store.Goals.Mutate(s.goalID, func(g *model.Goal) error {
		g.Touch(now)
		return nil
	})
	if err != nil {
		slog.Error("failed to stamp check-in time", "error", err, "goal_id", s.goalID)
	}
}

// Reply handles one user message. Processing failures are not returned as
// errors: the exchange carries an apology and nothing is changed. A result
// that arrives after Close is dropped.
func (s *Session) Reply(ctx context.Context, text string) (*Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyReply
	}

	s.mu.Lock()
	switch s.state {
	case StateAwaitingReply:
	case StateProcessing, StateBootstrapping:
		s.mu.Unlock()
		return nil, ErrSessionBusy
	case StateClosed:
		s.mu.Unlock()
		return nil, ErrSessionClosed
	default:
		s.mu.Unlock()
		return nil, ErrSessionNotReady
	}
	s.state = StateProcessing
	userMsg := s.appendLocked(model.SenderUser, text)
	history := s.messagesLocked()
	s.lastActivity = s.cfg.Now()
	s.mu.Unlock()

	start := time.Now()
	result, err := s.process(ctx, history[:len(history)-1], text)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		slog.Info("discarding reply for closed session", "goal_id", s.goalID)
		return nil, ErrSessionClosed
	}
	s.state = StateAwaitingReply
	s.lastActivity = s.cfg.Now()

	if err != nil {
		slog.Warn("reply processing failed", "goal_id", s.goalID, "error", err)
		s.cfg.Metrics.ReplyProcessed(failureOutcome(err), time.Since(start))
		return &Exchange{
			User:     userMsg,
			Reply:    s.appendLocked(model.SenderGatekeeper, ApologyMessage),
			Failed:   true,
			TimedOut: errors.Is(err, context.DeadlineExceeded),
		}, nil
	}

	outcome := s.cfg.Dispatcher.Apply(s.goalID, result, s.cfg.Now())
	s.cfg.Metrics.ReplyProcessed("ok", time.Since(start))
	return &Exchange{
		User:    userMsg,
		Reply:   s.appendLocked(model.SenderGatekeeper, result.Reply),
		Outcome: outcome,
	}, nil
}

func (s *Session) process(ctx context.Context, history []*model.Message, text string) (*ReplyResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReplyTimeout)
	defer cancel()

	snap, err := s.cfg.Store.snapshot(s.goalID, history, s.cfg.Now())
	if err != nil {
		return nil, err
	}
	return s.cfg.Processor.Process(ctx, snap, text)
}

func failureOutcome(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, llm.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, llm.ErrProviderUnavailable):
		return "unavailable"
	}
	return "error"
}

// Close ends the session and retries any messages that failed to persist.
// It returns the final conversation.
func (s *Session) Close() ([]*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil, ErrSessionClosed
	}
	s.state = StateClosed

	var failed []*model.Message
	for _, m := range s.unsaved {
		if err := s.cfg.Store.Messages.Append(m); err != nil {
			slog.Error("failed to persist message on close", "error", err, "goal_id", s.goalID)
			failed = append(failed, m)
		}
	}
	s.unsaved = failed
	return s.messagesLocked(), nil
}

// idle reports whether the session has waited on the user for at least
// timeout. Sessions busy with a reply are never idle.
func (s *Session) idle(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateAwaitingReply && now.Sub(s.lastActivity) >= timeout
}

// appendLocked adds a message to the in-memory conversation and persists it.
// A failed write keeps the message in memory for a retry on Close.
func (s *Session) appendLocked(sender, text string) *model.Message {
	msg := &model.Message{
		ID:        uuid.New().String(),
		GoalID:    s.goalID,
		Sender:    sender,
		Text:      text,
		Timestamp: s.cfg.Now(),
	}
	s.history = append(s.history, msg)

	if err := s.cfg.Store.Messages.Append(msg); err != nil {
		slog.Error("failed to persist message", "error", err, "goal_id", s.goalID)
		s.unsaved = append(s.unsaved, msg)
	}
	return msg
}

func (s *Session) messagesLocked() []*model.Message {
	out := make([]*model.Message, len(s.history))
	copy(out, s.history)
	return out
}
