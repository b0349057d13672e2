package checkin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/robfig/cron/v3"
	"github.com/templui/gatekeeper/internal/metrics"
	"github.com/templui/gatekeeper/internal/model"
	"github.com/templui/gatekeeper/internal/service"
)

// deadlineNoticeCacheSize bounds how many goal deadlines are remembered as
// already announced.
const deadlineNoticeCacheSize = 1024

// GoalLister supplies the goals the scheduler looks at.
type GoalLister interface {
	Incomplete() ([]*model.Goal, error)
}

// IdleExpirer closes sessions the user walked away from.
type IdleExpirer interface {
	ExpireIdle(ctx context.Context, now time.Time) bool
}

type SchedulerConfig struct {
	Interval       time.Duration
	DeadlineWindow time.Duration
	AppName        string
	Now            func() time.Time
}

// TickResult summarizes one scheduler pass.
type TickResult struct {
	Due       []*model.Goal
	Queued    int
	Deadlines []*model.Goal
	Expired   bool
}

// Scheduler periodically finds due goals and hands them to the session owner.
type Scheduler struct {
	cfg      SchedulerConfig
	goals    GoalLister
	sink     Submitter
	expirer  IdleExpirer
	notifier service.Notifier
	metrics  *metrics.Metrics
	noticed  *lru.Cache[string, struct{}]

	cron     *cron.Cron
	stopOnce sync.Once
}

func NewScheduler(cfg SchedulerConfig, goals GoalLister, sink Submitter, expirer IdleExpirer, notifier service.Notifier, m *metrics.Metrics) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.DeadlineWindow <= 0 {
		cfg.DeadlineWindow = DefaultDeadlineWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if notifier == nil {
		notifier = service.NopNotifier{}
	}

	// lru.New only fails on a non-positive size.
	noticed, _ := lru.New[string, struct{}](deadlineNoticeCacheSize)

	logger := cron.PrintfLogger(slog.NewLogLogger(slog.Default().Handler(), slog.LevelWarn))
	return &Scheduler{
		cfg:      cfg,
		goals:    goals,
		sink:     sink,
		expirer:  expirer,
		notifier: notifier,
		metrics:  m,
		noticed:  noticed,
		cron:     cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
	}
}

// Start runs a pass every interval until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", s.cfg.Interval)
	if _, err := s.cron.AddFunc(spec, func() {
		if _, err := s.Tick(ctx); err != nil {
			slog.Error("scheduler tick failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule check-ins: %w", err)
	}

	s.cron.Start()
	slog.Info("check-in scheduler started", "interval", s.cfg.Interval)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop waits for a running tick to finish. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		<-s.cron.Stop().Done()
		slog.Info("check-in scheduler stopped")
	})
}

// Tick runs one scheduling pass at the current time.
func (s *Scheduler) Tick(ctx context.Context) (*TickResult, error) {
	now := s.cfg.Now()

	goals, err := s.goals.Incomplete()
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}

	res := &TickResult{Due: DueGoals(goals, now)}
	s.metrics.SetDueGoals(len(res.Due))

	if s.expirer != nil {
		res.Expired = s.expirer.ExpireIdle(ctx, now)
	}

	if len(res.Due) > 0 && s.sink != nil {
		res.Queued = s.sink.Submit(ctx, res.Due)
		if res.Queued > 0 {
			s.notify(ctx, service.DueGoalsNotification(res.Due, s.cfg.AppName))
		}
	}

	for _, g := range goals {
		if !ApproachingDeadline(g, now, s.cfg.DeadlineWindow) {
			continue
		}
		key := g.ID + "|" + g.EndDate.UTC().Format(time.RFC3339)
		if s.noticed.Contains(key) {
			continue
		}
		s.noticed.Add(key, struct{}{})
		res.Deadlines = append(res.Deadlines, g)
		s.metrics.DeadlineNotice()
		s.notify(ctx, service.DeadlineNotification(g, now, s.cfg.AppName))
	}

	if len(res.Due) > 0 || len(res.Deadlines) > 0 {
		slog.Debug("scheduler tick", "due", len(res.Due), "queued", res.Queued, "deadlines", len(res.Deadlines))
	}
	return res, nil
}

func (s *Scheduler) notify(ctx context.Context, n service.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		slog.Warn("notification failed", "kind", n.Kind, "error", err)
	}
}
