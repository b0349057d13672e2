package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/templui/gatekeeper/internal/checkin"
	"github.com/templui/gatekeeper/internal/config"
	"github.com/templui/gatekeeper/internal/db"
	"github.com/templui/gatekeeper/internal/llm"
	"github.com/templui/gatekeeper/internal/metrics"
	"github.com/templui/gatekeeper/internal/repository"
	"github.com/templui/gatekeeper/internal/service"
	"github.com/templui/gatekeeper/internal/storage"
)

type App struct {
	Cfg         *config.Config
	DB          *sqlx.DB
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
	LLM         llm.Client
	Notifier    service.Notifier
	Archiver    *service.TranscriptArchiver
	GoalService *service.GoalService
	CheckIns    *checkin.Manager
	Scheduler   *checkin.Scheduler
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Repositories
	goalRepository := repository.NewGoalRepository(database)
	taskRepository := repository.NewTaskRepository(database)
	eventRepository := repository.NewCalendarEventRepository(database)
	messageRepository := repository.NewMessageRepository(database)
	projectRepository := repository.NewProjectRepository(database)
	userContextRepository := repository.NewUserContextRepository(database)

	// Language model, with one transparent retry on provider failures
	client := llm.NewRetryClient(llm.NewOpenAIClient(llm.Config{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		Timeout:     cfg.LLMTimeout,
		Temperature: cfg.LLMTemperature,
	}), uint64(max(cfg.LLMMaxRetries, 0)), 500*time.Millisecond)

	// Services
	goalService := service.NewGoalService(
		goalRepository,
		messageRepository,
		service.NewDeadlineSync(eventRepository),
		client,
	)
	notifier := service.NewNotifier(
		cfg.IsDevelopment() || !cfg.NotificationsByEmail(),
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.NotifyEmailTo,
	)

	// Transcript archive (optional)
	var archiver *service.TranscriptArchiver
	if cfg.ArchiveEnabled() {
		store, err := storage.New(cfg)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to initialize transcript archive: %v", err)
		}
		archiver = service.NewTranscriptArchiver(store)
	}

	// Check-ins
	store := checkin.Store{
		Goals:    goalService,
		Tasks:    taskRepository,
		Events:   eventRepository,
		Messages: messageRepository,
		Projects: projectRepository,
		Users:    userContextRepository,
	}
	managerCfg := checkin.ManagerConfig{
		Session: checkin.SessionConfig{
			Store:        store,
			Processor:    checkin.NewProcessor(client),
			Dispatcher:   checkin.NewDispatcher(store, m),
			Metrics:      m,
			ReplyTimeout: cfg.LLMTimeout,
		},
		IdleTimeout: cfg.SessionIdleTimeout,
	}
	if archiver != nil {
		managerCfg.Archiver = archiver
	}
	manager := checkin.NewManager(managerCfg)
	goalService.SetSessionGuard(manager)

	scheduler := checkin.NewScheduler(checkin.SchedulerConfig{
		Interval:       cfg.CheckInInterval,
		DeadlineWindow: cfg.DeadlineWarningWindow,
		AppName:        cfg.AppName,
	}, goalService, manager, manager, notifier, m)

	return &App{
		Cfg:         cfg,
		DB:          database,
		Registry:    registry,
		Metrics:     m,
		LLM:         client,
		Notifier:    notifier,
		Archiver:    archiver,
		GoalService: goalService,
		CheckIns:    manager,
		Scheduler:   scheduler,
	}, nil
}

// Start imports the legacy export when one is configured and starts the
// check-in scheduler. The scheduler stops when ctx is done.
func (a *App) Start(ctx context.Context) error {
	if a.Cfg.LegacyImportPath != "" {
		_, err := db.ImportLegacyFile(a.DB, a.Cfg.LegacyImportPath)
		if err != nil {
			return fmt.Errorf("failed to import legacy export: %v", err)
		}
	}
	return a.Scheduler.Start(ctx)
}

func (a *App) Close() error {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
