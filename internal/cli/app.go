package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/emo/internal/assistant"
	"github.com/xaenox/emo/internal/calendar"
	"github.com/xaenox/emo/internal/classifier"
	"github.com/xaenox/emo/internal/fetcher"
	"github.com/xaenox/emo/internal/llm"
	"github.com/xaenox/emo/internal/mailbox"
	"github.com/xaenox/emo/internal/memory"
	"github.com/xaenox/emo/internal/reminder"
	"github.com/xaenox/emo/internal/session"
	"github.com/xaenox/emo/internal/storage"
	"github.com/xaenox/emo/internal/tools"
	"github.com/xaenox/emo/pkg/config"
)

// app holds everything a command may need. Parts are built on demand so
// that task maintenance does not open the memory store or the mailbox.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	now    func() time.Time

	tasks    storage.TaskStore
	memory   *memory.SQLiteStore
	llm      *llm.OpenAI
	registry *tools.Registry
	invoker  *tools.Invoker
	sessions *session.Store
	scanner  *reminder.Scanner

	closers []func() error
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, sessions: session.NewStore()}
	loc := a.assistantConfig().Location()
	a.now = func() time.Time { return time.Now().In(loc) }
	return a, nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
		zc.Level = level
	}
	return zc.Build()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("Failed to close resource", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func (a *app) assistantConfig() assistant.Config {
	c := a.cfg.Assistant
	return assistant.Config{
		HistoryTurns:  c.HistoryTurns,
		PromptHistory: c.PromptHistory,
		TurnChars:     c.TurnChars,
		MemoryChars:   c.MemoryChars,
		ToolChars:     c.ToolChars,
		MemoryResults: a.cfg.Memory.ContextResults,
		ToolTimeout:   c.ToolTimeout,
		Timezone:      c.Timezone,
	}
}

func (a *app) taskStore(ctx context.Context) (storage.TaskStore, error) {
	if a.tasks != nil {
		return a.tasks, nil
	}

	db := a.cfg.Database
	var (
		store storage.TaskStore
		err   error
	)
	if db.UseInMemory {
		a.logger.Info("Using in-memory task storage", zap.String("file", db.TasksFile))
		store, err = storage.NewMemoryStorage(db.TasksFile,
			storage.WithClock(a.now),
			storage.WithLogger(a.logger))
	} else {
		a.logger.Info("Using PostgreSQL task storage", zap.String("host", db.Host))
		store, err = storage.NewPostgresStorage(ctx, storage.DatabaseConfig{
			Host:     db.Host,
			Port:     db.Port,
			User:     db.User,
			Password: db.Password,
			DBName:   db.DBName,
			SSLMode:  db.SSLMode,
		}, a.logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize task storage: %w", err)
	}
	a.tasks = store
	a.closers = append(a.closers, store.Close)
	return store, nil
}

func (a *app) completer() *llm.OpenAI {
	if a.llm == nil {
		c := a.cfg.OpenAI
		a.llm = llm.New(llm.Config{
			APIKey:         c.APIKey,
			BaseURL:        c.BaseURL,
			Model:          c.Model,
			EmbeddingModel: c.EmbeddingModel,
			MaxTokens:      c.MaxTokens,
			Temperature:    c.Temperature,
		}, a.logger)
	}
	return a.llm
}

func (a *app) memoryStore() (*memory.SQLiteStore, error) {
	if a.memory != nil {
		return a.memory, nil
	}
	opts := []memory.Option{
		memory.WithLogger(a.logger),
		memory.WithThreshold(a.cfg.Memory.MinRelevance),
	}
	if a.cfg.OpenAI.APIKey != "" && a.cfg.OpenAI.EmbeddingModel != "" {
		opts = append(opts, memory.WithEmbedder(a.completer()))
	} else {
		a.logger.Info("No embedding model configured, memory uses keyword search")
	}

	store, err := memory.NewSQLiteStore(a.cfg.Memory.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}
	a.memory = store
	a.closers = append(a.closers, store.Close)
	// A new conversation forgets what the old one noted.
	a.sessions.OnReset(func(id string) {
		n, err := store.DeleteSession(context.Background(), id)
		if err != nil {
			a.logger.Warn("Failed to clear session memory", zap.String("session", id), zap.Error(err))
			return
		}
		a.logger.Debug("Cleared session memory", zap.String("session", id), zap.Int("count", n))
	})
	return store, nil
}

// mailbox returns nil when Gmail is not set up; the mail tools then report
// that it is not connected.
func (a *app) mailbox(ctx context.Context) (tools.Mailbox, error) {
	g := a.cfg.Gmail
	client, err := mailbox.New(ctx, mailbox.Config{
		CredentialsFile: g.CredentialsFile,
		TokenFile:       g.TokenFile,
		BaseURL:         g.BaseURL,
	}, a.logger)
	if errors.Is(err, mailbox.ErrNotConnected) {
		a.logger.Info("Gmail not connected", zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

// calendar returns nil when Google Calendar is not set up.
func (a *app) calendar(ctx context.Context) (tools.Calendar, error) {
	c := a.cfg.Calendar
	client, err := calendar.New(ctx, calendar.Config{
		CredentialsFile: c.CredentialsFile,
		TokenFile:       c.TokenFile,
		BaseURL:         c.BaseURL,
	}, a.logger)
	if errors.Is(err, calendar.ErrNotConnected) {
		a.logger.Info("Calendar not connected", zap.Error(err))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (a *app) tools(ctx context.Context) (*tools.Invoker, error) {
	if a.invoker != nil {
		return a.invoker, nil
	}
	tasks, err := a.taskStore(ctx)
	if err != nil {
		return nil, err
	}
	mem, err := a.memoryStore()
	if err != nil {
		return nil, err
	}
	mail, err := a.mailbox(ctx)
	if err != nil {
		return nil, err
	}
	cal, err := a.calendar(ctx)
	if err != nil {
		return nil, err
	}
	f := a.cfg.Fetcher
	web := fetcher.New(fetcher.Config{
		ReaderURL: f.ReaderURL,
		Timeout:   f.Timeout,
		MaxChars:  f.MaxChars,
	}, a.logger)

	deps := tools.Deps{Tasks: tasks, Memory: mem, Web: web, Results: a.cfg.Gmail.MaxResults, Now: a.now}
	if mail != nil {
		deps.Mail = mail
	}
	if cal != nil {
		deps.Calendar = cal
	}
	reg := tools.NewRegistry()
	if err := tools.Register(reg, deps); err != nil {
		return nil, err
	}

	a.registry = reg
	a.invoker = tools.NewInvoker(reg, a.logger, tools.Timeout(a.cfg.Assistant.ToolTimeout))
	return a.invoker, nil
}

func (a *app) reminders(ctx context.Context) (*reminder.Scanner, error) {
	if a.scanner != nil {
		return a.scanner, nil
	}
	tasks, err := a.taskStore(ctx)
	if err != nil {
		return nil, err
	}
	a.scanner = reminder.NewScanner(tasks, a.now, a.logger)
	return a.scanner, nil
}

func (a *app) engine(ctx context.Context) (*assistant.Engine, error) {
	inv, err := a.tools(ctx)
	if err != nil {
		return nil, err
	}
	scanner, err := a.reminders(ctx)
	if err != nil {
		return nil, err
	}
	if a.cfg.OpenAI.APIKey == "" {
		a.logger.Warn("OPENAI_API_KEY is not set")
	}

	return assistant.NewEngine(a.completer(), assistant.Options{
		Classifier: classifier.NewDefault(),
		Invoker:    inv,
		Catalogue:  a.registry.Catalogue(),
		Memory:     a.memory,
		Reminders:  scanner,
		Config:     a.assistantConfig(),
		Logger:     a.logger,
		Now:        a.now,
	}), nil
}
