package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/emo/internal/deadline"
	"github.com/xaenox/emo/internal/models"
)

// MemoryStorage keeps tasks in memory. With a non-empty path the list is
// loaded on start and written back as indented JSON after every change.
type MemoryStorage struct {
	mu     sync.RWMutex
	tasks  []models.Task
	path   string
	now    func() time.Time
	logger *zap.Logger
}

type MemoryOption func(*MemoryStorage)

// WithClock replaces time.Now for deadline parsing and timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStorage) { s.now = now }
}

func WithLogger(logger *zap.Logger) MemoryOption {
	return func(s *MemoryStorage) { s.logger = logger }
}

func NewMemoryStorage(path string, opts ...MemoryOption) (*MemoryStorage, error) {
	s := &MemoryStorage{
		path:   path,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload rereads the file and parses deadlines for pending tasks that were
// stored without one.
func (s *MemoryStorage) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load()
	if err != nil {
		return err
	}
	s.tasks = tasks

	if s.backfill() > 0 {
		return s.save()
	}
	return nil
}

func (s *MemoryStorage) load() ([]models.Task, error) {
	if s.path == "" {
		return s.tasks, nil
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading tasks file: %w", err)
	}

	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		// A corrupt file starts an empty list rather than blocking the assistant.
		s.logger.Warn("Ignoring unreadable tasks file", zap.String("path", s.path), zap.Error(err))
		return nil, nil
	}
	return tasks, nil
}

func (s *MemoryStorage) backfill() int {
	updated := 0
	now := s.now()
	for i := range s.tasks {
		t := &s.tasks[i]
		if t.Deadline != nil || t.Status != models.TaskPending {
			continue
		}
		if d := deadline.Parse(t.Text, now); d != nil {
			t.Deadline = d
			updated++
		}
	}
	if updated > 0 {
		s.logger.Info("Backfilled task deadlines", zap.Int("count", updated))
	}
	return updated
}

func (s *MemoryStorage) save() error {
	if s.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(s.tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding tasks: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("error creating tasks directory: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("error writing tasks file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *MemoryStorage) Add(ctx context.Context, text string, due *time.Time) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if due == nil {
		due = deadline.Parse(text, now)
	}
	task := models.Task{
		ID:        uuid.NewString(),
		Text:      text,
		Status:    models.TaskPending,
		CreatedAt: now,
		Deadline:  due,
	}
	s.tasks = append(s.tasks, task)
	if err := s.save(); err != nil {
		s.tasks = s.tasks[:len(s.tasks)-1]
		return nil, err
	}
	return &task, nil
}

func (s *MemoryStorage) ListPending(ctx context.Context) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pending(s.tasks), nil
}

func (s *MemoryStorage) List(ctx context.Context) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out, nil
}

func (s *MemoryStorage) CompleteByIndex(ctx context.Context, index int) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := pending(s.tasks)
	if index < 1 || index > len(p) {
		return nil, fmt.Errorf("%w: no pending task #%d", ErrTaskNotFound, index)
	}
	return s.complete(p[index-1].ID)
}

func (s *MemoryStorage) CompleteByID(ctx context.Context, id string) (*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete(id)
}

func (s *MemoryStorage) complete(id string) (*models.Task, error) {
	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		prev := s.tasks[i].Status
		s.tasks[i].Status = models.TaskDone
		if err := s.save(); err != nil {
			s.tasks[i].Status = prev
			return nil, err
		}
		t := s.tasks[i]
		return &t, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
}

func (s *MemoryStorage) DeleteCompleted(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.Status != models.TaskDone {
			kept = append(kept, t)
		}
	}
	removed := len(s.tasks) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	prev := s.tasks
	s.tasks = kept
	if err := s.save(); err != nil {
		s.tasks = prev
		return 0, err
	}
	return removed, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}

func pending(tasks []models.Task) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == models.TaskPending {
			out = append(out, t)
		}
	}
	return out
}
