package storage

import (
	"context"
	"errors"
	"time"

	"github.com/xaenox/emo/internal/models"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskStore is the persisted todo list. Implementations serialise writes so
// concurrent turns never lose updates.
type TaskStore interface {
	// Add stores a new pending task. When deadline is nil it is parsed from text.
	Add(ctx context.Context, text string, deadline *time.Time) (*models.Task, error)
	ListPending(ctx context.Context) ([]models.Task, error)
	List(ctx context.Context) ([]models.Task, error)
	// CompleteByIndex marks the index-th pending task (1-based) as done.
	CompleteByIndex(ctx context.Context, index int) (*models.Task, error)
	CompleteByID(ctx context.Context, id string) (*models.Task, error)
	// DeleteCompleted removes every done task and reports how many went.
	DeleteCompleted(ctx context.Context) (int, error)
	Close() error
}
