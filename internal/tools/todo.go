package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xaenox/emo/internal/models"
	"github.com/xaenox/emo/internal/storage"
)

// TaskStore is the part of the task store the todo tools need.
type TaskStore interface {
	Add(ctx context.Context, text string, deadline *time.Time) (*models.Task, error)
	ListPending(ctx context.Context) ([]models.Task, error)
	CompleteByIndex(ctx context.Context, index int) (*models.Task, error)
}

const deadlineLayout = "2006-01-02 15:04"

type todoTools struct {
	tasks TaskStore
}

func (t todoTools) add(ctx context.Context, call Call) (string, error) {
	text, err := required(call.Args, "task")
	if err != nil {
		return "", err
	}
	task, err := t.tasks.Add(ctx, text, nil)
	if err != nil {
		return "", fmt.Errorf("add task: %w", err)
	}
	pending, err := t.tasks.ListPending(ctx)
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ Added task: '%s'", task.Text)
	if task.Deadline != nil {
		fmt.Fprintf(&sb, "\n⏰ Deadline: %s", task.Deadline.Format(deadlineLayout))
	}
	fmt.Fprintf(&sb, "\n📋 You now have %d pending task(s).", len(pending))
	return sb.String(), nil
}

func (t todoTools) list(ctx context.Context, _ Call) (string, error) {
	pending, err := t.tasks.ListPending(ctx)
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}
	if len(pending) == 0 {
		return "📋 Your to-do list is empty. No pending tasks!", nil
	}

	lines := []string{"📋 **Current To-Do List:**"}
	for i, task := range pending {
		line := fmt.Sprintf("%d. %s (added: %s)", i+1, task.Text, task.CreatedAt.Format("2006-01-02"))
		if task.Deadline != nil {
			line += " ⏰ " + task.Deadline.Format(deadlineLayout)
		}
		lines = append(lines, line)
	}
	lines = append(lines, fmt.Sprintf("\n**Total: %d pending task(s)**", len(pending)))
	return strings.Join(lines, "\n"), nil
}

func (t todoTools) complete(ctx context.Context, call Call) (string, error) {
	index := integer(call.Args, "task_index", 1)

	// The store picks and completes the task in one step, so a concurrent
	// completion cannot shift the index under us.
	task, err := t.tasks.CompleteByIndex(ctx, index)
	if errors.Is(err, storage.ErrTaskNotFound) {
		pending, lerr := t.tasks.ListPending(ctx)
		if lerr != nil {
			return "", fmt.Errorf("list tasks: %w", lerr)
		}
		if len(pending) == 0 {
			return "📋 Your to-do list is empty. Nothing to complete!", nil
		}
		return fmt.Sprintf("❌ Invalid task index. Please choose between 1 and %d.", len(pending)), nil
	}
	if err != nil {
		return "", fmt.Errorf("complete task %d: %w", index, err)
	}

	pending, err := t.tasks.ListPending(ctx)
	if err != nil {
		return "", fmt.Errorf("list tasks: %w", err)
	}
	return fmt.Sprintf("✅ Completed: '%s'\n📋 %d task(s) remaining.", task.Text, len(pending)), nil
}
