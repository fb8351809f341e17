// Package reminder derives deadline alerts from the live task list.
package reminder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xaenox/emo/internal/models"
	"go.uber.org/zap"
)

const (
	Header = "[DEADLINE ALERTS - mention naturally if relevant]"

	// UpcomingWindow bounds how far ahead a deadline still counts as upcoming.
	UpcomingWindow = 120 * time.Minute
)

type Urgency string

const (
	Overdue  Urgency = "OVERDUE"
	Urgent   Urgency = "URGENT"
	Soon     Urgency = "SOON"
	Upcoming Urgency = "UPCOMING"
)

// Alert is one overdue or upcoming task.
type Alert struct {
	Task    models.Task
	Urgency Urgency
	Minutes int
}

// Line renders the alert the way the assistant sees it in its prompt.
func (a Alert) Line() string {
	if a.Urgency == Overdue {
		return fmt.Sprintf("OVERDUE (%s): %s", agoPhrase(a.Minutes), a.Task.Text)
	}
	return fmt.Sprintf("%s (%s, at %s): %s", a.Urgency, inPhrase(a.Minutes), a.Task.Deadline.Format("3:04 PM"), a.Task.Text)
}

// Alerts splits pending tasks with a deadline into overdue ones, in store order,
// followed by the ones due within the upcoming window, nearest first.
func Alerts(tasks []models.Task, now time.Time) []Alert {
	var overdue, upcoming []Alert
	for _, t := range tasks {
		if t.Status != models.TaskPending || t.Deadline == nil {
			continue
		}
		until := t.Deadline.Sub(now)
		switch {
		case until < 0:
			overdue = append(overdue, Alert{Task: t, Urgency: Overdue, Minutes: int(-until / time.Minute)})
		case until > 0 && until <= UpcomingWindow:
			mins := int(until / time.Minute)
			upcoming = append(upcoming, Alert{Task: t, Urgency: tier(mins), Minutes: mins})
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Task.Deadline.Before(*upcoming[j].Task.Deadline)
	})
	return append(overdue, upcoming...)
}

// Format returns the alert block, or "" when there is nothing to say.
func Format(alerts []Alert) string {
	if len(alerts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(alerts)+1)
	lines = append(lines, Header)
	for _, a := range alerts {
		lines = append(lines, a.Line())
	}
	return strings.Join(lines, "\n")
}

func tier(mins int) Urgency {
	switch {
	case mins <= 15:
		return Urgent
	case mins <= 30:
		return Soon
	default:
		return Upcoming
	}
}

func agoPhrase(mins int) string {
	if mins < 60 {
		return fmt.Sprintf("%d minutes ago", mins)
	}
	return fmt.Sprintf("%s ago", hours(mins/60))
}

func inPhrase(mins int) string {
	if mins < 60 {
		return fmt.Sprintf("in %d min", mins)
	}
	h, m := mins/60, mins%60
	if m > 0 {
		return fmt.Sprintf("in %dh %dm", h, m)
	}
	return "in " + hours(h)
}

func hours(h int) string {
	if h > 1 {
		return fmt.Sprintf("%d hours", h)
	}
	return fmt.Sprintf("%d hour", h)
}

// TaskLister is the part of the task store the scanner reads.
type TaskLister interface {
	ListPending(ctx context.Context) ([]models.Task, error)
}

// Scanner reads the task store on demand and produces the alert block.
type Scanner struct {
	tasks  TaskLister
	now    func() time.Time
	logger *zap.Logger
}

func NewScanner(tasks TaskLister, now func() time.Time, logger *zap.Logger) *Scanner {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{tasks: tasks, now: now, logger: logger}
}

// Alerts returns the current alerts. Store failures are logged and yield none.
func (s *Scanner) Alerts(ctx context.Context) []Alert {
	tasks, err := s.tasks.ListPending(ctx)
	if err != nil {
		s.logger.Error("Failed to list pending tasks", zap.Error(err))
		return nil
	}
	return Alerts(tasks, s.now())
}

func (s *Scanner) Scan(ctx context.Context) string {
	return Format(s.Alerts(ctx))
}
