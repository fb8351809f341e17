package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xaenox/emo/internal/calendar"
	"github.com/xaenox/emo/internal/models"
)

// Calendar is the user's primary calendar.
type Calendar interface {
	Events(ctx context.Context, q calendar.Query) ([]models.CalendarEvent, error)
	QuickAdd(ctx context.Context, text string, loc *time.Location) (*models.CalendarEvent, error)
}

const (
	defaultEventDays  = 7
	defaultEventCount = 10
	searchEventDays   = 30
)

type calendarTools struct {
	cal Calendar
	now func() time.Time
}

func (c calendarTools) connected() error {
	if c.cal == nil {
		return calendar.ErrNotConnected
	}
	return nil
}

func eventTime(e models.CalendarEvent) string {
	if e.AllDay {
		return e.Start.Format("2006-01-02")
	}
	return e.Start.Format("Mon Jan 02, 15:04")
}

func (c calendarTools) upcoming(ctx context.Context, call Call) (string, error) {
	if err := c.connected(); err != nil {
		return "", err
	}
	days := integer(call.Args, "days", defaultEventDays)
	if days < 1 {
		days = defaultEventDays
	}
	now := c.now()
	events, err := c.cal.Events(ctx, calendar.Query{
		From: now,
		To:   now.AddDate(0, 0, days),
		Max:  integer(call.Args, "max_results", defaultEventCount),
	})
	if err != nil {
		return "", fmt.Errorf("list events: %w", err)
	}
	if len(events) == 0 {
		return fmt.Sprintf("📅 No upcoming events in the next %d day(s).", days), nil
	}

	lines := []string{fmt.Sprintf("📅 **Upcoming Events** (next %d days):", days), ""}
	for i, e := range events {
		line := fmt.Sprintf("%d. **%s** at %s", i+1, e.Summary, eventTime(e))
		if e.Location != "" {
			line += " 📍 " + e.Location
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

// search looks a month back and a month ahead.
func (c calendarTools) search(ctx context.Context, call Call) (string, error) {
	if err := c.connected(); err != nil {
		return "", err
	}
	query, err := required(call.Args, "query")
	if err != nil {
		return "", err
	}
	now := c.now()
	events, err := c.cal.Events(ctx, calendar.Query{
		From: now.AddDate(0, 0, -searchEventDays),
		To:   now.AddDate(0, 0, searchEventDays),
		Text: query,
		Max:  defaultEventCount,
	})
	if err != nil {
		return "", fmt.Errorf("search events: %w", err)
	}
	if len(events) == 0 {
		return fmt.Sprintf("🔍 No events found matching '%s'.", query), nil
	}

	lines := []string{fmt.Sprintf("🔍 Found %d event(s) matching '%s':", len(events), query), ""}
	for _, e := range events {
		lines = append(lines, fmt.Sprintf("• **%s** at %s", e.Summary, eventTime(e)))
	}
	return strings.Join(lines, "\n"), nil
}

func (c calendarTools) quickAdd(ctx context.Context, call Call) (string, error) {
	if err := c.connected(); err != nil {
		return "", err
	}
	text, err := required(call.Args, "text", "description")
	if err != nil {
		return "", err
	}
	ev, err := c.cal.QuickAdd(ctx, text, c.now().Location())
	if err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}

	when := ev.Start.Format("2006-01-02")
	if !ev.AllDay {
		when = ev.Start.Format("Monday, Jan 02 at 15:04")
	}
	out := fmt.Sprintf("✅ Event created: **%s**\n📅 %s", ev.Summary, when)
	if ev.Link != "" {
		out += fmt.Sprintf("\n🔗 [View in Calendar](%s)", ev.Link)
	}
	return out, nil
}
