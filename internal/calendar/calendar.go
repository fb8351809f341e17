// Package calendar is a small Google Calendar REST client for the primary
// calendar: listing, keyword search and natural-language quick add.
package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/xaenox/emo/internal/models"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/calendar/v3"
	eventsScope    = "https://www.googleapis.com/auth/calendar.events"
	primary        = "/calendars/primary/events"
)

var ErrNotConnected = errors.New("calendar is not connected")

type Config struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	TokenFile       string `mapstructure:"token_file"`
	BaseURL         string `mapstructure:"base_url"`
}

type Client struct {
	http    *http.Client
	baseURL string
	logger  *zap.Logger
}

// New builds an authorised client from an OAuth client secret and a saved
// token. Missing files report ErrNotConnected.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.CredentialsFile == "" || cfg.TokenFile == "" {
		return nil, ErrNotConnected
	}
	secret, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	oauthConfig, err := google.ConfigFromJSON(secret, eventsScope)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar credentials: %w", err)
	}

	raw, err := os.ReadFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("invalid calendar token: %w", err)
	}

	return NewWithHTTPClient(oauthConfig.Client(ctx, &token), cfg.BaseURL, logger), nil
}

// NewWithHTTPClient uses an already authorised HTTP client.
func NewWithHTTPClient(hc *http.Client, baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{http: hc, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// Query selects events starting in [From, To). Text is matched by the
// calendar service against summary, description and location.
type Query struct {
	From, To time.Time
	Text     string
	Max      int
}

type eventTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
}

type event struct {
	ID       string    `json:"id"`
	Summary  string    `json:"summary"`
	Location string    `json:"location"`
	HTMLLink string    `json:"htmlLink"`
	Start    eventTime `json:"start"`
}

func (e event) toModel(loc *time.Location) models.CalendarEvent {
	out := models.CalendarEvent{ID: e.ID, Summary: e.Summary, Location: e.Location, Link: e.HTMLLink}
	if t, err := time.Parse(time.RFC3339, e.Start.DateTime); err == nil {
		out.Start = t.In(loc)
	} else if d, err := time.ParseInLocation("2006-01-02", e.Start.Date, loc); err == nil {
		out.Start = d
		out.AllDay = true
	}
	return out
}

// Events lists single (expanded) events ordered by start time. Times are
// reported in the location of q.From.
func (c *Client) Events(ctx context.Context, q Query) ([]models.CalendarEvent, error) {
	if q.Max <= 0 {
		q.Max = 10
	}
	params := url.Values{
		"timeMin":      {q.From.Format(time.RFC3339)},
		"timeMax":      {q.To.Format(time.RFC3339)},
		"maxResults":   {strconv.Itoa(q.Max)},
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
	}
	if q.Text != "" {
		params.Set("q", q.Text)
	}

	var list struct {
		Items []event `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, primary, params, &list); err != nil {
		return nil, err
	}

	out := make([]models.CalendarEvent, 0, len(list.Items))
	for _, e := range list.Items {
		out = append(out, e.toModel(q.From.Location()))
	}
	c.logger.Debug("Listed calendar events", zap.Int("count", len(out)), zap.String("q", q.Text))
	return out, nil
}

// QuickAdd lets the calendar service parse text such as "Lunch with Ann
// friday 1pm" into a new event.
func (c *Client) QuickAdd(ctx context.Context, text string, loc *time.Location) (*models.CalendarEvent, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("event text is empty")
	}
	var created event
	if err := c.do(ctx, http.MethodPost, primary+"/quickAdd", url.Values{"text": {text}}, &created); err != nil {
		return nil, err
	}
	ev := created.toModel(loc)
	return &ev, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calendar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("calendar error %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
