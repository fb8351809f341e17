package calendar

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var hcm = time.FixedZone("ICT", 7*3600)

func TestClient_Events(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/calendars/primary/events", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2025-12-03T10:00:00+07:00", q.Get("timeMin"))
		assert.Equal(t, "2025-12-10T10:00:00+07:00", q.Get("timeMax"))
		assert.Equal(t, "dentist", q.Get("q"))
		assert.Equal(t, "5", q.Get("maxResults"))
		assert.Equal(t, "true", q.Get("singleEvents"))
		assert.Equal(t, "startTime", q.Get("orderBy"))
		fmt.Fprint(w, `{"items":[
			{"id":"e1","summary":"Dentist","location":"Q1 Clinic","htmlLink":"https://cal/e1","start":{"dateTime":"2025-12-04T02:30:00Z"}},
			{"id":"e2","summary":"Dentist follow-up","start":{"date":"2025-12-08"}}
		]}`)
	}))
	defer srv.Close()

	from := time.Date(2025, time.December, 3, 10, 0, 0, 0, hcm)
	c := NewWithHTTPClient(srv.Client(), srv.URL, zap.NewNop())
	events, err := c.Events(context.Background(), Query{From: from, To: from.AddDate(0, 0, 7), Text: "dentist", Max: 5})
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "Dentist", events[0].Summary)
	assert.Equal(t, "Q1 Clinic", events[0].Location)
	assert.Equal(t, "2025-12-04 09:30", events[0].Start.Format("2006-01-02 15:04"))
	assert.False(t, events[0].AllDay)

	assert.True(t, events[1].AllDay)
	assert.Equal(t, "2025-12-08T00:00:00+07:00", events[1].Start.Format(time.RFC3339))
}

func TestClient_QuickAdd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/calendars/primary/events/quickAdd", r.URL.Path)
		assert.Equal(t, "Lunch with Ann friday 1pm", r.URL.Query().Get("text"))
		fmt.Fprint(w, `{"id":"e9","summary":"Lunch with Ann","htmlLink":"https://cal/e9","start":{"dateTime":"2025-12-05T13:00:00+07:00"}}`)
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.Client(), srv.URL, nil)
	ev, err := c.QuickAdd(context.Background(), "Lunch with Ann friday 1pm", hcm)
	require.NoError(t, err)
	assert.Equal(t, "Lunch with Ann", ev.Summary)
	assert.Equal(t, "https://cal/e9", ev.Link)
	assert.Equal(t, 13, ev.Start.Hour())

	_, err = c.QuickAdd(context.Background(), "  ", hcm)
	assert.Error(t, err)
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient scope", http.StatusForbidden)
	}))
	defer srv.Close()

	now := time.Now()
	_, err := NewWithHTTPClient(srv.Client(), srv.URL, nil).Events(context.Background(), Query{From: now, To: now})
	assert.ErrorContains(t, err, "calendar error 403: insufficient scope")
}

func TestNew_NotConnected(t *testing.T) {
	_, err := New(context.Background(), Config{}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = New(context.Background(), Config{CredentialsFile: "/nope/creds.json", TokenFile: "/nope/token.json"}, zap.NewNop())
	assert.ErrorIs(t, err, ErrNotConnected)
}
