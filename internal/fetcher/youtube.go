package fetcher

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var (
	watchID = regexp.MustCompile(`[?&]v=([a-zA-Z0-9_-]{11})`)
	shortID = regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`)

	ErrNoVideoID    = errors.New("could not extract video ID from URL")
	ErrNoTranscript = errors.New("transcript was empty")
)

var transcriptLangs = []struct{ code, name string }{{"en", "English"}, {"vi", "Vietnamese"}}

// VideoID pulls the 11-character id out of a watch or youtu.be URL.
func VideoID(videoURL string) (string, bool) {
	if m := watchID.FindStringSubmatch(videoURL); m != nil {
		return m[1], true
	}
	if m := shortID.FindStringSubmatch(videoURL); m != nil {
		return m[1], true
	}
	return "", false
}

type cue struct {
	Start float64
	Text  string
}

type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
}

func (f *Fetcher) cues(ctx context.Context, id, lang string) ([]cue, error) {
	q := url.Values{"v": {id}, "lang": {lang}}
	body, err := f.get(ctx, f.cfg.TimedTextURL+"?"+q.Encode(), browserAgent)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, ErrNoTranscript
	}

	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}

	var out []cue
	for _, t := range doc.Texts {
		start, _ := strconv.ParseFloat(t.Start, 64)
		text := strings.Join(strings.Fields(html.UnescapeString(t.Body)), " ")
		if text == "" {
			continue
		}
		out = append(out, cue{Start: start, Text: text})
	}
	if len(out) == 0 {
		return nil, ErrNoTranscript
	}
	return out, nil
}

// Transcript fetches captions, English first then Vietnamese, grouped into
// one line per minute.
func (f *Fetcher) Transcript(ctx context.Context, videoURL string) (string, error) {
	id, ok := VideoID(videoURL)
	if !ok {
		return "", ErrNoVideoID
	}

	var (
		cues     []cue
		language string
		lastErr  error
	)
	for _, l := range transcriptLangs {
		c, err := f.cues(ctx, id, l.code)
		if err != nil {
			f.logger.Debug("No transcript", zap.String("video", id), zap.String("lang", l.code), zap.Error(err))
			lastErr = err
			continue
		}
		cues, language = c, l.name
		break
	}
	if cues == nil {
		return "", fmt.Errorf("could not retrieve transcript: %w", lastErr)
	}

	lines := groupByMinute(cues)
	return fmt.Sprintf("=== YOUTUBE TRANSCRIPT ===\nVideo ID: %s\nLanguage: %s\n---\n%s\n=== END TRANSCRIPT ===",
		id, language, strings.Join(lines, "\n")), nil
}

func groupByMinute(cues []cue) []string {
	var (
		lines   []string
		minute  int
		current []string
	)
	for _, c := range cues {
		m := int(c.Start) / 60
		if m > minute {
			if len(current) > 0 {
				lines = append(lines, fmt.Sprintf("[%02d:00] %s", minute, strings.Join(current, " ")))
			}
			minute = m
			current = []string{c.Text}
			continue
		}
		current = append(current, c.Text)
	}
	if len(current) > 0 {
		lines = append(lines, fmt.Sprintf("[%02d:00] %s", minute, strings.Join(current, " ")))
	}
	return lines
}
