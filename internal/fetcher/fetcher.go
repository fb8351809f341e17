// Package fetcher reads web pages, news headlines and YouTube transcripts
// and renders them as plain text blocks for the prompt.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultReaderURL    = "https://r.jina.ai/"
	DefaultTimedTextURL = "https://www.youtube.com/api/timedtext"
	DefaultMaxChars     = 20000

	browserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	readerAgent  = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
	maxBody      = 4 << 20
)

var ErrNoContent = errors.New("no readable content")

type Config struct {
	// ReaderURL is a proxy that returns a page as text when the page URL is
	// appended to it. Empty disables the proxy.
	ReaderURL    string        `mapstructure:"reader_url"`
	TimedTextURL string        `mapstructure:"timedtext_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxChars     int           `mapstructure:"max_chars"`
}

type Fetcher struct {
	client *http.Client
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.TimedTextURL == "" {
		cfg.TimedTextURL = DefaultTimedTextURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	return &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
		logger: logger,
	}
}

func (f *Fetcher) get(ctx context.Context, url, agent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", agent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5,vi;q=0.3")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

func normalizeURL(url string) string {
	url = strings.TrimSpace(url)
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "https://" + url
	}
	return url
}

func truncateRunes(s string, n int, marker string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + marker
}

// ReadPage returns the readable text of a page, trying the reader proxy
// first and falling back to parsing the HTML directly.
func (f *Fetcher) ReadPage(ctx context.Context, url string) (string, error) {
	url = normalizeURL(url)

	if f.cfg.ReaderURL != "" {
		body, err := f.get(ctx, f.cfg.ReaderURL+url, readerAgent)
		if err != nil {
			f.logger.Debug("Reader proxy failed", zap.String("url", url), zap.Error(err))
		} else if content := strings.TrimSpace(string(body)); len(content) > 100 && !strings.HasPrefix(content, "Error") {
			return pageBlock(url, truncateRunes(content, f.cfg.MaxChars, "\n\n[...Content Truncated...]")), nil
		}
	}

	body, err := f.get(ctx, url, browserAgent)
	if err != nil {
		return "", err
	}
	content, err := extractArticle(string(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", url, err)
	}
	if len(content) <= 100 {
		return "", fmt.Errorf("%w at %s", ErrNoContent, url)
	}
	return pageBlock(url, truncateRunes(content, f.cfg.MaxChars, "\n\n[...Truncated...]")), nil
}

func pageBlock(url, content string) string {
	return "=== WEB CONTENT ===\nSource: " + url + "\n---\n" + content + "\n=== END CONTENT ==="
}

// Headlines lists up to count article links from a news front page.
// count is clamped to [1, 20].
func (f *Fetcher) Headlines(ctx context.Context, url string, count int) (string, error) {
	url = normalizeURL(url)
	count = min(max(count, 1), 20)

	body, err := f.get(ctx, url, browserAgent)
	if err != nil {
		return "", err
	}
	items, err := extractHeadlines(string(body), url)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", url, err)
	}
	if len(items) == 0 {
		return "", fmt.Errorf("could not extract headlines from %s", url)
	}
	if len(items) > count {
		items = items[:count]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "=== NEWS HEADLINES from %s ===\n\n", url)
	for i, it := range items {
		fmt.Fprintf(&sb, "%d. **%s**\n   🔗 %s\n\n", i+1, it.Title, it.URL)
	}
	return sb.String(), nil
}
