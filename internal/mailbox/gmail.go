// Package mailbox is a small read-only Gmail REST client.
package mailbox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/xaenox/emo/internal/models"
)

const (
	DefaultBaseURL = "https://gmail.googleapis.com/gmail/v1/users/me"
	readonlyScope  = "https://www.googleapis.com/auth/gmail.readonly"
)

var ErrNotConnected = errors.New("gmail is not connected")

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
	oauthConfig, err := google.ConfigFromJSON(secret, readonlyScope)
	if err != nil {
		return nil, fmt.Errorf("invalid gmail credentials: %w", err)
	}

	raw, err := os.ReadFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("invalid gmail token: %w", err)
	}

	return NewWithHTTPClient(oauthConfig.Client(ctx, &token), cfg.BaseURL, logger), nil
}

// NewWithHTTPClient uses an already authorised HTTP client.
func NewWithHTTPClient(hc *http.Client, baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: hc, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gmail request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gmail error %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type partBody struct {
	AttachmentID string `json:"attachmentId"`
	Size         int    `json:"size"`
	Data         string `json:"data"`
}

type part struct {
	MimeType string   `json:"mimeType"`
	Filename string   `json:"filename"`
	Headers  []header `json:"headers"`
	Body     partBody `json:"body"`
	Parts    []part   `json:"parts"`
}

type message struct {
	ID      string `json:"id"`
	Snippet string `json:"snippet"`
	Payload part   `json:"payload"`
}

// Search runs a Gmail query and returns up to limit fully loaded messages,
// indexed from 1 in result order.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]models.Email, error) {
	var list struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	q := url.Values{"q": {query}, "maxResults": {strconv.Itoa(limit)}}
	if err := c.getJSON(ctx, "/messages", q, &list); err != nil {
		return nil, err
	}

	emails := make([]models.Email, 0, len(list.Messages))
	for i, m := range list.Messages {
		e, err := c.Get(ctx, m.ID)
		if err != nil {
			return nil, err
		}
		e.Index = i + 1
		emails = append(emails, e)
	}
	c.logger.Debug("Gmail search", zap.String("query", query), zap.Int("results", len(emails)))
	return emails, nil
}

func (c *Client) Get(ctx context.Context, id string) (models.Email, error) {
	var m message
	if err := c.getJSON(ctx, "/messages/"+url.PathEscape(id), url.Values{"format": {"full"}}, &m); err != nil {
		return models.Email{}, err
	}
	return toEmail(m), nil
}

// AttachmentData returns the attachment bytes, downloading them unless the
// message carried them inline.
func (c *Client) AttachmentData(ctx context.Context, messageID string, att models.Attachment) ([]byte, error) {
	if len(att.Inline) > 0 {
		return att.Inline, nil
	}
	if att.ID == "" {
		return nil, fmt.Errorf("could not download '%s'", att.Filename)
	}
	var data partBody
	path := "/messages/" + url.PathEscape(messageID) + "/attachments/" + url.PathEscape(att.ID)
	if err := c.getJSON(ctx, path, nil, &data); err != nil {
		return nil, err
	}
	return decode(data.Data)
}

func toEmail(m message) models.Email {
	headers := map[string]string{}
	for _, h := range m.Payload.Headers {
		headers[h.Name] = h.Value
	}
	e := models.Email{
		ID:      m.ID,
		Subject: valueOr(headers["Subject"], "No Subject"),
		From:    valueOr(headers["From"], "Unknown"),
		Date:    valueOr(headers["Date"], "Unknown"),
		Snippet: m.Snippet,
		Body:    body(m.Payload),
	}
	collectAttachments(m.Payload.Parts, &e.Attachments)
	return e
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func collectAttachments(parts []part, out *[]models.Attachment) {
	for _, p := range parts {
		if p.Filename != "" {
			att := models.Attachment{
				ID:       p.Body.AttachmentID,
				Filename: p.Filename,
				MimeType: p.MimeType,
				Size:     p.Body.Size,
			}
			if att.ID == "" && p.Body.Data != "" {
				att.Inline, _ = decode(p.Body.Data)
			}
			*out = append(*out, att)
		}
		collectAttachments(p.Parts, out)
	}
}

// body prefers plain text parts and falls back to the HTML ones.
func body(payload part) string {
	var plain, rich []string
	var walk func(part)
	walk = func(p part) {
		if p.Body.Data != "" && p.Filename == "" {
			if b, err := decode(p.Body.Data); err == nil {
				if text := string(b); strings.TrimSpace(text) != "" {
					switch p.MimeType {
					case "text/plain":
						plain = append(plain, text)
					case "text/html":
						rich = append(rich, text)
					}
				}
			}
		}
		for _, sub := range p.Parts {
			walk(sub)
		}
	}
	walk(payload)

	if len(plain) > 0 {
		return strings.Join(plain, "\n\n")
	}
	if len(rich) > 0 {
		return htmlToText(strings.Join(rich, "\n\n"))
	}
	return ""
}

func decode(data string) ([]byte, error) {
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
}
