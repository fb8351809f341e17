package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/emo/internal/mailbox"
	"github.com/xaenox/emo/internal/models"
)

// Mailbox is a read-only view of the user's email.
type Mailbox interface {
	Search(ctx context.Context, query string, limit int) ([]models.Email, error)
	AttachmentData(ctx context.Context, messageID string, att models.Attachment) ([]byte, error)
}

const (
	defaultSearchResults = 3
	attachmentPreview    = 500
)

type mailTools struct {
	mail    Mailbox
	memory  MemoryStore
	results int
}

func (m mailTools) connected() error {
	if m.mail == nil {
		return mailbox.ErrNotConnected
	}
	return nil
}

func (m mailTools) search(ctx context.Context, query string, limit int) ([]models.Email, error) {
	if err := m.connected(); err != nil {
		return nil, err
	}
	emails, err := m.mail.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("gmail search: %w", err)
	}
	return emails, nil
}

func bodyOrPlaceholder(body string) string {
	if strings.TrimSpace(body) == "" {
		return "(No text content)"
	}
	return body
}

func attachmentNames(e models.Email) []string {
	names := make([]string, 0, len(e.Attachments))
	for _, a := range e.Attachments {
		names = append(names, a.Filename)
	}
	return names
}

// quickSearch lists full emails and caches them on the session so later
// turns can refer to them by number.
func (m mailTools) quickSearch(ctx context.Context, call Call) (string, error) {
	query, err := required(call.Args, "query")
	if err != nil {
		return "", err
	}
	limit := integer(call.Args, "max_results", m.results)
	emails, err := m.search(ctx, mailbox.BuildQuery(query), limit)
	if err != nil {
		return "", err
	}
	if len(emails) == 0 {
		return fmt.Sprintf("No emails found for: '%s'", query), nil
	}
	call.Session.SetEmails(emails)

	blocks := make([]string, 0, len(emails))
	for _, e := range emails {
		lines := []string{
			fmt.Sprintf("--- EMAIL #%d ---", e.Index),
			"**Subject:** " + e.Subject,
			"**From:** " + e.From,
			"**Date:** " + e.Date,
		}
		if names := attachmentNames(e); len(names) > 0 {
			lines = append(lines, fmt.Sprintf("**Attachments (%d):** %s", len(names), strings.Join(names, ", ")))
		}
		lines = append(lines, "", "**Full Content:**", bodyOrPlaceholder(e.Body), "")
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return fmt.Sprintf("Found %d email(s):\n\n", len(emails)) + strings.Join(blocks, "\n"), nil
}

func (m mailTools) byIndex(_ context.Context, call Call) (string, error) {
	index := integer(call.Args, "index", 1)
	sess := call.Session
	if sess.EmailCount() == 0 {
		return "❌ No recent search results. Please search for emails first.", nil
	}
	e, ok := sess.Email(index)
	if !ok {
		return fmt.Sprintf("❌ Email #%d not found (available: 1-%d)", index, sess.EmailCount()), nil
	}
	sess.SetLastViewedEmailIndex(index)

	return strings.Join([]string{
		fmt.Sprintf("**Email #%d**", index),
		"**Subject:** " + e.Subject,
		"**From:** " + e.From,
		"**Date:** " + e.Date,
		"\n---\n",
		bodyOrPlaceholder(e.Body),
	}, "\n"), nil
}

// analyzeAttachment reads one attachment, or all of them for index 0, from a
// cached email.
func (m mailTools) analyzeAttachment(ctx context.Context, call Call) (string, error) {
	if err := m.connected(); err != nil {
		return "", err
	}
	sess := call.Session
	emailIndex := integer(call.Args, "email_index", sess.LastViewedEmailIndex())
	attIndex := integer(call.Args, "attachment_index", 1)

	if sess.EmailCount() == 0 {
		return "❌ No recent search. Search for emails first!", nil
	}
	e, ok := sess.Email(emailIndex)
	if !ok {
		return fmt.Sprintf("❌ Email #%d not found.", emailIndex), nil
	}
	sess.SetLastViewedEmailIndex(emailIndex)
	if len(e.Attachments) == 0 {
		return fmt.Sprintf("❌ No attachments in Email #%d.", emailIndex), nil
	}

	targets := e.Attachments
	if attIndex != 0 {
		if attIndex < 1 || attIndex > len(e.Attachments) {
			return fmt.Sprintf("❌ Attachment #%d not found.", attIndex), nil
		}
		targets = e.Attachments[attIndex-1 : attIndex]
	}

	blocks := make([]string, 0, len(targets))
	for _, att := range targets {
		data, err := m.mail.AttachmentData(ctx, e.ID, att)
		if err != nil {
			blocks = append(blocks, fmt.Sprintf("❌ Could not download '%s'", att.Filename))
			continue
		}
		text, err := mailbox.ExtractText(att.Filename, data)
		if err != nil || strings.TrimSpace(text) == "" {
			blocks = append(blocks, fmt.Sprintf("❌ Could not parse '%s'", att.Filename))
			continue
		}
		blocks = append(blocks, attachmentBlock(att.Filename, len(data), text))
	}
	return strings.Join(blocks, "\n\n"), nil
}

func attachmentBlock(filename string, size int, text string) string {
	icon := "📄"
	switch lower := strings.ToLower(filename); {
	case strings.HasSuffix(lower, ".xls"), strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".csv"):
		icon = "📊"
	case strings.HasSuffix(lower, ".pdf"):
		icon = "📕"
	}
	clean := clip(strings.Join(strings.Fields(text), " "), attachmentPreview)
	return fmt.Sprintf("╭──────────────────────────────────────╮\n│  %s  **%s**\n╰──────────────────────────────────────╯\n"+
		"**Size:** %.1f KB\n\n**Content (first %d chars):**\n\"%s\"",
		icon, filename, float64(size)/1024, attachmentPreview, clean)
}

func (m mailTools) fullEmail(ctx context.Context, call Call) (string, error) {
	query, err := required(call.Args, "query")
	if err != nil {
		return "", err
	}
	emails, err := m.search(ctx, mailbox.BuildQuery(query), 1)
	if err != nil {
		return "", err
	}
	if len(emails) == 0 {
		return fmt.Sprintf("No email found matching: '%s'", query), nil
	}
	e := emails[0]
	return strings.Join([]string{
		"=== FULL EMAIL ===",
		"**Subject:** " + e.Subject,
		"**From:** " + e.From,
		"**Date:** " + e.Date,
		"\n---\n",
		bodyOrPlaceholder(e.Body),
		"\n=== END EMAIL ===",
	}, "\n"), nil
}

// checkAndLearn looks emails up and files a summary of each in memory so
// later questions can find them.
func (m mailTools) checkAndLearn(ctx context.Context, call Call) (string, error) {
	query, err := required(call.Args, "query")
	if err != nil {
		return "", err
	}
	emails, err := m.search(ctx, mailbox.BuildQuery(query), integer(call.Args, "max_emails", 2))
	if err != nil {
		return "", err
	}
	if len(emails) == 0 {
		return fmt.Sprintf("No emails found for: '%s'", query), nil
	}

	subjects := make([]string, 0, len(emails))
	for i, e := range emails {
		if i < 3 {
			subjects = append(subjects, "'"+e.Subject+"'")
		}
		if m.memory == nil {
			continue
		}
		text := fmt.Sprintf("Subject: %s\nFrom: %s\nDate: %s\n\n%s", e.Subject, e.From, e.Date, e.Body)
		if _, err := m.memory.Save(ctx, text, models.MemoryMetadata{
			Type:    "email",
			Source:  "Gmail",
			Subject: e.Subject,
		}); err != nil {
			return "", fmt.Errorf("remember email: %w", err)
		}
	}
	return fmt.Sprintf("✅ Found %d email(s).\n📧 Subjects: %s\n💡 Use `quick_gmail_search` for full content.",
		len(emails), strings.Join(subjects, ", ")), nil
}

func (m mailTools) attachmentsFor(ctx context.Context, call Call) (string, error) {
	query, err := required(call.Args, "query")
	if err != nil {
		return "", err
	}
	emails, err := m.search(ctx, mailbox.BuildQuery(query)+" has:attachment", 2)
	if err != nil {
		return "", err
	}
	if len(emails) == 0 {
		return fmt.Sprintf("No emails with attachments found for: '%s'", query), nil
	}

	var info []string
	for _, e := range emails {
		for i, a := range e.Attachments {
			if i == 3 {
				break
			}
			info = append(info, fmt.Sprintf("📎 %s (from: %s)", a.Filename, e.Subject))
		}
	}
	if len(info) == 0 {
		return "No attachments found.", nil
	}
	return fmt.Sprintf("Found %d attachment(s):\n", len(info)) + strings.Join(info, "\n"), nil
}
