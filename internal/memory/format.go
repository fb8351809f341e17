package memory

import (
	"fmt"
	"strings"
)

// SummaryLength is the size of the summary stored alongside each record.
const SummaryLength = 150

var headerPrefixes = []string{"Subject:", "From:", "Date:", "To:", "CC:"}

// Summarize shortens text to at most max characters, preferring to cut at
// a sentence end in the second half of the window.
func Summarize(text string, max int) string {
	if len([]rune(text)) <= max {
		return strings.TrimSpace(text)
	}

	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" || hasAnyPrefix(line, headerPrefixes) {
			continue
		}
		kept = append(kept, line)
		if len(strings.Join(kept, " ")) > max {
			break
		}
	}
	summary := strings.Join(kept, " ")
	if summary == "" {
		summary = strings.Join(strings.Fields(text), " ")
	}

	r := []rune(summary)
	if len(r) <= max {
		return summary
	}
	cut := string(r[:max])
	if end := strings.LastIndexAny(cut, ".?!"); end > len(cut)/2 {
		return cut[:end+1]
	}
	return string(r[:max-3]) + "..."
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// FormatForContext renders results as the memory section of a prompt.
// Email memories only hold summaries, so they are left out and the model is
// told to fetch the mail instead.
func FormatForContext(results []Result) string {
	if len(results) == 0 {
		return ""
	}

	parts := []string{"[Memory Context]"}
	hasEmails, hasAttachments := false, false
	included := 0

	for _, r := range results {
		m := r.Metadata
		if m.Type == "email" || m.Source == "Gmail" {
			hasEmails = true
			continue
		}
		included++

		header := []string{fmt.Sprintf("#%d", included)}
		if r.Relevance != 0 {
			header = append(header, fmt.Sprintf("%d%%", r.Relevance))
		}
		switch {
		case m.Type == "attachment" || m.Filename != "":
			header = append(header, "📎 ATTACHMENT: "+m.Filename)
			hasAttachments = true
		case m.Subject != "":
			header = append(header, "'"+m.Subject+"'")
		}
		if m.Source != "" {
			header = append(header, "from "+m.Source)
		}

		summary := r.Summary
		if summary == "" {
			summary = "No summary available"
		}
		parts = append(parts, strings.Join(header, " | ")+"\n→ "+summary)
		if r.DocID != "" {
			parts = append(parts, "  [ID: "+r.DocID+"]")
		}
	}

	if included == 0 && hasEmails {
		return "[Memory Context]\n⚠️ For email content, you MUST call `quick_gmail_search(query)` - memory only has summaries!"
	}
	if hasEmails {
		parts = append(parts, "\n⚠️ EMAIL CONTENT NOT IN MEMORY - You MUST call `quick_gmail_search` to get full email content! DO NOT use summaries!")
	}
	if hasAttachments {
		parts = append(parts, "\n⚠️ ATTACHMENTS DETECTED: Use `recall_memory(doc_id)` to read file contents!")
	} else if included > 0 {
		parts = append(parts, "\n(Use recall_memory(doc_id) for full content)")
	}
	return strings.Join(parts, "\n")
}

// FormatSearch renders results for the search_memory tool.
func FormatSearch(results []Result) string {
	if len(results) == 0 {
		return "No memories found matching your query."
	}
	parts := []string{fmt.Sprintf("Found %d relevant memories:\n", len(results))}
	for i, r := range results {
		source := r.Metadata.Source
		if source == "" {
			source = "Unknown"
		}
		parts = append(parts,
			fmt.Sprintf("%d. [%d%% match] %s", i+1, r.Relevance, r.Summary),
			fmt.Sprintf("   Source: %s | ID: %s", source, r.DocID),
			"")
	}
	parts = append(parts, "Use recall_memory(doc_id) to get full content of any memory.")
	return strings.Join(parts, "\n")
}
