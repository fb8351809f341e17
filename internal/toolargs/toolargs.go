// Package toolargs turns a raw user message into the argument mapping for a
// tool. Extraction is heuristic and never fails: anything it cannot find
// degrades to a default.
package toolargs

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xaenox/emo/internal/models"
)

// EmailCursor exposes the one piece of session state extraction reads.
type EmailCursor interface {
	LastViewedEmailIndex() int
}

var (
	digits     = regexp.MustCompile(`\d+`)
	anyURL     = regexp.MustCompile(`https?://\S+`)
	youtubeURL = regexp.MustCompile(`https?://(?:www\.)?(?:youtube\.com/watch\?v=|youtu\.be/)[\w-]+[^\s]*`)
	// "project Emo: ship it" names the project before the colon.
	projectNote  = regexp.MustCompile(`(?i)\bproject\s+["']?([^:"']+?)["']?\s*:\s*(.+)$`)
	projectName  = regexp.MustCompile(`(?i)\bproject\s+["']?([\p{L}\d_-]+)`)
	dayCount     = regexp.MustCompile(`(\d+)\s*days?`)
	calendarTail = regexp.MustCompile(`(?i)\s*\b(?:to|on|in|into)\s+(?:my|the)\s+calendar\b[.!?]*\s*$`)
)

// Prefix lists are tried in order; the first one the message starts with is
// removed. Longer phrases listed after a shorter prefix never win.
var (
	searchPrefixes = []string{"check", "find", "get", "show", "give me", "search for"}
	todoPrefixes   = []string{"add", "create", "remind me to", "add todo", "add task"}
	notePrefixes   = []string{"save", "remember", "note"}
	eventPrefixes  = []string{"add", "create", "book", "put", "schedule"}
	findPrefixes   = []string{"find", "search for", "search", "look up", "when is"}
)

// noteKinds tags project notes by the first kind word found.
var noteKinds = []string{"goal", "idea", "progress", "blocker"}

type span struct {
	word string
	days int
}

var spans = []span{{"today", 1}, {"tomorrow", 2}, {"week", 7}, {"month", 30}}

type ordinal struct {
	word  string
	index int
}

var ordinals = []ordinal{
	{"first", 1}, {"1st", 1},
	{"second", 2}, {"2nd", 2},
	{"third", 3}, {"3rd", 3},
}

type topicURL struct {
	keyword string
	url     string
}

// NewsTopics maps a topic keyword to the page headlines are read from.
var NewsTopics = []topicURL{
	{"ai", "https://techcrunch.com/category/artificial-intelligence/"},
	{"tech", "https://techcrunch.com/"},
	{"world", "https://www.bbc.com/news/world"},
	{"vietnam", "https://vnexpress.net/"},
}

const DefaultNewsURL = "https://news.google.com/"

type extractor func(message, lower string, cur EmailCursor) models.Args

var extractors = map[models.ToolName]extractor{
	models.ToolQuickGmailSearch:     searchQuery,
	models.ToolCheckGmailAndLearn:   searchQuery,
	models.ToolFetchEmailAttachment: searchQuery,
	models.ToolGetFullEmail:         searchQuery,
	models.ToolGetEmailByIndex:      emailIndex,
	models.ToolAnalyzeAttachment:    attachmentIndices,
	models.ToolAddTodo:              todoText,
	models.ToolCompleteTodo:         taskNumber,
	models.ToolGetTodos:             none,
	models.ToolReadWebPage:          pageURL,
	models.ToolWatchYouTube:         videoURL,
	models.ToolGetNewsHeadlines:     newsURL,
	models.ToolSearchMemory:         fallback,
	models.ToolSaveLongTermMemory:   noteContent,
	models.ToolSaveProjectMemory:    projectContent,
	models.ToolQueryProject:         projectQuery,
	models.ToolListProjects:         none,
	models.ToolClearShortTerm:       none,
	models.ToolListUpcomingEvents:   eventDays,
	models.ToolSearchEvents:         eventQuery,
	models.ToolQuickAddEvent:        eventText,
}

// Prepare derives the call arguments for tool from message. cur may be nil,
// in which case the last viewed email is taken to be the first one.
func Prepare(tool models.ToolName, message string, cur EmailCursor) models.Args {
	fn, ok := extractors[tool]
	if !ok {
		fn = fallback
	}
	return fn(message, strings.ToLower(message), cur)
}

func fallback(message, _ string, _ EmailCursor) models.Args {
	return models.Args{"query": message}
}

func none(string, string, EmailCursor) models.Args { return models.Args{} }

// stripPrefix cuts by runes. Lowering maps rune for rune but can change byte
// lengths, so a byte offset into lower is not an offset into message.
func stripPrefix(message, lower string, prefixes []string) string {
	for _, p := range prefixes {
		if !strings.HasPrefix(lower, p) {
			continue
		}
		if head, ok := runePrefix(message, utf8.RuneCountInString(p)); ok {
			return strings.TrimSpace(message[len(head):])
		}
	}
	return message
}

// runePrefix returns the first n runes of s.
func runePrefix(s string, n int) (string, bool) {
	i := 0
	for ; n > 0; n-- {
		if i >= len(s) {
			return "", false
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i], true
}

func numbers(message string) []int {
	var out []int
	for _, m := range digits.FindAllString(message, -1) {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func searchQuery(message, lower string, _ EmailCursor) models.Args {
	return models.Args{"query": stripPrefix(message, lower, searchPrefixes)}
}

func emailIndex(message, lower string, _ EmailCursor) models.Args {
	if n := numbers(message); len(n) > 0 {
		return models.Args{"index": n[0]}
	}
	for _, o := range ordinals {
		if strings.Contains(lower, o.word) {
			return models.Args{"index": o.index}
		}
	}
	return models.Args{"index": 1}
}

// attachmentIndices reads numbers attachment-first, email-second.
func attachmentIndices(message, lower string, cur EmailCursor) models.Args {
	email := 1
	if cur != nil {
		email = cur.LastViewedEmailIndex()
	}
	att := 1
	if strings.Contains(lower, "attachments") || strings.Contains(lower, "all files") {
		att = 0
	}

	n := numbers(message)
	switch {
	case len(n) >= 2:
		att, email = n[0], n[1]
	case len(n) == 1:
		att = n[0]
	}
	return models.Args{"email_index": email, "attachment_index": att}
}

func todoText(message, lower string, _ EmailCursor) models.Args {
	return models.Args{"task": stripPrefix(message, lower, todoPrefixes)}
}

func taskNumber(message, _ string, _ EmailCursor) models.Args {
	if n := numbers(message); len(n) > 0 {
		return models.Args{"task_index": n[0]}
	}
	return models.Args{"task_index": 1}
}

func pageURL(message, _ string, _ EmailCursor) models.Args {
	if u := anyURL.FindString(message); u != "" {
		return models.Args{"url": u}
	}
	return models.Args{"url": message}
}

func videoURL(message, _ string, _ EmailCursor) models.Args {
	if u := youtubeURL.FindString(message); u != "" {
		return models.Args{"video_url": u}
	}
	return models.Args{"video_url": strings.TrimSpace(message)}
}

func newsURL(_, lower string, _ EmailCursor) models.Args {
	for _, t := range NewsTopics {
		if strings.Contains(lower, t.keyword) {
			return models.Args{"url": t.url}
		}
	}
	return models.Args{"url": DefaultNewsURL}
}

func noteContent(message, lower string, _ EmailCursor) models.Args {
	return models.Args{
		"content":  stripPrefix(message, lower, notePrefixes),
		"category": "user_note",
	}
}

func projectContent(message, lower string, _ EmailCursor) models.Args {
	kind := "note"
	for _, k := range noteKinds {
		if strings.Contains(lower, k) {
			kind = k
			break
		}
	}
	args := models.Args{"content_type": kind, "content": message}
	if m := projectNote.FindStringSubmatch(message); m != nil {
		args["project_name"] = strings.TrimSpace(m[1])
		args["content"] = strings.TrimSpace(m[2])
	} else if m := projectName.FindStringSubmatch(message); m != nil {
		args["project_name"] = m[1]
	}
	return args
}

func projectQuery(message, _ string, _ EmailCursor) models.Args {
	args := models.Args{"query": message}
	if m := projectName.FindStringSubmatch(message); m != nil {
		args["project_name"] = m[1]
	}
	return args
}

// eventDays reads "3 days" first, then a span word; default a week.
func eventDays(_, lower string, _ EmailCursor) models.Args {
	if m := dayCount.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return models.Args{"days": n}
		}
	}
	for _, s := range spans {
		if strings.Contains(lower, s.word) {
			return models.Args{"days": s.days}
		}
	}
	return models.Args{"days": 7}
}

func eventQuery(message, lower string, _ EmailCursor) models.Args {
	q := calendarTail.ReplaceAllString(stripPrefix(message, lower, findPrefixes), "")
	return models.Args{"query": strings.TrimSpace(q)}
}

func eventText(message, lower string, _ EmailCursor) models.Args {
	text := calendarTail.ReplaceAllString(stripPrefix(message, lower, eventPrefixes), "")
	return models.Args{"text": strings.TrimSpace(text)}
}
