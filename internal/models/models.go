package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one role-tagged turn of a conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// QueryType is the label the classifier puts on an incoming message.
type QueryType string

const (
	QuerySimpleChat QueryType = "simple_chat"
	QueryQuiz       QueryType = "quiz"
	QueryEmail      QueryType = "email"
	QueryAttachment QueryType = "attachment"
	QueryTodo       QueryType = "todo"
	QueryWeb        QueryType = "web"
	QueryMemory     QueryType = "memory"
	QueryQuestion   QueryType = "question"
	QueryChat       QueryType = "chat"
)

// Classification is produced fresh for every message and never persisted.
type Classification struct {
	QueryType   QueryType  `json:"query_type"`
	ToolsNeeded []ToolName `json:"tools_needed"`
}

// ToolName identifies one of the tools the assistant knows about.
// Anything outside the known set parses to ToolUnknown.
type ToolName string

const (
	ToolUnknown              ToolName = ""
	ToolQuickGmailSearch     ToolName = "quick_gmail_search"
	ToolCheckGmailAndLearn   ToolName = "check_gmail_and_learn"
	ToolGetEmailByIndex      ToolName = "get_email_by_index"
	ToolAnalyzeAttachment    ToolName = "analyze_attachment"
	ToolFetchEmailAttachment ToolName = "fetch_email_attachments"
	ToolGetFullEmail         ToolName = "get_full_email"
	ToolAddTodo              ToolName = "add_todo"
	ToolGetTodos             ToolName = "get_todos"
	ToolCompleteTodo         ToolName = "complete_todo"
	ToolReadWebPage          ToolName = "read_web_page"
	ToolWatchYouTube         ToolName = "watch_youtube"
	ToolGetNewsHeadlines     ToolName = "get_news_headlines"
	ToolSearchMemory         ToolName = "search_memory"
	ToolRecallMemory         ToolName = "recall_memory"
	ToolSaveLongTermMemory   ToolName = "save_long_term_memory"
	ToolSaveShortTermMemory  ToolName = "save_short_term_memory"
	ToolUpdateLongTermMemory ToolName = "update_long_term_memory"
	ToolQueryShortTerm       ToolName = "query_short_term"
	ToolClearShortTerm       ToolName = "clear_session_short_term_memory"
	ToolQueryLongTerm        ToolName = "query_long_term"
	ToolSaveProjectMemory    ToolName = "save_project_memory"
	ToolQueryProject         ToolName = "query_project"
	ToolListProjects         ToolName = "list_all_projects"
	ToolListUpcomingEvents   ToolName = "list_upcoming_events"
	ToolSearchEvents         ToolName = "search_events"
	ToolQuickAddEvent        ToolName = "quick_add_event"
)

var knownTools = map[ToolName]bool{
	ToolQuickGmailSearch:     true,
	ToolCheckGmailAndLearn:   true,
	ToolGetEmailByIndex:      true,
	ToolAnalyzeAttachment:    true,
	ToolFetchEmailAttachment: true,
	ToolGetFullEmail:         true,
	ToolAddTodo:              true,
	ToolGetTodos:             true,
	ToolCompleteTodo:         true,
	ToolReadWebPage:          true,
	ToolWatchYouTube:         true,
	ToolGetNewsHeadlines:     true,
	ToolSearchMemory:         true,
	ToolRecallMemory:         true,
	ToolSaveLongTermMemory:   true,
	ToolSaveShortTermMemory:  true,
	ToolUpdateLongTermMemory: true,
	ToolQueryShortTerm:       true,
	ToolClearShortTerm:       true,
	ToolQueryLongTerm:        true,
	ToolSaveProjectMemory:    true,
	ToolQueryProject:         true,
	ToolListProjects:         true,
	ToolListUpcomingEvents:   true,
	ToolSearchEvents:         true,
	ToolQuickAddEvent:        true,
}

// ParseToolName maps a raw name onto the closed tool set.
func ParseToolName(name string) ToolName {
	if knownTools[ToolName(name)] {
		return ToolName(name)
	}
	return ToolUnknown
}

func (n ToolName) String() string {
	if n == ToolUnknown {
		return "unknown"
	}
	return string(n)
}

// Args is the string-keyed argument mapping handed to a tool.
type Args map[string]any

// ToolExecution records a single tool call for the turn's response metadata.
type ToolExecution struct {
	Tool          ToolName      `json:"tool"`
	Args          Args          `json:"args"`
	Duration      time.Duration `json:"duration"`
	ResultPreview string        `json:"result_preview"`
	Succeeded     bool          `json:"succeeded"`
}

type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskDone    TaskStatus = "done"
)

// Task is owned by the task store. Deadline is parsed once from Text.
type Task struct {
	ID        string     `json:"id"`
	Text      string     `json:"task"`
	Status    TaskStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	Deadline  *time.Time `json:"deadline"`
}

// MemoryMetadata describes where a memory came from.
type MemoryMetadata struct {
	Source     string `json:"source,omitempty"`
	Summary    string `json:"summary,omitempty"`
	Category   string `json:"category,omitempty"`
	Type       string `json:"type,omitempty"`
	Date       string `json:"date,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Filename   string `json:"filename,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	Context    string `json:"context,omitempty"`
	Importance string `json:"importance,omitempty"`
	// Project and ProjectKey tag project notes; the key is the normalized
	// name used for lookups.
	Project     string `json:"project,omitempty"`
	ProjectKey  string `json:"project_key,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// MemoryRecord is never mutated in place; an update is a delete plus a reinsert.
type MemoryRecord struct {
	DocID     string         `json:"doc_id"`
	Text      string         `json:"text"`
	Metadata  MemoryMetadata `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// CalendarEvent is one event of the primary calendar. All-day events carry
// midnight of their date in Start.
type CalendarEvent struct {
	ID       string    `json:"id"`
	Summary  string    `json:"summary"`
	Location string    `json:"location,omitempty"`
	Start    time.Time `json:"start"`
	AllDay   bool      `json:"all_day,omitempty"`
	Link     string    `json:"link,omitempty"`
}

// Email is a message fetched from the mailbox, indexed 1-based within the last search.
type Email struct {
	Index       int          `json:"index"`
	ID          string       `json:"id"`
	Subject     string       `json:"subject"`
	From        string       `json:"from"`
	Date        string       `json:"date"`
	Snippet     string       `json:"snippet"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int    `json:"size"`
	// Inline holds the content when the mailbox returned it with the message.
	Inline []byte `json:"-"`
}
