package tools

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xaenox/emo/internal/models"
)

// Deps are the collaborators handlers run against. Mail and Calendar may be
// nil when not connected; their tools then fail with ErrNotConnected.
type Deps struct {
	Tasks    TaskStore
	Memory   MemoryStore
	Web      WebFetcher
	Mail     Mailbox
	Calendar Calendar
	Results  int
	// Now places calendar queries; it defaults to time.Now.
	Now func() time.Time
}

// Register binds every known tool to its handler.
func Register(reg *Registry, d Deps) error {
	if d.Tasks == nil || d.Memory == nil || d.Web == nil {
		return errors.New("tools need a task store, a memory store and a web fetcher")
	}
	if d.Results <= 0 {
		d.Results = defaultSearchResults
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	todo := todoTools{tasks: d.Tasks}
	mem := memoryTools{store: d.Memory}
	web := webTools{fetcher: d.Web}
	mail := mailTools{mail: d.Mail, memory: d.Memory, results: d.Results}
	cal := calendarTools{cal: d.Calendar, now: d.Now}

	specs := []Spec{
		{models.ToolQuickGmailSearch, "Search Gmail and return the full content of matching emails, numbered for follow-up.", []string{"query", "max_results"}, mail.quickSearch},
		{models.ToolCheckGmailAndLearn, "Count matching emails, list their subjects and remember them.", []string{"query", "max_emails"}, mail.checkAndLearn},
		{models.ToolGetEmailByIndex, "Show one email from the last search by its number.", []string{"index"}, mail.byIndex},
		{models.ToolAnalyzeAttachment, "Read an attachment of a listed email. attachment_index 0 reads all of them.", []string{"email_index", "attachment_index"}, mail.analyzeAttachment},
		{models.ToolFetchEmailAttachment, "List attachments of emails matching a query.", []string{"query"}, mail.attachmentsFor},
		{models.ToolGetFullEmail, "Return the full text of the best matching email.", []string{"query"}, mail.fullEmail},
		{models.ToolAddTodo, "Add a task to the to-do list. Deadlines are read from the text.", []string{"task"}, todo.add},
		{models.ToolGetTodos, "List pending tasks.", nil, todo.list},
		{models.ToolCompleteTodo, "Mark a pending task done by its 1-based number.", []string{"task_index"}, todo.complete},
		{models.ToolReadWebPage, "Read the main text of a web page.", []string{"url"}, web.readPage},
		{models.ToolWatchYouTube, "Fetch the transcript of a YouTube video.", []string{"video_url"}, web.youtube},
		{models.ToolGetNewsHeadlines, "List the top headlines of a news site.", []string{"url", "count"}, web.headlines},
		{models.ToolSearchMemory, "Search saved memories.", []string{"query"}, mem.search},
		{models.ToolRecallMemory, "Return the full content of a memory by id.", []string{"doc_id"}, mem.recall},
		{models.ToolSaveLongTermMemory, "Permanently remember a fact about the user.", []string{"content", "category"}, mem.saveLongTerm},
		{models.ToolSaveShortTermMemory, "Remember something for this conversation only.", []string{"content", "context", "importance"}, mem.saveShortTerm},
		{models.ToolUpdateLongTermMemory, "Replace a remembered fact with a corrected one.", []string{"old_fact", "new_fact", "category"}, mem.updateLongTerm},
		{models.ToolQueryShortTerm, "Search what was noted earlier in this conversation.", []string{"query"}, mem.queryShortTerm},
		{models.ToolClearShortTerm, "Forget everything noted for this conversation.", nil, mem.clearShortTerm},
		{models.ToolQueryLongTerm, "Search permanent facts about the user.", []string{"query"}, mem.queryLongTerm},
		{models.ToolSaveProjectMemory, "Save a goal, idea, progress note or blocker under a project.", []string{"project_name", "content", "content_type"}, mem.saveProject},
		{models.ToolQueryProject, "Show one project's notes, or search all projects.", []string{"project_name", "query"}, mem.queryProject},
		{models.ToolListProjects, "List every project with its number of notes.", nil, mem.listProjects},
		{models.ToolListUpcomingEvents, "List calendar events in the next days.", []string{"days", "max_results"}, cal.upcoming},
		{models.ToolSearchEvents, "Search calendar events a month back and ahead.", []string{"query"}, cal.search},
		{models.ToolQuickAddEvent, "Create a calendar event from a sentence like 'Dentist friday 10am'.", []string{"text"}, cal.quickAdd},
	}
	for _, s := range specs {
		if err := reg.Register(s); err != nil {
			return err
		}
	}
	return nil
}

// Catalogue renders the registered tools for a system prompt.
func (r *Registry) Catalogue() string {
	var sb strings.Builder
	for _, s := range r.Specs() {
		fmt.Fprintf(&sb, "- %s(%s): %s\n", s.Name, strings.Join(s.Params, ", "), s.Description)
	}
	return strings.TrimRight(sb.String(), "\n")
}
