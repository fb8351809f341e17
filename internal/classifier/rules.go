package classifier

import "github.com/xaenox/emo/internal/models"

var (
	greetingWords = KeywordSet{Name: "greeting", Mode: Prefix,
		Words: []string{"hi", "hello", "hey", "how are you", "what's up", "thanks", "thank you"}}
	quizWords = KeywordSet{Name: "quiz",
		Words: []string{"quiz", "test me", "test my", "quizz", "generate quiz", "make quiz", "create quiz"}}

	emailWords = KeywordSet{Name: "email",
		Words: []string{"email", "mail", "gmail", "inbox", "message from", "sent by"}}
	attachmentWords = KeywordSet{Name: "attachment",
		Words: []string{"attachment", "attached", "file", "document", "pdf", "doc"}}
	// "all" is matched as a bare substring, so "call" and "small" count too.
	analyzeWords = KeywordSet{Name: "analyze",
		Words: []string{"analyze", "summarize", "read the", "show the", "what's in the", "open the", "all"}}

	todoWords = KeywordSet{Name: "todo",
		Words: []string{"todo", "task", "remind", "reminder", "add to", "schedule"}}
	todoListPhrases = KeywordSet{Name: "todo_check",
		Words: []string{"what are my", "show me my", "list my", "my tasks", "my todos"}}
	createVerbs   = KeywordSet{Name: "create", Words: []string{"add", "create", "new", "set"}}
	completeVerbs = KeywordSet{Name: "complete", Words: []string{"done", "complete", "finish", "mark"}}

	youtubeWords = KeywordSet{Name: "youtube",
		Words: []string{"youtube", "video", "watch", "yt.com", "youtu.be"}}
	webWords = KeywordSet{Name: "web",
		Words: []string{"website", "webpage", "url", "http", "www", "read this", "check this link"}}
	newsWords = KeywordSet{Name: "news",
		Words: []string{"news", "headlines", "what's happening", "current events"}}

	saveWords = KeywordSet{Name: "save",
		Words: []string{"save this", "remember this", "note this", "store this"}}
	recallWords = KeywordSet{Name: "recall",
		Words: []string{"remember", "recall", "what did", "previously", "earlier", "you told me"}}
	sessionWords = KeywordSet{Name: "session",
		Words: []string{"this conversation", "this session", "so far"}}
	personalWords = KeywordSet{Name: "personal",
		Words: []string{"about me", "my preferences", "do you know me"}}

	projectWords       = KeywordSet{Name: "project", Words: []string{"project"}}
	projectListPhrases = KeywordSet{Name: "project_list",
		Words: []string{"my projects", "all projects", "list projects", "which projects"}}
	projectSaveVerbs = KeywordSet{Name: "project_save",
		Words: []string{"save", "note", "log", "track", "update on"}}

	calendarWords = KeywordSet{Name: "calendar",
		Words: []string{"calendar", "agenda", "appointment", "my events", "upcoming events", "my schedule"}}
	calendarAddVerbs = KeywordSet{Name: "calendar_add",
		Words: []string{"add", "create", "book", "put"}}
	calendarSearchVerbs = KeywordSet{Name: "calendar_search",
		Words: []string{"find", "search", "when is", "look up"}}
)

func needs(sets ...KeywordSet) []KeywordSet { return sets }

// DefaultRules returns the routing table in evaluation order.
func DefaultRules() []Group {
	return []Group{
		{
			Name:     "greeting",
			Terminal: true,
			Rules:    []Rule{{Name: "greeting", Requires: needs(greetingWords), QueryType: models.QuerySimpleChat}},
		},
		{
			Name:     "quiz",
			Terminal: true,
			Rules:    []Rule{{Name: "quiz", Requires: needs(quizWords), QueryType: models.QueryQuiz}},
		},
		{
			Name: "email",
			Rules: []Rule{
				{Name: "analyze_attachment", Requires: needs(attachmentWords, analyzeWords),
					Tool: models.ToolAnalyzeAttachment, QueryType: models.QueryAttachment},
				{Name: "emails_with_attachments", Requires: needs(attachmentWords, emailWords),
					Tool: models.ToolQuickGmailSearch, QueryType: models.QueryEmail},
				// Attachment talk without a verb or mailbox word selects nothing.
				{Name: "attachment_only", Requires: needs(attachmentWords)},
				{Name: "email_search", Requires: needs(emailWords),
					Tool: models.ToolQuickGmailSearch, QueryType: models.QueryEmail},
			},
		},
		{
			Name: "todo",
			Rules: []Rule{
				{Name: "add", Requires: needs(todoWords, createVerbs), Tool: models.ToolAddTodo, QueryType: models.QueryTodo},
				{Name: "complete", Requires: needs(todoWords, completeVerbs), Tool: models.ToolCompleteTodo, QueryType: models.QueryTodo},
				{Name: "list", Requires: needs(todoWords), Tool: models.ToolGetTodos, QueryType: models.QueryTodo},
				{Name: "list_phrase", Requires: needs(todoListPhrases), Tool: models.ToolGetTodos, QueryType: models.QueryTodo},
			},
		},
		{
			Name: "web",
			Rules: []Rule{
				{Name: "youtube", Requires: needs(youtubeWords), Tool: models.ToolWatchYouTube, QueryType: models.QueryWeb},
				{Name: "page", Requires: needs(webWords), Tool: models.ToolReadWebPage, QueryType: models.QueryWeb},
				{Name: "news", Requires: needs(newsWords), Tool: models.ToolGetNewsHeadlines, QueryType: models.QueryWeb},
			},
		},
		{
			Name: "memory",
			Rules: []Rule{
				{Name: "save", Requires: needs(saveWords), Tool: models.ToolSaveLongTermMemory, QueryType: models.QueryMemory},
				{Name: "recall", Requires: needs(recallWords), Tool: models.ToolSearchMemory, QueryType: models.QueryMemory},
				{Name: "session", Requires: needs(sessionWords), Tool: models.ToolQueryShortTerm, QueryType: models.QueryMemory},
				{Name: "personal", Requires: needs(personalWords), Tool: models.ToolQueryLongTerm, QueryType: models.QueryMemory},
			},
		},
		{
			Name: "project",
			Rules: []Rule{
				{Name: "list", Requires: needs(projectListPhrases), Tool: models.ToolListProjects, QueryType: models.QueryMemory},
				{Name: "save", Requires: needs(projectWords, projectSaveVerbs), Tool: models.ToolSaveProjectMemory, QueryType: models.QueryMemory},
				{Name: "query", Requires: needs(projectWords), Tool: models.ToolQueryProject, QueryType: models.QueryMemory},
			},
		},
		{
			// Calendar turns keep the query type of earlier groups.
			Name: "calendar",
			Rules: []Rule{
				{Name: "add", Requires: needs(calendarWords, calendarAddVerbs), Tool: models.ToolQuickAddEvent},
				{Name: "search", Requires: needs(calendarWords, calendarSearchVerbs), Tool: models.ToolSearchEvents},
				{Name: "list", Requires: needs(calendarWords), Tool: models.ToolListUpcomingEvents},
			},
		},
	}
}
