package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xaenox/emo/internal/models"
)

func TestClassify(t *testing.T) {
	c := NewDefault()

	tests := []struct {
		name    string
		message string
		want    models.QueryType
		tools   []models.ToolName
	}{
		{"greeting exact", "hi", models.QuerySimpleChat, nil},
		{"greeting prefix wins over tools", "  Hello, check my email", models.QuerySimpleChat, nil},
		{"quiz beats everything else", "quiz me on my email and tasks", models.QueryQuiz, nil},
		{"quiz phrase", "can you test my knowledge of Go", models.QueryQuiz, nil},
		{"analyze attachment", "analyze the pdf", models.QueryAttachment, []models.ToolName{models.ToolAnalyzeAttachment}},
		{"all forces analysis", "show all attachments", models.QueryAttachment, []models.ToolName{models.ToolAnalyzeAttachment}},
		{"emails with attachments", "find emails with a pdf", models.QueryEmail, []models.ToolName{models.ToolQuickGmailSearch}},
		{"attachment only selects nothing", "i got a pdf yesterday", models.QueryChat, nil},
		{"plain email", "any mail from Bob", models.QueryEmail, []models.ToolName{models.ToolQuickGmailSearch}},
		{"add todo", "add task: call mom tomorrow at 5pm", models.QueryTodo, []models.ToolName{models.ToolAddTodo}},
		{"complete todo", "mark task 2 done", models.QueryTodo, []models.ToolName{models.ToolCompleteTodo}},
		{"todo list fallback", "my todo", models.QueryTodo, []models.ToolName{models.ToolGetTodos}},
		{"list phrase without todo word", "what are my plans", models.QueryTodo, []models.ToolName{models.ToolGetTodos}},
		{"youtube before web", "watch https://youtu.be/abc", models.QueryWeb, []models.ToolName{models.ToolWatchYouTube}},
		{"web page", "read this https://go.dev", models.QueryWeb, []models.ToolName{models.ToolReadWebPage}},
		{"news", "latest headlines please", models.QueryWeb, []models.ToolName{models.ToolGetNewsHeadlines}},
		{"save beats recall", "remember this: my bike is blue", models.QueryMemory, []models.ToolName{models.ToolSaveLongTermMemory}},
		{"recall", "what did I say earlier", models.QueryMemory, []models.ToolName{models.ToolSearchMemory}},
		{"session notes", "what have we covered so far", models.QueryMemory, []models.ToolName{models.ToolQueryShortTerm}},
		{"personal facts", "what do you know about me", models.QueryMemory, []models.ToolName{models.ToolQueryLongTerm}},
		{"project list", "show all projects", models.QueryMemory, []models.ToolName{models.ToolListProjects}},
		{"project save", "note for project Emo: ship the invite flow", models.QueryMemory, []models.ToolName{models.ToolSaveProjectMemory}},
		{"project query", "how is project Emo going", models.QueryMemory, []models.ToolName{models.ToolQueryProject}},
		{"calendar add", "add dentist friday 10am to my calendar", models.QueryChat, []models.ToolName{models.ToolQuickAddEvent}},
		{"calendar search", "when is my dentist appointment", models.QueryChat, []models.ToolName{models.ToolSearchEvents}},
		{"calendar list", "what's on my agenda", models.QueryChat, []models.ToolName{models.ToolListUpcomingEvents}},
		{"news is not calendar", "any current events", models.QueryWeb, []models.ToolName{models.ToolGetNewsHeadlines}},
		{"question fallback", "why is the sky blue?", models.QueryQuestion, nil},
		{"chat default", "tell me a story", models.QueryChat, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.message)
			assert.Equal(t, tt.want, got.QueryType)
			if tt.tools == nil {
				assert.Empty(t, got.ToolsNeeded)
			} else {
				assert.Equal(t, tt.tools, got.ToolsNeeded)
			}
		})
	}
}

func TestClassify_MultipleGroupsAppendInCheckOrder(t *testing.T) {
	c := NewDefault()

	got := c.Classify("add a todo to read this https://example.com and check the news")
	assert.Equal(t, []models.ToolName{models.ToolAddTodo, models.ToolReadWebPage}, got.ToolsNeeded)
	assert.Equal(t, models.QueryWeb, got.QueryType)

	got = c.Classify("email me my tasks, remember this")
	assert.Equal(t, []models.ToolName{
		models.ToolQuickGmailSearch,
		models.ToolGetTodos,
		models.ToolSaveLongTermMemory,
	}, got.ToolsNeeded)
	assert.Equal(t, models.QueryMemory, got.QueryType)
}

func TestClassify_ToolsNeverNil(t *testing.T) {
	got := NewDefault().Classify("hello")
	assert.NotNil(t, got.ToolsNeeded)
}

func TestExplain(t *testing.T) {
	c := NewDefault()
	assert.Equal(t, []string{"greeting/greeting"}, c.Explain("hey there, any email?"))
	assert.Equal(t, []string{"email/email_search", "todo/list"}, c.Explain("inbox and my todo"))
	assert.Empty(t, c.Explain("tell me a story"))
}

func TestCustomRuleTable(t *testing.T) {
	c := NewRuleClassifier([]Group{{
		Name: "only",
		Rules: []Rule{{
			Name:      "weather",
			Requires:  []KeywordSet{{Words: []string{"weather"}}},
			Tool:      models.ToolReadWebPage,
			QueryType: models.QueryWeb,
		}},
	}})

	got := c.Classify("Weather today")
	assert.Equal(t, models.QueryWeb, got.QueryType)
	assert.Equal(t, []models.ToolName{models.ToolReadWebPage}, got.ToolsNeeded)

	got = c.Classify("hi")
	assert.Equal(t, models.QueryChat, got.QueryType)
}
