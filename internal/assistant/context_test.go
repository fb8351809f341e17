package assistant

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/emo/internal/models"
)

func longHistory(turns, size int) []models.Message {
	out := make([]models.Message, 0, turns)
	for i := 0; i < turns; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		out = append(out, models.Message{Role: role, Content: fmt.Sprintf("%02d", i) + strings.Repeat("x", size-2)})
	}
	return out
}

func TestRecentConversation_Bounded(t *testing.T) {
	a := NewAssembler(DefaultConfig())
	got := a.RecentConversation(longHistory(20, 1000))

	lines := strings.Split(got, "\n")
	require.Equal(t, "[Recent conversation]:", lines[0])
	turns := lines[1:]
	assert.Len(t, turns, 8)
	assert.True(t, strings.HasPrefix(turns[0], "User: 12"))
	assert.True(t, strings.HasPrefix(turns[7], "Emo: 19"))
	for _, l := range turns {
		body := l[strings.Index(l, ": ")+2:]
		assert.Equal(t, 300, len([]rune(body)))
	}
}

func TestBuild_BareMessage(t *testing.T) {
	a := NewAssembler(DefaultConfig())
	assert.Equal(t, "hello", a.Build(Sections{}, "hello"))
}

func TestBuild_SectionOrder(t *testing.T) {
	a := NewAssembler(DefaultConfig())
	got := a.Build(Sections{
		History:   []models.Message{{Role: models.RoleUser, Content: "earlier"}},
		Memory:    "[Memory Context]\nlikes tea",
		Tools:     []ToolOutput{{Tool: models.ToolGetTodos, Text: "1. buy milk"}, {Tool: models.ToolAddTodo, Text: "Error: missing argument 'task'"}},
		Reminders: "[DEADLINE ALERTS]\nsoon",
	}, "what now")

	want := "Here is the context and tool results:\n\n" +
		"[Recent conversation]:\nUser: earlier\n\n" +
		"[Relevant memories]:\n[Memory Context]\nlikes tea\n\n" +
		"[get_todos result]:\n1. buy milk\n[add_todo result]:\nError: missing argument 'task'\n\n" +
		"[DEADLINE ALERTS]\nsoon" +
		"\n\nUser message: what now" +
		"\n\nBased on the above context and results, provide a helpful response."
	assert.Equal(t, want, got)
}

func TestBuild_CapsEachTool(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ToolChars = 10
	cfg.MemoryChars = 5
	a := NewAssembler(cfg)

	got := a.Build(Sections{
		Memory: "abcdefghij",
		Tools: []ToolOutput{
			{Tool: models.ToolReadWebPage, Text: strings.Repeat("a", 50)},
			{Tool: models.ToolGetTodos, Text: "short"},
		},
	}, "m")

	assert.Contains(t, got, "[Relevant memories]:\nabcde\n[...truncated]")
	assert.Contains(t, got, "[read_web_page result]:\naaaaaaaaaa\n[...truncated]\n[get_todos result]:\nshort")
}

func TestMessages_LastSixTurns(t *testing.T) {
	a := NewAssembler(DefaultConfig())
	history := longHistory(10, 4)

	msgs := a.Messages("sys", history, "prompt")
	require.Len(t, msgs, 8)
	assert.Equal(t, models.Message{Role: models.RoleSystem, Content: "sys"}, msgs[0])
	assert.Equal(t, history[4].Content, msgs[1].Content)
	assert.Equal(t, history[9].Content, msgs[6].Content)
	assert.Equal(t, models.Message{Role: models.RoleUser, Content: "prompt"}, msgs[7])
}

func TestSystemPrompt(t *testing.T) {
	assert.Equal(t, MinimalPrompt, SystemPrompt(models.QuerySimpleChat, PromptContext{Catalogue: "- x(): y"}))

	full := SystemPrompt(models.QueryTodo, PromptContext{Catalogue: "- add_todo(task): Add."})
	assert.Contains(t, full, "You are Emo")
	assert.Contains(t, full, "TOOLS:\n- add_todo(task): Add.")
	assert.NotContains(t, full, "NOW:")
}
