package assistant

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/emo/internal/memory"
	"github.com/xaenox/emo/internal/models"
	"github.com/xaenox/emo/internal/reminder"
	"github.com/xaenox/emo/internal/session"
	"github.com/xaenox/emo/internal/storage"
	"github.com/xaenox/emo/internal/tools"
)

type stubWeb struct{}

func (stubWeb) ReadPage(context.Context, string) (string, error) { return "page", nil }
func (stubWeb) Headlines(context.Context, string, int) (string, error) {
	return "", errors.New("feed unavailable")
}
func (stubWeb) Transcript(context.Context, string) (string, error) { return "transcript", nil }

type fixture struct {
	engine *Engine
	llm    *fakeLLM
	tasks  *storage.MemoryStorage
	memory *memory.SQLiteStore
	sess   *session.Session
}

func newFixture(t *testing.T, reply string) *fixture {
	t.Helper()
	tasks, err := storage.NewMemoryStorage("", storage.WithClock(fixedNow))
	require.NoError(t, err)
	mem, err := memory.NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { mem.Close() })

	reg := tools.NewRegistry()
	require.NoError(t, tools.Register(reg, tools.Deps{Tasks: tasks, Memory: mem, Web: stubWeb{}}))

	llm := &fakeLLM{reply: reply}
	engine := NewEngine(llm, Options{
		Invoker:   tools.NewInvoker(reg, zap.NewNop(), tools.Timeout(time.Second)),
		Catalogue: reg.Catalogue(),
		Memory:    mem,
		Reminders: reminder.NewScanner(tasks, fixedNow, nil),
		Now:       fixedNow,
	})
	return &fixture{engine: engine, llm: llm, tasks: tasks, memory: mem, sess: session.New("t")}
}

func TestChat_Greeting(t *testing.T) {
	f := newFixture(t, "Hey! How can I help?")

	reply := f.engine.Chat(context.Background(), f.sess, "hi")

	assert.Equal(t, models.QuerySimpleChat, reply.QueryType)
	assert.Equal(t, "Hey! How can I help?", reply.Response)
	assert.Empty(t, reply.ToolsUsed)

	require.Len(t, f.llm.calls, 1)
	assert.Equal(t, []models.Message{
		{Role: models.RoleSystem, Content: MinimalPrompt},
		{Role: models.RoleUser, Content: "hi"},
	}, f.llm.calls[0])

	history := f.sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, "hi", history[0].Content)
	assert.Equal(t, models.RoleAssistant, history[1].Role)
}

func TestChat_AddTodo(t *testing.T) {
	f := newFixture(t, "Added it.")

	reply := f.engine.Chat(context.Background(), f.sess, "add task: call mom tomorrow at 5pm")

	assert.Equal(t, models.QueryTodo, reply.QueryType)
	assert.Equal(t, []string{"add_todo"}, reply.ToolsUsed)
	require.Len(t, reply.Executions, 1)
	assert.True(t, reply.Executions[0].Succeeded)

	pending, err := f.tasks.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "task: call mom tomorrow at 5pm", pending[0].Text)
	require.NotNil(t, pending[0].Deadline)
	assert.Equal(t, "2025-12-04 17:00", pending[0].Deadline.Format("2006-01-02 15:04"))

	require.Len(t, f.llm.calls, 1)
	msgs := f.llm.calls[0]
	assert.Contains(t, msgs[0].Content, "TOOLS:\n")
	prompt := msgs[len(msgs)-1].Content
	assert.Contains(t, prompt, "[add_todo result]:\n✅ Added task: 'task: call mom tomorrow at 5pm'")
	assert.Contains(t, prompt, "User message: add task: call mom tomorrow at 5pm")
}

func TestChat_ToolFailureBecomesPromptText(t *testing.T) {
	f := newFixture(t, "The feed is down.")

	reply := f.engine.Chat(context.Background(), f.sess, "show me the news headlines")

	assert.Equal(t, []string{"get_news_headlines"}, reply.ToolsUsed)
	require.Len(t, reply.Executions, 1)
	assert.False(t, reply.Executions[0].Succeeded)
	prompt := f.llm.calls[0][len(f.llm.calls[0])-1].Content
	assert.Contains(t, prompt, "[get_news_headlines result]:\nError: feed unavailable")
}

func TestChat_PriorTurnsOnly(t *testing.T) {
	f := newFixture(t, "ok")
	ctx := context.Background()

	f.engine.Chat(ctx, f.sess, "hi")
	f.engine.Chat(ctx, f.sess, "tell me a story")

	require.Len(t, f.llm.calls, 2)
	msgs := f.llm.calls[1]
	require.Len(t, msgs, 4)
	assert.Equal(t, "hi", msgs[1].Content)
	assert.Equal(t, "ok", msgs[2].Content)

	prompt := msgs[3].Content
	assert.Contains(t, prompt, "[Recent conversation]:\nUser: hi\nEmo: ok")
	assert.Equal(t, 1, strings.Count(prompt, "tell me a story"))
	assert.Len(t, f.sess.History(), 4)
}

func TestChat_MemoryContext(t *testing.T) {
	f := newFixture(t, "Green tea.")
	ctx := context.Background()
	_, err := f.memory.Save(ctx, "User likes green tea", models.MemoryMetadata{Type: memory.TypeLongTerm, Source: "user"})
	require.NoError(t, err)

	reply := f.engine.Chat(ctx, f.sess, "which tea do i like?")

	assert.Equal(t, models.QueryQuestion, reply.QueryType)
	prompt := f.llm.calls[0][len(f.llm.calls[0])-1].Content
	assert.Contains(t, prompt, "[Relevant memories]:\n[Memory Context]")
	assert.Contains(t, prompt, "green tea")

	f.engine.Chat(ctx, f.sess, "hello there")
	greeting := f.llm.calls[1][len(f.llm.calls[1])-1].Content
	assert.NotContains(t, greeting, "[Relevant memories]")
}

func TestChat_SessionNotesInContext(t *testing.T) {
	f := newFixture(t, "Room 4B.")
	ctx := context.Background()
	_, err := f.memory.Save(ctx, "Meeting room today is 4B", models.MemoryMetadata{Type: memory.TypeShortTerm, SessionID: "t"})
	require.NoError(t, err)
	_, err = f.memory.Save(ctx, "Meeting room today is 9C", models.MemoryMetadata{Type: memory.TypeShortTerm, SessionID: "other"})
	require.NoError(t, err)

	f.engine.Chat(ctx, f.sess, "which meeting room do i use?")

	prompt := f.llm.calls[0][len(f.llm.calls[0])-1].Content
	assert.Contains(t, prompt, "4B")
	assert.NotContains(t, prompt, "9C")
}

func TestChat_DeadlineAlerts(t *testing.T) {
	f := newFixture(t, "Noted.")
	ctx := context.Background()
	due := turnTime.Add(10 * time.Minute)
	_, err := f.tasks.Add(ctx, "submit report", &due)
	require.NoError(t, err)

	f.engine.Chat(ctx, f.sess, "how is my day looking")

	prompt := f.llm.calls[0][len(f.llm.calls[0])-1].Content
	assert.Contains(t, prompt, reminder.Header)
	assert.Contains(t, prompt, "submit report")
}

func TestChat_Quiz(t *testing.T) {
	f := newFixture(t, "```json\n{\"title\": \"Math\", \"questions\": [{\"question\": \"1+1?\", \"options\": [\"1\", \"2\"], \"correct\": 1}]}\n```")

	reply := f.engine.Chat(context.Background(), f.sess, "quiz me on math")

	assert.Equal(t, models.QueryQuiz, reply.QueryType)
	assert.Equal(t, []string{"generate_quiz"}, reply.ToolsUsed)
	assert.True(t, strings.HasPrefix(reply.Response, "QUIZ_CREATED:"))
	assert.NotEmpty(t, f.sess.CurrentQuizID())

	history := f.sess.History()
	assert.Equal(t, reply.Response, history[len(history)-1].Content)
}

func TestChat_CompletionError(t *testing.T) {
	f := newFixture(t, "")
	f.llm.err = errors.New("timeout")

	reply := f.engine.Chat(context.Background(), f.sess, "tell me something")

	assert.Equal(t, "Sorry, I encountered an error: timeout", reply.Response)
	assert.True(t, reply.Failed)
	assert.Len(t, f.sess.History(), 2)
}

func TestChatStream_FailsMidway(t *testing.T) {
	f := newFixture(t, "")
	f.llm.chunks = []string{"Once upon ", "a time"}
	f.llm.cutErr = errors.New("connection reset")

	var got strings.Builder
	reply := f.engine.ChatStream(context.Background(), f.sess, "tell me a story", func(d string) error {
		got.WriteString(d)
		return nil
	})

	assert.NotEmpty(t, got.String())
	assert.True(t, reply.Failed)
	assert.Equal(t, "Sorry, I encountered an error: connection reset", reply.Response)
}

func TestChatStream(t *testing.T) {
	f := newFixture(t, "")
	f.llm.chunks = []string{"<think>x</think>One ", "two"}

	var got strings.Builder
	reply := f.engine.ChatStream(context.Background(), f.sess, "tell me a story", func(d string) error {
		got.WriteString(d)
		return nil
	})

	assert.Equal(t, "One two", got.String())
	assert.Equal(t, "One two", reply.Response)
	assert.Equal(t, "x", reply.Thinking)
	assert.False(t, reply.Failed)
}
