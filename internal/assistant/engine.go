// Package assistant runs one conversational turn: it classifies the message,
// runs the selected tools, pulls in memory and deadline alerts, assembles a
// bounded prompt and makes a single completion call.
package assistant

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/emo/internal/classifier"
	"github.com/xaenox/emo/internal/memory"
	"github.com/xaenox/emo/internal/models"
	"github.com/xaenox/emo/internal/session"
	"github.com/xaenox/emo/internal/toolargs"
	"github.com/xaenox/emo/internal/tools"
)

// Reply is what a turn produces for the caller.
type Reply struct {
	Response   string                 `json:"response"`
	ToolsUsed  []string               `json:"tools_used"`
	Thinking   string                 `json:"thinking,omitempty"`
	Executions []models.ToolExecution `json:"executions,omitempty"`
	QueryType  models.QueryType       `json:"query_type"`
	// Failed marks a reply that is an apology for a failed completion. A
	// streamed turn may have emitted part of an answer before failing.
	Failed bool `json:"failed,omitempty"`
}

// MemoryQuerier is the retrieval side of the memory store.
type MemoryQuerier interface {
	Query(ctx context.Context, text string, limit int) ([]memory.Result, error)
	Search(ctx context.Context, p memory.SearchParams) ([]memory.Result, error)
}

// Reminders produces the deadline alert block, empty when nothing is due.
type Reminders interface {
	Scan(ctx context.Context) string
}

type Options struct {
	Classifier classifier.Classifier
	Invoker    *tools.Invoker
	Catalogue  string
	Memory     MemoryQuerier
	Reminders  Reminders
	Config     Config
	Logger     *zap.Logger
	Now        func() time.Time
}

type Engine struct {
	classifier classifier.Classifier
	invoker    *tools.Invoker
	catalogue  string
	memory     MemoryQuerier
	reminders  Reminders
	cfg        Config
	assembler  *Assembler
	synth      *Synthesizer
	logger     *zap.Logger
	now        func() time.Time
}

func NewEngine(llm Completer, opts Options) *Engine {
	if opts.Classifier == nil {
		opts.Classifier = classifier.NewDefault()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	cfg := opts.Config.withDefaults()
	now := opts.Now
	if now == nil {
		loc := cfg.Location()
		now = func() time.Time { return time.Now().In(loc) }
	}

	return &Engine{
		classifier: opts.Classifier,
		invoker:    opts.Invoker,
		catalogue:  opts.Catalogue,
		memory:     opts.Memory,
		reminders:  opts.Reminders,
		cfg:        cfg,
		assembler:  NewAssembler(cfg),
		synth:      NewSynthesizer(llm, opts.Logger, now),
		logger:     opts.Logger,
		now:        now,
	}
}

func (e *Engine) Chat(ctx context.Context, sess *session.Session, message string) Reply {
	return e.turn(ctx, sess, message, nil)
}

// ChatStream is Chat with the visible reply text delivered through onDelta as
// it is generated. The returned Reply still carries the full text.
func (e *Engine) ChatStream(ctx context.Context, sess *session.Session, message string, onDelta func(string) error) Reply {
	return e.turn(ctx, sess, message, onDelta)
}

func (e *Engine) turn(ctx context.Context, sess *session.Session, message string, onDelta func(string) error) Reply {
	if sess == nil {
		sess = session.New("default")
	}
	cls := e.classifier.Classify(message)
	reply := Reply{QueryType: cls.QueryType, ToolsUsed: []string{}}

	e.logger.Debug("Classified message",
		zap.String("session", sess.ID),
		zap.String("query_type", string(cls.QueryType)),
		zap.Int("tools", len(cls.ToolsNeeded)))

	history := sess.History()

	var outputs []ToolOutput
	for _, name := range cls.ToolsNeeded {
		if e.invoker == nil {
			break
		}
		args := toolargs.Prepare(name, message, sess)
		out := e.invoker.Invoke(ctx, sess, name, args)
		outputs = append(outputs, ToolOutput{Tool: name, Text: out.Result})
		reply.ToolsUsed = append(reply.ToolsUsed, name.String())
		reply.Executions = append(reply.Executions, out.Execution())
	}

	sections := Sections{
		History: history,
		Tools:   outputs,
		Memory:  e.recall(ctx, sess.ID, cls.QueryType, message),
	}
	if e.reminders != nil {
		sections.Reminders = e.reminders.Scan(ctx)
	}

	prompt := e.assembler.Build(sections, message)
	system := SystemPrompt(cls.QueryType, PromptContext{Now: e.now(), Catalogue: e.catalogue})
	msgs := e.assembler.Messages(system, history, prompt)

	sess.Append(models.Message{Role: models.RoleUser, Content: message, Timestamp: e.now()})

	out := e.synth.Respond(ctx, sess, cls.QueryType, msgs, onDelta)
	reply.Response = out.Text
	reply.Thinking = out.Thinking
	reply.Failed = out.Failed
	if cls.QueryType == models.QueryQuiz {
		reply.ToolsUsed = append(reply.ToolsUsed, quizTool)
	}

	sess.Append(models.Message{Role: models.RoleAssistant, Content: out.Text, Timestamp: e.now()})
	return reply
}

// recall skips small talk; a memory failure only costs the section. Notes
// saved earlier in this session follow the long-term matches.
func (e *Engine) recall(ctx context.Context, sessionID string, qt models.QueryType, message string) string {
	if e.memory == nil || qt == models.QuerySimpleChat {
		return ""
	}
	results, err := e.memory.Query(ctx, message, e.cfg.MemoryResults)
	if err != nil {
		e.logger.Warn("Memory lookup failed", zap.Error(err))
		return ""
	}
	notes, err := e.memory.Search(ctx, memory.SearchParams{
		Query:     message,
		Limit:     e.cfg.MemoryResults,
		Type:      memory.TypeShortTerm,
		SessionID: sessionID,
	})
	if err != nil {
		e.logger.Warn("Session memory lookup failed", zap.Error(err))
	}
	return memory.FormatForContext(append(results, notes...))
}
