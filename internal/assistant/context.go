package assistant

import (
	"fmt"
	"strings"

	"github.com/xaenox/emo/internal/models"
)

const truncatedMarker = "\n[...truncated]"

// ToolOutput is one tool result in invocation order.
type ToolOutput struct {
	Tool models.ToolName
	Text string
}

// Sections are the inputs of one prompt. Empty sections are left out.
type Sections struct {
	History   []models.Message
	Memory    string
	Tools     []ToolOutput
	Reminders string
}

// Assembler builds the bounded prompt body for a turn. Every section is
// capped on its own so long tool output never pushes out recent turns.
type Assembler struct {
	cfg Config
}

func NewAssembler(cfg Config) *Assembler {
	return &Assembler{cfg: cfg.withDefaults()}
}

// RecentConversation renders the last turns, each cut to TurnChars.
func (a *Assembler) RecentConversation(history []models.Message) string {
	if len(history) == 0 {
		return ""
	}
	recent := lastN(history, a.cfg.HistoryTurns)

	lines := make([]string, 0, len(recent))
	for _, m := range recent {
		speaker := "Emo"
		if m.Role == models.RoleUser {
			speaker = "User"
		}
		lines = append(lines, speaker+": "+cut(m.Content, a.cfg.TurnChars))
	}
	return "[Recent conversation]:\n" + strings.Join(lines, "\n")
}

// Build joins the non-empty sections and wraps them around message. With no
// sections at all the bare message is returned.
func (a *Assembler) Build(s Sections, message string) string {
	var parts []string
	if conv := a.RecentConversation(s.History); conv != "" {
		parts = append(parts, conv)
	}
	if s.Memory != "" {
		parts = append(parts, "[Relevant memories]:\n"+capText(s.Memory, a.cfg.MemoryChars))
	}
	if len(s.Tools) > 0 {
		blocks := make([]string, 0, len(s.Tools))
		for _, t := range s.Tools {
			blocks = append(blocks, fmt.Sprintf("[%s result]:\n%s", t.Tool, capText(t.Text, a.cfg.ToolChars)))
		}
		parts = append(parts, strings.Join(blocks, "\n"))
	}
	if s.Reminders != "" {
		parts = append(parts, s.Reminders)
	}

	if len(parts) == 0 {
		return message
	}
	return "Here is the context and tool results:\n\n" + strings.Join(parts, "\n\n") +
		"\n\nUser message: " + message +
		"\n\nBased on the above context and results, provide a helpful response."
}

// Messages is what goes to the completion service: the system prompt, the
// last PromptHistory turns verbatim, then the assembled prompt.
func (a *Assembler) Messages(system string, history []models.Message, prompt string) []models.Message {
	recent := lastN(history, a.cfg.PromptHistory)
	out := make([]models.Message, 0, len(recent)+2)
	out = append(out, models.Message{Role: models.RoleSystem, Content: system})
	for _, m := range recent {
		out = append(out, models.Message{Role: m.Role, Content: m.Content})
	}
	return append(out, models.Message{Role: models.RoleUser, Content: prompt})
}

func lastN(history []models.Message, n int) []models.Message {
	if n <= 0 {
		return nil
	}
	if len(history) > n {
		return history[len(history)-n:]
	}
	return history
}

func cut(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func capText(s string, n int) string {
	if n <= 0 || len([]rune(s)) <= n {
		return s
	}
	return cut(s, n) + truncatedMarker
}
