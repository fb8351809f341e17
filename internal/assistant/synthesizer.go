package assistant

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/emo/internal/models"
	"github.com/xaenox/emo/internal/quiz"
	"github.com/xaenox/emo/internal/session"
)

// Completer is the completion service.
type Completer interface {
	Complete(ctx context.Context, msgs []models.Message) (string, error)
	Stream(ctx context.Context, msgs []models.Message, onDelta func(string) error) (string, error)
}

const quizTool = "generate_quiz"

var (
	thinkBlock = regexp.MustCompile(`(?is)<think>\s*(.*?)\s*</think>`)
	thinkTag   = regexp.MustCompile(`(?i)</?think>`)
)

// SplitThinking moves <think> blocks out of the visible text. Unpaired tags
// are dropped as well.
func SplitThinking(raw string) (text, thinking string) {
	text = raw
	if matches := thinkBlock.FindAllStringSubmatch(raw, -1); matches != nil {
		parts := make([]string, 0, len(matches))
		for _, m := range matches {
			parts = append(parts, m[1])
		}
		thinking = strings.TrimSpace(strings.Join(parts, "\n"))
		text = thinkBlock.ReplaceAllString(raw, "")
	}
	return strings.TrimSpace(thinkTag.ReplaceAllString(text, "")), thinking
}

// Synthesis is the post-processed model output for one turn.
type Synthesis struct {
	Text     string
	Thinking string
	Quiz     *quiz.Quiz
	Failed   bool
}

type Synthesizer struct {
	llm    Completer
	logger *zap.Logger
	now    func() time.Time
}

func NewSynthesizer(llm Completer, logger *zap.Logger, now func() time.Time) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Synthesizer{llm: llm, logger: logger, now: now}
}

// Respond makes the single completion call of a turn. onDelta, when set,
// streams visible text as it arrives; quiz turns are never streamed.
func (s *Synthesizer) Respond(ctx context.Context, sess *session.Session, qt models.QueryType, msgs []models.Message, onDelta func(string) error) Synthesis {
	if qt == models.QueryQuiz {
		return s.quiz(ctx, sess, msgs)
	}

	var (
		raw string
		err error
	)
	if onDelta != nil {
		filter := newThinkFilter(onDelta)
		raw, err = s.llm.Stream(ctx, msgs, filter.Write)
		if err == nil {
			err = filter.Flush()
		}
	} else {
		raw, err = s.llm.Complete(ctx, msgs)
	}
	if err != nil {
		return s.failure(err)
	}

	text, thinking := SplitThinking(raw)
	return Synthesis{Text: text, Thinking: thinking}
}

func (s *Synthesizer) quiz(ctx context.Context, sess *session.Session, msgs []models.Message) Synthesis {
	prompt := make([]models.Message, len(msgs))
	copy(prompt, msgs)
	last := len(prompt) - 1
	prompt[last].Content += quizInstruction

	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return s.failure(err)
	}

	block, ok := quiz.ExtractJSON(raw)
	if !ok {
		text, thinking := SplitThinking(raw)
		return Synthesis{Text: text, Thinking: thinking}
	}
	q, err := quiz.Parse(block, s.now())
	if err != nil {
		s.logger.Warn("Model returned an invalid quiz", zap.Error(err))
		return Synthesis{Text: "Error creating quiz: " + err.Error()}
	}
	sess.SaveQuiz(q)
	return Synthesis{Text: q.Marker(), Quiz: q}
}

func (s *Synthesizer) failure(err error) Synthesis {
	s.logger.Error("Completion failed", zap.Error(err))
	return Synthesis{Text: "Sorry, I encountered an error: " + err.Error(), Failed: true}
}

// thinkFilter forwards streamed text with <think> sections removed. Tags may
// be split across fragments, so a short tail is held back until it can be
// decided.
type thinkFilter struct {
	emit    func(string) error
	buf     string
	inThink bool
}

const (
	openTag  = "<think>"
	closeTag = "</think>"
)

func newThinkFilter(emit func(string) error) *thinkFilter {
	return &thinkFilter{emit: emit}
}

func (f *thinkFilter) Write(fragment string) error {
	f.buf += fragment
	for {
		if f.inThink {
			idx := indexFold(f.buf, closeTag)
			if idx < 0 {
				f.buf = tail(f.buf, len(closeTag)-1)
				return nil
			}
			f.buf = f.buf[idx+len(closeTag):]
			f.inThink = false
			continue
		}

		open, stray := indexFold(f.buf, openTag), indexFold(f.buf, closeTag)
		switch {
		case open >= 0 && (stray < 0 || open < stray):
			if err := f.send(f.buf[:open]); err != nil {
				return err
			}
			f.buf = f.buf[open+len(openTag):]
			f.inThink = true
		case stray >= 0:
			if err := f.send(f.buf[:stray]); err != nil {
				return err
			}
			f.buf = f.buf[stray+len(closeTag):]
		default:
			keep := partialTag(f.buf)
			if err := f.send(f.buf[:len(f.buf)-keep]); err != nil {
				return err
			}
			f.buf = f.buf[len(f.buf)-keep:]
			return nil
		}
	}
}

// Flush emits whatever is held back once the stream is over.
func (f *thinkFilter) Flush() error {
	if f.inThink {
		f.buf = ""
		return nil
	}
	out := f.buf
	f.buf = ""
	return f.send(out)
}

func (f *thinkFilter) send(s string) error {
	if s == "" {
		return nil
	}
	return f.emit(s)
}

// partialTag reports how many trailing bytes of s could start a tag.
func partialTag(s string) int {
	for n := len(closeTag) - 1; n > 0; n-- {
		if n > len(s) {
			continue
		}
		suffix := s[len(s)-n:]
		if n <= len(openTag) && strings.EqualFold(suffix, openTag[:n]) || strings.EqualFold(suffix, closeTag[:n]) {
			return n
		}
	}
	return 0
}

func indexFold(s, tag string) int {
	for i := 0; i+len(tag) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(tag)], tag) {
			return i
		}
	}
	return -1
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
