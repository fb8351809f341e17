// Package quiz validates and normalises quizzes produced by the model.
package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MultipleChoice = "multiple_choice"
	TrueFalse      = "true_false"
	ShortAnswer    = "short_answer"

	markerPrefix = "QUIZ_CREATED:"
)

var (
	ErrNoQuestions    = errors.New("quiz must contain 'questions' array")
	ErrEmptyQuestions = errors.New("quiz must have at least one question")
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

type Question struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Question    string          `json:"question"`
	Options     []string        `json:"options,omitempty"`
	Correct     json.RawMessage `json:"correct,omitempty"`
	Explanation string          `json:"explanation,omitempty"`
}

type Quiz struct {
	ID          string     `json:"quiz_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ExtractJSON returns the body of the first ```json fenced block in text.
func ExtractJSON(text string) (string, bool) {
	m := fencedJSON.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// Parse validates raw quiz JSON and fills in missing ids, types and title.
func Parse(raw string, now time.Time) (*Quiz, error) {
	var doc struct {
		Title       string            `json:"title"`
		Description string            `json:"description"`
		Questions   *[]map[string]any `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}
	if doc.Questions == nil {
		return nil, ErrNoQuestions
	}
	if len(*doc.Questions) == 0 {
		return nil, ErrEmptyQuestions
	}

	q := &Quiz{
		ID:          newID(now),
		Title:       doc.Title,
		Description: doc.Description,
		CreatedAt:   now,
	}
	if q.Title == "" {
		q.Title = "Quiz"
	}

	for i, fields := range *doc.Questions {
		if fields == nil {
			fields = map[string]any{}
		}
		question := Question{
			ID:          text(fields["id"]),
			Type:        text(fields["type"]),
			Question:    text(fields["question"]),
			Options:     options(fields["options"]),
			Explanation: text(fields["explanation"]),
		}
		if question.ID == "" {
			question.ID = strconv.Itoa(i + 1)
		}
		if question.Type == "" {
			question.Type = inferType(fields)
		}
		if v, ok := fields["correct"]; ok && v != nil {
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("question %d: %w", i+1, err)
			}
			question.Correct = raw
		}
		q.Questions = append(q.Questions, question)
	}
	return q, nil
}

// text renders any JSON scalar as a string. Numbers keep their shortest
// form, so 3 stays "3"; arrays and objects are kept as JSON.
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// options accepts a list of any scalars. Anything that is not a list yields
// no options.
func options(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, o := range list {
		out = append(out, text(o))
	}
	return out
}

func inferType(fields map[string]any) string {
	if _, ok := fields["options"].([]any); ok {
		return MultipleChoice
	}
	if _, ok := fields["correct"].(bool); ok {
		return TrueFalse
	}
	return ShortAnswer
}

func newID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("quiz_%s_%s", now.Format("20060102_150405"), suffix)
}

// Marker is the text that stands in for the assistant reply once a quiz exists.
func (q *Quiz) Marker() string {
	return fmt.Sprintf("%s%s|%s|%d questions", markerPrefix, q.ID, q.Title, len(q.Questions))
}

// ParseMarker reverses Marker and reports the quiz id.
func ParseMarker(text string) (id string, ok bool) {
	if !strings.HasPrefix(text, markerPrefix) {
		return "", false
	}
	rest := strings.TrimPrefix(text, markerPrefix)
	id, _, _ = strings.Cut(rest, "|")
	return id, id != ""
}

// CorrectOption returns the index of the right option for choice questions.
// True/false questions map true to 0 and false to 1.
func (q Question) CorrectOption() (int, bool) {
	if len(q.Correct) == 0 {
		return 0, false
	}
	var idx int
	if err := json.Unmarshal(q.Correct, &idx); err == nil {
		return idx, true
	}
	var b bool
	if err := json.Unmarshal(q.Correct, &b); err == nil {
		if b {
			return 0, true
		}
		return 1, true
	}
	return 0, false
}
