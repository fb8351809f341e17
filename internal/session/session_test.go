package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xaenox/emo/internal/models"
	"github.com/xaenox/emo/internal/quiz"
)

func TestStore_GetAndReset(t *testing.T) {
	st := NewStore()

	a := st.Get("chat-1")
	assert.Same(t, a, st.Get("chat-1"))
	assert.Equal(t, 1, a.LastViewedEmailIndex())

	a.Append(models.Message{Role: models.RoleUser, Content: "hi"})
	st.Reset("chat-1")

	b := st.Get("chat-1")
	assert.NotSame(t, a, b)
	assert.Empty(t, b.History())
}

func TestStore_OnReset(t *testing.T) {
	st := NewStore()
	var reset []string
	st.OnReset(func(id string) {
		// Hooks run unlocked, so they may use the store.
		st.Get("other")
		reset = append(reset, id)
	})

	st.Reset("tg-1")
	st.Reset("cli")
	assert.Equal(t, []string{"tg-1", "cli"}, reset)
}

func TestSession_HistoryIsCopied(t *testing.T) {
	s := New("x")
	s.Append(models.Message{Role: models.RoleUser, Content: "one"})

	h := s.History()
	h[0].Content = "changed"

	assert.Equal(t, "one", s.History()[0].Content)
	assert.False(t, s.History()[0].Timestamp.IsZero())
}

func TestSession_ConcurrentAppend(t *testing.T) {
	s := New("x")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Append(models.Message{Role: models.RoleUser, Content: "m"})
		}()
	}
	wg.Wait()
	assert.Len(t, s.History(), 50)
}

func TestSession_EmailsAndQuizzes(t *testing.T) {
	s := New("x")
	s.SetEmails([]models.Email{{Index: 1, ID: "a"}, {Index: 2, ID: "b"}})

	e, ok := s.Email(2)
	assert.True(t, ok)
	assert.Equal(t, "b", e.ID)
	_, ok = s.Email(3)
	assert.False(t, ok)
	assert.Equal(t, 2, s.EmailCount())

	q := &quiz.Quiz{ID: "quiz_1", Title: "T"}
	s.SaveQuiz(q)
	got, ok := s.Quiz("quiz_1")
	assert.True(t, ok)
	assert.Same(t, q, got)
	assert.Equal(t, "quiz_1", s.CurrentQuizID())
}
