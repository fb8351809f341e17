// Package session holds the short-lived per-conversation state that the
// assistant core reads and writes: history, the email list from the last
// mailbox search, the last viewed email and generated quizzes.
package session

import (
	"sync"
	"time"

	"github.com/xaenox/emo/internal/models"
	"github.com/xaenox/emo/internal/quiz"
)

type Session struct {
	ID        string
	CreatedAt time.Time

	mu              sync.RWMutex
	history         []models.Message
	emails          []models.Email
	lastViewedEmail int
	quizzes         map[string]*quiz.Quiz
	lastQuizID      string
}

func New(id string) *Session {
	return &Session{
		ID:              id,
		CreatedAt:       time.Now(),
		lastViewedEmail: 1,
		quizzes:         make(map[string]*quiz.Quiz),
	}
}

// History returns a copy of the conversation so far, oldest first.
func (s *Session) History() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Append adds turns to the end of the history. Turns are never edited.
func (s *Session) Append(msgs ...models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range msgs {
		if m.Timestamp.IsZero() {
			m.Timestamp = time.Now()
		}
		s.history = append(s.history, m)
	}
}

func (s *Session) LastViewedEmailIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastViewedEmail
}

func (s *Session) SetLastViewedEmailIndex(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastViewedEmail = index
}

// SetEmails replaces the cached results of the last mailbox search.
func (s *Session) SetEmails(emails []models.Email) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emails = append([]models.Email(nil), emails...)
}

// Email looks up a cached email by its 1-based index.
func (s *Session) Email(index int) (models.Email, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.emails {
		if e.Index == index {
			return e, true
		}
	}
	return models.Email{}, false
}

func (s *Session) EmailCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.emails)
}

// SaveQuiz stores a quiz and marks it as the current one.
func (s *Session) SaveQuiz(q *quiz.Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[q.ID] = q
	s.lastQuizID = q.ID
}

func (s *Session) Quiz(id string) (*quiz.Quiz, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[id]
	return q, ok
}

func (s *Session) CurrentQuizID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastQuizID
}

// Store keeps sessions in memory for the lifetime of the process.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	onReset  []func(id string)
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Get returns the session with the given id, creating it on first use.
func (st *Store) Get(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[id]; ok {
		return s
	}
	s := New(id)
	st.sessions[id] = s
	return s
}

// OnReset registers fn to run after every Reset, outside the store lock.
func (st *Store) OnReset(fn func(id string)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.onReset = append(st.onReset, fn)
}

// Reset drops the session so the next Get starts a fresh conversation.
func (st *Store) Reset(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	hooks := st.onReset
	st.mu.Unlock()

	for _, fn := range hooks {
		fn(id)
	}
}
