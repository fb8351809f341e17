package memory

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/emo/internal/models"
)

// topicEmbedder maps text onto three axes by keyword so similarity is predictable.
type topicEmbedder struct{ fail bool }

func (e topicEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.fail {
		return nil, errors.New("embedding service down")
	}
	lower := strings.ToLower(text)
	v := []float32{0.01, 0.01, 0.01}
	if strings.Contains(lower, "bike") {
		v[0] = 1
	}
	if strings.Contains(lower, "tea") {
		v[1] = 1
	}
	if strings.Contains(lower, "meeting") {
		v[2] = 1
	}
	return v, nil
}

func newTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "memory.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec, err := s.Save(ctx, "My bike is blue", models.MemoryMetadata{Type: TypeLongTerm, Category: "user_note"})
	require.NoError(t, err)
	assert.Len(t, rec.DocID, 26)
	assert.Equal(t, "My bike is blue", rec.Metadata.Summary)

	got, err := s.Get(ctx, rec.DocID)
	require.NoError(t, err)
	assert.Equal(t, "My bike is blue", got.Text)
	assert.Equal(t, "user_note", got.Metadata.Category)

	require.NoError(t, s.Delete(ctx, rec.DocID))
	_, err = s.Get(ctx, rec.DocID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, rec.DocID), ErrNotFound)

	_, err = s.Save(ctx, "   ", models.MemoryMetadata{})
	assert.Error(t, err)
}

func TestQuery_EmptyStore(t *testing.T) {
	s := newTestStore(t, WithEmbedder(topicEmbedder{}))
	got, err := s.Query(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQuery_RanksByVector(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithEmbedder(topicEmbedder{}), WithThreshold(0.5))

	_, err := s.Save(ctx, "I drink green tea every morning", models.MemoryMetadata{Type: TypeLongTerm})
	require.NoError(t, err)
	_, err = s.Save(ctx, "My bike is a red road bike", models.MemoryMetadata{Type: TypeLongTerm})
	require.NoError(t, err)
	_, err = s.Save(ctx, "bike lock code hint", models.MemoryMetadata{Type: TypeShortTerm, SessionID: "s1"})
	require.NoError(t, err)

	got, err := s.Query(ctx, "what colour is my bike", 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].Text, "road bike")
	assert.Greater(t, got[0].Relevance, 90)

	short, err := s.Search(ctx, SearchParams{Query: "bike", Type: TypeShortTerm, SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, short, 1)
	assert.Equal(t, "bike lock code hint", short[0].Text)

	other, err := s.Search(ctx, SearchParams{Query: "bike", Type: TypeShortTerm, SessionID: "s2"})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestQuery_KeywordFallback(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, WithEmbedder(topicEmbedder{fail: true}))

	_, err := s.Save(ctx, "Dentist appointment is on Friday", models.MemoryMetadata{})
	require.NoError(t, err)
	_, err = s.Save(ctx, "Sister lives in Hanoi", models.MemoryMetadata{})
	require.NoError(t, err)

	got, err := s.Query(ctx, "when is the dentist appointment?", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Dentist appointment is on Friday", got[0].Text)
	assert.Equal(t, 66, got[0].Relevance)
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	old, err := s.Save(ctx, "I live in Da Nang", models.MemoryMetadata{Category: "identity"})
	require.NoError(t, err)

	updated, err := s.Replace(ctx, old.DocID, "I live in Hue", models.MemoryMetadata{Category: "identity"})
	require.NoError(t, err)
	assert.NotEqual(t, old.DocID, updated.DocID)

	_, err = s.Get(ctx, old.DocID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := s.Get(ctx, updated.DocID)
	require.NoError(t, err)
	assert.Equal(t, "I live in Hue", got.Text)

	_, err = s.Replace(ctx, "missing", "x", models.MemoryMetadata{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionNotes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, n := range []struct{ text, session string }{
		{"User is preparing a demo tomorrow", "tg-1"},
		{"User prefers short demo answers", "tg-1"},
		{"User is planning a demo trip", "tg-2"},
	} {
		_, err := s.Save(ctx, n.text, models.MemoryMetadata{Type: TypeShortTerm, SessionID: n.session})
		require.NoError(t, err)
	}
	_, err := s.Save(ctx, "User gave a demo at GopherCon", models.MemoryMetadata{Type: TypeLongTerm})
	require.NoError(t, err)

	got, err := s.Search(ctx, SearchParams{Query: "demo", Limit: 5, Type: TypeShortTerm, SessionID: "tg-1"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, r := range got {
		assert.Equal(t, "tg-1", r.Metadata.SessionID)
	}

	long, err := s.Query(ctx, "demo", 5)
	require.NoError(t, err)
	require.Len(t, long, 1)
	assert.Equal(t, "User gave a demo at GopherCon", long[0].Text)

	n, err := s.DeleteSession(ctx, "tg-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err = s.Search(ctx, SearchParams{Query: "demo", Limit: 5, Type: TypeShortTerm, SessionID: "tg-1"})
	require.NoError(t, err)
	assert.Empty(t, got)
	got, err = s.Search(ctx, SearchParams{Query: "demo", Limit: 5, Type: TypeShortTerm, SessionID: "tg-2"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	long, err = s.Query(ctx, "demo", 5)
	require.NoError(t, err)
	assert.Len(t, long, 1)
}

func TestProjects(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	projects, err := s.Projects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)

	for _, n := range []struct{ project, text string }{
		{"Emo Bot", "Ship the calendar tools"},
		{"Garden", "Plant tomatoes in March"},
		{"emo bot ", "Blocked on OAuth review"},
	} {
		_, err := s.Save(ctx, n.text, models.MemoryMetadata{Type: TypeProject, Project: n.project})
		require.NoError(t, err)
	}

	projects, err = s.Projects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, ProjectCount{Name: "Emo Bot", Items: 2}, projects[0])
	assert.Equal(t, ProjectCount{Name: "Garden", Items: 1}, projects[1])

	got, err := s.Search(ctx, SearchParams{Type: TypeProject, Project: "EMO BOT", Limit: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "emo_bot", got[0].Metadata.ProjectKey)
	assert.Equal(t, "emo_bot", ProjectKey(" Emo Bot"))
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0.5, -1.25, 3}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
	assert.Nil(t, decodeVector([]byte{1, 2, 3}))
	assert.InDelta(t, 1.0, cosine(v, v), 1e-9)
}
