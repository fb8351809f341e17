// Package memory is the long-term and session-scoped fact store. Records live
// in SQLite; when an embedder is configured they are ranked by cosine
// similarity, otherwise by keyword overlap.
package memory

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/xaenox/emo/internal/models"
)

const (
	TypeLongTerm  = "long_term"
	TypeShortTerm = "short_term"
	TypeProject   = "project"

	// DefaultThreshold is the largest cosine distance still considered relevant.
	DefaultThreshold = 1.0
)

var ErrNotFound = errors.New("memory not found")

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result is one ranked match.
type Result struct {
	DocID     string                `json:"doc_id"`
	Text      string                `json:"text"`
	Summary   string                `json:"summary"`
	Metadata  models.MemoryMetadata `json:"metadata"`
	Relevance int                   `json:"relevance"`
}

// SearchParams narrows a query. Zero values mean no filter.
type SearchParams struct {
	Query     string
	Limit     int
	Type      string
	SessionID string
	// Project matches records saved under the same ProjectKey.
	Project string
	// ExcludeType drops one record type, typically short-term notes when
	// building long-term context.
	ExcludeType string
}

type SQLiteStore struct {
	db        *sql.DB
	embedder  Embedder
	threshold float64
	logger    *zap.Logger

	mu      sync.Mutex
	entropy *rand.Rand
}

type Option func(*SQLiteStore)

func WithEmbedder(e Embedder) Option {
	return func(s *SQLiteStore) { s.embedder = e }
}

func WithThreshold(t float64) Option {
	return func(s *SQLiteStore) { s.threshold = t }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *SQLiteStore) { s.logger = l }
}

// NewSQLiteStore opens or creates the database at dbPath.
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:        db,
		threshold: DefaultThreshold,
		logger:    zap.NewNop(),
		entropy:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS memories (
		id          TEXT PRIMARY KEY,
		text        TEXT NOT NULL,
		meta        TEXT NOT NULL,
		type        TEXT NOT NULL DEFAULT '',
		session_id  TEXT NOT NULL DEFAULT '',
		embedding   BLOB,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memories_type ON memories(type);
	CREATE INDEX IF NOT EXISTS idx_memories_session ON memories(session_id);
	`)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save stores text as a new record. A missing summary is generated; an
// embedding failure is logged and the record is kept for keyword search.
func (s *SQLiteStore) Save(ctx context.Context, text string, meta models.MemoryMetadata) (*models.MemoryRecord, error) {
	return s.insert(ctx, s.db, text, meta)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) insert(ctx context.Context, db execer, text string, meta models.MemoryMetadata) (*models.MemoryRecord, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("memory text is empty")
	}
	if meta.Summary == "" {
		meta.Summary = Summarize(text, SummaryLength)
	}
	if meta.Date == "" {
		meta.Date = time.Now().Format("2006-01-02")
	}
	if meta.Project != "" && meta.ProjectKey == "" {
		meta.ProjectKey = ProjectKey(meta.Project)
	}

	rec := &models.MemoryRecord{
		DocID:     s.newID(),
		Text:      text,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}

	var blob []byte
	if s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			s.logger.Warn("Failed to embed memory", zap.String("doc_id", rec.DocID), zap.Error(err))
		} else {
			blob = encodeVector(vec)
		}
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO memories (id, text, meta, type, session_id, embedding, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.DocID, rec.Text, string(metaJSON), meta.Type, meta.SessionID, blob,
		rec.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert memory: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) Get(ctx context.Context, docID string) (*models.MemoryRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, text, meta, created_at FROM memories WHERE id = ?`, docID)

	var (
		rec     models.MemoryRecord
		meta    string
		created string
	)
	err := row.Scan(&rec.DocID, &rec.Text, &meta, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, docID)
	}
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &rec, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, docID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, docID)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, docID)
	}
	return nil
}

// DeleteSession drops the short-term notes of one session and reports how
// many went.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM memories WHERE type = ? AND session_id = ?`, TypeShortTerm, sessionID)
	if err != nil {
		return 0, fmt.Errorf("delete session memory: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ProjectCount is one project and the number of notes saved under it.
type ProjectCount struct {
	Name  string
	Items int
}

// Projects lists every project in the order it was first written to, under
// the name it was first saved with.
func (s *SQLiteStore) Projects(ctx context.Context) ([]ProjectCount, error) {
	// With a single MIN aggregate SQLite takes the bare name from the
	// earliest row.
	rows, err := s.db.QueryContext(ctx, `
		SELECT json_extract(meta, '$.project'), COUNT(*), MIN(created_at) AS first FROM memories
		WHERE type = ?
		GROUP BY json_extract(meta, '$.project_key')
		ORDER BY first`, TypeProject)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []ProjectCount
	for rows.Next() {
		var (
			name  sql.NullString
			first string
			pc    ProjectCount
		)
		if err := rows.Scan(&name, &pc.Items, &first); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		pc.Name = name.String
		if pc.Name == "" {
			pc.Name = "Unknown"
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

// ProjectKey normalizes a project name: "Emo Bot " and "emo bot" share a key.
func ProjectKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// Replace deletes oldID and inserts text in its place, atomically.
func (s *SQLiteStore) Replace(ctx context.Context, oldID, text string, meta models.MemoryMetadata) (*models.MemoryRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, oldID)
	if err != nil {
		return nil, fmt.Errorf("delete memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, oldID)
	}

	rec, err := s.insert(ctx, tx, text, meta)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// Query returns up to limit long-term matches for text. An empty store
// yields no results and no error.
func (s *SQLiteStore) Query(ctx context.Context, text string, limit int) ([]Result, error) {
	return s.Search(ctx, SearchParams{Query: text, Limit: limit, ExcludeType: TypeShortTerm})
}

func (s *SQLiteStore) Search(ctx context.Context, p SearchParams) ([]Result, error) {
	if p.Limit <= 0 {
		p.Limit = 3
	}

	var query []float32
	if s.embedder != nil && strings.TrimSpace(p.Query) != "" {
		vec, err := s.embedder.Embed(ctx, p.Query)
		if err != nil {
			s.logger.Warn("Falling back to keyword search", zap.Error(err))
		} else {
			query = vec
		}
	}

	candidates, err := s.candidates(ctx, p)
	if err != nil {
		return nil, err
	}

	var results []Result
	if query != nil {
		results = s.rankByVector(candidates, query)
	} else {
		results = rankByKeywords(candidates, p.Query)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Relevance > results[j].Relevance })
	if len(results) > p.Limit {
		results = results[:p.Limit]
	}
	return results, nil
}

type candidate struct {
	Result
	vector []float32
}

func (s *SQLiteStore) candidates(ctx context.Context, p SearchParams) ([]candidate, error) {
	where := []string{"1 = 1"}
	var args []any
	if p.Type != "" {
		where = append(where, "type = ?")
		args = append(args, p.Type)
	}
	if p.ExcludeType != "" {
		where = append(where, "type != ?")
		args = append(args, p.ExcludeType)
	}
	if p.SessionID != "" {
		where = append(where, "session_id = ?")
		args = append(args, p.SessionID)
	}
	if p.Project != "" {
		where = append(where, "json_extract(meta, '$.project_key') = ?")
		args = append(args, ProjectKey(p.Project))
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, text, meta, embedding FROM memories
		WHERE %s
		ORDER BY created_at DESC`, strings.Join(where, " AND ")), args...)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	var out []candidate
	for rows.Next() {
		var (
			c    candidate
			meta string
			blob []byte
		)
		if err := rows.Scan(&c.DocID, &c.Text, &meta, &blob); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &c.Metadata); err != nil {
			s.logger.Warn("Skipping memory with bad metadata", zap.String("doc_id", c.DocID), zap.Error(err))
			continue
		}
		c.Summary = c.Metadata.Summary
		if c.Summary == "" {
			c.Summary = Summarize(c.Text, SummaryLength)
		}
		c.vector = decodeVector(blob)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) rankByVector(cands []candidate, query []float32) []Result {
	var out []Result
	for _, c := range cands {
		if c.vector == nil {
			continue
		}
		sim := cosine(query, c.vector)
		if 1-sim > s.threshold {
			continue
		}
		c.Relevance = int(math.Round(sim * 100))
		out = append(out, c.Result)
	}
	return out
}

func rankByKeywords(cands []candidate, query string) []Result {
	words := keywords(query)
	var out []Result
	for _, c := range cands {
		if len(words) == 0 {
			out = append(out, c.Result)
			continue
		}
		lower := strings.ToLower(c.Text)
		hits := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		c.Relevance = hits * 100 / len(words)
		out = append(out, c.Result)
	}
	return out
}

var stopWords = map[string]bool{
	"the": true, "and": true, "what": true, "did": true, "you": true, "about": true,
	"that": true, "this": true, "with": true, "for": true, "was": true, "are": true,
	"remember": true, "recall": true, "told": true, "earlier": true, "previously": true,
}

func keywords(query string) []string {
	var out []string
	seen := map[string]bool{}
	for _, f := range strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	}) {
		if len(f) < 3 || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func encodeVector(v []float32) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, v)
	return buf.Bytes()
}

func decodeVector(b []byte) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, v); err != nil {
		return nil
	}
	return v
}
