package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xaenox/emo/internal/memory"
	"github.com/xaenox/emo/internal/models"
)

// MemoryStore is the part of the memory store the memory tools need.
type MemoryStore interface {
	Search(ctx context.Context, p memory.SearchParams) ([]memory.Result, error)
	Get(ctx context.Context, docID string) (*models.MemoryRecord, error)
	Save(ctx context.Context, text string, meta models.MemoryMetadata) (*models.MemoryRecord, error)
	Replace(ctx context.Context, oldID, text string, meta models.MemoryMetadata) (*models.MemoryRecord, error)
	DeleteSession(ctx context.Context, sessionID string) (int, error)
	Projects(ctx context.Context) ([]memory.ProjectCount, error)
}

const (
	searchLimit  = 5
	factLimit    = 3
	projectLimit = 20
)

type memoryTools struct {
	store MemoryStore
}

func (m memoryTools) search(ctx context.Context, call Call) (string, error) {
	query, err := required(call.Args, "query")
	if err != nil {
		return "", err
	}
	results, err := m.store.Search(ctx, memory.SearchParams{
		Query:       query,
		Limit:       searchLimit,
		ExcludeType: memory.TypeShortTerm,
	})
	if err != nil {
		return "", fmt.Errorf("search memory: %w", err)
	}
	return memory.FormatSearch(results), nil
}

func (m memoryTools) recall(ctx context.Context, call Call) (string, error) {
	id, err := required(call.Args, "doc_id", "query")
	if err != nil {
		return "", err
	}
	rec, err := m.store.Get(ctx, id)
	if errors.Is(err, memory.ErrNotFound) {
		return "Memory not found with ID: " + id, nil
	}
	if err != nil {
		return "", fmt.Errorf("recall memory: %w", err)
	}

	lines := []string{"=== FULL MEMORY CONTENT ==="}
	meta := rec.Metadata
	if meta.Subject != "" {
		lines = append(lines, "Subject: "+meta.Subject)
	}
	if meta.Source != "" {
		lines = append(lines, "Source: "+meta.Source)
	}
	if meta.Date != "" {
		lines = append(lines, "Date: "+meta.Date)
	}
	lines = append(lines, "---", rec.Text, "=== END MEMORY ===")
	return strings.Join(lines, "\n"), nil
}

func (m memoryTools) saveLongTerm(ctx context.Context, call Call) (string, error) {
	fact, err := required(call.Args, "content", "fact")
	if err != nil {
		return "", err
	}
	category := str(call.Args, "category")
	if category == "" {
		category = "other"
	}
	if _, err := m.store.Save(ctx, fact, models.MemoryMetadata{
		Type:     memory.TypeLongTerm,
		Category: category,
		Source:   "user",
	}); err != nil {
		return "", fmt.Errorf("save long-term memory: %w", err)
	}
	return fmt.Sprintf("✓ Permanently saved to long-term memory [%s]: '%s'", category, clip(fact, 60)), nil
}

func (m memoryTools) saveShortTerm(ctx context.Context, call Call) (string, error) {
	content, err := required(call.Args, "content")
	if err != nil {
		return "", err
	}
	importance := str(call.Args, "importance")
	if importance == "" {
		importance = "normal"
	}
	if _, err := m.store.Save(ctx, content, models.MemoryMetadata{
		Type:       memory.TypeShortTerm,
		SessionID:  call.Session.ID,
		Context:    str(call.Args, "context"),
		Importance: importance,
		Source:     "conversation",
	}); err != nil {
		return "", fmt.Errorf("save short-term memory: %w", err)
	}
	return fmt.Sprintf("✓ Saved to session memory: '%s'", clip(content, 50)), nil
}

// queryShortTerm only sees notes saved in the calling session.
func (m memoryTools) queryShortTerm(ctx context.Context, call Call) (string, error) {
	query, err := required(call.Args, "query")
	if err != nil {
		return "", err
	}
	results, err := m.store.Search(ctx, memory.SearchParams{
		Query:     query,
		Limit:     searchLimit,
		Type:      memory.TypeShortTerm,
		SessionID: call.Session.ID,
	})
	if err != nil {
		return "", fmt.Errorf("search session memory: %w", err)
	}
	if len(results) == 0 {
		return "No relevant short-term memories found.", nil
	}

	lines := []string{"=== SESSION MEMORY ==="}
	for i, r := range results {
		importance := r.Metadata.Importance
		if importance == "" {
			importance = "normal"
		}
		lines = append(lines, fmt.Sprintf("%d. [%s] %s", i+1, importance, r.Text))
	}
	return strings.Join(lines, "\n"), nil
}

func (m memoryTools) clearShortTerm(ctx context.Context, call Call) (string, error) {
	n, err := m.store.DeleteSession(ctx, call.Session.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🧹 Cleared %d session memory item(s).", n), nil
}

func (m memoryTools) queryLongTerm(ctx context.Context, call Call) (string, error) {
	query, err := required(call.Args, "query")
	if err != nil {
		return "", err
	}
	results, err := m.store.Search(ctx, memory.SearchParams{Query: query, Limit: factLimit, Type: memory.TypeLongTerm})
	if err != nil {
		return "", fmt.Errorf("search memory: %w", err)
	}
	if len(results) == 0 {
		return "🤔 No saved personal facts match that.", nil
	}

	lines := []string{"**Saved personal facts:**"}
	for _, r := range results {
		category := r.Metadata.Category
		if category == "" {
			category = "other"
		}
		lines = append(lines, fmt.Sprintf("• [%s] %s", category, r.Text))
	}
	return strings.Join(lines, "\n"), nil
}

func (m memoryTools) saveProject(ctx context.Context, call Call) (string, error) {
	project, err := required(call.Args, "project_name", "project")
	if err != nil {
		return "", err
	}
	content, err := required(call.Args, "content")
	if err != nil {
		return "", err
	}
	kind := str(call.Args, "content_type")
	if kind == "" {
		kind = "note"
	}
	if _, err := m.store.Save(ctx, content, models.MemoryMetadata{
		Type:        memory.TypeProject,
		Project:     project,
		ContentType: kind,
		Source:      "user",
	}); err != nil {
		return "", fmt.Errorf("save project memory: %w", err)
	}
	return fmt.Sprintf("✓ Saved to project '%s' [%s]: '%s'", project, kind, clip(content, 50)), nil
}

// queryProject lists one project's notes when a name is given, otherwise it
// searches across all projects.
func (m memoryTools) queryProject(ctx context.Context, call Call) (string, error) {
	project := str(call.Args, "project_name", "project")
	if project != "" {
		results, err := m.store.Search(ctx, memory.SearchParams{Type: memory.TypeProject, Project: project, Limit: projectLimit})
		if err != nil {
			return "", fmt.Errorf("search project memory: %w", err)
		}
		if len(results) == 0 {
			return "No project found: " + project, nil
		}
		lines := []string{"=== PROJECT: " + project + " ==="}
		for _, r := range results {
			lines = append(lines, fmt.Sprintf("• [%s] %s", r.Metadata.ContentType, r.Text))
		}
		return strings.Join(lines, "\n"), nil
	}

	results, err := m.store.Search(ctx, memory.SearchParams{Type: memory.TypeProject, Query: str(call.Args, "query"), Limit: searchLimit * 2})
	if err != nil {
		return "", fmt.Errorf("search project memory: %w", err)
	}
	if len(results) == 0 {
		return "No relevant project info found.", nil
	}
	lines := []string{"=== PROJECT MEMORY ==="}
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("• [%s] %s", r.Metadata.Project, r.Text))
	}
	return strings.Join(lines, "\n"), nil
}

func (m memoryTools) listProjects(ctx context.Context, _ Call) (string, error) {
	projects, err := m.store.Projects(ctx)
	if err != nil {
		return "", err
	}
	if len(projects) == 0 {
		return "No projects stored.", nil
	}
	lines := []string{"=== ACTIVE PROJECTS ==="}
	for _, p := range projects {
		lines = append(lines, fmt.Sprintf("%s (%d items)", p.Name, p.Items))
	}
	return strings.Join(lines, "\n"), nil
}

// updateLongTerm swaps the closest long-term fact for a new one, or saves
// the new fact when nothing matches.
func (m memoryTools) updateLongTerm(ctx context.Context, call Call) (string, error) {
	oldFact, err := required(call.Args, "old_fact")
	if err != nil {
		return "", err
	}
	newFact, err := required(call.Args, "new_fact")
	if err != nil {
		return "", err
	}
	category := str(call.Args, "category")
	if category == "" {
		category = "other"
	}

	matches, err := m.store.Search(ctx, memory.SearchParams{Query: oldFact, Limit: 1, Type: memory.TypeLongTerm})
	if err != nil {
		return "", fmt.Errorf("search memory: %w", err)
	}
	if len(matches) == 0 {
		return m.saveLongTerm(ctx, Call{Session: call.Session, Args: models.Args{"content": newFact, "category": category}})
	}

	meta := models.MemoryMetadata{Type: memory.TypeLongTerm, Category: category, Source: "user"}
	if _, err := m.store.Replace(ctx, matches[0].DocID, newFact, meta); err != nil {
		return "", fmt.Errorf("update memory: %w", err)
	}
	return fmt.Sprintf("✓ Updated long-term memory: '%s' → '%s'", clip(oldFact, 30), clip(newFact, 30)), nil
}
