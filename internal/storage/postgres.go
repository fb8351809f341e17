package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/xaenox/emo/internal/deadline"
	"github.com/xaenox/emo/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// PostgresStorage keeps tasks in a shared database. Row locks taken inside
// transactions serialise concurrent writers.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(ctx context.Context, config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}
	if err := storage.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}
	if err := storage.backfill(ctx); err != nil {
		logger.Warn("Failed to backfill task deadlines", zap.Error(err))
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema(ctx context.Context) error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (s *PostgresStorage) backfill(ctx context.Context) error {
	tasks, err := s.ListPending(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, t := range tasks {
		if t.Deadline != nil {
			continue
		}
		d := deadline.Parse(t.Text, now)
		if d == nil {
			continue
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE tasks SET deadline = $1 WHERE id = $2`, *d, t.ID); err != nil {
			return fmt.Errorf("error backfilling task %s: %w", t.ID, err)
		}
	}
	return nil
}

const taskColumns = `id, text, status, created_at, deadline`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t   models.Task
		due sql.NullTime
	)
	if err := row.Scan(&t.ID, &t.Text, &t.Status, &t.CreatedAt, &due); err != nil {
		return models.Task{}, err
	}
	if due.Valid {
		d := due.Time
		t.Deadline = &d
	}
	return t, nil
}

func (s *PostgresStorage) Add(ctx context.Context, text string, due *time.Time) (*models.Task, error) {
	now := time.Now()
	if due == nil {
		due = deadline.Parse(text, now)
	}

	query := `
		INSERT INTO tasks (id, text, status, created_at, deadline)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + taskColumns

	var dueArg any
	if due != nil {
		dueArg = *due
	}
	t, err := scanTask(s.db.QueryRowContext(ctx, query, uuid.NewString(), text, models.TaskPending, now, dueArg))
	if err != nil {
		return nil, fmt.Errorf("error creating task: %w", err)
	}
	return &t, nil
}

func (s *PostgresStorage) query(ctx context.Context, query string, args ...any) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *PostgresStorage) ListPending(ctx context.Context) ([]models.Task, error) {
	return s.query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status = $1 ORDER BY created_at, id`, models.TaskPending)
}

func (s *PostgresStorage) List(ctx context.Context) ([]models.Task, error) {
	return s.query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at, id`)
}

func (s *PostgresStorage) CompleteByIndex(ctx context.Context, index int) (*models.Task, error) {
	if index < 1 {
		return nil, fmt.Errorf("%w: no pending task #%d", ErrTaskNotFound, index)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	var id string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM tasks
		WHERE status = $1
		ORDER BY created_at, id
		OFFSET $2 LIMIT 1
		FOR UPDATE`, models.TaskPending, index-1).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no pending task #%d", ErrTaskNotFound, index)
	}
	if err != nil {
		return nil, fmt.Errorf("error selecting task: %w", err)
	}

	t, err := completeRow(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing task: %w", err)
	}
	return t, nil
}

func (s *PostgresStorage) CompleteByID(ctx context.Context, id string) (*models.Task, error) {
	return completeRow(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func completeRow(ctx context.Context, q queryRower, id string) (*models.Task, error) {
	t, err := scanTask(q.QueryRowContext(ctx,
		`UPDATE tasks SET status = $1 WHERE id = $2 RETURNING `+taskColumns, models.TaskDone, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("error completing task: %w", err)
	}
	return &t, nil
}

func (s *PostgresStorage) DeleteCompleted(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE status = $1`, models.TaskDone)
	if err != nil {
		return 0, fmt.Errorf("error deleting tasks: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error getting rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
