package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"TodoScanner/internal/domain"
	"TodoScanner/internal/ports"
)

// PostgresSink persists items to the todos table. Writes are append-only;
// the table additionally supports Pending -> Completed status transitions,
// which no other sink does.
type PostgresSink struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var (
	_ ports.Sink      = (*PostgresSink)(nil)
	_ ports.TaskStore = (*PostgresSink)(nil)
)

// NewPostgresSink wires a sql.DB handle.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the todos table when it does not exist yet.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	const ddl = `
        CREATE TABLE IF NOT EXISTS todos (
            id           BIGSERIAL PRIMARY KEY,
            created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            source       TEXT NOT NULL,
            action       TEXT NOT NULL,
            priority     TEXT NOT NULL DEFAULT 'Medium',
            deadline     TEXT,
            status       TEXT NOT NULL DEFAULT 'Pending',
            completed_at TIMESTAMPTZ,
            metadata     JSONB
        )`

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create todos table: %w", err)
	}
	return nil
}

// Name identifies the sink in logs and write results.
func (s *PostgresSink) Name() string {
	return "database"
}

// Write inserts one row per item with the provenance label as source.
func (s *PostgresSink) Write(ctx context.Context, items []domain.CanonicalItem, label string) error {
	insert := s.builder.
		Insert("todos").
		Columns("source", "action", "priority", "deadline", "metadata")

	for _, item := range items {
		metadata, err := json.Marshal(map[string]any{
			"source_kind": item.Provenance.Kind,
			"origin_id":   item.Provenance.OriginID,
			"subject":     item.Provenance.Subject,
			"occurred_at": item.Provenance.OccurredAt,
			"details":     item.Details,
		})
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		insert = insert.Values(label, item.Action, string(item.Priority), item.Deadline, metadata)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert todos: %w", err)
	}
	return nil
}

// PendingTodos lists rows still awaiting completion, newest first.
func (s *PostgresSink) PendingTodos(ctx context.Context) ([]domain.StoredTodo, error) {
	query, args, err := s.builder.
		Select("id", "created_at", "source", "action", "priority", "deadline").
		From("todos").
		Where(sq.Eq{"status": string(domain.StatusPending)}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending: %w", err)
	}
	defer rows.Close()

	var todos []domain.StoredTodo
	for rows.Next() {
		var (
			todo     domain.StoredTodo
			deadline sql.NullString
			priority string
		)
		if err := rows.Scan(&todo.ID, &todo.CreatedAt, &todo.Source, &todo.Action, &priority, &deadline); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todo.Priority = domain.ParsePriority(priority)
		todo.Deadline = deadline.String
		todo.Status = domain.StatusPending
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return todos, nil
}

// MarkCompleted transitions a row to Completed and stamps the time.
func (s *PostgresSink) MarkCompleted(ctx context.Context, id int64) error {
	query, args, err := s.builder.
		Update("todos").
		Set("status", string(domain.StatusCompleted)).
		Set("completed_at", time.Now().UTC()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}
