package ports

import (
	"context"
	"time"

	"TodoScanner/internal/domain"
)

// DocumentSource pulls fresh documents from an upstream provider.
type DocumentSource interface {
	Kind() domain.SourceKind
	FetchSince(ctx context.Context, since time.Time) ([]domain.SourceDocument, error)
}

// ModelClient sends one prompt to the model service and returns the raw
// completion text. Stateless request/response, no retries.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Classifier turns a document into zero or more canonical items.
type Classifier interface {
	Classify(ctx context.Context, doc domain.SourceDocument) ([]domain.CanonicalItem, error)
}

// Sink is a durable destination for canonical items.
type Sink interface {
	Name() string
	Write(ctx context.Context, items []domain.CanonicalItem, label string) error
}

// DuplicateChecker is implemented by sinks able to report what they already
// hold. Sinks without it are append-only and accept duplicates.
type DuplicateChecker interface {
	ExistingActions(ctx context.Context) ([]string, error)
}

// TaskStore exposes status transitions where the backing sink supports them
// (only the relational store does).
type TaskStore interface {
	PendingTodos(ctx context.Context) ([]domain.StoredTodo, error)
	MarkCompleted(ctx context.Context, id int64) error
}
