package domain

import (
	"strings"
	"time"
)

// SourceKind identifies which upstream produced a document.
type SourceKind string

const (
	SourceEmail      SourceKind = "email"
	SourceTranscript SourceKind = "transcript"
)

// Sentence is one utterance from a meeting transcript.
type Sentence struct {
	Speaker string
	Text    string
}

// SourceDocument is a single unit of fetched content awaiting classification.
// Immutable once fetched; owned by the scheduler for one cycle.
type SourceDocument struct {
	Kind         SourceKind
	OriginID     string
	OccurredAt   time.Time
	Subject      string
	Body         string
	Sender       string
	SenderName   string
	Participants []string

	// Transcript-only enrichment.
	SummaryItems []string
	Sentences    []Sentence
}

// Priority ranks how urgent an extracted item is.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// ParsePriority maps free-form model output onto the enum, defaulting to Medium.
func ParsePriority(value string) Priority {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

// Provenance records where a canonical item came from.
type Provenance struct {
	Kind       SourceKind
	OriginID   string
	Subject    string
	OccurredAt time.Time
}

// CanonicalItem is the normalized action-item record shared by every sink.
type CanonicalItem struct {
	Action     string
	Details    string
	Priority   Priority
	Deadline   string
	Provenance Provenance
}

// NewCanonicalItem validates and constructs an item. The action is trimmed
// and must be non-empty.
func NewCanonicalItem(action, details string, prov Provenance) (CanonicalItem, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return CanonicalItem{}, ErrInvalidItem
	}

	return CanonicalItem{
		Action:     action,
		Details:    strings.TrimSpace(details),
		Priority:   PriorityMedium,
		Provenance: prov,
	}, nil
}

// NormalizeAction lower-cases and collapses whitespace. Two items are
// duplicates within a list iff their normalized actions match; details and
// provenance never participate in the comparison.
func NormalizeAction(action string) string {
	return strings.Join(strings.Fields(strings.ToLower(action)), " ")
}

// TodoStatus enumerates lifecycle states in the relational store.
type TodoStatus string

const (
	StatusPending   TodoStatus = "Pending"
	StatusCompleted TodoStatus = "Completed"
)

// StoredTodo is a row read back from the relational sink.
type StoredTodo struct {
	ID        int64
	CreatedAt time.Time
	Source    string
	Action    string
	Priority  Priority
	Deadline  string
	Status    TodoStatus
}
