package watermark

import (
	"time"

	"TodoScanner/internal/domain"
)

const fallbackLookback = 5 * time.Minute

// Tracker keeps the last processed instant per source kind. Before the first
// advance a configurable lookback window governs the fetch horizon.
//
// Single-writer contract: only the scheduler goroutine may call Advance, and
// no reads run concurrently with it, so the tracker carries no lock.
type Tracker struct {
	marks     map[domain.SourceKind]time.Time
	lookbacks map[domain.SourceKind]time.Duration
	now       func() time.Time
}

// NewTracker builds a tracker with per-source first-run lookbacks. Sources
// without an entry fall back to five minutes.
func NewTracker(lookbacks map[domain.SourceKind]time.Duration) *Tracker {
	lb := make(map[domain.SourceKind]time.Duration, len(lookbacks))
	for kind, d := range lookbacks {
		lb[kind] = d
	}

	return &Tracker{
		marks:     map[domain.SourceKind]time.Time{},
		lookbacks: lb,
		now:       time.Now,
	}
}

// Get returns the current watermark, or now minus the source's lookback when
// none has been recorded yet.
func (t *Tracker) Get(kind domain.SourceKind) time.Time {
	if mark, ok := t.marks[kind]; ok {
		return mark
	}

	lookback, ok := t.lookbacks[kind]
	if !ok || lookback <= 0 {
		lookback = fallbackLookback
	}
	return t.now().UTC().Add(-lookback)
}

// FilterNew keeps documents strictly newer than the watermark. A document
// stamped exactly at the watermark was processed last cycle and is excluded.
func (t *Tracker) FilterNew(kind domain.SourceKind, docs []domain.SourceDocument) []domain.SourceDocument {
	mark := t.Get(kind)

	fresh := make([]domain.SourceDocument, 0, len(docs))
	for _, doc := range docs {
		if doc.OccurredAt.After(mark) {
			fresh = append(fresh, doc)
		}
	}
	return fresh
}

// Advance moves the watermark to at. Callers only invoke it after a cycle
// completes without error. Returns ErrClockRegression when at precedes the
// stored mark; the caller logs and skips rather than aborting.
func (t *Tracker) Advance(kind domain.SourceKind, at time.Time) error {
	if mark, ok := t.marks[kind]; ok && at.Before(mark) {
		return domain.ErrClockRegression
	}
	t.marks[kind] = at
	return nil
}
