package watermark

import (
	"errors"
	"testing"
	"time"

	"TodoScanner/internal/domain"
)

func fixedNow() time.Time {
	return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
}

func newTestTracker(lookbacks map[domain.SourceKind]time.Duration) *Tracker {
	tr := NewTracker(lookbacks)
	tr.now = fixedNow
	return tr
}

func TestGetUsesConfiguredLookback(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(map[domain.SourceKind]time.Duration{
		domain.SourceEmail:      time.Minute,
		domain.SourceTranscript: time.Hour,
	})

	if got := tr.Get(domain.SourceEmail); !got.Equal(fixedNow().Add(-time.Minute)) {
		t.Fatalf("email lookback: got %v", got)
	}
	if got := tr.Get(domain.SourceTranscript); !got.Equal(fixedNow().Add(-time.Hour)) {
		t.Fatalf("transcript lookback: got %v", got)
	}
}

func TestGetFallsBackForUnknownSource(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(nil)

	if got := tr.Get(domain.SourceEmail); !got.Equal(fixedNow().Add(-5 * time.Minute)) {
		t.Fatalf("fallback lookback: got %v", got)
	}
}

func TestFilterNewExcludesBoundary(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(nil)
	mark := fixedNow()
	if err := tr.Advance(domain.SourceEmail, mark); err != nil {
		t.Fatalf("advance: %v", err)
	}

	docs := []domain.SourceDocument{
		{OriginID: "at-mark", OccurredAt: mark},
		{OriginID: "after", OccurredAt: mark.Add(time.Second)},
		{OriginID: "before", OccurredAt: mark.Add(-time.Second)},
	}

	fresh := tr.FilterNew(domain.SourceEmail, docs)
	if len(fresh) != 1 {
		t.Fatalf("expected 1 fresh document, got %d", len(fresh))
	}
	if fresh[0].OriginID != "after" {
		t.Fatalf("unexpected document: %s", fresh[0].OriginID)
	}
}

func TestAdvanceIsMonotonic(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(nil)
	mark := fixedNow()

	if err := tr.Advance(domain.SourceEmail, mark); err != nil {
		t.Fatalf("first advance: %v", err)
	}
	if err := tr.Advance(domain.SourceEmail, mark); err != nil {
		t.Fatalf("equal advance should be allowed: %v", err)
	}
	if err := tr.Advance(domain.SourceEmail, mark.Add(time.Minute)); err != nil {
		t.Fatalf("forward advance: %v", err)
	}

	err := tr.Advance(domain.SourceEmail, mark)
	if !errors.Is(err, domain.ErrClockRegression) {
		t.Fatalf("expected ErrClockRegression, got %v", err)
	}
	if got := tr.Get(domain.SourceEmail); !got.Equal(mark.Add(time.Minute)) {
		t.Fatalf("watermark changed after rejected advance: %v", got)
	}
}

func TestAdvanceIsPerSource(t *testing.T) {
	t.Parallel()

	tr := newTestTracker(map[domain.SourceKind]time.Duration{
		domain.SourceTranscript: time.Hour,
	})

	if err := tr.Advance(domain.SourceEmail, fixedNow()); err != nil {
		t.Fatalf("advance: %v", err)
	}

	// Transcript watermark still governed by its lookback.
	if got := tr.Get(domain.SourceTranscript); !got.Equal(fixedNow().Add(-time.Hour)) {
		t.Fatalf("transcript watermark affected by email advance: %v", got)
	}
}
