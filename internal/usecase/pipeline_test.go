package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"TodoScanner/internal/domain"
	"TodoScanner/internal/logging"
	"TodoScanner/internal/ports"
	"TodoScanner/internal/watermark"
)

type fakeSource struct {
	kind domain.SourceKind
	docs []domain.SourceDocument
	err  error
}

func (s *fakeSource) Kind() domain.SourceKind { return s.kind }

func (s *fakeSource) FetchSince(ctx context.Context, since time.Time) ([]domain.SourceDocument, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.docs, nil
}

type fakeClassifier struct {
	classify func(doc domain.SourceDocument) ([]domain.CanonicalItem, error)
}

func (c *fakeClassifier) Classify(ctx context.Context, doc domain.SourceDocument) ([]domain.CanonicalItem, error) {
	return c.classify(doc)
}

func oneItemPerDoc(doc domain.SourceDocument) ([]domain.CanonicalItem, error) {
	item, err := domain.NewCanonicalItem("Handle "+doc.OriginID, "", domain.Provenance{
		Kind:     doc.Kind,
		OriginID: doc.OriginID,
		Subject:  doc.Subject,
	})
	if err != nil {
		return nil, err
	}
	return []domain.CanonicalItem{item}, nil
}

func newPipelineUnderTest(t *testing.T, classifier ports.Classifier, sink ports.Sink) (*Pipeline, *watermark.Tracker) {
	t.Helper()
	tracker := watermark.NewTracker(nil)
	writer := NewDedupWriter([]ports.Sink{sink}, logging.New("error"))
	return NewPipeline(tracker, classifier, writer, logging.New("error")), tracker
}

func TestProcessSourceOverlappingWindows(t *testing.T) {
	t.Parallel()

	t0 := time.Now().UTC().Add(-30 * time.Minute)
	source := &fakeSource{
		kind: domain.SourceEmail,
		docs: []domain.SourceDocument{
			{Kind: domain.SourceEmail, OriginID: "a", OccurredAt: t0.Add(time.Minute)},
			{Kind: domain.SourceEmail, OriginID: "b", OccurredAt: t0.Add(2 * time.Minute)},
		},
	}

	sink := &memorySink{name: "mem"}
	p, tracker := newPipelineUnderTest(t, &fakeClassifier{classify: oneItemPerDoc}, sink)
	if err := tracker.Advance(domain.SourceEmail, t0); err != nil {
		t.Fatalf("seed watermark: %v", err)
	}

	if err := p.ProcessSource(context.Background(), source); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	if len(sink.actions) != 2 {
		t.Fatalf("first cycle wrote %d actions, want 2", len(sink.actions))
	}

	markAfterFirst := tracker.Get(domain.SourceEmail)
	if !markAfterFirst.After(t0) {
		t.Fatalf("watermark did not advance: %v", markAfterFirst)
	}

	// Same two documents come back in the overlapping fetch window.
	if err := p.ProcessSource(context.Background(), source); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if len(sink.actions) != 2 {
		t.Fatalf("second cycle wrote duplicates: %d actions", len(sink.actions))
	}
}

func TestProcessSourceFetchFailureKeepsWatermark(t *testing.T) {
	t.Parallel()

	t0 := time.Now().UTC().Add(-30 * time.Minute)
	source := &fakeSource{kind: domain.SourceEmail, err: fmt.Errorf("auth expired")}

	sink := &memorySink{name: "mem"}
	p, tracker := newPipelineUnderTest(t, &fakeClassifier{classify: oneItemPerDoc}, sink)
	if err := tracker.Advance(domain.SourceEmail, t0); err != nil {
		t.Fatalf("seed watermark: %v", err)
	}

	if err := p.ProcessSource(context.Background(), source); err == nil {
		t.Fatal("expected fetch error")
	}
	if got := tracker.Get(domain.SourceEmail); !got.Equal(t0) {
		t.Fatalf("watermark advanced on failed cycle: %v", got)
	}
}

func TestProcessSourceClassifierOutageKeepsWatermark(t *testing.T) {
	t.Parallel()

	t0 := time.Now().UTC().Add(-30 * time.Minute)
	source := &fakeSource{
		kind: domain.SourceEmail,
		docs: []domain.SourceDocument{
			{Kind: domain.SourceEmail, OriginID: "a", OccurredAt: t0.Add(time.Minute)},
		},
	}

	classifier := &fakeClassifier{classify: func(domain.SourceDocument) ([]domain.CanonicalItem, error) {
		return nil, fmt.Errorf("%w: dial tcp", domain.ErrClassifierUnavailable)
	}}

	sink := &memorySink{name: "mem"}
	p, tracker := newPipelineUnderTest(t, classifier, sink)
	if err := tracker.Advance(domain.SourceEmail, t0); err != nil {
		t.Fatalf("seed watermark: %v", err)
	}

	err := p.ProcessSource(context.Background(), source)
	if !errors.Is(err, domain.ErrClassifierUnavailable) {
		t.Fatalf("expected ErrClassifierUnavailable, got %v", err)
	}
	if got := tracker.Get(domain.SourceEmail); !got.Equal(t0) {
		t.Fatalf("watermark advanced on classifier outage: %v", got)
	}
}

func TestProcessSourceParseFailureIsDocumentLocal(t *testing.T) {
	t.Parallel()

	t0 := time.Now().UTC().Add(-30 * time.Minute)
	source := &fakeSource{
		kind: domain.SourceEmail,
		docs: []domain.SourceDocument{
			{Kind: domain.SourceEmail, OriginID: "broken", OccurredAt: t0.Add(time.Minute)},
			{Kind: domain.SourceEmail, OriginID: "fine", OccurredAt: t0.Add(2 * time.Minute)},
		},
	}

	classifier := &fakeClassifier{classify: func(doc domain.SourceDocument) ([]domain.CanonicalItem, error) {
		if doc.OriginID == "broken" {
			return nil, fmt.Errorf("document broken: %w", domain.ErrResponseParse)
		}
		return oneItemPerDoc(doc)
	}}

	sink := &memorySink{name: "mem"}
	p, tracker := newPipelineUnderTest(t, classifier, sink)
	if err := tracker.Advance(domain.SourceEmail, t0); err != nil {
		t.Fatalf("seed watermark: %v", err)
	}

	if err := p.ProcessSource(context.Background(), source); err != nil {
		t.Fatalf("cycle should survive a parse failure: %v", err)
	}
	if len(sink.actions) != 1 || sink.actions[0] != "Handle fine" {
		t.Fatalf("unexpected sink content: %v", sink.actions)
	}
	if got := tracker.Get(domain.SourceEmail); !got.After(t0) {
		t.Fatalf("watermark should advance after contained parse failure: %v", got)
	}
}

func TestProcessSourceSinkFailureDoesNotFailCycle(t *testing.T) {
	t.Parallel()

	t0 := time.Now().UTC().Add(-30 * time.Minute)
	source := &fakeSource{
		kind: domain.SourceEmail,
		docs: []domain.SourceDocument{
			{Kind: domain.SourceEmail, OriginID: "a", OccurredAt: t0.Add(time.Minute)},
		},
	}

	bad := &memorySink{name: "bad", failure: errors.New("disk full")}
	good := &memorySink{name: "good"}

	tracker := watermark.NewTracker(nil)
	writer := NewDedupWriter([]ports.Sink{bad, good}, logging.New("error"))
	p := NewPipeline(tracker, &fakeClassifier{classify: oneItemPerDoc}, writer, logging.New("error"))
	if err := tracker.Advance(domain.SourceEmail, t0); err != nil {
		t.Fatalf("seed watermark: %v", err)
	}

	if err := p.ProcessSource(context.Background(), source); err != nil {
		t.Fatalf("cycle should survive a sink failure: %v", err)
	}
	if len(good.actions) != 1 {
		t.Fatalf("healthy sink holds %d actions, want 1", len(good.actions))
	}
	if got := tracker.Get(domain.SourceEmail); !got.After(t0) {
		t.Fatalf("watermark should advance despite sink failure: %v", got)
	}
}

func TestProvenanceLabel(t *testing.T) {
	t.Parallel()

	email := domain.SourceDocument{
		Kind:       domain.SourceEmail,
		Subject:    "Budget",
		Sender:     "boss@corp.com",
		SenderName: "Boss",
	}
	if got := provenanceLabel(email); got != "Extracted from email: Boss - Budget" {
		t.Fatalf("unexpected email label: %q", got)
	}

	tr := domain.SourceDocument{
		Kind:       domain.SourceTranscript,
		Subject:    "Planning",
		OccurredAt: time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC),
	}
	if got := provenanceLabel(tr); got != "Extracted from transcript: Planning [2025-03-10 09:30]" {
		t.Fatalf("unexpected transcript label: %q", got)
	}
}
