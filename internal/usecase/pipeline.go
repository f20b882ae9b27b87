package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"TodoScanner/internal/domain"
	"TodoScanner/internal/ports"
	"TodoScanner/internal/watermark"
)

// Pipeline runs one fetch+classify+write cycle for a single source. A cycle
// either completes through watermark advance or returns an error with the
// watermark untouched, so the next cycle refetches the same window.
type Pipeline struct {
	tracker    *watermark.Tracker
	classifier ports.Classifier
	writer     *DedupWriter
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(tracker *watermark.Tracker, classifier ports.Classifier, writer *DedupWriter, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		tracker:    tracker,
		classifier: classifier,
		writer:     writer,
		logger:     logger,
		now:        time.Now,
	}
}

// ProcessSource drives one cycle: fetch since the watermark, keep documents
// the watermark hasn't covered, classify each in fetch order, deliver, then
// advance. Parse failures are contained to their document; a model outage or
// fetch failure aborts the cycle before the advance.
func (p *Pipeline) ProcessSource(ctx context.Context, source ports.DocumentSource) error {
	kind := source.Kind()
	since := p.tracker.Get(kind)

	docs, err := source.FetchSince(ctx, since)
	if err != nil {
		return fmt.Errorf("fetch %s since %s: %w", kind, since.Format(time.RFC3339), err)
	}

	fresh := p.tracker.FilterNew(kind, docs)
	p.logger.Info("cycle fetched", "source", kind, "fetched", len(docs), "new", len(fresh))

	for _, doc := range fresh {
		items, err := p.classifier.Classify(ctx, doc)
		if err != nil {
			if errors.Is(err, domain.ErrResponseParse) {
				// Already logged with the raw reply by the classifier.
				continue
			}
			return fmt.Errorf("classify %s document %s: %w", kind, doc.OriginID, err)
		}

		if len(items) == 0 {
			p.logger.Debug("no action items", "source", kind, "origin", doc.OriginID)
			continue
		}

		p.logger.Info("action items extracted", "source", kind, "origin", doc.OriginID, "count", len(items))

		failed := 0
		for _, res := range p.writer.Write(ctx, items, provenanceLabel(doc)) {
			if res.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			// Sink failures stay per-sink: the cycle completes and the
			// watermark advances, so failed sinks miss this batch rather
			// than forcing a refetch through every healthy one.
			p.logger.Warn("delivery incomplete", "source", kind, "origin", doc.OriginID, "failed_sinks", failed)
		}
	}

	if err := p.tracker.Advance(kind, p.now().UTC()); err != nil {
		if errors.Is(err, domain.ErrClockRegression) {
			p.logger.Warn("watermark advance skipped", "source", kind, "error", err)
			return nil
		}
		return err
	}

	return nil
}

// provenanceLabel renders the section header text used by the sinks. The
// wording is part of the flat-file format and must stay stable.
func provenanceLabel(doc domain.SourceDocument) string {
	switch doc.Kind {
	case domain.SourceTranscript:
		return fmt.Sprintf("Extracted from transcript: %s [%s]",
			doc.Subject, doc.OccurredAt.Format("2006-01-02 15:04"))
	default:
		sender := doc.SenderName
		if sender == "" {
			sender = doc.Sender
		}
		return fmt.Sprintf("Extracted from email: %s - %s", sender, doc.Subject)
	}
}
