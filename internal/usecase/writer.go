package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"TodoScanner/internal/domain"
	"TodoScanner/internal/ports"
)

// SinkResult is the per-sink outcome of one batch delivery.
type SinkResult struct {
	Sink    string
	Written int
	Err     error
}

// DedupWriter fans a batch out to every configured sink. Sinks implementing
// ports.DuplicateChecker get normalized-action filtering against their
// current content; append-only sinks receive the batch unfiltered. One sink
// failing never blocks the others.
type DedupWriter struct {
	sinks  []ports.Sink
	logger *slog.Logger
}

// NewDedupWriter wires the destination set.
func NewDedupWriter(sinks []ports.Sink, logger *slog.Logger) *DedupWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DedupWriter{sinks: sinks, logger: logger}
}

// Write delivers items under a provenance label and reports every sink's
// outcome. Errors are collected, not raised; the caller inspects results.
func (w *DedupWriter) Write(ctx context.Context, items []domain.CanonicalItem, label string) []SinkResult {
	results := make([]SinkResult, 0, len(w.sinks))

	for _, sink := range w.sinks {
		result := w.writeOne(ctx, sink, items, label)
		results = append(results, result)

		if result.Err != nil {
			w.logger.Error("sink write failed", "sink", result.Sink, "error", result.Err)
		} else {
			w.logger.Info("sink write complete", "sink", result.Sink, "written", result.Written, "offered", len(items))
		}
	}

	return results
}

func (w *DedupWriter) writeOne(ctx context.Context, sink ports.Sink, items []domain.CanonicalItem, label string) SinkResult {
	result := SinkResult{Sink: sink.Name()}

	batch := items
	if checker, ok := sink.(ports.DuplicateChecker); ok {
		existing, err := checker.ExistingActions(ctx)
		if err != nil {
			result.Err = fmt.Errorf("load existing content: %w", err)
			return result
		}

		seen := make(map[string]struct{}, len(existing))
		for _, action := range existing {
			seen[domain.NormalizeAction(action)] = struct{}{}
		}

		deduped := make([]domain.CanonicalItem, 0, len(items))
		for _, item := range items {
			key := domain.NormalizeAction(item.Action)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			deduped = append(deduped, item)
		}
		batch = deduped
	}

	if len(batch) == 0 {
		return result
	}

	if err := sink.Write(ctx, batch, label); err != nil {
		result.Err = err
		return result
	}

	result.Written = len(batch)
	return result
}
