package classify

import (
	"context"
	"fmt"
	"log/slog"

	"TodoScanner/internal/domain"
	"TodoScanner/internal/ports"
)

// Classifier adapts the external model service into the canonical item shape.
// It pre-filters obvious noise, builds the prompt, and parses the reply with
// the lenient parser. It never retries; the scheduler owns cycle-level retry
// policy.
type Classifier struct {
	model    ports.ModelClient
	filter   *NoiseFilter
	identity string
	logger   *slog.Logger
}

var _ ports.Classifier = (*Classifier)(nil)

// New wires the model client and noise filter. identity is the display name
// used when scanning transcripts for the monitored person.
func New(model ports.ModelClient, filter *NoiseFilter, identity string, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{model: model, filter: filter, identity: identity, logger: logger}
}

// Classify returns the action items found in one document. Transport failure
// surfaces as ErrClassifierUnavailable; a malformed reply as ErrResponseParse.
// Both yield zero items, but only the former should fail the cycle.
func (c *Classifier) Classify(ctx context.Context, doc domain.SourceDocument) ([]domain.CanonicalItem, error) {
	if c.filter != nil && !c.filter.Actionable(doc) {
		c.logger.Debug("skipped by noise filter", "origin", doc.OriginID, "subject", doc.Subject)
		return nil, nil
	}

	prompt := BuildPrompt(doc, c.identity)

	raw, err := c.model.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrClassifierUnavailable, err)
	}

	parsed, err := ParseResponse(raw)
	if err != nil {
		c.logger.Warn("model response did not parse",
			"origin", doc.OriginID, "subject", doc.Subject, "raw", raw)
		return nil, fmt.Errorf("document %s: %w", doc.OriginID, domain.ErrResponseParse)
	}

	prov := domain.Provenance{
		Kind:       doc.Kind,
		OriginID:   doc.OriginID,
		Subject:    doc.Subject,
		OccurredAt: doc.OccurredAt,
	}

	items := make([]domain.CanonicalItem, 0, len(parsed))
	for _, p := range parsed {
		item, err := domain.NewCanonicalItem(p.Action, p.Details, prov)
		if err != nil {
			continue
		}
		item.Priority = domain.ParsePriority(p.Priority)
		item.Deadline = p.Deadline
		items = append(items, item)
	}

	return items, nil
}
