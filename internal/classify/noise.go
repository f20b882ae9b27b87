package classify

import (
	"strings"

	"TodoScanner/internal/domain"
)

// Patterns that mark a message as automated or promotional. Matched against
// both the subject and the sender address, lower-cased.
var skipPatterns = []string{
	"unsubscribe",
	"newsletter",
	"no-reply",
	"noreply",
	"notification",
	"alert@",
	"updates@",
	"marketing",
	"promo",
}

// Subject prefixes added by calendar clients to meeting responses.
var calendarPrefixes = []string{
	"accepted:",
	"declined:",
	"tentative:",
	"canceled:",
}

// NoiseFilter decides, without a model call, whether a document could carry
// an action item. Deterministic and pure.
type NoiseFilter struct {
	selfAddress string
}

// NewNoiseFilter wires the monitored identity's own address so outbound mail
// is skipped.
func NewNoiseFilter(selfAddress string) *NoiseFilter {
	return &NoiseFilter{selfAddress: strings.ToLower(strings.TrimSpace(selfAddress))}
}

// Actionable reports whether the document is worth sending to the model.
// Transcripts always pass; the heuristics target mail noise.
func (f *NoiseFilter) Actionable(doc domain.SourceDocument) bool {
	if doc.Kind != domain.SourceEmail {
		return true
	}

	subject := strings.ToLower(doc.Subject)
	sender := strings.ToLower(doc.Sender)

	if f.selfAddress != "" && sender == f.selfAddress {
		return false
	}

	for _, prefix := range calendarPrefixes {
		if strings.HasPrefix(subject, prefix) {
			return false
		}
	}

	for _, pattern := range skipPatterns {
		if strings.Contains(subject, pattern) || strings.Contains(sender, pattern) {
			return false
		}
	}

	return true
}
