package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"TodoScanner/internal/domain"
)

// Transcripts longer than this many sentences get the compact prompt built
// from the summary and identity mentions only.
const longTranscriptSentences = 500

const maxExcerpts = 20
const maxExcerptsCompact = 30

const outputInstructions = `Return either a JSON object of the form
{"action_items": [{"action": "...", "details": "...", "priority": "Low|Medium|High", "deadline": "..."}]}
or the single word NO_TODOS if there is nothing actionable.`

// BuildPrompt renders the model request for a document. Email prompts come in
// two framings (known sender vs. unknown/forwarded origin); both demand the
// same output schema. The identity name personalizes transcript analysis.
func BuildPrompt(doc domain.SourceDocument, identity string) string {
	if doc.Kind == domain.SourceTranscript {
		return buildTranscriptPrompt(doc, identity)
	}
	return buildEmailPrompt(doc)
}

func buildEmailPrompt(doc domain.SourceDocument) string {
	var b strings.Builder

	b.WriteString("Analyze this email and extract any action items specifically assigned to or directed at the recipient (me).\n\n")

	if doc.Sender != "" {
		fmt.Fprintf(&b, "Email Details:\nFrom: %s <%s>\nSubject: %s\n\n", doc.SenderName, doc.Sender, doc.Subject)
	} else {
		// Forwarded or otherwise origin-less message: same schema, different framing.
		fmt.Fprintf(&b, "Email Details (original sender unknown, likely forwarded):\nSubject: %s\n\n", doc.Subject)
		b.WriteString("Treat the content as addressed to me even though the sender cannot be verified.\n\n")
	}

	fmt.Fprintf(&b, "Email Body:\n%s\n\n", doc.Body)

	b.WriteString("Instructions:\n")
	b.WriteString("- If the body quotes an earlier thread, consider only the most recent message\n")
	b.WriteString("- Only extract significant, non-trivial asks that require me to do something\n")
	b.WriteString("- Ignore items where I'm clearly not the target (CC'd, group blasts)\n")
	b.WriteString("- Phrase each action as a clear, actionable statement with relevant context or deadlines\n\n")
	b.WriteString(outputInstructions)

	return b.String()
}

func buildTranscriptPrompt(doc domain.SourceDocument, identity string) string {
	excerpts := identityExcerpts(doc.Sentences, identity)
	compact := len(doc.Sentences) > longTranscriptSentences

	limit := maxExcerpts
	if compact {
		limit = maxExcerptsCompact
	}
	if len(excerpts) > limit {
		excerpts = excerpts[:limit]
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Analyze this meeting transcript and extract any action items specifically assigned to %s (me).\n\n", identity)
	fmt.Fprintf(&b, "Meeting Details:\nTitle: %s\nDate: %s\nOrganizer: %s\n\n",
		doc.Subject, doc.OccurredAt.Format("2006-01-02 15:04"), doc.Sender)

	b.WriteString("Existing Action Items from Summary:\n")
	b.WriteString(jsonBlock(doc.SummaryItems))
	b.WriteString("\n\n")

	if compact {
		fmt.Fprintf(&b, "%s-related excerpts (found %d mentions):\n", identity, len(excerpts))
	} else {
		fmt.Fprintf(&b, "%s-related excerpts from transcript:\n", identity)
	}
	if len(excerpts) == 0 {
		fmt.Fprintf(&b, "No %s mentions found", identity)
	} else {
		b.WriteString(jsonBlock(excerpts))
	}
	b.WriteString("\n\n")

	b.WriteString("Instructions:\n")
	fmt.Fprintf(&b, "- Only extract action items %s specifically needs to do\n", identity)
	if !compact {
		fmt.Fprintf(&b, "- Look for phrases like \"%s will...\", \"%s can you...\", \"@%s\"\n", identity, identity, identity)
		b.WriteString("- Include follow-ups, commitments, or tasks agreed to, even when the name is only implied\n")
		b.WriteString("- Ignore general discussion or questions asked without commitments\n")
	}
	b.WriteString("- Phrase each action as a clear, actionable statement with relevant context or deadlines\n\n")
	b.WriteString(outputInstructions)

	return b.String()
}

type excerpt struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

func identityExcerpts(sentences []domain.Sentence, identity string) []excerpt {
	needle := strings.ToLower(identity)

	var out []excerpt
	for _, s := range sentences {
		if strings.Contains(strings.ToLower(s.Text), needle) ||
			strings.Contains(strings.ToLower(s.Speaker), needle) {
			out = append(out, excerpt{Speaker: s.Speaker, Text: s.Text})
		}
	}
	return out
}

func jsonBlock(v any) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(raw)
}
