package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"TodoScanner/internal/domain"
	"TodoScanner/internal/ports"
)

const transcriptLimit = 20

const transcriptsQuery = `
query RecentTranscripts($fromDate: DateTime!, $limit: Int!) {
  transcripts(fromDate: $fromDate, limit: $limit) {
    id
    title
    date
    organizer_email
    participants
    summary {
      action_items
      overview
    }
    sentences {
      text
      speaker_name
    }
  }
}`

// FirefliesFetcher pulls meeting transcripts through the Fireflies GraphQL
// API.
type FirefliesFetcher struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

var _ ports.DocumentSource = (*FirefliesFetcher)(nil)

// NewFirefliesFetcher builds a fetcher; client defaults to a 30s-timeout one.
func NewFirefliesFetcher(client *http.Client, endpoint, apiKey string) *FirefliesFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if endpoint == "" {
		endpoint = "https://api.fireflies.ai/graphql"
	}
	return &FirefliesFetcher{endpoint: endpoint, apiKey: apiKey, client: client}
}

// Kind identifies the source inside the watermark tracker.
func (f *FirefliesFetcher) Kind() domain.SourceKind {
	return domain.SourceTranscript
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

type transcriptRecord struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Date           json.RawMessage `json:"date"`
	OrganizerEmail string          `json:"organizer_email"`
	Participants   []string        `json:"participants"`
	Summary        *struct {
		ActionItems []string `json:"action_items"`
		Overview    string   `json:"overview"`
	} `json:"summary"`
	Sentences []struct {
		Text        string `json:"text"`
		SpeakerName string `json:"speaker_name"`
	} `json:"sentences"`
}

// FetchSince returns transcripts dated after the given instant.
func (f *FirefliesFetcher) FetchSince(ctx context.Context, since time.Time) ([]domain.SourceDocument, error) {
	reqBody := graphQLRequest{
		Query: transcriptsQuery,
		Variables: map[string]any{
			"fromDate": since.UTC().Format(time.RFC3339),
			"limit":    transcriptLimit,
		},
	}

	raw, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch transcripts: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fireflies returned %s", resp.Status)
	}

	var gql graphQLResponse
	if err := json.Unmarshal(body, &gql); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(gql.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %s", gql.Errors[0].Message)
	}

	var data struct {
		Transcripts []transcriptRecord `json:"transcripts"`
	}
	if err := json.Unmarshal(gql.Data, &data); err != nil {
		return nil, fmt.Errorf("decode transcripts: %w", err)
	}

	docs := make([]domain.SourceDocument, 0, len(data.Transcripts))
	for _, rec := range data.Transcripts {
		docs = append(docs, toDocument(rec))
	}
	return docs, nil
}

func toDocument(rec transcriptRecord) domain.SourceDocument {
	doc := domain.SourceDocument{
		Kind:         domain.SourceTranscript,
		OriginID:     rec.ID,
		OccurredAt:   parseTranscriptDate(rec.Date),
		Subject:      rec.Title,
		Sender:       rec.OrganizerEmail,
		Participants: rec.Participants,
	}

	if rec.Summary != nil {
		doc.SummaryItems = rec.Summary.ActionItems
		doc.Body = rec.Summary.Overview
	}

	doc.Sentences = make([]domain.Sentence, 0, len(rec.Sentences))
	for _, s := range rec.Sentences {
		doc.Sentences = append(doc.Sentences, domain.Sentence{Speaker: s.SpeakerName, Text: s.Text})
	}

	return doc
}

// parseTranscriptDate accepts either a millisecond epoch number or an ISO
// string; the API has returned both. An unreadable date maps to the zero
// time, which the watermark filter then treats as already processed.
func parseTranscriptDate(raw json.RawMessage) time.Time {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}
	}

	var millis float64
	if err := json.Unmarshal(raw, &millis); err == nil {
		return time.UnixMilli(int64(millis)).UTC()
	}

	var iso string
	if err := json.Unmarshal(raw, &iso); err == nil {
		if t, err := time.Parse(time.RFC3339, iso); err == nil {
			return t.UTC()
		}
	}

	return time.Time{}
}
