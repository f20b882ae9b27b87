package transcript

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"TodoScanner/internal/domain"
)

func TestFetchSinceMapsTranscripts(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotVars map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var req struct {
			Variables map[string]any `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotVars = req.Variables

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
		  "data": {
		    "transcripts": [
		      {
		        "id": "tr-1",
		        "title": "Planning",
		        "date": 1741597200000,
		        "organizer_email": "organizer@corp.com",
		        "participants": ["alice@corp.com", "dylan@example.com"],
		        "summary": {"action_items": ["Dylan to draft the plan"], "overview": "Planned Q2."},
		        "sentences": [{"text": "Dylan, can you own this?", "speaker_name": "Alice"}]
		      },
		      {
		        "id": "tr-2",
		        "title": "Retro",
		        "date": "2025-03-10T10:00:00Z",
		        "organizer_email": "organizer@corp.com",
		        "participants": [],
		        "summary": null,
		        "sentences": []
		      }
		    ]
		  }
		}`))
	}))
	defer srv.Close()

	f := NewFirefliesFetcher(srv.Client(), srv.URL, "ff-key")

	since := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	docs, err := f.FetchSince(context.Background(), since)
	if err != nil {
		t.Fatalf("FetchSince: %v", err)
	}

	if gotAuth != "Bearer ff-key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotVars["fromDate"] != "2025-03-10T09:00:00Z" {
		t.Fatalf("unexpected fromDate variable: %v", gotVars["fromDate"])
	}

	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}

	first := docs[0]
	if first.Kind != domain.SourceTranscript || first.OriginID != "tr-1" {
		t.Fatalf("unexpected document identity: %+v", first)
	}
	if !first.OccurredAt.Equal(time.UnixMilli(1741597200000).UTC()) {
		t.Fatalf("millisecond epoch date mishandled: %v", first.OccurredAt)
	}
	if len(first.SummaryItems) != 1 || first.Body != "Planned Q2." {
		t.Fatalf("summary not mapped: %+v", first)
	}
	if len(first.Sentences) != 1 || first.Sentences[0].Speaker != "Alice" {
		t.Fatalf("sentences not mapped: %+v", first.Sentences)
	}

	second := docs[1]
	if !second.OccurredAt.Equal(time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("ISO date mishandled: %v", second.OccurredAt)
	}
	if second.Body != "" || len(second.SummaryItems) != 0 {
		t.Fatalf("nil summary should map to empty fields: %+v", second)
	}
}

func TestFetchSinceGraphQLError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data": null, "errors": [{"message": "rate limited"}]}`))
	}))
	defer srv.Close()

	f := NewFirefliesFetcher(srv.Client(), srv.URL, "ff-key")
	if _, err := f.FetchSince(context.Background(), time.Now()); err == nil {
		t.Fatal("expected graphql error to surface")
	}
}

func TestParseTranscriptDate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want time.Time
	}{
		{name: "millisecond epoch", raw: "1741597200000", want: time.UnixMilli(1741597200000).UTC()},
		{name: "iso string", raw: `"2025-03-10T10:00:00Z"`, want: time.Date(2025, time.March, 10, 10, 0, 0, 0, time.UTC)},
		{name: "garbage string", raw: `"yesterday"`, want: time.Time{}},
		{name: "empty", raw: "", want: time.Time{}},
		{name: "null", raw: "null", want: time.Time{}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := parseTranscriptDate(json.RawMessage(tc.raw))
			if !got.Equal(tc.want) {
				t.Fatalf("parseTranscriptDate(%s) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}
