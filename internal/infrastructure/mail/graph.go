package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"TodoScanner/internal/domain"
	"TodoScanner/internal/ports"
)

const pageSize = 50

// GraphFetcher pulls recent messages for one mailbox through the Microsoft
// Graph REST API. The HTTP client is expected to carry OAuth credentials.
type GraphFetcher struct {
	client    *http.Client
	baseURL   string
	userEmail string
}

var _ ports.DocumentSource = (*GraphFetcher)(nil)

// NewGraphFetcher wires an authenticated HTTP client. baseURL defaults to the
// public Graph endpoint when empty.
func NewGraphFetcher(client *http.Client, baseURL, userEmail string) *GraphFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if baseURL == "" {
		baseURL = "https://graph.microsoft.com/v1.0"
	}
	return &GraphFetcher{
		client:    client,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		userEmail: userEmail,
	}
}

// Kind identifies the source inside the watermark tracker.
func (g *GraphFetcher) Kind() domain.SourceKind {
	return domain.SourceEmail
}

type graphMessage struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    struct {
		EmailAddress struct {
			Name    string `json:"name"`
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"from"`
	BodyPreview string `json:"bodyPreview"`
	Body        struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	ReceivedDateTime time.Time `json:"receivedDateTime"`
}

// FetchSince returns messages received after the given instant, newest first
// as Graph orders them.
func (g *GraphFetcher) FetchSince(ctx context.Context, since time.Time) ([]domain.SourceDocument, error) {
	endpoint := fmt.Sprintf("%s/users/%s/messages", g.baseURL, url.PathEscape(g.userEmail))

	params := url.Values{}
	params.Set("$filter", fmt.Sprintf("receivedDateTime ge %s", since.UTC().Format("2006-01-02T15:04:05Z")))
	params.Set("$select", "id,subject,from,bodyPreview,body,receivedDateTime")
	params.Set("$orderby", "receivedDateTime desc")
	params.Set("$top", fmt.Sprintf("%d", pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("graph returned %s", resp.Status)
	}

	var payload struct {
		Value []graphMessage `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	docs := make([]domain.SourceDocument, 0, len(payload.Value))
	for _, msg := range payload.Value {
		docs = append(docs, domain.SourceDocument{
			Kind:       domain.SourceEmail,
			OriginID:   msg.ID,
			OccurredAt: msg.ReceivedDateTime,
			Subject:    msg.Subject,
			Body:       messageBody(msg),
			Sender:     msg.From.EmailAddress.Address,
			SenderName: msg.From.EmailAddress.Name,
		})
	}

	return docs, nil
}

func messageBody(msg graphMessage) string {
	content := msg.Body.Content
	if content == "" {
		return msg.BodyPreview
	}
	if strings.EqualFold(msg.Body.ContentType, "html") {
		return stripHTML(content)
	}
	return content
}

// stripHTML reduces an HTML body to its visible text. On parse failure the
// raw markup is passed through rather than dropped.
func stripHTML(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return markup
	}
	doc.Find("script,style").Remove()
	return strings.TrimSpace(doc.Text())
}
