package graphauth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"TodoScanner/internal/config"
)

const scope = "https://graph.microsoft.com/.default"

const requestTimeout = 30 * time.Second

// NewClient returns an HTTP client that authenticates against Microsoft Graph
// with the OAuth client-credentials flow. Tokens are acquired and refreshed
// transparently by the oauth2 transport; the context bounds token requests.
// Every request carries a 30s timeout so a stalled Graph call cannot block
// the polling loop.
func NewClient(ctx context.Context, cfg config.GraphConfig) *http.Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.TenantID),
		Scopes:       []string{scope},
	}

	client := cc.Client(ctx)
	client.Timeout = requestTimeout
	return client
}
