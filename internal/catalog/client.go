package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/strata-ingest/granule-discovery/internal/httpclient"
)

// defaultClient is the default implementation of Client
type defaultClient struct {
	http    httpclient.Client
	baseURL string
	tokens  TokenSource

	tokenOnce sync.Once
	token     string
	tokenErr  error
}

var _ Client = (*defaultClient)(nil)

// NewClient creates a catalog client for the given base URL. The token
// source is consulted once, before the first lookup, and the token is
// reused for the rest of the invocation.
func NewClient(client httpclient.Client, baseURL string, tokens TokenSource) Client {
	return &defaultClient{
		http:    client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		tokens:  tokens,
	}
}

// Exists reports whether the catalog holds a granule with the given ID.
// Only a definitive 404 reads as absent; any other failure is returned as
// an error so missing granules are never inferred from outages.
func (c *defaultClient) Exists(ctx context.Context, granuleID string) (bool, error) {
	if granuleID == "" {
		return false, errors.New("granule ID is empty")
	}

	token, err := c.bearerToken(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to acquire catalog token: %w", err)
	}

	lookupURL := fmt.Sprintf("%s/granules/%s", c.baseURL, url.PathEscape(granuleID))
	headers := map[string]string{"Authorization": "Bearer " + token}

	if _, err := c.http.GetWithHeaders(ctx, lookupURL, headers); err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up granule %s: %w", granuleID, err)
	}
	return true, nil
}

// bearerToken returns the invocation-scoped token, fetching it on first
// use
func (c *defaultClient) bearerToken(ctx context.Context) (string, error) {
	c.tokenOnce.Do(func() {
		c.token, c.tokenErr = c.tokens.Token(ctx)
	})
	return c.token, c.tokenErr
}
