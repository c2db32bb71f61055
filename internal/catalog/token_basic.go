package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/cenkalti/backoff/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/strata-ingest/granule-discovery/internal/httpclient"
	"github.com/strata-ingest/granule-discovery/internal/secrets"
)

// tokenFetchMaxTries bounds the retries against a flapping token endpoint
const tokenFetchMaxTries = 4

// basicTokenSource obtains a bearer token from the catalog token endpoint
// using a username and password
type basicTokenSource struct {
	http      httpclient.Client
	tokenURL  string
	provider  string
	username  string
	password  string
	decrypter secrets.Decrypter

	decryptOnce sync.Once
	plaintext   string
	decryptErr  error
}

var _ TokenSource = (*basicTokenSource)(nil)

// NewBasicTokenSource creates a token source that posts the given login
// to the token endpoint. When a decrypter is supplied the password is
// treated as ciphertext and resolved on first use.
func NewBasicTokenSource(client httpclient.Client, tokenURL, provider, username, password string, decrypter secrets.Decrypter) TokenSource {
	return &basicTokenSource{
		http:      client,
		tokenURL:  tokenURL,
		provider:  provider,
		username:  username,
		password:  password,
		decrypter: decrypter,
	}
}

// Token posts the login to the token endpoint and returns the bearer
// token it issues
func (s *basicTokenSource) Token(ctx context.Context) (string, error) {
	password, err := s.resolvePassword(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve catalog password: %w", err)
	}

	form := url.Values{}
	form.Set("username", s.username)
	form.Set("password", password)
	if s.provider != "" {
		form.Set("provider", s.provider)
	}

	body, err := postFormWithRetry(ctx, s.http, s.tokenURL, form)
	if err != nil {
		return "", fmt.Errorf("failed to fetch token from %s: %w", s.tokenURL, err)
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse token response from %s: %w", s.tokenURL, err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("token endpoint %s returned no token", s.tokenURL)
	}

	logTokenExpiry(ctx, resp.Token)
	return resp.Token, nil
}

// resolvePassword returns the password, decrypting it on first use when a
// decrypter is configured
func (s *basicTokenSource) resolvePassword(ctx context.Context) (string, error) {
	if s.decrypter == nil {
		return s.password, nil
	}
	s.decryptOnce.Do(func() {
		s.plaintext, s.decryptErr = s.decrypter.Decrypt(ctx, s.password)
	})
	return s.plaintext, s.decryptErr
}

// postFormWithRetry posts the form, retrying transport failures and 5xx
// responses with exponential backoff. 4xx responses are permanent.
func postFormWithRetry(ctx context.Context, client httpclient.Client, postURL string, form url.Values) ([]byte, error) {
	operation := func() ([]byte, error) {
		body, err := client.PostForm(ctx, postURL, form, nil)
		if err != nil {
			var httpErr *httpclient.HTTPError
			if errors.As(err, &httpErr) && httpErr.StatusCode < http.StatusInternalServerError {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return body, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(tokenFetchMaxTries))
}

// logTokenExpiry surfaces the token expiry at debug level. The token is
// parsed without verification and non-JWT tokens are fine.
func logTokenExpiry(ctx context.Context, token string) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return
	}
	expiry, err := parsed.Claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return
	}
	slog.DebugContext(ctx, "Catalog token acquired", "expires", expiry.Time)
}
