package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/strata-ingest/granule-discovery/internal/config"
	"github.com/strata-ingest/granule-discovery/internal/httpclient"
)

// httpLister lists files by scraping anchor links from a provider index
// page, the format served by Apache and nginx directory listings
type httpLister struct {
	client  httpclient.Client
	baseURL string
	creds   credentials
}

var _ Lister = (*httpLister)(nil)

// NewHTTPLister creates a lister that reads directory index pages served
// by the provider over HTTP or HTTPS
func NewHTTPLister(client httpclient.Client, p config.Provider, creds credentials) Lister {
	host := p.Host
	if p.Port > 0 {
		host = net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	}
	return &httpLister{
		client:  client,
		baseURL: fmt.Sprintf("%s://%s", p.Protocol, host),
		creds:   creds,
	}
}

// List fetches the index page for dir and returns one descriptor per file
// link. Index pages carry no size or time information.
func (l *httpLister) List(ctx context.Context, dir string) ([]FileInfo, error) {
	listURL := l.baseURL + "/"
	if dir != "" {
		listURL += dir + "/"
	}

	var headers map[string]string
	if l.creds.username != "" {
		basic := base64.StdEncoding.EncodeToString([]byte(l.creds.username + ":" + l.creds.password))
		headers = map[string]string{"Authorization": "Basic " + basic}
	}

	body, err := l.client.GetWithHeaders(ctx, listURL, headers)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing at %s: %w", listURL, err)
	}
	return parseListing(body, dir, listURL)
}

// parseListing extracts file names from the anchor tags of an HTML index
// page
func parseListing(page []byte, dir, listURL string) ([]FileInfo, error) {
	tokenizer := html.NewTokenizer(bytes.NewReader(page))
	var files []FileInfo
	seen := make(map[string]struct{})

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if errors.Is(tokenizer.Err(), io.EOF) {
				return files, nil
			}
			return nil, fmt.Errorf("failed to parse listing at %s: %w", listURL, tokenizer.Err())
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.DataAtom != atom.A {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key != "href" {
					continue
				}
				name := linkFileName(attr.Val)
				if name == "" {
					continue
				}
				if _, ok := seen[name]; ok {
					continue
				}
				seen[name] = struct{}{}
				files = append(files, FileInfo{Name: name, Path: dir})
			}
		}
	}
}

// linkFileName extracts a plain file name from an anchor href. Directory
// links, absolute links, and links carrying a query or fragment are not
// files and yield an empty name.
func linkFileName(href string) string {
	if href == "" || strings.Contains(href, "://") || strings.ContainsAny(href, "/?#") {
		return ""
	}
	name, err := url.PathUnescape(href)
	if err != nil {
		return href
	}
	return name
}
