package helpers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"

	"github.com/onsi/gomega"
)

// MockProviderServer serves directory index pages the way an Apache or
// nginx file listing does, so the HTTP lister can scrape it
type MockProviderServer struct {
	*httptest.Server
}

// MockProviderBuilder provides a fluent interface for building mock provider servers
type MockProviderBuilder struct {
	listings map[string][]string
	username string
	password string
}

// NewMockProviderBuilder creates a new mock provider server builder
func NewMockProviderBuilder() *MockProviderBuilder {
	return &MockProviderBuilder{listings: make(map[string][]string)}
}

// WithListing serves an index page for dir containing one link per file name
func (b *MockProviderBuilder) WithListing(dir string, names ...string) *MockProviderBuilder {
	b.listings[strings.Trim(dir, "/")] = names
	return b
}

// WithBasicAuth requires HTTP basic auth on every listing request
func (b *MockProviderBuilder) WithBasicAuth(username, password string) *MockProviderBuilder {
	b.username = username
	b.password = password
	return b
}

// Build creates and starts the mock provider server
func (b *MockProviderBuilder) Build() *MockProviderServer {
	mux := http.NewServeMux()
	for dir, names := range b.listings {
		var page strings.Builder
		page.WriteString("<html><body><pre>\n")
		for _, name := range names {
			fmt.Fprintf(&page, "<a href=%q>%s</a>\n", name, name)
		}
		page.WriteString("</pre></body></html>\n")

		index := page.String()
		mux.HandleFunc("/"+dir+"/", func(w http.ResponseWriter, r *http.Request) {
			if b.username != "" {
				username, password, ok := r.BasicAuth()
				if !ok || username != b.username || password != b.password {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
			}
			fmt.Fprint(w, index)
		})
	}

	return &MockProviderServer{Server: httptest.NewServer(mux)}
}

// Host returns the server host for payload provider blocks
func (m *MockProviderServer) Host() string {
	parsed, err := url.Parse(m.URL)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return parsed.Hostname()
}

// Port returns the server port for payload provider blocks
func (m *MockProviderServer) Port() int {
	parsed, err := url.Parse(m.URL)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	port, err := strconv.Atoi(parsed.Port())
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return port
}
