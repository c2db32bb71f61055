package helpers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"
)

// MockCatalogServer is a fake downstream catalog API. It issues bearer
// tokens from /token and answers granule lookups from a fixed set of
// existing granule IDs, recording every request for spec assertions.
type MockCatalogServer struct {
	*httptest.Server

	token        string
	existing     map[string]struct{}
	tokenStatus  int
	lookupStatus int

	mu            sync.Mutex
	tokenRequests int
	lookups       []string
	badAuth       []string
}

// MockCatalogBuilder provides a fluent interface for building mock catalog servers
type MockCatalogBuilder struct {
	token        string
	existing     []string
	tokenStatus  int
	lookupStatus int
}

// NewMockCatalogBuilder creates a new mock catalog server builder
func NewMockCatalogBuilder() *MockCatalogBuilder {
	return &MockCatalogBuilder{token: "integration-test-token"}
}

// WithToken sets the bearer token the fake token endpoint issues
func (b *MockCatalogBuilder) WithToken(token string) *MockCatalogBuilder {
	b.token = token
	return b
}

// WithExistingGranules marks granule IDs as already present in the catalog
func (b *MockCatalogBuilder) WithExistingGranules(granuleIDs ...string) *MockCatalogBuilder {
	b.existing = append(b.existing, granuleIDs...)
	return b
}

// WithTokenFailure makes the token endpoint answer every request with the
// given HTTP status
func (b *MockCatalogBuilder) WithTokenFailure(status int) *MockCatalogBuilder {
	b.tokenStatus = status
	return b
}

// WithLookupFailure makes every granule lookup answer with the given HTTP
// status
func (b *MockCatalogBuilder) WithLookupFailure(status int) *MockCatalogBuilder {
	b.lookupStatus = status
	return b
}

// Build creates and starts the mock catalog server
func (b *MockCatalogBuilder) Build() *MockCatalogServer {
	mock := &MockCatalogServer{
		token:        b.token,
		existing:     make(map[string]struct{}, len(b.existing)),
		tokenStatus:  b.tokenStatus,
		lookupStatus: b.lookupStatus,
	}
	for _, id := range b.existing {
		mock.existing[id] = struct{}{}
	}

	router := chi.NewRouter()
	router.Post("/token", mock.handleToken)
	router.Get("/granules/{granuleID}", mock.handleLookup)

	mock.Server = httptest.NewServer(router)
	return mock
}

func (m *MockCatalogServer) handleToken(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	m.tokenRequests++
	m.mu.Unlock()

	if m.tokenStatus != 0 {
		w.WriteHeader(m.tokenStatus)
		return
	}

	if err := r.ParseForm(); err != nil || r.PostFormValue("username") == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"token":%q}`, m.token)
}

func (m *MockCatalogServer) handleLookup(w http.ResponseWriter, r *http.Request) {
	granuleID := chi.URLParam(r, "granuleID")

	m.mu.Lock()
	m.lookups = append(m.lookups, granuleID)
	if r.Header.Get("Authorization") != "Bearer "+m.token {
		m.badAuth = append(m.badAuth, granuleID)
	}
	m.mu.Unlock()

	if m.lookupStatus != 0 {
		w.WriteHeader(m.lookupStatus)
		return
	}

	if _, found := m.existing[granuleID]; !found {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"granuleId":%q,"status":"completed"}`, granuleID)
}

// TokenRequests returns how many times the token endpoint was called
func (m *MockCatalogServer) TokenRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenRequests
}

// Lookups returns the granule IDs that were looked up, in arrival order
func (m *MockCatalogServer) Lookups() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lookups...)
}

// UnauthorizedLookups returns the granule IDs of lookups that arrived
// without the expected bearer token
func (m *MockCatalogServer) UnauthorizedLookups() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.badAuth...)
}
