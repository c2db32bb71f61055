package provider

import (
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-ingest/granule-discovery/internal/config"
	"github.com/strata-ingest/granule-discovery/internal/httpclient"
)

const indexPage = `<!DOCTYPE html>
<html>
<head><title>Index of /granules</title></head>
<body>
<h1>Index of /granules</h1>
<table>
<tr><th><a href="?C=N;O=D">Name</a></th><th><a href="?C=M;O=A">Last modified</a></th></tr>
<tr><td><a href="/granules/">Parent Directory</a></td></tr>
<tr><td><a href="MOD09GQ.A2017025.h21v00.006.2017034065104.hdf">MOD09GQ.A2017025.h21v00.006.2017034065104.hdf</a></td></tr>
<tr><td><a href="MOD09GQ.A2017025.h21v00.006.2017034065104.hdf.met">MOD09GQ.A2017025.h21v00.006.2017034065104.hdf.met</a></td></tr>
<tr><td><a href="MOD09GQ.A2017025.h21v00.006.2017034065104.hdf">duplicate link</a></td></tr>
<tr><td><a href="browse/">browse/</a></td></tr>
<tr><td><a href="https://mirror.example.com/MOD09GQ.tar">mirror</a></td></tr>
<tr><td><a href="#bottom">jump</a></td></tr>
</table>
</body>
</html>`

// newTestServer creates a new test server with keep-alives disabled.
// This prevents flaky tests when running in parallel, as closing a server
// with keep-alives enabled can affect other tests sharing the HTTP transport.
func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

// serverProvider converts a test server address into provider settings
func serverProvider(t *testing.T, server *httptest.Server) config.Provider {
	t.Helper()

	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)
	host, portStr, err := net.SplitHostPort(parsed.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return config.Provider{Protocol: config.ProtocolHTTP, Host: host, Port: port}
}

func TestHTTPLister_List(t *testing.T) {
	t.Parallel()

	var gotPath string
	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(indexPage))
	}))
	defer server.Close()

	lister := NewHTTPLister(httpclient.NewDefaultClient(0), serverProvider(t, server), credentials{})

	files, err := lister.List(t.Context(), "granules/MOD09GQ")
	require.NoError(t, err)

	assert.Equal(t, "/granules/MOD09GQ/", gotPath)
	assert.Equal(t, []FileInfo{
		{Name: "MOD09GQ.A2017025.h21v00.006.2017034065104.hdf", Path: "granules/MOD09GQ"},
		{Name: "MOD09GQ.A2017025.h21v00.006.2017034065104.hdf.met", Path: "granules/MOD09GQ"},
	}, files)
}

func TestHTTPLister_List_RootPath(t *testing.T) {
	t.Parallel()

	var gotPath string
	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`<a href="data.txt">data.txt</a>`))
	}))
	defer server.Close()

	lister := NewHTTPLister(httpclient.NewDefaultClient(0), serverProvider(t, server), credentials{})

	files, err := lister.List(t.Context(), "")
	require.NoError(t, err)

	assert.Equal(t, "/", gotPath)
	assert.Equal(t, []FileInfo{{Name: "data.txt", Path: ""}}, files)
}

func TestHTTPLister_List_BasicAuth(t *testing.T) {
	t.Parallel()

	var gotUser, gotPass string
	var gotOK bool
	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotOK = r.BasicAuth()
		_, _ = w.Write([]byte(`<a href="data.txt">data.txt</a>`))
	}))
	defer server.Close()

	lister := NewHTTPLister(httpclient.NewDefaultClient(0), serverProvider(t, server),
		credentials{username: "jdoe", password: "hunter2"})

	_, err := lister.List(t.Context(), "")
	require.NoError(t, err)

	assert.True(t, gotOK)
	assert.Equal(t, "jdoe", gotUser)
	assert.Equal(t, "hunter2", gotPass)
}

func TestHTTPLister_List_ServerError(t *testing.T) {
	t.Parallel()

	server := newTestServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	lister := NewHTTPLister(httpclient.NewDefaultClient(0), serverProvider(t, server), credentials{})

	files, err := lister.List(t.Context(), "restricted")
	assert.Error(t, err)
	assert.Nil(t, files)
	assert.Contains(t, err.Error(), "failed to fetch listing")

	var httpErr *httpclient.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
}

func TestLinkFileName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		href string
		want string
	}{
		{
			name: "plain file name",
			href: "granule.hdf",
			want: "granule.hdf",
		},
		{
			name: "percent-encoded name is decoded",
			href: "granule%202017.hdf",
			want: "granule 2017.hdf",
		},
		{
			name: "empty href",
			href: "",
			want: "",
		},
		{
			name: "directory link",
			href: "browse/",
			want: "",
		},
		{
			name: "parent directory link",
			href: "/granules/",
			want: "",
		},
		{
			name: "absolute link",
			href: "https://mirror.example.com/granule.hdf",
			want: "",
		},
		{
			name: "sort order query link",
			href: "?C=N;O=D",
			want: "",
		},
		{
			name: "fragment link",
			href: "#top",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, linkFileName(tt.href))
		})
	}
}
