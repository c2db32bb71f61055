package provider

import (
	"context"
	"fmt"
	"net"
	"path"
	"strconv"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/strata-ingest/granule-discovery/internal/config"
)

const (
	defaultFTPPort  = 21
	defaultSFTPPort = 22

	dialTimeout = 30 * time.Second
)

// Login applied when an FTP provider carries no credentials
const (
	anonymousUser     = "anonymous"
	anonymousPassword = "password"
)

// ftpLister lists files over FTP. With useList set it issues LIST and
// reads full entries; otherwise it issues NLST and gets names only.
type ftpLister struct {
	addr    string
	creds   credentials
	useList bool
}

var _ Lister = (*ftpLister)(nil)

// NewFTPLister creates a lister that reads directory listings from an FTP
// server
func NewFTPLister(p config.Provider, creds credentials, useList bool) Lister {
	if creds.username == "" {
		creds.username = anonymousUser
		creds.password = anonymousPassword
	}
	return &ftpLister{
		addr:    hostPort(p.Host, p.Port, defaultFTPPort),
		creds:   creds,
		useList: useList,
	}
}

// List connects to the server and returns every file under dir
func (l *ftpLister) List(ctx context.Context, dir string) ([]FileInfo, error) {
	conn, err := ftp.Dial(l.addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(dialTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", l.addr, err)
	}
	defer func() { _ = conn.Quit() }()

	if err := conn.Login(l.creds.username, l.creds.password); err != nil {
		return nil, fmt.Errorf("failed to log in to %s: %w", l.addr, err)
	}

	if l.useList {
		return l.listEntries(conn, dir)
	}
	return l.listNames(conn, dir)
}

func (l *ftpLister) listEntries(conn *ftp.ServerConn, dir string) ([]FileInfo, error) {
	entries, err := conn.List(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s on %s: %w", dir, l.addr, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.Type != ftp.EntryTypeFile {
			continue
		}
		files = append(files, FileInfo{
			Name: entry.Name,
			Path: dir,
			Size: int64(entry.Size), //nolint:gosec // server-reported sizes do not overflow int64
			Time: entry.Time.UnixMilli(),
		})
	}
	return files, nil
}

func (l *ftpLister) listNames(conn *ftp.ServerConn, dir string) ([]FileInfo, error) {
	names, err := conn.NameList(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s on %s: %w", dir, l.addr, err)
	}

	files := make([]FileInfo, 0, len(names))
	for _, name := range names {
		files = append(files, FileInfo{Name: path.Base(name), Path: dir})
	}
	return files, nil
}

// hostPort joins a host with its configured port, falling back to the
// protocol default when the provider does not set one
func hostPort(host string, port, defaultPort int) string {
	if port <= 0 {
		port = defaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
