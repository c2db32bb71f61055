package provider

import (
	"context"
	"fmt"
	"net"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/strata-ingest/granule-discovery/internal/config"
)

// sftpLister lists files over SFTP using password authentication
type sftpLister struct {
	addr  string
	creds credentials
}

var _ Lister = (*sftpLister)(nil)

// NewSFTPLister creates a lister that reads directory listings from an
// SFTP server
func NewSFTPLister(p config.Provider, creds credentials) Lister {
	return &sftpLister{
		addr:  hostPort(p.Host, p.Port, defaultSFTPPort),
		creds: creds,
	}
}

// List connects to the server and returns every regular file under dir
func (l *sftpLister) List(ctx context.Context, dir string) ([]FileInfo, error) {
	sshConfig := &ssh.ClientConfig{
		User:            l.creds.username,
		Auth:            []ssh.AuthMethod{ssh.Password(l.creds.password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // provider hosts are configured out of band
		Timeout:         dialTimeout,
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	netConn, err := dialer.DialContext(ctx, "tcp", l.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", l.addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, l.addr, sshConfig)
	if err != nil {
		_ = netConn.Close()
		return nil, fmt.Errorf("failed to establish SSH connection to %s: %w", l.addr, err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)
	defer func() { _ = sshClient.Close() }()

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return nil, fmt.Errorf("failed to open SFTP session on %s: %w", l.addr, err)
	}
	defer func() { _ = client.Close() }()

	listDir := dir
	if listDir == "" {
		listDir = "."
	}
	entries, err := client.ReadDir(listDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s on %s: %w", listDir, l.addr, err)
	}

	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, FileInfo{
			Name: entry.Name(),
			Path: dir,
			Size: entry.Size(),
			Time: entry.ModTime().UnixMilli(),
		})
	}
	return files, nil
}
