package provider

import (
	"context"
	"fmt"

	"github.com/strata-ingest/granule-discovery/internal/config"
	"github.com/strata-ingest/granule-discovery/internal/httpclient"
	"github.com/strata-ingest/granule-discovery/internal/secrets"
)

// credentials carries the resolved login for a provider connection
type credentials struct {
	username string
	password string
}

// defaultListerFactory is the default implementation of ListerFactory
type defaultListerFactory struct {
	decrypter secrets.Decrypter
	http      httpclient.Client
}

var _ ListerFactory = (*defaultListerFactory)(nil)

// NewListerFactory creates a new lister factory. The decrypter resolves
// encrypted provider credentials and may be nil when no provider carries
// them.
func NewListerFactory(decrypter secrets.Decrypter, http httpclient.Client) ListerFactory {
	return &defaultListerFactory{decrypter: decrypter, http: http}
}

// CreateLister creates a lister for the given provider
func (f *defaultListerFactory) CreateLister(ctx context.Context, p config.Provider, useList bool) (Lister, error) {
	creds, err := f.resolveCredentials(ctx, p)
	if err != nil {
		return nil, err
	}

	switch p.Protocol {
	case config.ProtocolS3:
		return NewS3Lister(ctx, p.Host)
	case config.ProtocolHTTP, config.ProtocolHTTPS:
		return NewHTTPLister(f.http, p, creds), nil
	case config.ProtocolFTP:
		return NewFTPLister(p, creds, useList), nil
	case config.ProtocolSFTP:
		return NewSFTPLister(p, creds), nil
	default:
		return nil, fmt.Errorf("unsupported provider protocol: %s", p.Protocol)
	}
}

// resolveCredentials returns the provider login, decrypting both fields
// when the provider marks them as encrypted
func (f *defaultListerFactory) resolveCredentials(ctx context.Context, p config.Provider) (credentials, error) {
	creds := credentials{username: p.Username, password: p.Password}
	if !p.Encrypted {
		return creds, nil
	}
	if f.decrypter == nil {
		return credentials{}, fmt.Errorf("provider %s has encrypted credentials but no decrypter is configured", p.ID)
	}

	if creds.username != "" {
		username, err := f.decrypter.Decrypt(ctx, creds.username)
		if err != nil {
			return credentials{}, fmt.Errorf("failed to decrypt username for provider %s: %w", p.ID, err)
		}
		creds.username = username
	}
	if creds.password != "" {
		password, err := f.decrypter.Decrypt(ctx, creds.password)
		if err != nil {
			return credentials{}, fmt.Errorf("failed to decrypt password for provider %s: %w", p.ID, err)
		}
		creds.password = password
	}
	return creds, nil
}
