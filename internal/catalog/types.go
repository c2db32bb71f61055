// Package catalog looks up granules in the downstream catalog API.
package catalog

import "context"

//go:generate mockgen -destination=mocks/mock_catalog.go -package=mocks -source=types.go Client,TokenSource

// Client answers whether a granule is already present in the catalog
type Client interface {
	// Exists reports whether the catalog holds a granule with the given ID
	Exists(ctx context.Context, granuleID string) (bool, error)
}

// TokenSource produces bearer tokens for catalog requests
type TokenSource interface {
	// Token returns a token accepted by the catalog API
	Token(ctx context.Context) (string, error)
}
