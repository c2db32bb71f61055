// Package provider lists files available at remote data providers.
package provider

import (
	"context"
	"strings"

	"github.com/strata-ingest/granule-discovery/internal/config"
)

//go:generate mockgen -destination=mocks/mock_lister.go -package=mocks -source=types.go Lister,ListerFactory

// FileInfo describes a single file found at a provider. Size and Time are
// zero when the transport cannot report them.
type FileInfo struct {
	// Name is the file name without any directory component
	Name string `json:"name"`

	// Path is the directory the file was listed under
	Path string `json:"path"`

	// Size is the file size in bytes
	Size int64 `json:"size"`

	// Time is the file modification time in Unix milliseconds
	Time int64 `json:"time"`
}

// Lister enumerates files under a path at a remote provider.
type Lister interface {
	// List returns a descriptor for every file under the given path
	List(ctx context.Context, path string) ([]FileInfo, error)
}

// ListerFactory creates listers based on the provider protocol
type ListerFactory interface {
	// CreateLister creates a lister for the given provider
	CreateLister(ctx context.Context, p config.Provider, useList bool) (Lister, error)
}

// NormalizePath strips leading path separators so provider paths join
// cleanly regardless of how the collection spells them
func NormalizePath(path string) string {
	return strings.TrimLeft(path, "/")
}
