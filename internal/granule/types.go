// Package granule groups provider files into granules and applies
// collection file rules to them.
package granule

import (
	"github.com/strata-ingest/granule-discovery/internal/provider"
)

// File is a provider file annotated with the destination resolved from
// its matching collection file rule
type File struct {
	provider.FileInfo

	// Bucket is the destination bucket named by the matching rule
	Bucket string `json:"bucket,omitempty"`

	// URLPath is the destination prefix for the file
	URLPath string `json:"url_path,omitempty"`

	// Type is the file type named by the matching rule
	Type string `json:"type,omitempty"`
}

// Granule is the set of files sharing one granule ID
type Granule struct {
	// GranuleID is the identifier extracted from the file names
	GranuleID string `json:"granuleId"`

	// DataType identifies the collection the granule belongs to
	DataType string `json:"dataType"`

	// Version is the collection version
	Version string `json:"version"`

	// Files are the granule's files in discovery order
	Files []File `json:"files"`
}
