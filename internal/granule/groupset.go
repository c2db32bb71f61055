package granule

import (
	"slices"

	"github.com/strata-ingest/granule-discovery/internal/provider"
)

// GroupSet holds files grouped by granule ID, preserving the order in
// which each ID was first seen
type GroupSet struct {
	order []string
	files map[string][]provider.FileInfo
}

// NewGroupSet creates an empty group set
func NewGroupSet() *GroupSet {
	return &GroupSet{files: make(map[string][]provider.FileInfo)}
}

// Add appends a file to the group for the given granule ID, creating the
// group on first sight
func (g *GroupSet) Add(id string, file provider.FileInfo) {
	if _, ok := g.files[id]; !ok {
		g.order = append(g.order, id)
	}
	g.files[id] = append(g.files[id], file)
}

// IDs returns the granule IDs in first-seen order
func (g *GroupSet) IDs() []string {
	return slices.Clone(g.order)
}

// Files returns the files grouped under the given granule ID
func (g *GroupSet) Files(id string) []provider.FileInfo {
	return g.files[id]
}

// Len returns the number of groups
func (g *GroupSet) Len() int {
	return len(g.order)
}

// FileCount returns the total number of grouped files
func (g *GroupSet) FileCount() int {
	count := 0
	for _, files := range g.files {
		count += len(files)
	}
	return count
}

// Restrict drops every group whose ID is not in keep. The surviving
// groups stay in first-seen order.
func (g *GroupSet) Restrict(keep []string) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}

	kept := g.order[:0]
	for _, id := range g.order {
		if _, ok := keepSet[id]; ok {
			kept = append(kept, id)
			continue
		}
		delete(g.files, id)
	}
	g.order = kept
}
