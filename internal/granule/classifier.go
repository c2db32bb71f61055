package granule

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/strata-ingest/granule-discovery/internal/config"
	"github.com/strata-ingest/granule-discovery/internal/provider"
)

// Classifier assigns provider files to granules
type Classifier interface {
	// Classify groups files by the granule ID their names yield under the
	// extraction pattern. Files whose names do not match are excluded.
	Classify(ctx context.Context, pattern *regexp.Regexp, files []provider.FileInfo) (*GroupSet, error)
}

// defaultClassifier is the default implementation of Classifier
type defaultClassifier struct{}

var _ Classifier = (*defaultClassifier)(nil)

// NewDefaultClassifier creates a new classifier
func NewDefaultClassifier() Classifier {
	return &defaultClassifier{}
}

// Classify groups files by granule ID. The granule ID is the first
// capture group of the pattern applied to the file name.
func (*defaultClassifier) Classify(
	ctx context.Context, pattern *regexp.Regexp, files []provider.FileInfo,
) (*GroupSet, error) {
	if pattern == nil {
		return nil, fmt.Errorf("%w: granule ID extraction pattern is not compiled", config.ErrInvalidConfiguration)
	}
	if pattern.NumSubexp() < 1 {
		return nil, fmt.Errorf("%w: granule ID extraction pattern %q has no capture group",
			config.ErrInvalidConfiguration, pattern.String())
	}

	set := NewGroupSet()
	for _, file := range files {
		match := pattern.FindStringSubmatch(file.Name)
		if match == nil {
			slog.DebugContext(ctx, "File name does not match the granule ID pattern", "file", file.Name)
			continue
		}
		if match[1] == "" {
			slog.DebugContext(ctx, "File name yields an empty granule ID", "file", file.Name)
			continue
		}
		set.Add(match[1], file)
	}
	return set, nil
}
