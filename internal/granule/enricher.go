package granule

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/strata-ingest/granule-discovery/internal/config"
	"github.com/strata-ingest/granule-discovery/internal/provider"
)

// Enricher applies collection file rules to grouped files
type Enricher interface {
	// BuildGranule assembles the granule for id. Each file gets the
	// destination of the first rule matching its name; files no rule
	// matches are dropped. The returned count is the number dropped.
	BuildGranule(ctx context.Context, id string, files []provider.FileInfo) (Granule, int)
}

// compiledRule pairs a file rule pattern with its resolved destination
type compiledRule struct {
	pattern  *regexp.Regexp
	bucket   string
	urlPath  string
	fileType string
}

// defaultEnricher is the default implementation of Enricher
type defaultEnricher struct {
	dataType    string
	version     string
	urlPath     string
	rules       []compiledRule
	passthrough bool
}

var _ Enricher = (*defaultEnricher)(nil)

// NewEnricher creates an enricher for the given task configuration. The
// configuration must already be validated so rule patterns are compiled
// and bucket keys resolve.
func NewEnricher(cfg *config.TaskConfig) (Enricher, error) {
	enricher := &defaultEnricher{
		dataType:    cfg.Collection.GetDataType(),
		version:     cfg.Collection.Version,
		urlPath:     cfg.Collection.URLPath,
		passthrough: cfg.IgnoreFilesConfig(),
	}

	for i := range cfg.Collection.Files {
		rule := &cfg.Collection.Files[i]
		pattern := rule.Pattern()
		if pattern == nil {
			return nil, fmt.Errorf("%w: collection.files[%d] pattern is not compiled",
				config.ErrInvalidConfiguration, i)
		}
		bucket, ok := cfg.Buckets[rule.Bucket]
		if !ok {
			return nil, fmt.Errorf("%w: collection.files[%d] references undefined bucket %q",
				config.ErrInvalidConfiguration, i, rule.Bucket)
		}
		enricher.rules = append(enricher.rules, compiledRule{
			pattern:  pattern,
			bucket:   bucket.Name,
			urlPath:  rule.URLPath,
			fileType: rule.Type,
		})
	}
	return enricher, nil
}

// BuildGranule assembles the granule for id from its grouped files
func (e *defaultEnricher) BuildGranule(ctx context.Context, id string, files []provider.FileInfo) (Granule, int) {
	g := Granule{
		GranuleID: id,
		DataType:  e.dataType,
		Version:   e.version,
		Files:     make([]File, 0, len(files)),
	}

	if e.passthrough {
		for _, info := range files {
			g.Files = append(g.Files, File{FileInfo: info})
		}
		return g, 0
	}

	dropped := 0
	for _, info := range files {
		rule, ok := e.matchRule(info.Name)
		if !ok {
			slog.DebugContext(ctx, "File matches no collection file rule", "granule", id, "file", info.Name)
			dropped++
			continue
		}
		urlPath := rule.urlPath
		if urlPath == "" {
			urlPath = e.urlPath
		}
		g.Files = append(g.Files, File{
			FileInfo: info,
			Bucket:   rule.bucket,
			URLPath:  urlPath,
			Type:     rule.fileType,
		})
	}
	return g, dropped
}

// matchRule returns the first rule whose pattern matches name
func (e *defaultEnricher) matchRule(name string) (compiledRule, bool) {
	for _, rule := range e.rules {
		if rule.pattern.MatchString(name) {
			return rule, true
		}
	}
	return compiledRule{}, false
}
