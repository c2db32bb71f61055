// Package discovery orchestrates granule discovery runs. A run lists files
// from the remote provider, groups them into granules by the collection's
// extraction pattern, applies the duplicate policy against the downstream
// catalog, and enriches the surviving granules with destination metadata.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/strata-ingest/granule-discovery/internal/config"
	"github.com/strata-ingest/granule-discovery/internal/dedupe"
	"github.com/strata-ingest/granule-discovery/internal/granule"
	"github.com/strata-ingest/granule-discovery/internal/otel"
	"github.com/strata-ingest/granule-discovery/internal/provider"
	"github.com/strata-ingest/granule-discovery/internal/telemetry"
)

// TracerName is the name used for the discovery pipeline tracer
const TracerName = "github.com/strata-ingest/granule-discovery/discovery"

// Pipeline stages carried by structured discovery errors
const (
	// StageConfiguration covers payload interpretation before any network traffic
	StageConfiguration = "configuration"

	// StageListing covers lister creation and the provider listing itself
	StageListing = "listing"

	// StageClassification covers grouping files into granules
	StageClassification = "classification"

	// StageResolution covers duplicate handling against the catalog
	StageResolution = "resolution"
)

// Error represents a structured error carrying the pipeline stage that failed
type Error struct {
	Err     error
	Message string
	Stage   string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result contains the outcome of a successful discovery run. Granules is
// the payload handed to the next workflow step and is never nil, so an
// empty run still serializes as an empty list.
type Result struct {
	Granules []granule.Granule `json:"granules"`
	Summary  Summary           `json:"-"`
}

// Summary aggregates run counters for logging and metrics
type Summary struct {
	// RunID identifies this invocation in logs and traces
	RunID string

	// Policy is the duplicate policy the run resolved to
	Policy config.DuplicatePolicy

	// FilesListed is the number of files the provider returned
	FilesListed int

	// FilesMatched is the number of files whose names yielded a granule ID
	FilesMatched int

	// GranulesDiscovered is the number of granules emitted
	GranulesDiscovered int

	// DuplicatesFiltered is the number of granules removed by the skip policy
	DuplicatesFiltered int

	// FilesDropped is the number of files excluded during enrichment because
	// no file rule matched them
	FilesDropped int

	// Duration is the wall-clock time of the whole run
	Duration time.Duration
}

// Discoverer runs granule discovery for one invocation payload
//
//go:generate mockgen -destination=mocks/mock_discoverer.go -package=mocks -source=discoverer.go Discoverer
type Discoverer interface {
	// Discover executes the discovery pipeline and returns the granules to
	// hand to the next workflow step
	Discover(ctx context.Context, payload *config.Payload) (*Result, error)
}

// defaultDiscoverer is the default implementation of Discoverer
type defaultDiscoverer struct {
	listers    provider.ListerFactory
	classifier granule.Classifier
	resolver   dedupe.Resolver

	// Telemetry
	metrics *telemetry.DiscoveryMetrics
	tracer  trace.Tracer
}

var _ Discoverer = (*defaultDiscoverer)(nil)

// Option is a function that configures the discoverer
type Option func(*defaultDiscoverer)

// WithDiscoveryMetrics sets the metrics recorded for each run
func WithDiscoveryMetrics(metrics *telemetry.DiscoveryMetrics) Option {
	return func(d *defaultDiscoverer) {
		d.metrics = metrics
	}
}

// WithTracer sets the tracer used to trace discovery runs
func WithTracer(tracer trace.Tracer) Option {
	return func(d *defaultDiscoverer) {
		d.tracer = tracer
	}
}

// NewDefaultDiscoverer creates a discoverer with injected dependencies
func NewDefaultDiscoverer(listers provider.ListerFactory, resolver dedupe.Resolver, opts ...Option) Discoverer {
	d := &defaultDiscoverer{
		listers:    listers,
		classifier: granule.NewDefaultClassifier(),
		resolver:   resolver,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Discover executes the discovery pipeline for one payload
func (d *defaultDiscoverer) Discover(ctx context.Context, payload *config.Payload) (*Result, error) {
	if payload == nil {
		return nil, &Error{
			Message: "Discovery payload is required",
			Stage:   StageConfiguration,
		}
	}
	cfg := &payload.Config

	runID := uuid.NewString()
	startTime := time.Now()

	ctx, span := otel.StartSpan(ctx, d.tracer, "discoverer.Discover",
		trace.WithAttributes(
			otel.AttrRunID.String(runID),
			otel.AttrCollectionName.String(cfg.Collection.Name),
			otel.AttrProviderID.String(cfg.Provider.ID),
			otel.AttrProviderPath.String(provider.NormalizePath(cfg.Collection.ProviderPath)),
		))
	defer span.End()

	slog.InfoContext(ctx, "Starting discovery run",
		"run_id", runID,
		"collection", cfg.Collection.Name,
		"provider", cfg.Provider.ID,
		"protocol", cfg.Provider.Protocol)

	result, err := d.run(ctx, runID, cfg)

	// Calculate run duration for metrics
	duration := time.Since(startTime)

	if err != nil {
		otel.RecordError(span, err)
		if d.metrics != nil {
			d.metrics.RecordRunDuration(ctx, cfg.Collection.Name, duration, false)
		}
		return nil, err
	}

	result.Summary.RunID = runID
	result.Summary.Duration = duration

	span.SetAttributes(
		otel.AttrDuplicatePolicy.String(string(result.Summary.Policy)),
		otel.AttrFileCount.Int(result.Summary.FilesListed),
		otel.AttrGranuleCount.Int(result.Summary.GranulesDiscovered),
	)

	slog.InfoContext(ctx, "Discovery run completed",
		"run_id", runID,
		"collection", cfg.Collection.Name,
		"policy", string(result.Summary.Policy),
		"files_listed", result.Summary.FilesListed,
		"files_matched", result.Summary.FilesMatched,
		"granule_count", result.Summary.GranulesDiscovered,
		"duplicates_filtered", result.Summary.DuplicatesFiltered,
		"files_dropped", result.Summary.FilesDropped,
		"duration", duration)

	if d.metrics != nil {
		d.metrics.RecordFilesListed(ctx, cfg.Collection.Name, cfg.Provider.ID, int64(result.Summary.FilesListed))
		d.metrics.RecordGranulesDiscovered(ctx, cfg.Collection.Name, int64(result.Summary.GranulesDiscovered))
		d.metrics.RecordDuplicatesFiltered(ctx, cfg.Collection.Name, string(result.Summary.Policy),
			int64(result.Summary.DuplicatesFiltered))
		d.metrics.RecordRunDuration(ctx, cfg.Collection.Name, duration, true)
	}

	return result, nil
}

// run executes the pipeline stages in order
func (d *defaultDiscoverer) run(ctx context.Context, runID string, cfg *config.TaskConfig) (*Result, error) {
	policy, err := cfg.DuplicatePolicy()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to resolve duplicate handling policy", "run_id", runID, "error", err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Failed to resolve duplicate handling policy: %v", err),
			Stage:   StageConfiguration,
		}
	}

	// The enricher compiles before any network traffic so a broken file
	// rule fails the run without touching the provider.
	enricher, err := granule.NewEnricher(cfg)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to build the file enricher", "run_id", runID, "error", err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Failed to build the file enricher: %v", err),
			Stage:   StageConfiguration,
		}
	}

	lister, err := d.listers.CreateLister(ctx, cfg.Provider, cfg.UseList)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to create provider lister", "run_id", runID, "error", err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Failed to create provider lister: %v", err),
			Stage:   StageListing,
		}
	}

	listPath := provider.NormalizePath(cfg.Collection.ProviderPath)
	files, err := lister.List(ctx, listPath)
	if err != nil {
		slog.ErrorContext(ctx, "Provider listing failed", "run_id", runID, "path", listPath, "error", err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Provider listing failed: %v", err),
			Stage:   StageListing,
		}
	}

	slog.InfoContext(ctx, "Provider listing completed",
		"run_id", runID,
		"provider", cfg.Provider.ID,
		"path", listPath,
		"file_count", len(files))

	set, err := d.classifier.Classify(ctx, cfg.Collection.GranulePattern(), files)
	if err != nil {
		slog.ErrorContext(ctx, "Granule classification failed", "run_id", runID, "error", err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Granule classification failed: %v", err),
			Stage:   StageClassification,
		}
	}

	candidates := set.Len()
	matched := set.FileCount()

	survivors, err := d.resolver.Resolve(ctx, set.IDs(), policy)
	if err != nil {
		slog.ErrorContext(ctx, "Duplicate resolution failed",
			"run_id", runID, "policy", string(policy), "error", err)
		return nil, &Error{
			Err:     err,
			Message: fmt.Sprintf("Duplicate resolution failed: %v", err),
			Stage:   StageResolution,
		}
	}
	set.Restrict(survivors)

	granules := make([]granule.Granule, 0, set.Len())
	dropped := 0
	for _, id := range set.IDs() {
		g, skipped := enricher.BuildGranule(ctx, id, set.Files(id))
		dropped += skipped
		granules = append(granules, g)
	}

	return &Result{
		Granules: granules,
		Summary: Summary{
			Policy:             policy,
			FilesListed:        len(files),
			FilesMatched:       matched,
			GranulesDiscovered: len(granules),
			DuplicatesFiltered: candidates - len(survivors),
			FilesDropped:       dropped,
		},
	}, nil
}
