package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// DiscoveryMetricsMeterName is the name used for the discovery metrics meter
	DiscoveryMetricsMeterName = "github.com/strata-ingest/granule-discovery/discovery"
)

// DiscoveryMetrics holds the OpenTelemetry instruments for discovery run metrics
type DiscoveryMetrics struct {
	filesListed        metric.Int64Counter
	granulesDiscovered metric.Int64Counter
	duplicatesFiltered metric.Int64Counter
	runDuration        metric.Float64Histogram
}

// NewDiscoveryMetrics creates a new DiscoveryMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewDiscoveryMetrics(provider metric.MeterProvider) (*DiscoveryMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(DiscoveryMetricsMeterName)

	filesListed, err := meter.Int64Counter(
		"granule_discovery_files_listed_total",
		metric.WithDescription("Number of files listed from providers"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, err
	}

	granulesDiscovered, err := meter.Int64Counter(
		"granule_discovery_granules_total",
		metric.WithDescription("Number of granules emitted by discovery runs"),
		metric.WithUnit("{granule}"),
	)
	if err != nil {
		return nil, err
	}

	duplicatesFiltered, err := meter.Int64Counter(
		"granule_discovery_duplicates_filtered_total",
		metric.WithDescription("Number of granules removed as catalog duplicates"),
		metric.WithUnit("{granule}"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"granule_discovery_run_duration_seconds",
		metric.WithDescription("Duration of discovery runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	return &DiscoveryMetrics{
		filesListed:        filesListed,
		granulesDiscovered: granulesDiscovered,
		duplicatesFiltered: duplicatesFiltered,
		runDuration:        runDuration,
	}, nil
}

// RecordFilesListed records the number of files a provider listing returned
func (m *DiscoveryMetrics) RecordFilesListed(ctx context.Context, collection, providerID string, count int64) {
	if m == nil || m.filesListed == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("collection", collection),
		attribute.String("provider", providerID),
	}

	m.filesListed.Add(ctx, count, metric.WithAttributes(attrs...))
}

// RecordGranulesDiscovered records the number of granules a run emitted
func (m *DiscoveryMetrics) RecordGranulesDiscovered(ctx context.Context, collection string, count int64) {
	if m == nil || m.granulesDiscovered == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("collection", collection),
	}

	m.granulesDiscovered.Add(ctx, count, metric.WithAttributes(attrs...))
}

// RecordDuplicatesFiltered records the number of granules removed as duplicates
func (m *DiscoveryMetrics) RecordDuplicatesFiltered(ctx context.Context, collection, policy string, count int64) {
	if m == nil || m.duplicatesFiltered == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("collection", collection),
		attribute.String("policy", policy),
	}

	m.duplicatesFiltered.Add(ctx, count, metric.WithAttributes(attrs...))
}

// RecordRunDuration records the duration of a discovery run
func (m *DiscoveryMetrics) RecordRunDuration(ctx context.Context, collection string, duration time.Duration, success bool) {
	if m == nil || m.runDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("collection", collection),
		attribute.Bool("success", success),
	}

	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
