// Package integration provides integration tests for the granule discovery task.
// These tests drive the full pipeline (listing, classification, enrichment, and
// duplicate resolution) against fake provider and catalog servers.
package integration
