package helpers

import (
	"context"
	"time"

	"github.com/strata-ingest/granule-discovery/internal/catalog"
	"github.com/strata-ingest/granule-discovery/internal/config"
	"github.com/strata-ingest/granule-discovery/internal/dedupe"
	"github.com/strata-ingest/granule-discovery/internal/discovery"
	"github.com/strata-ingest/granule-discovery/internal/httpclient"
	"github.com/strata-ingest/granule-discovery/internal/provider"
	"github.com/strata-ingest/granule-discovery/internal/secrets"
)

// lookupConcurrency bounds catalog lookups in integration runs
const lookupConcurrency = 4

// DiscoveryRunner wires real pipeline components against fake servers
type DiscoveryRunner struct {
	discoverer discovery.Discoverer
}

// NewDiscoveryRunner builds a discoverer whose catalog lookups go to
// catalogURL using the basic token flow. An empty catalogURL leaves the
// run without a catalog, as happens when no catalog is configured.
func NewDiscoveryRunner(catalogURL string) *DiscoveryRunner {
	httpClient := httpclient.NewDefaultClient(10 * time.Second)

	var client catalog.Client
	if catalogURL != "" {
		tokens := catalog.NewBasicTokenSource(httpClient,
			catalogURL+"/token", "integration", "ingest-user", "ingest-pass", &secrets.Plaintext{})
		client = catalog.NewClient(httpClient, catalogURL, tokens)
	}

	resolver := dedupe.NewDefaultResolver(client, lookupConcurrency)
	listers := provider.NewListerFactory(&secrets.Plaintext{}, httpClient)

	return &DiscoveryRunner{
		discoverer: discovery.NewDefaultDiscoverer(listers, resolver),
	}
}

// Discover loads the payload at payloadPath and runs one discovery pass
func (r *DiscoveryRunner) Discover(ctx context.Context, payloadPath string) (*discovery.Result, error) {
	payload, err := config.LoadPayload(config.WithPayloadFile(payloadPath))
	if err != nil {
		return nil, err
	}
	return r.discoverer.Discover(ctx, payload)
}
