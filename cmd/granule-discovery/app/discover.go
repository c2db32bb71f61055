package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/strata-ingest/granule-discovery/internal/catalog"
	"github.com/strata-ingest/granule-discovery/internal/config"
	"github.com/strata-ingest/granule-discovery/internal/dedupe"
	"github.com/strata-ingest/granule-discovery/internal/discovery"
	"github.com/strata-ingest/granule-discovery/internal/httpclient"
	"github.com/strata-ingest/granule-discovery/internal/provider"
	"github.com/strata-ingest/granule-discovery/internal/secrets"
	"github.com/strata-ingest/granule-discovery/internal/telemetry"
	"github.com/strata-ingest/granule-discovery/internal/versions"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Run a discovery pass against a provider",
	Long: `Run a single discovery pass and emit the granule list as JSON.

The command requires an invocation payload (--input) that specifies:
- Provider connection details (protocol, host, credentials)
- Collection identity, granule pattern, and file rules
- Duplicate handling policy and bucket mappings

Operational settings (catalog URL, credentials, telemetry) come from
STRATA-prefixed environment variables. The result is written to --output,
or to standard output when --output is "-".

See examples/ directory for sample payloads.`,
	RunE: runDiscover,
}

// telemetryShutdownTimeout bounds the final export flush on exit
const telemetryShutdownTimeout = 5 * time.Second

func init() {
	discoverCmd.Flags().String("input", "", "Path to the invocation payload (YAML or JSON format, required)")
	discoverCmd.Flags().String("output", "-", "Path to write the discovery result, \"-\" for stdout")

	err := viper.BindPFlag("input", discoverCmd.Flags().Lookup("input"))
	if err != nil {
		slog.Error("Failed to bind input flag", "error", err)
	}
	err = viper.BindPFlag("output", discoverCmd.Flags().Lookup("output"))
	if err != nil {
		slog.Error("Failed to bind output flag", "error", err)
	}

	// Mark input as required
	if err := discoverCmd.MarkFlagRequired("input"); err != nil {
		slog.Error("Failed to mark input flag as required", "error", err)
	}
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	inputPath := viper.GetString("input")
	outputPath := viper.GetString("output")

	settings := config.LoadSettings()

	tel, err := telemetry.New(ctx, telemetry.WithTelemetryConfig(telemetryFromSettings(settings)))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down telemetry", "error", err)
		}
	}()

	// Load and validate the invocation payload before touching AWS or the
	// network, so a malformed payload fails immediately
	payload, err := config.LoadPayload(config.WithPayloadFile(inputPath))
	if err != nil {
		return fmt.Errorf("failed to load invocation payload: %w", err)
	}
	slog.InfoContext(ctx, "Loaded invocation payload",
		"path", inputPath,
		"collection", payload.Config.Collection.Name,
		"provider", payload.Config.Provider.ID,
		"protocol", payload.Config.Provider.Protocol)

	discoverer, err := buildDiscoverer(ctx, settings, tel)
	if err != nil {
		return err
	}

	result, err := discoverer.Discover(ctx, payload)
	if err != nil {
		return err
	}

	return writeResult(cmd, outputPath, result)
}

// buildDiscoverer wires the secrets, provider, and catalog stacks into a
// ready-to-run discoverer
func buildDiscoverer(ctx context.Context, settings *config.Settings, tel *telemetry.Telemetry) (discovery.Discoverer, error) {
	decrypter, err := buildDecrypter(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to build secret decrypter: %w", err)
	}

	httpClient := httpclient.NewDefaultClient(settings.HTTPTimeout)

	// The resolver rejects lookup policies itself when no catalog is
	// configured, so a missing catalog URL is not an error here
	var catalogClient catalog.Client
	if settings.CatalogURL != "" {
		tokens, err := buildTokenSource(ctx, settings, httpClient, decrypter)
		if err != nil {
			return nil, fmt.Errorf("failed to build catalog token source: %w", err)
		}
		catalogClient = catalog.NewClient(httpClient, settings.CatalogURL, tokens)
	} else {
		slog.InfoContext(ctx, "No catalog configured, duplicate lookups are unavailable")
	}

	resolver := dedupe.NewDefaultResolver(catalogClient, settings.LookupConcurrency)
	listers := provider.NewListerFactory(decrypter, httpClient)

	metrics, err := telemetry.NewDiscoveryMetrics(tel.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery metrics: %w", err)
	}

	return discovery.NewDefaultDiscoverer(listers, resolver,
		discovery.WithDiscoveryMetrics(metrics),
		discovery.WithTracer(tel.Tracer(discovery.TracerName)),
	), nil
}

// buildDecrypter assembles the decryption chain from the environment.
// STRATA_SECRETS_PLAINTEXT bypasses decryption entirely; otherwise the
// managed key is tried first with the legacy key pair as fallback.
func buildDecrypter(ctx context.Context, settings *config.Settings) (secrets.Decrypter, error) {
	if settings.SecretsPlaintext {
		slog.InfoContext(ctx, "Secret decryption disabled, configured secrets are treated as plaintext")
		return &secrets.Plaintext{}, nil
	}

	chain := secrets.NewChain()

	kms, err := secrets.NewKMSDecrypter(ctx)
	if err != nil {
		slog.WarnContext(ctx, "KMS decrypter unavailable", "error", err)
	} else {
		chain.Append("kms", kms)
	}

	if settings.KeyPairURI != "" {
		bucket, key, err := secrets.ParseS3URI(settings.KeyPairURI)
		if err != nil {
			return nil, fmt.Errorf("invalid key pair URI %q: %w", settings.KeyPairURI, err)
		}
		keyPair, err := secrets.NewKeyPairDecrypter(ctx, bucket, key)
		if err != nil {
			slog.WarnContext(ctx, "Key pair decrypter unavailable", "error", err)
		} else {
			chain.Append("keypair", keyPair)
		}
	}

	if chain.Len() == 0 {
		return nil, fmt.Errorf("no decryption strategy available, set STRATA_SECRETS_PLAINTEXT for local use")
	}
	return chain, nil
}

// buildTokenSource selects the gateway flow when a passphrase is
// configured and the basic username and password flow otherwise
func buildTokenSource(ctx context.Context, settings *config.Settings, httpClient httpclient.Client, decrypter secrets.Decrypter) (catalog.TokenSource, error) {
	if settings.CatalogPassphrase != "" {
		if settings.GatewayTokenURL == "" || settings.GatewayCertificateURI == "" {
			return nil, fmt.Errorf("gateway flow requires STRATA_GATEWAY_TOKEN_URL and STRATA_GATEWAY_CERTIFICATE_URI")
		}
		return catalog.NewGatewayTokenSource(ctx,
			settings.GatewayTokenURL,
			settings.GatewayCertificateURI,
			settings.CatalogPassphrase,
			decrypter,
			settings.HTTPTimeout)
	}
	return catalog.NewBasicTokenSource(httpClient,
		settings.TokenURL,
		settings.CatalogProvider,
		settings.CatalogUsername,
		settings.CatalogPassword,
		decrypter), nil
}

// telemetryFromSettings maps the environment settings onto the telemetry
// configuration, enabling tracing and metrics together
func telemetryFromSettings(settings *config.Settings) *telemetry.Config {
	return &telemetry.Config{
		Enabled:        settings.TelemetryEnabled,
		ServiceVersion: versions.GetVersionInfo().Version,
		Endpoint:       settings.TelemetryEndpoint,
		Insecure:       settings.TelemetryInsecure,
		Tracing: &telemetry.TracingConfig{
			Enabled:  settings.TelemetryEnabled,
			Sampling: settings.TelemetrySampling,
		},
		Metrics: &telemetry.MetricsConfig{
			Enabled: settings.TelemetryEnabled,
		},
	}
}

// writeResult marshals the discovery result and writes it to path, or to
// the command's stdout when path is "-"
func writeResult(cmd *cobra.Command, path string, result *discovery.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode discovery result: %w", err)
	}
	data = append(data, '\n')

	if path == "" || path == "-" {
		if _, err := cmd.OutOrStdout().Write(data); err != nil {
			return fmt.Errorf("failed to write discovery result: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write discovery result to %s: %w", path, err)
	}
	return nil
}
