package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for all environment variables read by the step
const EnvPrefix = "STRATA"

const (
	// DefaultLookupConcurrency bounds concurrent catalog lookups
	DefaultLookupConcurrency = 8

	// DefaultHTTPTimeout applies to catalog and listing HTTP requests
	DefaultHTTPTimeout = 30 * time.Second
)

// Settings holds the environment-supplied operational configuration.
// The invocation payload decides what to discover; Settings decide how the
// step reaches the catalog and resolves credentials.
type Settings struct {
	// CatalogURL is the base URL of the downstream catalog API
	CatalogURL string

	// CatalogProvider identifies this step to the catalog token endpoint
	CatalogProvider string

	// CatalogUsername authenticates the basic token flow
	CatalogUsername string

	// CatalogPassword is the basic flow credential, ciphertext unless
	// SecretsPlaintext is set
	CatalogPassword string

	// CatalogPassphrase is the gateway flow credential, ciphertext unless
	// SecretsPlaintext is set. When set it selects the gateway flow.
	CatalogPassphrase string

	// TokenURL is the basic flow token endpoint
	TokenURL string

	// GatewayTokenURL is the gateway flow token endpoint
	GatewayTokenURL string

	// GatewayCertificateURI locates the PEM client certificate bundle for
	// the gateway flow (s3://bucket/key)
	GatewayCertificateURI string

	// KeyPairURI locates the legacy RSA private key (s3://bucket/key)
	KeyPairURI string

	// SecretsPlaintext disables decryption and treats configured secrets
	// as plaintext. Intended for local development only.
	SecretsPlaintext bool

	// LookupConcurrency bounds concurrent catalog lookups
	LookupConcurrency int

	// HTTPTimeout applies to catalog and listing HTTP requests
	HTTPTimeout time.Duration

	// TelemetryEnabled turns on OTLP metric and trace export
	TelemetryEnabled bool

	// TelemetryEndpoint is the OTLP collector endpoint (host:port)
	TelemetryEndpoint string

	// TelemetryInsecure allows plain HTTP to the collector
	TelemetryInsecure bool

	// TelemetrySampling is the trace sampling ratio
	TelemetrySampling float64
}

// LoadSettings reads Settings from the environment
func LoadSettings() *Settings {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("lookup_concurrency", DefaultLookupConcurrency)
	v.SetDefault("http_timeout", DefaultHTTPTimeout)

	settings := &Settings{
		CatalogURL:            v.GetString("catalog_url"),
		CatalogProvider:       v.GetString("catalog_provider"),
		CatalogUsername:       v.GetString("catalog_username"),
		CatalogPassword:       v.GetString("catalog_password"),
		CatalogPassphrase:     v.GetString("catalog_passphrase"),
		TokenURL:              v.GetString("token_url"),
		GatewayTokenURL:       v.GetString("gateway_token_url"),
		GatewayCertificateURI: v.GetString("gateway_certificate_uri"),
		KeyPairURI:            v.GetString("keypair_uri"),
		SecretsPlaintext:      v.GetBool("secrets_plaintext"),
		LookupConcurrency:     v.GetInt("lookup_concurrency"),
		HTTPTimeout:           v.GetDuration("http_timeout"),
		TelemetryEnabled:      v.GetBool("telemetry_enabled"),
		TelemetryEndpoint:     v.GetString("telemetry_endpoint"),
		TelemetryInsecure:     v.GetBool("telemetry_insecure"),
		TelemetrySampling:     v.GetFloat64("telemetry_sampling"),
	}

	if settings.LookupConcurrency <= 0 {
		settings.LookupConcurrency = DefaultLookupConcurrency
	}
	if settings.HTTPTimeout <= 0 {
		settings.HTTPTimeout = DefaultHTTPTimeout
	}

	return settings
}
