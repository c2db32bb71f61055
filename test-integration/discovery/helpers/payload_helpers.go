package helpers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/onsi/gomega"
)

// DefaultExtraction matches MODIS-style granule file names and captures
// the granule ID in its first group
const DefaultExtraction = `^(MOD09GQ\.A\d{7}\.\w{6}\.\d{3}\.\d{13})`

// FileRuleSpec describes one file rule in a generated payload
type FileRuleSpec struct {
	Regex   string
	Bucket  string
	URLPath string
	Type    string
}

// PayloadOptions holds the optional knobs for WritePayloadYAML. Zero
// values fall back to a MODIS-over-HTTP payload.
type PayloadOptions struct {
	ProviderID   string
	Protocol     string
	Host         string
	Port         int
	Username     string
	Password     string
	Collection   string
	Version      string
	Extraction   string
	ProviderPath string
	Policy       string
	IgnoreFiles  bool
	Rules        []FileRuleSpec
	Buckets      map[string]string
}

// WritePayloadYAML writes an invocation payload file for testing and
// returns its path
func WritePayloadYAML(dir string, opts PayloadOptions) string {
	if opts.ProviderID == "" {
		opts.ProviderID = "integration-provider"
	}
	if opts.Protocol == "" {
		opts.Protocol = "http"
	}
	if opts.Collection == "" {
		opts.Collection = "MOD09GQ"
	}
	if opts.Version == "" {
		opts.Version = "006"
	}
	if opts.Extraction == "" {
		opts.Extraction = DefaultExtraction
	}
	if opts.ProviderPath == "" {
		opts.ProviderPath = "/granules/MOD09GQ"
	}
	if opts.Policy == "" {
		opts.Policy = "skip"
	}

	content := fmt.Sprintf(`config:
  provider:
    id: %s
    protocol: %s
    host: %s
    port: %d
`, opts.ProviderID, opts.Protocol, opts.Host, opts.Port)

	if opts.Username != "" {
		content += fmt.Sprintf(`    username: %s
    password: %s
`, opts.Username, opts.Password)
	}

	content += fmt.Sprintf(`  collection:
    name: %s
    version: %q
    granuleIdExtraction: '%s'
    provider_path: %s
    duplicateHandling: %s
`, opts.Collection, opts.Version, opts.Extraction, opts.ProviderPath, opts.Policy)

	if len(opts.Rules) > 0 {
		content += `    files:
`
		for _, rule := range opts.Rules {
			content += fmt.Sprintf(`      - regex: '%s'
        bucket: %s
`, rule.Regex, rule.Bucket)
			if rule.URLPath != "" {
				content += fmt.Sprintf(`        url_path: %s
`, rule.URLPath)
			}
			if rule.Type != "" {
				content += fmt.Sprintf(`        type: %s
`, rule.Type)
			}
		}
	}

	if opts.IgnoreFiles {
		content += `  ignoreFilesConfigForDiscovery: true
`
	}

	if len(opts.Buckets) > 0 {
		content += `  buckets:
`
		for key, name := range opts.Buckets {
			content += fmt.Sprintf(`    %s:
      name: %s
      type: %s
`, key, name, key)
		}
	}

	payloadPath := filepath.Join(dir, "payload.yaml")
	err := os.WriteFile(payloadPath, []byte(content), 0600)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())
	return payloadPath
}
