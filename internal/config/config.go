// Package config provides invocation payload loading and environment settings
// for the granule discovery step.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

const (
	// ProtocolS3 lists objects from an S3 bucket
	ProtocolS3 = "s3"

	// ProtocolHTTP lists files from an HTTP index page
	ProtocolHTTP = "http"

	// ProtocolHTTPS lists files from an HTTPS index page
	ProtocolHTTPS = "https"

	// ProtocolFTP lists files over FTP
	ProtocolFTP = "ftp"

	// ProtocolSFTP lists files over SFTP
	ProtocolSFTP = "sftp"
)

// Option defines the interface for payload loading options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a payload
type loaderConfig struct {
	path string
}

// WithPayloadFile loads the invocation payload from a JSON or YAML file
func WithPayloadFile(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Payload represents the invocation input for one discovery run
type Payload struct {
	Config TaskConfig `yaml:"config" json:"config"`
}

// TaskConfig carries the discovery parameters from the workflow message
type TaskConfig struct {
	// Provider describes the remote endpoint files are listed from
	Provider Provider `yaml:"provider" json:"provider"`

	// Collection describes the dataset being discovered
	Collection Collection `yaml:"collection" json:"collection"`

	// Buckets maps logical bucket keys to concrete destination buckets
	Buckets map[string]Bucket `yaml:"buckets" json:"buckets"`

	// UseList forces LIST-based directory enumeration on transports that
	// support more than one listing mode
	UseList bool `yaml:"useList,omitempty" json:"useList,omitempty"`

	// IgnoreFilesConfigForDiscovery bypasses file rule enrichment for the
	// whole run. When set it wins over the collection-level flag.
	IgnoreFilesConfigForDiscovery *bool `yaml:"ignoreFilesConfigForDiscovery,omitempty" json:"ignoreFilesConfigForDiscovery,omitempty"`

	// DuplicateHandling overrides the collection's duplicate policy for
	// this invocation
	DuplicateHandling string `yaml:"duplicateHandling,omitempty" json:"duplicateHandling,omitempty"`
}

// Provider defines a remote data provider endpoint
type Provider struct {
	// ID is the identifier for this provider
	ID string `yaml:"id" json:"id"`

	// Protocol selects the listing transport (s3, http, https, ftp, sftp)
	Protocol string `yaml:"protocol" json:"protocol"`

	// Host is the provider hostname, or the bucket name for s3
	Host string `yaml:"host" json:"host"`

	// Port is the provider port, zero for the protocol default
	Port int `yaml:"port,omitempty" json:"port,omitempty"`

	// Username authenticates ftp and sftp sessions
	Username string `yaml:"username,omitempty" json:"username,omitempty"`

	// Password authenticates ftp and sftp sessions. Ciphertext when
	// Encrypted is true.
	Password string `yaml:"password,omitempty" json:"password,omitempty"`

	// Encrypted marks Username and Password as encrypted values that must
	// be resolved through the secrets chain before dialing
	Encrypted bool `yaml:"encrypted,omitempty" json:"encrypted,omitempty"`

	// GlobalConnectionLimit caps concurrent connections to this provider
	GlobalConnectionLimit int `yaml:"globalConnectionLimit,omitempty" json:"globalConnectionLimit,omitempty"`
}

// Collection defines the dataset whose granules are being discovered
type Collection struct {
	// Name is the collection short name
	Name string `yaml:"name" json:"name"`

	// DataType overrides Name as the emitted granule dataType
	DataType string `yaml:"dataType,omitempty" json:"dataType,omitempty"`

	// Version is the collection version, treated as an opaque string
	Version string `yaml:"version" json:"version"`

	// GranuleIDExtraction is the pattern whose first capturing group
	// yields the granule identifier for each file name
	GranuleIDExtraction string `yaml:"granuleIdExtraction" json:"granuleIdExtraction"`

	// ProviderPath is the path listed at the provider. Leading slashes
	// are stripped before listing.
	ProviderPath string `yaml:"provider_path" json:"provider_path"`

	// URLPath is the default url_path applied when a matching file rule
	// does not set its own
	URLPath string `yaml:"url_path,omitempty" json:"url_path,omitempty"`

	// Files are the ordered file rules applied during enrichment,
	// first match wins
	Files []FileRule `yaml:"files,omitempty" json:"files,omitempty"`

	// IgnoreFilesConfigForDiscovery bypasses file rule enrichment unless
	// the invocation-level flag overrides it
	IgnoreFilesConfigForDiscovery *bool `yaml:"ignoreFilesConfigForDiscovery,omitempty" json:"ignoreFilesConfigForDiscovery,omitempty"`

	// DuplicateHandling is the collection's duplicate policy, overridden
	// by the invocation-level value
	DuplicateHandling string `yaml:"duplicateHandling,omitempty" json:"duplicateHandling,omitempty"`

	granulePattern *regexp.Regexp
}

// FileRule assigns destination metadata to files whose names match its pattern
type FileRule struct {
	// Regex selects the files this rule applies to
	Regex string `yaml:"regex" json:"regex"`

	// Bucket is a logical bucket key resolved through the buckets map
	Bucket string `yaml:"bucket" json:"bucket"`

	// URLPath overrides the collection url_path for matching files
	URLPath string `yaml:"url_path,omitempty" json:"url_path,omitempty"`

	// Type is the file type label attached to matching files
	Type string `yaml:"type,omitempty" json:"type,omitempty"`

	pattern *regexp.Regexp
}

// Bucket defines a concrete destination bucket
type Bucket struct {
	// Name is the bucket name
	Name string `yaml:"name" json:"name"`

	// Type is the bucket class (internal, private, protected, public)
	Type string `yaml:"type,omitempty" json:"type,omitempty"`
}

// LoadPayload loads and validates an invocation payload from a file.
// YAML is a superset of JSON, so both payload encodings parse here.
func LoadPayload(opts ...Option) (*Payload, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read payload file: %w", err)
	}

	return ParsePayload(data)
}

// ParsePayload parses and validates raw payload bytes
func ParsePayload(data []byte) (*Payload, error) {
	var payload Payload
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse payload: %w", err)
	}

	if err := payload.Validate(); err != nil {
		return nil, err
	}

	return &payload, nil
}

// Validate checks the payload and compiles every pattern it carries.
// Compiled matchers are held on the payload afterwards, so validation must
// run before GranulePattern or the file rule patterns are used.
func (p *Payload) Validate() error {
	if p == nil {
		return newError("payload", "", "payload cannot be nil")
	}
	return p.Config.validate()
}

func (c *TaskConfig) validate() error {
	if err := c.Provider.validate(); err != nil {
		return err
	}

	if err := c.Collection.validate(c.Buckets); err != nil {
		return err
	}

	// Both policy levels must parse even though only one applies, so a bad
	// value is rejected no matter which level ends up winning.
	if _, err := ParseDuplicatePolicy(c.DuplicateHandling); err != nil {
		return err
	}
	if _, err := ParseDuplicatePolicy(c.Collection.DuplicateHandling); err != nil {
		return err
	}

	return nil
}

func (p *Provider) validate() error {
	switch p.Protocol {
	case ProtocolS3, ProtocolHTTP, ProtocolHTTPS, ProtocolFTP, ProtocolSFTP:
	case "":
		return newError("provider.protocol", "", "protocol is required")
	default:
		return newError("provider.protocol", p.Protocol, "must be one of s3, http, https, ftp, sftp")
	}

	if p.Host == "" {
		return newError("provider.host", "", "host is required")
	}

	return nil
}

func (c *Collection) validate(buckets map[string]Bucket) error {
	if c.Name == "" {
		return newError("collection.name", "", "name is required")
	}

	if c.GranuleIDExtraction == "" {
		return newError("collection.granuleIdExtraction", "", "granule id extraction pattern is required")
	}

	pattern, err := regexp.Compile(c.GranuleIDExtraction)
	if err != nil {
		return newError("collection.granuleIdExtraction", c.GranuleIDExtraction, fmt.Sprintf("does not compile: %v", err))
	}
	if pattern.NumSubexp() < 1 {
		return newError("collection.granuleIdExtraction", c.GranuleIDExtraction, "must contain at least one capturing group")
	}
	c.granulePattern = pattern

	for i := range c.Files {
		rule := &c.Files[i]
		prefix := fmt.Sprintf("collection.files[%d]", i)

		if rule.Regex == "" {
			return newError(prefix+".regex", "", "regex is required")
		}

		rulePattern, err := regexp.Compile(rule.Regex)
		if err != nil {
			return newError(prefix+".regex", rule.Regex, fmt.Sprintf("does not compile: %v", err))
		}
		rule.pattern = rulePattern

		if rule.Bucket == "" {
			return newError(prefix+".bucket", "", "bucket is required")
		}
		if _, ok := buckets[rule.Bucket]; !ok {
			return newError(prefix+".bucket", rule.Bucket, "bucket key is not defined in buckets")
		}
	}

	return nil
}

// GranulePattern returns the compiled granule id extraction pattern.
// Only valid after Validate has run.
func (c *Collection) GranulePattern() *regexp.Regexp {
	return c.granulePattern
}

// Pattern returns the compiled file rule pattern.
// Only valid after Validate has run.
func (r *FileRule) Pattern() *regexp.Regexp {
	return r.pattern
}

// GetDataType returns the emitted dataType, falling back to the collection
// name when dataType is not set
func (c *Collection) GetDataType() string {
	if c.DataType == "" {
		return c.Name
	}
	return c.DataType
}

// DuplicatePolicy resolves the effective duplicate handling policy.
// The invocation-level value wins over the collection's, and the default
// policy applies when neither is set.
func (c *TaskConfig) DuplicatePolicy() (DuplicatePolicy, error) {
	raw := c.DuplicateHandling
	if raw == "" {
		raw = c.Collection.DuplicateHandling
	}
	return ParseDuplicatePolicy(raw)
}

// IgnoreFilesConfig resolves the enrichment bypass flag. The invocation-level
// value wins over the collection's when explicitly set.
func (c *TaskConfig) IgnoreFilesConfig() bool {
	if c.IgnoreFilesConfigForDiscovery != nil {
		return *c.IgnoreFilesConfigForDiscovery
	}
	if c.Collection.IgnoreFilesConfigForDiscovery != nil {
		return *c.Collection.IgnoreFilesConfigForDiscovery
	}
	return false
}
