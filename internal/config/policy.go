package config

// DuplicatePolicy controls how granules already present in the downstream
// catalog are handled during discovery.
type DuplicatePolicy string

const (
	// DuplicateSkip silently drops granules the catalog already holds
	DuplicateSkip DuplicatePolicy = "skip"

	// DuplicateError aborts the whole run on the first confirmed duplicate
	DuplicateError DuplicatePolicy = "error"

	// DuplicateReplace forwards every granule for downstream replacement
	DuplicateReplace DuplicatePolicy = "replace"

	// DuplicateVersion forwards every granule for downstream versioning
	DuplicateVersion DuplicatePolicy = "version"
)

// DefaultDuplicatePolicy applies when neither the invocation nor the
// collection sets duplicateHandling.
const DefaultDuplicatePolicy = DuplicateError

// ParseDuplicatePolicy validates a raw duplicateHandling value. An empty
// value resolves to the default policy; anything outside the closed set is
// rejected here so unknown policies never reach the resolver.
func ParseDuplicatePolicy(raw string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(raw) {
	case DuplicateSkip, DuplicateError, DuplicateReplace, DuplicateVersion:
		return DuplicatePolicy(raw), nil
	case "":
		return DefaultDuplicatePolicy, nil
	default:
		return "", newError("duplicateHandling", raw, "must be one of skip, error, replace, version")
	}
}

// RequiresLookup reports whether the policy needs per-granule catalog lookups
func (p DuplicatePolicy) RequiresLookup() bool {
	return p == DuplicateSkip || p == DuplicateError
}
