// Package constant defines immutable application-level identifiers and configuration defaults.
package constant

const (
	// Offtube is the canonical application identifier used for filesystem paths, env prefixes and CLI branding.
	Offtube = "offtube"

	// Version is the current application semantic version string.
	Version = "0.3.1"
)

// Build metadata, overridden with -ldflags at release time.
var (
	BuiltAt  = "unknown"
	BuiltBy  = "unknown"
	Revision = "unknown"
)
