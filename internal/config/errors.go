package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers match them with errors.Is.
var (
	// ErrNoSeed is returned when no seed URL is configured.
	ErrNoSeed = errors.New("no seed URL specified")

	// ErrInvalidSeedScheme is returned when the seed URL is not http or https.
	ErrInvalidSeedScheme = errors.New("invalid seed URL: scheme must be http or https")

	// ErrNoOutputDir is returned when the output root is empty.
	ErrNoOutputDir = errors.New("invalid output directory: must not be empty")

	// ErrInvalidMaxDepth is returned when the depth bound is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCooldown is returned when the failure cooldown is negative.
	ErrInvalidCooldown = errors.New("invalid failure cooldown: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidProxy is returned when the proxy host cannot be parsed as a URL.
	ErrInvalidProxy = errors.New("invalid proxy host")

	// ErrConflictingProxy is returned when both a proxy and the embedded Tor
	// daemon are requested.
	ErrConflictingProxy = errors.New("conflicting proxy settings: --proxy and --tor cannot be used together")

	// ErrInvalidReportFormat is returned for an unknown report format.
	ErrInvalidReportFormat = errors.New("invalid report format: must be text, markdown or json")
)
