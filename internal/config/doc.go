// Package config holds the runtime configuration of a crawl.
//
// Configuration is assembled in three layers: compiled-in defaults from
// NewConfig, an optional YAML file (see FindConfigFile and LoadConfigFile),
// and finally command line flags. Validate is called once, before any
// network activity, so that configuration mistakes are the only fatal
// errors of a run.
package config
