// Package config provides configuration loading, validation, and hot-reload
// for Sentinel.
//
// Configuration is defined in YAML and loaded once at startup:
//
//	cfg, err := config.Load("sentinel.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The loaded Config is treated as immutable by all consumers. When the
// optional file watcher is enabled, changes on disk produce a freshly
// loaded Config that is handed to a reload callback; in-flight operations
// keep the snapshot they started with and are never exposed to partial
// mutation.
//
// Defaults are applied for any zero-valued field (see defaults.go), and
// validation collects every problem in the file into a single
// ValidationError rather than stopping at the first.
package config
