// Package config loads and validates the TOML configuration that drives the
// narratix pipeline: directory layout, external generation services, forced
// alignment, mix defaults, and logging.
package config
