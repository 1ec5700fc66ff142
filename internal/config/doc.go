// Package config loads, normalizes, and validates tract's TOML configuration.
//
// Configuration is optional: every field has a usable default so the tool can
// run without a config file. Load resolves the file location, applies
// defaults, expands ~ in paths, and validates the result so downstream
// packages never see a half-formed Config.
package config
