// Package config loads and validates ledgercast configuration from TOML.
//
// Configuration resolves from an explicit --config path, then
// ~/.config/ledgercast/config.toml, then a project-local ledgercast.toml.
// Missing files fall back to defaults so the daemon and CLI run without any
// configuration present. All path fields are expanded and normalized before
// use.
package config
