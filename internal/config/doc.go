// Package config loads, normalizes, and validates ripline configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TMDB_API_KEY and RIPLINE_SFTP_PASSWORD. The Config type centralizes every
// knob the daemon and CLI need: tool binaries, the output directory used by
// the rip and encode stages, the upload target, and the external services
// that register finished media.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
