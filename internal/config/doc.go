// Package config loads, normalizes, and validates trueedits configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files strictly, and honours environment overrides
// such as TRUEEDITS_LOG_LEVEL and TRUEEDITS_WORK_DIR. Enumerated settings
// (length mode, cleanup level, platform, anchor) are validated with the
// parsers of the packages that consume them, so a bad value fails at load
// time instead of mid-batch.
package config
