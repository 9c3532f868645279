// Package config loads runtime settings for the relay and static servers.
//
// Settings are layered: built-in defaults, then an optional YAML file named by
// CONFIG_FILE (with ${VAR} expansion), then individual environment variables.
// The result is sanitized and validated before use.
package config
