// Package config loads, normalizes, and validates curator's TOML
// configuration.
//
// Load applies defaults first, then overlays the config file, expands tilde
// paths, pulls missing credentials from the environment, and validates the
// result. A sample configuration is embedded for 'config init' style
// bootstrapping.
package config
