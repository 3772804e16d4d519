/*
Package config provides layered configuration for the ScanForge performance
core.

Settings are resolved in order: built-in defaults (NewDefault), then an
optional YAML file (LoadFromFile), then SCANFORGE_* environment variables
(LoadFromEnv). Later layers override earlier ones. Validate checks the
resolved configuration before any subsystem consumes it.

The cache and pool subsystems do not read this package directly; the caller
resolves a Configuration once and passes the relevant sections in as plain
values.
*/
package config
