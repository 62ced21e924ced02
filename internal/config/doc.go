// Package config loads repowatch configuration: YAML files (repo-local and
// global, with CLI > local > global precedence applied by the CLI) for
// scanning, and environment variables with optional .env loading for the
// archive server.
package config
