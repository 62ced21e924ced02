// Package repowatch provides the command-line interface for repowatch.
// It registers the subcommands (scan, view, serve, watch, history and the
// helpers), resolves flags against the YAML config files and runs the
// selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/repowatch/repowatch/cmd/repowatch"
//	func main() { repowatch.Execute() }
package repowatch
