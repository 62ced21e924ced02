// Package core is the stable public entry point to the repowatch scanner for
// programs that embed it. It re-exports a narrow surface over the internal
// engine so callers never import internal packages.
//
// Example:
//
//	findings, err := core.Scan(".")
//	if err != nil { /* handle */ }
//	_ = core.MarshalFindings(os.Stdout, findings)
package core
