// Package engine walks a filesystem tree and evaluates every regular file
// against the rule catalog in internal/rules. Findings come back in traversal
// order, filename findings before content findings for each file. This
// package is internal; external consumers should use the facade in pkg/core.
package engine
