package core

import (
	"context"

	"github.com/repowatch/repowatch/internal/engine"
	"github.com/repowatch/repowatch/internal/rules"
	"github.com/repowatch/repowatch/internal/types"
)

// Type aliases keep the public names stable while the engine owns the
// definitions.
type (
	Config   = engine.Config
	Result   = engine.Result
	Finding  = types.Finding
	Severity = types.Severity
	Category = types.Category
)

// ErrRootNotFound is returned when the scan root cannot be accessed.
var ErrRootNotFound = engine.ErrRootNotFound

// Scan walks root and returns every finding in traversal order. Within one
// file, filename rule findings precede content rule findings, each in rule
// catalog order. An empty tree yields an empty result and a nil error.
func Scan(root string) ([]Finding, error) {
	return engine.Scan(context.Background(), Config{Root: root})
}

// ScanWithStats runs a configured scan and returns findings with counters.
func ScanWithStats(ctx context.Context, cfg Config) (Result, error) {
	return engine.ScanWithStats(ctx, cfg)
}

// RuleInfo describes one rule of the catalog.
type RuleInfo struct {
	ID       string   `json:"id"`
	Kind     string   `json:"kind"`
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Hint     string   `json:"hint"`
}

// Rules lists the catalog in evaluation order.
func Rules() []RuleInfo {
	all := rules.All()
	out := make([]RuleInfo, len(all))
	for i, r := range all {
		out[i] = RuleInfo{ID: r.ID, Kind: r.Kind.String(), Category: r.Category, Severity: r.Severity, Hint: r.Hint}
	}
	return out
}
