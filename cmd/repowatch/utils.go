package repowatch

import (
	"strings"

	"github.com/repowatch/repowatch/internal/config"
	"github.com/repowatch/repowatch/internal/types"
)

// loadConfigs returns the global and repo-local file configs. Missing files
// yield zero configs.
func loadConfigs(root string) (global, local config.FileConfig) {
	if c, err := config.LoadGlobal(); err == nil {
		global = c
	}
	if root != "" {
		if c, err := config.LoadLocal(root); err == nil {
			local = c
		}
	}
	return global, local
}

func pickString(cli string, local, global *string) string {
	if cli != "" {
		return cli
	}
	if local != nil && *local != "" {
		return *local
	}
	if global != nil && *global != "" {
		return *global
	}
	return ""
}

func pickInt(cli int, local, global *int) int {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickInt64(cli int64, local, global *int64) int64 {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickBool(cli bool, local, global *bool) bool {
	if cli {
		return true
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return false
}

// relocate rewrites findings produced under a temporary checkout so paths
// read as locations inside the fetched target. Local targets have no display
// name and are returned unchanged.
func relocate(findings []types.Finding, from, to string) []types.Finding {
	if from == "" || to == "" {
		return findings
	}
	from = strings.TrimRight(from, "/")
	out := make([]types.Finding, len(findings))
	for i, f := range findings {
		if strings.HasPrefix(f.Path, from) {
			p := to + strings.TrimPrefix(f.Path, from)
			f.Message = strings.ReplaceAll(f.Message, f.Path, p)
			f.Path = p
		}
		out[i] = f
	}
	return out
}
