package engine

import (
	"path/filepath"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
	"github.com/repowatch/repowatch/internal/ignore"
)

// excludedDirs is the fixed set of directory names whose subtrees are never
// traversed: dependency vendoring, VCS metadata, build output.
var excludedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
}

// IsExcludedDir reports whether a directory with this base name is pruned.
func IsExcludedDir(name string) bool {
	return excludedDirs[name]
}

// ExcludedDirs lists the pruned directory names.
func ExcludedDirs() []string {
	return []string{"node_modules", ".git", "dist"}
}

// pathFilter applies the optional include/exclude globs and ignore file.
type pathFilter struct {
	includes []string
	excludes []string
	ign      ignore.Matcher
}

func newPathFilter(cfg Config) (pathFilter, error) {
	pf := pathFilter{
		includes: parseGlobsList(cfg.IncludeGlobs),
		excludes: parseGlobsList(cfg.ExcludeGlobs),
	}
	if cfg.IgnoreFile != "" {
		m, err := ignore.Load(cfg.IgnoreFile)
		if err != nil {
			return pf, err
		}
		pf.ign = m
	}
	return pf, nil
}

// skipDir reports whether a directory (root-relative) is pruned by the ignore file.
// Include globs never prune directories; they only select files.
func (pf pathFilter) skipDir(rel string) bool {
	return pf.ign.Match(rel) || (len(pf.excludes) > 0 && matchAnyGlob(filepath.ToSlash(rel), pf.excludes))
}

// allowFile reports whether a root-relative file path passes all filters.
func (pf pathFilter) allowFile(rel string) bool {
	rp := filepath.ToSlash(rel)
	if pf.ign.Match(rp) {
		return false
	}
	if len(pf.includes) > 0 && !matchAnyGlob(rp, pf.includes) {
		return false
	}
	if len(pf.excludes) > 0 && matchAnyGlob(rp, pf.excludes) {
		return false
	}
	return true
}

func parseGlobsList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p, trimGlobPrefix(p))
		}
	}
	return out
}

func matchAnyGlob(pathToMatch string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, pathToMatch); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, filepath.Base(pathToMatch)); ok {
			return true
		}
	}
	return false
}

func trimGlobPrefix(g string) string {
	s := strings.TrimPrefix(g, "./")
	for strings.HasPrefix(s, "**/") {
		s = strings.TrimPrefix(s, "**/")
	}
	return s
}
