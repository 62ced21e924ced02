// Package git reads best-effort repository metadata for scan reports.
package git

import (
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// RepoMetadata returns (repo, commit, branch) for the repository containing
// root. repo is the origin remote shortened to owner/name when possible, else
// the worktree directory name. Empty strings are returned when root is not
// inside a repository.
func RepoMetadata(root string) (string, string, string) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", "", ""
	}
	r, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", "", ""
	}

	repo := ""
	if rem, err := r.Remote("origin"); err == nil && len(rem.Config().URLs) > 0 {
		repo = ShortRepoName(rem.Config().URLs[0])
	}
	if repo == "" {
		if wt, err := r.Worktree(); err == nil {
			repo = filepath.Base(wt.Filesystem.Root())
		}
	}

	commit, branch := "", ""
	if head, err := r.Head(); err == nil {
		commit = head.Hash().String()
		if head.Name().IsBranch() {
			branch = head.Name().Short()
		} else {
			branch = "HEAD"
		}
	}
	return repo, commit, branch
}

// ShortRepoName trims a remote URL down to owner/name.
func ShortRepoName(url string) string {
	s := strings.TrimSuffix(strings.TrimSpace(url), ".git")
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
		if j := strings.Index(s, "/"); j >= 0 {
			s = s[j+1:]
		}
	} else if i := strings.LastIndex(s, ":"); i >= 0 {
		s = s[i+1:]
	}
	return strings.Trim(s, "/")
}
