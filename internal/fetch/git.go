package fetch

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/repowatch/repowatch/internal/types"
	"github.com/rs/zerolog"
)

// DefaultGitHost is prepended to owner/name shorthands.
const DefaultGitHost = "https://github.com"

var shorthandRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// GitFetcher makes a shallow, single-branch clone into a temp directory.
type GitFetcher struct {
	Host    string // default DefaultGitHost
	Branch  string // empty = remote HEAD
	Token   string // optional; sent as HTTP basic auth password
	TempDir string // parent for clones; empty = os.TempDir()
	Logger  zerolog.Logger
}

// ResolveRepoURL expands owner/name shorthand against host and returns the
// clone URL plus a display name.
func ResolveRepoURL(locator, host string) (url, display string) {
	if host == "" {
		host = DefaultGitHost
	}
	locator = strings.TrimSpace(locator)
	if shorthandRe.MatchString(locator) {
		if _, err := os.Stat(locator); err != nil {
			name := strings.TrimSuffix(locator, ".git")
			return strings.TrimRight(host, "/") + "/" + name + ".git", name
		}
	}
	display = strings.TrimSuffix(locator, ".git")
	if i := strings.Index(display, "://"); i >= 0 {
		display = display[i+3:]
		if j := strings.Index(display, "/"); j >= 0 {
			display = display[j+1:]
		}
	} else if strings.HasPrefix(display, "git@") {
		if j := strings.Index(display, ":"); j >= 0 {
			display = display[j+1:]
		}
	}
	return locator, strings.Trim(display, "/")
}

func (g GitFetcher) Fetch(ctx context.Context, locator string) (*Checkout, error) {
	url, display := ResolveRepoURL(locator, g.Host)
	log := g.Logger.With().Str("component", "fetch").Str("repo", display).Logger()

	dir, cleanup, err := tempDir(g.TempDir, "repowatch-git-*")
	if err != nil {
		return nil, fmt.Errorf("create clone dir: %w", err)
	}
	opts := &git.CloneOptions{
		URL:          url,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if g.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(g.Branch)
	}
	if g.Token != "" {
		opts.Auth = &githttp.BasicAuth{Username: "x-access-token", Password: g.Token}
	}

	log.Info().Str("url", url).Msg("cloning")
	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		_ = cleanup()
		return nil, fmt.Errorf("clone %s: %w", url, err)
	}

	co := &Checkout{
		Dir:     dir,
		Repo:    display,
		Locator: locator,
		Source:  types.SourceGitHub,
		cleanup: cleanup,
	}
	if head, err := repo.Head(); err == nil {
		co.Commit = head.Hash().String()
		if head.Name().IsBranch() {
			co.Branch = head.Name().Short()
		}
	}
	log.Debug().Str("dir", dir).Str("commit", co.Commit).Msg("clone complete")
	return co, nil
}
