package repowatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/repowatch/repowatch/internal/fetch"
	"github.com/repowatch/repowatch/internal/git"
	"github.com/repowatch/repowatch/internal/logging"
	"github.com/repowatch/repowatch/internal/types"
)

// target is a scan root on local disk plus the metadata reported with it.
type target struct {
	Root    string
	Source  types.SourceKind
	Locator string
	Repo    string
	Commit  string
	Branch  string

	checkout *fetch.Checkout
}

// display is what temporary checkout paths are rewritten to in findings.
func (t *target) display() string {
	if t.Source == types.SourceLocal {
		return ""
	}
	return t.Repo
}

// Close removes any temporary checkout.
func (t *target) Close() {
	if t == nil {
		return
	}
	if err := t.checkout.Cleanup(); err != nil {
		logging.L().Warn().Err(err).Str("dir", t.Root).Msg("cleanup failed")
	}
}

type fetchOptions struct {
	Branch          string
	Token           string
	ImageMaxBytes   int64
	ImageMaxEntries int
}

// classify maps a watch/scan target string to its source kind. Image
// references carry an "image:" prefix; existing paths are local; anything
// else is treated as a git repository locator.
func classify(s string) (types.SourceKind, string) {
	if ref, ok := strings.CutPrefix(s, "image:"); ok {
		return types.SourceImage, ref
	}
	if _, err := os.Stat(s); err == nil {
		return types.SourceLocal, s
	}
	return types.SourceGitHub, s
}

func openTarget(ctx context.Context, kind types.SourceKind, locator string, opts fetchOptions) (*target, error) {
	switch kind {
	case types.SourceLocal:
		abs, err := filepath.Abs(locator)
		if err != nil {
			return nil, err
		}
		repo, commit, branch := git.RepoMetadata(abs)
		return &target{Root: abs, Source: kind, Locator: locator, Repo: repo, Commit: commit, Branch: branch}, nil
	case types.SourceGitHub:
		token := opts.Token
		if token == "" {
			token = os.Getenv("GITHUB_TOKEN")
		}
		f := fetch.GitFetcher{Branch: opts.Branch, Token: token, Logger: *logging.L()}
		return fromCheckout(f.Fetch(ctx, locator))
	case types.SourceImage:
		f := fetch.ImageFetcher{
			Limits: fetch.Limits{MaxBytes: opts.ImageMaxBytes, MaxEntries: opts.ImageMaxEntries},
			Logger: *logging.L(),
		}
		return fromCheckout(f.Fetch(ctx, locator))
	default:
		return nil, fmt.Errorf("unknown source %q", kind)
	}
}

func fromCheckout(co *fetch.Checkout, err error) (*target, error) {
	if err != nil {
		return nil, err
	}
	if co.Truncated {
		logging.L().Warn().Str("locator", co.Locator).Msg("extraction hit a limit; scanning a partial tree")
	}
	return &target{
		Root:     co.Dir,
		Source:   co.Source,
		Locator:  co.Locator,
		Repo:     co.Repo,
		Commit:   co.Commit,
		Branch:   co.Branch,
		checkout: co,
	}, nil
}
