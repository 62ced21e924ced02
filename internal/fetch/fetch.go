// Package fetch materializes remote scan targets (git repositories and
// container images) as local directory trees the engine can walk.
package fetch

import (
	"context"
	"errors"
	"os"

	"github.com/repowatch/repowatch/internal/types"
)

// ErrLimitExceeded marks a checkout that stopped early because it hit a
// size, entry or time bound.
var ErrLimitExceeded = errors.New("fetch limit exceeded")

// Checkout is a fetched tree on local disk. Cleanup removes it.
type Checkout struct {
	Dir       string
	Repo      string // display name for reports
	Locator   string // what was requested
	Source    types.SourceKind
	Commit    string
	Branch    string
	Truncated bool // extraction stopped at a limit; Dir holds a partial tree
	cleanup   func() error
}

// Cleanup removes the checkout directory. It is safe to call more than once.
func (c *Checkout) Cleanup() error {
	if c == nil || c.cleanup == nil {
		return nil
	}
	err := c.cleanup()
	c.cleanup = nil
	return err
}

// Fetcher resolves a locator (repository shorthand, URL or image reference)
// into a local checkout.
type Fetcher interface {
	Fetch(ctx context.Context, locator string) (*Checkout, error)
}

func tempDir(parent, pattern string) (string, func() error, error) {
	dir, err := os.MkdirTemp(parent, pattern)
	if err != nil {
		return "", nil, err
	}
	return dir, func() error { return os.RemoveAll(dir) }, nil
}
