package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// ErrRootNotFound is returned when the scan root itself cannot be stat-ed.
var ErrRootNotFound = errors.New("scan root not accessible")

// DefaultMaxDepth bounds directory recursion so symlink cycles terminate.
const DefaultMaxDepth = 64

// SkipReason classifies why the walker dropped a path. None of these are
// errors: they are recorded for stats and debug logging only.
type SkipReason string

const (
	SkipUnreadable SkipReason = "unreadable" // stat or readdir failed
	SkipDepth      SkipReason = "max_depth"  // recursion bound reached
	SkipIrregular  SkipReason = "irregular"  // socket, device, pipe
	SkipFiltered   SkipReason = "filtered"   // include/exclude globs or ignore file
)

type walker struct {
	root     string
	maxDepth int
	filter   pathFilter
	log      zerolog.Logger
	handle   func(path string) error
	skipped  func(path string, reason SkipReason)
}

// Walk enumerates the regular files reachable from cfg.Root in directory
// listing order and calls handle for each. Directories named in the exclusion
// set are pruned before anything inside them is touched. Paths that cannot be
// stat-ed or listed are skipped. Only a failure to stat the root, a
// cancelled context or an error returned by handle stops the walk.
func Walk(ctx context.Context, cfg Config, handle func(path string) error) error {
	return walk(ctx, cfg, handle, nil)
}

func walk(ctx context.Context, cfg Config, handle func(path string) error, skipped func(string, SkipReason)) error {
	if _, err := os.Stat(cfg.Root); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRootNotFound, cfg.Root, err)
	}
	pf, err := newPathFilter(cfg)
	if err != nil {
		return fmt.Errorf("load ignore file: %w", err)
	}
	depth := cfg.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}
	if skipped == nil {
		skipped = func(string, SkipReason) {}
	}
	w := &walker{
		root:     cfg.Root,
		maxDepth: depth,
		filter:   pf,
		log:      cfg.logger(),
		handle:   handle,
		skipped:  skipped,
	}
	return w.visit(ctx, cfg.Root, 0)
}

func (w *walker) skip(p string, reason SkipReason, err error) {
	ev := w.log.Debug().Str("path", p).Str("reason", string(reason))
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("skip path")
	w.skipped(p, reason)
}

func (w *walker) visit(ctx context.Context, p string, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Stat follows symlinks; dangling links and races with deletion land here.
	info, err := os.Stat(p)
	if err != nil {
		w.skip(p, SkipUnreadable, err)
		return nil
	}
	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			w.skip(p, SkipIrregular, nil)
			return nil
		}
		if depth > 0 && !w.filter.allowFile(w.rel(p)) {
			w.skip(p, SkipFiltered, nil)
			return nil
		}
		return w.handle(p)
	}

	if depth > 0 {
		// Symlinked directories are checked here, after resolving the link.
		if IsExcludedDir(filepath.Base(p)) {
			return nil
		}
		if w.filter.skipDir(w.rel(p)) {
			w.skip(p, SkipFiltered, nil)
			return nil
		}
	}
	if depth >= w.maxDepth {
		w.skip(p, SkipDepth, nil)
		return nil
	}

	entries, err := readDirUnsorted(p)
	if err != nil && len(entries) == 0 {
		w.skip(p, SkipUnreadable, err)
		return nil
	}
	for _, e := range entries {
		// Prune excluded directories without touching their contents.
		if e.IsDir() && IsExcludedDir(e.Name()) {
			continue
		}
		if err := w.visit(ctx, filepath.Join(p, e.Name()), depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) rel(p string) string {
	rel, err := filepath.Rel(w.root, p)
	if err != nil {
		return p
	}
	return rel
}

// readDirUnsorted returns entries in the order the filesystem yields them.
// os.ReadDir would sort by name.
func readDirUnsorted(dir string) ([]os.DirEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.ReadDir(-1)
}
