package engine

import (
	"bytes"
	"context"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/repowatch/repowatch/internal/rules"
	"github.com/repowatch/repowatch/internal/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// sniffLen is how much of a file is checked for NUL bytes before it is
// treated as binary.
const sniffLen = 8000

// Config controls a scan. The zero value (plus Root) scans every regular file
// under Root sequentially with no size limit.
type Config struct {
	Root         string
	IncludeGlobs string // comma-separated doublestar patterns; empty = all
	ExcludeGlobs string // comma-separated doublestar patterns
	IgnoreFile   string // gitignore-style file; missing file is fine
	MaxBytes     int64  // content is not evaluated above this size; 0 = no limit
	MaxDepth     int    // directory recursion bound; 0 = DefaultMaxDepth
	Threads      int    // >1 scans files concurrently; order is unchanged
	Progress     func() // called once per scanned file, possibly from several goroutines
	Logger       *zerolog.Logger
}

func (c Config) logger() zerolog.Logger {
	if c.Logger == nil {
		return zerolog.Nop()
	}
	return c.Logger.With().Str("component", "engine").Logger()
}

// Result contains findings and basic scan statistics.
type Result struct {
	Findings     []types.Finding
	FilesScanned int
	FilesSkipped int
	Duration     time.Duration
}

// Scan runs a scan and returns only findings (without stats).
func Scan(ctx context.Context, cfg Config) ([]types.Finding, error) {
	res, err := ScanWithStats(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return res.Findings, nil
}

// ScanWithStats runs a scan and returns findings in traversal order along
// with timing and counts. Findings for one file are contiguous: filename
// rules first, then content rules, each in catalog order.
func ScanWithStats(ctx context.Context, cfg Config) (Result, error) {
	var result Result
	started := time.Now()
	log := cfg.logger()

	progress := cfg.Progress
	if progress == nil {
		progress = func() {}
	}
	skipped := func(string, SkipReason) { result.FilesSkipped++ }

	var err error
	if cfg.Threads > 1 {
		err = scanParallel(ctx, cfg, &result, progress, skipped)
	} else {
		err = walk(ctx, cfg, func(p string) error {
			result.Findings = append(result.Findings, ScanFile(p, cfg.MaxBytes)...)
			result.FilesScanned++
			progress()
			return nil
		}, skipped)
	}
	if err != nil {
		return result, err
	}
	result.Duration = time.Since(started)
	log.Debug().
		Int("files", result.FilesScanned).
		Int("skipped", result.FilesSkipped).
		Int("findings", len(result.Findings)).
		Dur("took", result.Duration).
		Msg("scan complete")
	return result, nil
}

// scanParallel collects the traversal order first, then evaluates files on a
// bounded worker group and concatenates per-file results in that order.
func scanParallel(ctx context.Context, cfg Config, result *Result, progress func(), skipped func(string, SkipReason)) error {
	var paths []string
	if err := walk(ctx, cfg, func(p string) error {
		paths = append(paths, p)
		return nil
	}, skipped); err != nil {
		return err
	}

	perFile := make([][]types.Finding, len(paths))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Threads)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perFile[i] = ScanFile(p, cfg.MaxBytes)
			mu.Lock()
			progress()
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, fs := range perFile {
		result.Findings = append(result.Findings, fs...)
	}
	result.FilesScanned = len(paths)
	return nil
}

// ScanFile evaluates one regular file: filename rules, then content rules if
// the file can be read as text. It never fails; unreadable or binary files
// simply produce no content findings.
func ScanFile(path string, maxBytes int64) []types.Finding {
	out := rules.EvaluateName(path)
	if text, ok := readText(path, maxBytes); ok {
		out = append(out, rules.EvaluateContent(path, text)...)
	}
	return out
}

func readText(path string, maxBytes int64) (string, bool) {
	if maxBytes > 0 {
		st, err := os.Stat(path)
		if err != nil || st.Size() > maxBytes {
			return "", false
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	if looksBinary(data) || !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

func looksBinary(b []byte) bool {
	if len(b) > sniffLen {
		b = b[:sniffLen]
	}
	return bytes.IndexByte(b, 0) >= 0
}

// CountTargets returns how many files a scan of cfg would evaluate. The CLI
// uses it to size its progress bar.
func CountTargets(ctx context.Context, cfg Config) (int, error) {
	n := 0
	err := walk(ctx, cfg, func(string) error {
		n++
		return nil
	}, nil)
	return n, err
}
