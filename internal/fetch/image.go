package fetch

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/repowatch/repowatch/internal/types"
	"github.com/rs/zerolog"
)

// Limits bounds image extraction. Zero fields take the defaults below.
type Limits struct {
	MaxBytes   int64         // total bytes written to disk
	MaxEntries int           // tar entries processed
	TimeBudget time.Duration // wall clock for pull plus extraction; 0 = none
}

const (
	DefaultMaxImageBytes   = 2 << 30
	DefaultMaxImageEntries = 200_000
)

func (l Limits) withDefaults() Limits {
	if l.MaxBytes <= 0 {
		l.MaxBytes = DefaultMaxImageBytes
	}
	if l.MaxEntries <= 0 {
		l.MaxEntries = DefaultMaxImageEntries
	}
	return l
}

// ImageFetcher pulls an OCI/Docker image and unpacks its flattened
// filesystem into a temp directory.
type ImageFetcher struct {
	Limits  Limits
	TempDir string
	Logger  zerolog.Logger

	// Pull overrides how the image is obtained. Defaults to a registry pull
	// authenticated with the local docker keychain.
	Pull func(ctx context.Context, ref name.Reference) (v1.Image, error)
}

func remotePull(ctx context.Context, ref name.Reference) (v1.Image, error) {
	return remote.Image(ref, remote.WithAuthFromKeychain(authn.DefaultKeychain), remote.WithContext(ctx))
}

func (f ImageFetcher) Fetch(ctx context.Context, locator string) (*Checkout, error) {
	ref, err := name.ParseReference(locator)
	if err != nil {
		return nil, fmt.Errorf("invalid image reference %q: %w", locator, err)
	}
	lim := f.Limits.withDefaults()
	if lim.TimeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, lim.TimeBudget)
		defer cancel()
	}
	log := f.Logger.With().Str("component", "fetch").Str("image", ref.String()).Logger()

	pull := f.Pull
	if pull == nil {
		pull = remotePull
	}
	log.Info().Msg("pulling image")
	img, err := pull(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image %q: %w", locator, err)
	}

	dir, cleanup, err := tempDir(f.TempDir, "repowatch-image-*")
	if err != nil {
		return nil, fmt.Errorf("create extraction dir: %w", err)
	}
	rc := mutate.Extract(img)
	defer rc.Close()

	st, err := untar(ctx, rc, dir, lim, log)
	if err != nil && !errors.Is(err, ErrLimitExceeded) {
		_ = cleanup()
		return nil, fmt.Errorf("extract image %q: %w", locator, err)
	}
	co := &Checkout{
		Dir:       dir,
		Repo:      ref.Context().Name(),
		Locator:   locator,
		Source:    types.SourceImage,
		Commit:    ref.Identifier(),
		Truncated: err != nil,
		cleanup:   cleanup,
	}
	if d, derr := img.Digest(); derr == nil {
		co.Commit = d.String()
	}
	ev := log.Info()
	if co.Truncated {
		ev = log.Warn().Err(err)
	}
	ev.Int("files", st.files).Int("skipped", st.skipped).Int64("bytes", st.bytes).Msg("image extracted")
	return co, nil
}

type untarStats struct {
	files   int
	skipped int
	entries int
	bytes   int64
}

// untar writes regular files and directories from r under dest. Entries
// that would land outside dest, links and device nodes are skipped. Modes are
// normalized so every extracted file stays readable by the scanner.
func untar(ctx context.Context, r io.Reader, dest string, lim Limits, log zerolog.Logger) (untarStats, error) {
	var st untarStats
	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return st, fmt.Errorf("%w: %w", ErrLimitExceeded, err)
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return st, nil
		}
		if err != nil {
			return st, err
		}
		st.entries++
		if st.entries > lim.MaxEntries {
			return st, fmt.Errorf("%w: more than %d entries", ErrLimitExceeded, lim.MaxEntries)
		}

		target, ok := safeJoin(dest, hdr.Name)
		if !ok {
			log.Debug().Str("entry", hdr.Name).Msg("skip entry outside extraction root")
			st.skipped++
			continue
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return st, err
			}
		case tar.TypeReg:
			if st.bytes+hdr.Size > lim.MaxBytes {
				return st, fmt.Errorf("%w: more than %d bytes", ErrLimitExceeded, lim.MaxBytes)
			}
			n, err := writeFile(target, tr, hdr.Size)
			st.bytes += n
			if err != nil {
				return st, err
			}
			st.files++
		default:
			st.skipped++
		}
	}
}

func writeFile(target string, r io.Reader, size int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}
	// A later layer entry may replace a path; the flattened stream can still
	// carry a symlink we skipped, so never write through an existing link.
	if fi, err := os.Lstat(target); err == nil && fi.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return 0, err
		}
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, io.LimitReader(r, size))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// safeJoin resolves a tar entry name under dest, rejecting absolute escapes
// and any ".." that climbs out.
func safeJoin(dest, entry string) (string, bool) {
	clean := filepath.Clean("/" + filepath.FromSlash(entry))
	if clean == string(filepath.Separator) {
		return "", false
	}
	if strings.Contains(filepath.ToSlash(entry), "../") || strings.HasSuffix(entry, "..") {
		return "", false
	}
	return filepath.Join(dest, clean), true
}
