package repowatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/repowatch/repowatch/internal/cache"
	"github.com/repowatch/repowatch/internal/config"
	"github.com/repowatch/repowatch/internal/engine"
	"github.com/repowatch/repowatch/internal/logging"
	"github.com/repowatch/repowatch/internal/report"
	"github.com/repowatch/repowatch/internal/sink"
	"github.com/repowatch/repowatch/internal/tui"
	"github.com/repowatch/repowatch/internal/types"
	"github.com/repowatch/repowatch/internal/update"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// DefaultIgnoreFile is read from the scan root when no ignore file is configured.
const DefaultIgnoreFile = ".repowatchignore"

var (
	flagPath           string
	flagInclude        string
	flagExclude        string
	flagIgnoreFile     string
	flagMaxBytes       int64
	flagMaxDepth       int
	flagThreads        int
	flagJSON           bool
	flagSARIF          bool
	flagTable          bool
	flagText           bool
	flagTUI            bool
	flagFailOn         string
	flagBaseline       string
	flagUpdateBaseline bool
	flagServer         string
	flagToken          string
	flagGitHub         string
	flagImage          string
	flagBranch         string
	flagGitToken       string
	flagTimeout        time.Duration
	flagImageMaxBytes  int64
	flagImageEntries   int
)

func init() {
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a directory, GitHub repository or container image",
		Example: `  repowatch scan
  repowatch scan ./service --table --fail-on critical
  repowatch scan --github acme/api --branch main --json
  repowatch scan --image alpine:3.20 --sarif > results.sarif`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScan,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagPath, "path", "p", ".", "path to scan")
	cmd.Flags().StringVar(&flagGitHub, "github", "", "clone and scan a repository (owner/name or URL)")
	cmd.Flags().StringVar(&flagBranch, "branch", "", "branch to clone with --github (default: remote HEAD)")
	cmd.Flags().StringVar(&flagGitToken, "git-token", "", "token for private repositories (default $GITHUB_TOKEN)")
	cmd.Flags().StringVar(&flagImage, "image", "", "pull and scan a container image (e.g. alpine:3.20)")
	cmd.Flags().Int64Var(&flagImageMaxBytes, "image-max-bytes", 0, "stop extracting an image after this many bytes (0 = 2GiB)")
	cmd.Flags().IntVar(&flagImageEntries, "image-max-entries", 0, "stop extracting an image after this many entries (0 = 200000)")
	cmd.Flags().StringVar(&flagInclude, "include", "", "comma-separated include globs")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "comma-separated exclude globs")
	cmd.Flags().StringVar(&flagIgnoreFile, "ignore-file", "", "gitignore-style file of paths to skip (default <root>/"+DefaultIgnoreFile+")")
	cmd.Flags().Int64Var(&flagMaxBytes, "max-bytes", 0, "skip content rules for files larger than this (0 = no limit)")
	cmd.Flags().IntVar(&flagMaxDepth, "max-depth", 0, "directory recursion limit (0 = 64)")
	cmd.Flags().IntVar(&flagThreads, "threads", 0, "files scanned concurrently (0 or 1 = sequential)")
	cmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "abort the scan after this long (0 = no limit)")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "emit JSON")
	cmd.Flags().BoolVar(&flagSARIF, "sarif", false, "emit SARIF 2.1.0")
	cmd.Flags().BoolVar(&flagTable, "table", false, "emit a bordered table")
	cmd.Flags().BoolVar(&flagText, "text", false, "emit findings grouped by category (default)")
	cmd.Flags().BoolVar(&flagTUI, "tui", false, "browse findings interactively")
	cmd.Flags().StringVar(&flagFailOn, "fail-on", "", "exit 1 on findings at or above low|medium|high|critical, or never (default medium)")
	cmd.Flags().StringVar(&flagBaseline, "baseline", report.DefaultBaselineFile, "baseline file of accepted findings")
	cmd.Flags().BoolVar(&flagUpdateBaseline, "update-baseline", false, "write the current findings to the baseline file and exit")
	cmd.Flags().StringVar(&flagServer, "server", "", "archive server that receives the report (e.g. http://localhost:8080)")
	cmd.Flags().StringVar(&flagToken, "token", "", "bearer token sent to --server")
	cmd.MarkFlagsMutuallyExclusive("github", "image")
	cmd.MarkFlagsMutuallyExclusive("json", "sarif", "table", "text", "tui")
}

// scanSettings is the flag/config resolution shared by scan, view and watch.
type scanSettings struct {
	engine engine.Config
	format string
	failOn string
	server string
}

func resolveSettings(root string, gcfg, lcfg config.FileConfig) scanSettings {
	// A file root has no default ignore file; an explicit relative one is
	// resolved next to the file.
	base, isDir := root, true
	if st, err := os.Stat(root); err == nil && !st.IsDir() {
		base, isDir = filepath.Dir(root), false
	}
	ignoreFile := pickString(flagIgnoreFile, lcfg.IgnoreFile, gcfg.IgnoreFile)
	if ignoreFile == "" && isDir {
		ignoreFile = DefaultIgnoreFile
	}
	if ignoreFile != "" && !filepath.IsAbs(ignoreFile) {
		ignoreFile = filepath.Join(base, ignoreFile)
	}
	log := logging.L()
	s := scanSettings{
		engine: engine.Config{
			Root:         root,
			IncludeGlobs: pickString(flagInclude, lcfg.Include, gcfg.Include),
			ExcludeGlobs: pickString(flagExclude, lcfg.Exclude, gcfg.Exclude),
			IgnoreFile:   ignoreFile,
			MaxBytes:     pickInt64(flagMaxBytes, lcfg.MaxBytes, gcfg.MaxBytes),
			MaxDepth:     pickInt(flagMaxDepth, lcfg.MaxDepth, gcfg.MaxDepth),
			Threads:      pickInt(flagThreads, lcfg.Threads, gcfg.Threads),
			Logger:       log,
		},
		format: pickString("", lcfg.Format, gcfg.Format),
		failOn: pickString(flagFailOn, lcfg.FailOn, gcfg.FailOn),
		server: pickString(flagServer, lcfg.Server, gcfg.Server),
	}
	switch {
	case flagJSON:
		s.format = "json"
	case flagSARIF:
		s.format = "sarif"
	case flagTable:
		s.format = "table"
	case flagText:
		s.format = "text"
	case flagTUI:
		s.format = "tui"
	}
	if s.format == "" {
		s.format = "text"
	}
	if s.failOn == "" {
		s.failOn = "medium"
	}
	return s
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmdContext(cmd)
	if flagTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flagTimeout)
		defer cancel()
	}

	kind, locator := types.SourceLocal, flagPath
	switch {
	case flagGitHub != "":
		kind, locator = types.SourceGitHub, flagGitHub
	case flagImage != "":
		kind, locator = types.SourceImage, flagImage
	case len(args) == 1:
		locator = args[0]
	}
	tgt, err := openTarget(ctx, kind, locator, fetchOptions{
		Branch:          flagBranch,
		Token:           flagGitToken,
		ImageMaxBytes:   flagImageMaxBytes,
		ImageMaxEntries: flagImageEntries,
	})
	if err != nil {
		return err
	}
	defer tgt.Close()

	// Repo-local config is only trusted for local trees.
	localRoot := ""
	if tgt.Source == types.SourceLocal {
		localRoot = tgt.Root
	}
	gcfg, lcfg := loadConfigs(localRoot)
	st := resolveSettings(tgt.Root, gcfg, lcfg)
	noColor := pickBool(flagNoColor, lcfg.NoColor, gcfg.NoColor)

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	machine := st.format == "json" || st.format == "sarif"

	if !machine && !flagNoUpdateCheck {
		if latest, newer, _ := update.Check(ctx, version, false); newer {
			fmt.Fprintf(errOut, "(new version available: v%s)  run 'repowatch update' to upgrade\n", latest)
		}
	}

	progress, finish := progressBar(ctx, errOut, st.engine, machine)
	st.engine.Progress = progress
	res, err := engine.ScanWithStats(ctx, st.engine)
	finish()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("scan timed out after %s", flagTimeout)
		}
		return fmt.Errorf("scan error: %w", err)
	}
	findings := relocate(res.Findings, tgt.Root, tgt.display())

	if tgt.Source == types.SourceLocal {
		if err := cache.SaveResults(tgt.Root, findings, res.FilesScanned); err != nil {
			logging.L().Debug().Err(err).Msg("could not cache results")
		}
	}

	if flagUpdateBaseline {
		if err := report.SaveBaseline(flagBaseline, findings); err != nil {
			return fmt.Errorf("write baseline: %w", err)
		}
		fmt.Fprintf(out, "Baseline updated: %d findings in %s\n", len(findings), flagBaseline)
		return nil
	}

	baseline, berr := report.LoadBaseline(flagBaseline)
	if berr != nil && !errors.Is(berr, os.ErrNotExist) {
		logging.L().Warn().Err(berr).Str("file", flagBaseline).Msg("ignoring unreadable baseline")
	}
	newFindings := report.FilterNewFindings(findings, baseline)
	if newFindings == nil {
		newFindings = []types.Finding{}
	}

	opts := report.PrintOptions{
		NoColor:      !report.ColorEnabled(noColor, fileOf(out)),
		Duration:     res.Duration,
		FilesScanned: res.FilesScanned,
		FilesSkipped: res.FilesSkipped,
	}
	switch st.format {
	case "json":
		if err := report.WriteJSON(out, newFindings); err != nil {
			return err
		}
	case "sarif":
		stats := map[string]int{"filesScanned": res.FilesScanned, "filesSkipped": res.FilesSkipped}
		if err := report.WriteSARIFWithStats(out, newFindings, version, stats); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
	case "table":
		report.PrintTable(out, newFindings, opts)
	case "tui":
		rescan := func() ([]types.Finding, error) {
			cfg := st.engine
			cfg.Progress = nil
			r, err := engine.ScanWithStats(context.Background(), cfg)
			if err != nil {
				return nil, err
			}
			return relocate(r.Findings, tgt.Root, tgt.display()), nil
		}
		if tgt.Source != types.SourceLocal {
			rescan = nil
		}
		if err := tui.Run(findings, tui.Options{
			Root:         tgt.Root,
			Rescan:       rescan,
			Baseline:     baseline,
			BaselinePath: flagBaseline,
			IgnorePath:   st.engine.IgnoreFile,
		}); err != nil {
			return err
		}
	default:
		report.PrintText(out, newFindings, opts)
	}

	if st.server != "" {
		submitReport(ctx, errOut, st.server, flagToken, tgt, findings, res.FilesScanned)
	}

	if failOn := strings.ToLower(st.failOn); failOn != "never" && failOn != "none" && report.ShouldFail(newFindings, failOn) {
		return exitError{code: 1}
	}
	return nil
}

// submitReport posts the full (unfiltered) result to the archive. Failures
// are reported as warnings and never change the exit status.
func submitReport(ctx context.Context, errOut io.Writer, server, token string, tgt *target, findings []types.Finding, filesScanned int) {
	ack, err := sink.New(server, token).Submit(ctx, sink.Report{
		Version:      version,
		Repo:         tgt.Repo,
		Source:       tgt.Source,
		Locator:      tgt.Locator,
		Commit:       tgt.Commit,
		Branch:       tgt.Branch,
		FilesScanned: filesScanned,
		Findings:     findings,
	})
	if err != nil {
		fmt.Fprintln(errOut, "report warning:", err)
		return
	}
	logging.L().Info().Str("id", ack.ID).Int("archived_scans", ack.Totals.Scans).Msg("report submitted")
}

// progressBar returns a per-file callback that redraws a counter on w, and a
// function that ends the line. It is a no-op unless w is a terminal.
func progressBar(ctx context.Context, w io.Writer, cfg engine.Config, machine bool) (func(), func()) {
	f := fileOf(w)
	if machine || f == nil || !term.IsTerminal(int(f.Fd())) {
		return nil, func() {}
	}
	total, err := engine.CountTargets(ctx, cfg)
	if err != nil || total == 0 {
		return nil, func() {}
	}
	done := 0
	tick := func() {
		done++
		if done%10 == 0 || done == total {
			fmt.Fprintf(w, "\r[%d/%d] %.0f%%", done, total, float64(done)/float64(total)*100)
		}
	}
	return tick, func() { fmt.Fprintln(w) }
}

func fileOf(w io.Writer) *os.File {
	f, _ := w.(*os.File)
	return f
}
