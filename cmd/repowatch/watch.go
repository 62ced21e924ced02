package repowatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/repowatch/repowatch/internal/engine"
	"github.com/repowatch/repowatch/internal/logging"
	"github.com/repowatch/repowatch/internal/report"
	"github.com/repowatch/repowatch/internal/types"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

// DefaultSchedule is used when neither --schedule nor the config sets one.
const DefaultSchedule = "@every 1h"

var (
	flagSchedule    string
	flagWatchOnce   bool
	flagWatchServer string
)

func init() {
	cmd := &cobra.Command{
		Use:   "watch [target...]",
		Short: "Scan targets on a cron schedule and archive each result",
		Long: `Scan each target on a schedule. A target is a local path, a repository
(owner/name or URL) or an image reference prefixed with "image:". Targets and
schedule default to the watch section of the config file.`,
		Example: `  repowatch watch . acme/api image:nginx:1.27 --schedule "0 */6 * * *" --server http://localhost:8080
  repowatch watch --once`,
		RunE: runWatch,
	}
	cmd.Flags().StringVar(&flagSchedule, "schedule", "", "cron spec or descriptor (default \""+DefaultSchedule+"\")")
	cmd.Flags().BoolVar(&flagWatchOnce, "once", false, "scan every target once and exit")
	cmd.Flags().StringVar(&flagWatchServer, "server", "", "archive server that receives each report")
	cmd.Flags().StringVar(&flagToken, "token", "", "bearer token sent to --server")
	rootCmd.AddCommand(cmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	gcfg, lcfg := loadConfigs(".")
	targets := args
	schedule := flagSchedule
	if wc := lcfg.Watch; wc != nil {
		if len(targets) == 0 {
			targets = wc.Targets
		}
		schedule = pickString(schedule, wc.Schedule, nil)
	}
	if wc := gcfg.Watch; wc != nil {
		if len(targets) == 0 {
			targets = wc.Targets
		}
		schedule = pickString(schedule, wc.Schedule, nil)
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if len(targets) == 0 {
		return errors.New("no watch targets: pass them as arguments or set watch.targets in the config")
	}
	srv := pickString(flagWatchServer, lcfg.Server, gcfg.Server)
	log := logging.With("watch")

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runAll := func() {
		for _, t := range targets {
			if ctx.Err() != nil {
				return
			}
			if err := watchOnce(ctx, cmd.ErrOrStderr(), t, srv); err != nil {
				log.Error().Err(err).Str("target", t).Msg("scan failed")
			}
		}
	}
	if flagWatchOnce {
		runAll()
		return nil
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(schedule, runAll); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}
	log.Info().Str("schedule", schedule).Strs("targets", targets).Msg("watch started")
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	log.Info().Msg("watch stopped")
	return nil
}

// watchOnce scans one target and submits the report when a server is set,
// otherwise it writes a one-line summary.
func watchOnce(ctx context.Context, w io.Writer, spec, server string) error {
	kind, locator := classify(spec)
	tgt, err := openTarget(ctx, kind, locator, fetchOptions{})
	if err != nil {
		return err
	}
	defer tgt.Close()

	localRoot := ""
	if tgt.Source == types.SourceLocal {
		localRoot = tgt.Root
	}
	gcfg, lcfg := loadConfigs(localRoot)
	st := resolveSettings(tgt.Root, gcfg, lcfg)
	res, err := engine.ScanWithStats(ctx, st.engine)
	if err != nil {
		return err
	}
	findings := relocate(res.Findings, tgt.Root, tgt.display())

	c := report.CountBySeverity(findings)
	fmt.Fprintf(w, "%s  %s: %d findings (critical: %d, high: %d) in %d files\n",
		tgt.Source, spec, len(findings), c[types.SevCritical], c[types.SevHigh], res.FilesScanned)
	if server != "" {
		submitReport(ctx, w, server, flagToken, tgt, findings, res.FilesScanned)
	}
	return nil
}
