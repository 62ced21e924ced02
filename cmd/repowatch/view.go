package repowatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/repowatch/repowatch/internal/cache"
	"github.com/repowatch/repowatch/internal/engine"
	"github.com/repowatch/repowatch/internal/report"
	"github.com/repowatch/repowatch/internal/tui"
	"github.com/repowatch/repowatch/internal/types"
	"github.com/spf13/cobra"
)

var flagViewJSON bool

func init() {
	cmd := &cobra.Command{
		Use:   "view [path]",
		Short: "Reopen the last scan of a directory without rescanning",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runView,
	}
	cmd.Flags().BoolVar(&flagViewJSON, "json", false, "print the cached findings as JSON instead of opening the viewer")
	rootCmd.AddCommand(cmd)
}

func runView(cmd *cobra.Command, args []string) error {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	results, err := cache.LoadResults(abs)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no cached scan for %s; run 'repowatch scan %s' first", abs, root)
	}
	if err != nil {
		return fmt.Errorf("read cached scan: %w", err)
	}
	if flagViewJSON {
		return report.WriteJSON(cmd.OutOrStdout(), results.Findings)
	}

	gcfg, lcfg := loadConfigs(abs)
	st := resolveSettings(abs, gcfg, lcfg)
	baseline, _ := report.LoadBaseline(report.DefaultBaselineFile)
	return tui.Run(results.Findings, tui.Options{
		Root: abs,
		Rescan: func() ([]types.Finding, error) {
			res, err := engine.ScanWithStats(context.Background(), st.engine)
			if err != nil {
				return nil, err
			}
			_ = cache.SaveResults(abs, res.Findings, res.FilesScanned)
			return res.Findings, nil
		},
		Baseline:     baseline,
		BaselinePath: report.DefaultBaselineFile,
		IgnorePath:   st.engine.IgnoreFile,
		Cached:       true,
		ScannedAt:    results.Timestamp,
	})
}
