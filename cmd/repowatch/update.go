package repowatch

import (
	"fmt"
	"runtime"

	"github.com/repowatch/repowatch/internal/update"
	"github.com/spf13/cobra"
)

var flagCheckOnly bool

func init() {
	upd := &cobra.Command{
		Use:   "update",
		Short: "Update repowatch to the latest release",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if flagCheckOnly {
				latest, newer, err := update.Check(cmdContext(cmd), version, false)
				if err != nil {
					return err
				}
				if newer {
					fmt.Fprintf(out, "v%s is available (running v%s)\n", latest, version)
				} else {
					fmt.Fprintf(out, "repowatch v%s is up to date\n", version)
				}
				return nil
			}
			installed, err := update.Apply(version)
			if err != nil {
				return fmt.Errorf("self-update failed: %w", err)
			}
			if installed == "" || !update.Newer(installed, version) {
				fmt.Fprintf(out, "repowatch v%s is up to date\n", version)
				return nil
			}
			fmt.Fprintf(out, "Updated to v%s\n", installed)
			return nil
		},
	}
	upd.Flags().BoolVar(&flagCheckOnly, "check", false, "only report whether a newer release exists")
	rootCmd.AddCommand(upd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "repowatch v%s (%s/%s, %s)\n", version, runtime.GOOS, runtime.GOARCH, runtime.Version())
		},
	})
}
