package repowatch

import (
	"errors"
	"fmt"
	"os"

	"github.com/repowatch/repowatch/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagNoColor       bool
	flagLogLevel      string
	flagLogJSON       bool
	flagNoUpdateCheck bool

	// version is overridden at build time with -ldflags "-X".
	version = "0.3.0"
)

// rootCmd is the base Cobra command for the repowatch CLI.
var rootCmd = &cobra.Command{
	Use:   "repowatch",
	Short: "Find exposed secrets and risky files in a source tree",
	Long: "repowatch walks a directory tree, a GitHub repository or a container image " +
		"and reports leaked credentials, sensitive files and insecure patterns.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return logging.Setup(logging.Options{
			Level:   flagLogLevel,
			JSON:    flagLogJSON,
			NoColor: flagNoColor,
			Out:     cmd.ErrOrStderr(),
		})
	},
}

// exitError carries a process exit status without being printed as an error.
type exitError struct {
	code int
}

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// Execute runs the repowatch CLI. It should be called by the main package.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var ee exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: trace|debug|info|warn|error (default warn)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "write logs as JSON lines")
	rootCmd.PersistentFlags().BoolVar(&flagNoUpdateCheck, "no-update-check", false, "disable the release check")
}
