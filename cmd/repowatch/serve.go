package repowatch

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/repowatch/repowatch/internal/archive"
	"github.com/repowatch/repowatch/internal/config"
	"github.com/repowatch/repowatch/internal/logging"
	"github.com/repowatch/repowatch/internal/server"
	"github.com/spf13/cobra"
)

var (
	flagEnvFile  string
	flagAddr     string
	flagStore    string
	flagStoreDSN string
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the report archive HTTP service",
		Long: `Run the report archive. Settings come from the environment
(REPOWATCH_ADDR, REPOWATCH_STORE, REPOWATCH_STORE_DSN, REPOWATCH_LOG_LEVEL,
REPOWATCH_LOG_JSON), optionally loaded from --env-file; flags win.`,
		Example: `  repowatch serve --store bolt --dsn ./repowatch.db
  REPOWATCH_STORE=postgres REPOWATCH_STORE_DSN=postgres://localhost/repowatch repowatch serve`,
		RunE: runServe,
	}
	cmd.Flags().StringVar(&flagEnvFile, "env-file", ".env", "dotenv file to load before reading the environment")
	cmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default :8080)")
	cmd.Flags().StringVar(&flagStore, "store", "", "archive backend: memory|jsonl|bolt|redis|postgres")
	cmd.Flags().StringVar(&flagStoreDSN, "dsn", "", "backend location: file path, redis:// or postgres:// URL")
	rootCmd.AddCommand(cmd)
}

// serverConfig merges flags over the environment settings.
func serverConfig(cmd *cobra.Command) (config.ServerConfig, error) {
	cfg, err := config.ReadServer(flagEnvFile)
	if err != nil {
		return cfg, err
	}
	if flagAddr != "" {
		cfg.Addr = flagAddr
	}
	if flagStore != "" {
		cfg.Store = flagStore
	}
	if flagStoreDSN != "" {
		cfg.StoreDSN = flagStoreDSN
	}
	if !cmd.Flags().Changed("log-level") && cfg.LogLevel != "" {
		flagLogLevel = cfg.LogLevel
	}
	if cfg.LogJSON {
		flagLogJSON = true
	}
	return cfg, cfg.Validate()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := serverConfig(cmd)
	if err != nil {
		return err
	}
	if err := logging.Setup(logging.Options{Level: flagLogLevel, JSON: flagLogJSON, NoColor: flagNoColor, Out: cmd.ErrOrStderr()}); err != nil {
		return err
	}
	log := logging.With("serve")

	ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := archive.Open(ctx, cfg.Store, cfg.StoreDSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("close store")
		}
	}()
	log.Info().Str("store", cfg.Store).Str("addr", cfg.Addr).Msg("starting archive service")

	srv := server.New(store, server.Options{Version: version, Logger: *logging.L()})
	return srv.Run(ctx, cfg.Addr)
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
