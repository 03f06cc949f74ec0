package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/askiada/xdp/internal/config"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "xdp",
	Short: "Reduce XMM-Newton observations with SAS",
	Long: `xdp downloads an XMM-Newton observation and runs the SAS reduction on it:
cifbuild, odfingest, emchain, epchain, good time intervals and images.

Stages run one after the other and the run stops at the first failing stage.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}

		if len(args) > 0 {
			cfg.Observation = args[0]
		}

		logger, err = newLogger(cfg.Logging.Level, verbose)
		if err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	if verbose {
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return zapConfig.Build()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log the output of the SAS tasks")

	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log the commands without running them")
	runCmd.Flags().BoolVar(&skipDownload, "skip-download", false, "Use the archive already extracted in the work directory")
	runCmd.Flags().StringVar(&graphPath, "graph", "", "Write the stage graph to this DOT file")
	runCmd.Flags().StringVarP(&workDir, "workdir", "w", "", "Work directory, overrides the config")

	planCmd.Flags().StringVarP(&workDir, "workdir", "w", "", "Work directory, overrides the config")
	planCmd.Flags().BoolVar(&skipDownload, "skip-download", false, "Leave the archive fetch out of the plan")

	downloadCmd.Flags().StringVarP(&workDir, "workdir", "w", "", "Work directory, overrides the config")

	rootCmd.AddCommand(runCmd, planCmd, downloadCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
