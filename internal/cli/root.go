// Package cli implements the fw command tree.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/suykerbuyk/flywheel/internal/config"
	"github.com/suykerbuyk/flywheel/internal/logging"
	"github.com/suykerbuyk/flywheel/internal/service"
	"github.com/suykerbuyk/flywheel/internal/store"
)

// Version is the fw release.
const Version = "0.1.0"

// app carries what every command needs once the root has run.
type app struct {
	debug bool
	cfg   config.Config
	log   *slog.Logger
}

// NewRootCmd builds the full fw command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "fw",
		Short: "Flywheel friction classifier and funnel analyzer",
		Long: `fw classifies customer-journey frictions into flywheel problem types,
prioritizes them, and analyzes attract/engage/delight funnel periods.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.initCmd(),
		a.classifyCmd(),
		a.addCmd(),
		a.listCmd(),
		a.showCmd(),
		a.rmCmd(),
		a.analyzeCmd(),
		a.periodCmd(),
		a.compareCmd(),
		a.reportCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.watchCmd(),
		a.serveCmd(),
		a.checkCmd(),
		versionCmd(),
	)
	return root
}

// Execute runs fw and returns the process exit code.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fw: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	level, levelErr := logging.ParseLevel(cfg.Log.Level)
	if a.debug {
		level = slog.LevelDebug
	}
	a.log = logging.New(cmd.ErrOrStderr(), level, cfg.Log.Color)
	slog.SetDefault(a.log)
	if levelErr != nil {
		a.log.Warn("ignoring log level", "error", levelErr)
	}
	return nil
}

// openService opens the store and builds the service. The returned
// func closes the store.
func (a *app) openService(ctx context.Context) (*service.Service, func(), error) {
	if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	classifier, err := a.cfg.LoadClassifier()
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(ctx, a.cfg.DatabasePath())
	if err != nil {
		return nil, nil, err
	}
	a.log.Debug("opened store", "path", a.cfg.DatabasePath())

	return service.New(st, classifier, a.log), func() { _ = st.Close() }, nil
}

// withService runs fn against an open service.
func (a *app) withService(cmd *cobra.Command, fn func(context.Context, *service.Service) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, closeFn, err := a.openService(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, svc)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		// the version needs no config
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "fw v%s (flywheel)\n", Version)
		},
	}
}
