package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/suykerbuyk/flywheel/internal/archive"
	"github.com/suykerbuyk/flywheel/internal/check"
	"github.com/suykerbuyk/flywheel/internal/config"
	"github.com/suykerbuyk/flywheel/internal/inbox"
	"github.com/suykerbuyk/flywheel/internal/server"
	"github.com/suykerbuyk/flywheel/internal/service"
)

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config and create the data directory, database and inbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			cfgPath, err := config.WriteDefault(a.cfg.DataDir)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "config:   %s\n", config.CompressHome(cfgPath))

			err = a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				fmt.Fprintf(out, "database: %s\n", config.CompressHome(a.cfg.DatabasePath()))
				return inbox.New(a.cfg.Inbox.Dir, svc, a.log).Prepare()
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "inbox:    %s\n", config.CompressHome(a.cfg.Inbox.Dir))
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [path]",
		Short: "Export every friction and saved period to a JSON Lines bundle",
		Long: `Export every friction and saved period to a JSON Lines bundle. A path
ending in .jsonl.zst is zstd-compressed. Without a path the bundle goes
to the exports directory under data_dir.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := archive.ExportPath(a.cfg.ExportDir(), time.Now(), a.cfg.Export.Compress)
			if len(args) == 1 {
				path = args[0]
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				t, err := svc.Export(ctx, path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d frictions, %d periods to %s\n", t.Frictions, t.Analyses, t.Path)
				return nil
			})
		},
	}
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <path>",
		Short: "Import a bundle written by fw export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				t, err := svc.Import(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d frictions, %d periods from %s\n", t.Frictions, t.Analyses, t.Path)
				return nil
			})
		},
	}
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func (a *app) watchCmd() *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Store frictions dropped as .txt files into the inbox",
		Long: `Watch <inbox>/<stage>/*.txt. Each file becomes one friction for that
stage and is then moved to processed/ or failed/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd)
			defer stop()

			return a.withService(cmd, func(_ context.Context, svc *service.Service) error {
				w := inbox.New(a.cfg.Inbox.Dir, svc, a.log)
				if !once {
					return w.Run(ctx)
				}

				if err := w.Prepare(); err != nil {
					return err
				}
				sum, err := w.Sweep(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "processed %d, failed %d\n", sum.Processed, sum.Failed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "process waiting files and exit")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API, /health and /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			ctx, stop := signalContext(cmd)
			defer stop()

			return a.withService(cmd, func(_ context.Context, svc *service.Service) error {
				ctx, cancel := context.WithCancel(ctx)
				defer cancel()

				watchErr := make(chan error, 1)
				if watch {
					w := inbox.New(a.cfg.Inbox.Dir, svc, a.log)
					go func() { watchErr <- w.Run(ctx) }()
				} else {
					close(watchErr)
				}

				err := server.New(svc, a.log, addr).Run(ctx)
				cancel()
				if werr := <-watchErr; werr != nil && err == nil {
					err = werr
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "also watch the inbox")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check config, data directory, database, rules and inbox",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			report := check.Run(ctx, a.cfg)
			fmt.Fprint(cmd.OutOrStdout(), report.Format())
			if report.HasFailures() {
				return fmt.Errorf("check found failures")
			}
			return nil
		},
	}
}
