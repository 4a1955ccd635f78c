package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/suykerbuyk/flywheel/internal/funnel"
	"github.com/suykerbuyk/flywheel/internal/report"
	"github.com/suykerbuyk/flywheel/internal/service"
)

type metricFlags struct {
	attract, engage, delight int
}

func (m *metricFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&m.attract, "attract", 0, "visitors or leads generated")
	cmd.Flags().IntVar(&m.engage, "engage", 0, "customers actively interacting")
	cmd.Flags().IntVar(&m.delight, "delight", 0, "satisfied customers and promoters")
}

func (m metricFlags) metrics() funnel.Metrics {
	return funnel.Metrics{Attract: m.attract, Engage: m.engage, Delight: m.delight}
}

func (a *app) analyzeCmd() *cobra.Command {
	var m metricFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze --attract N --engage N --delight N",
		Short: "Find friction points in a set of funnel metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			metrics := m.metrics()
			if err := metrics.Validate(); err != nil {
				return &service.ValidationError{Field: "metrics", Message: err.Error(), Err: err}
			}
			if asJSON {
				points := funnel.Points(metrics)
				if points == nil {
					points = []funnel.Point{}
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"metrics":    metrics,
					"conversion": metrics.OverallConversion(),
					"points":     points,
				})
			}
			fmt.Fprint(cmd.OutOrStdout(), funnel.Format(metrics, ""))
			return nil
		},
	}
	m.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) periodCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Save and browse funnel periods",
	}
	cmd.AddCommand(a.periodSaveCmd(), a.periodListCmd(), a.periodShowCmd(), a.periodRmCmd())
	return cmd
}

func parseDay(flag, value string) (time.Time, error) {
	t, err := time.Parse(funnel.DateLayout, value)
	if err != nil {
		return time.Time{}, &service.ValidationError{Field: flag, Message: "want a YYYY-MM-DD date", Err: err}
	}
	return t, nil
}

func (a *app) periodSaveCmd() *cobra.Command {
	var m metricFlags
	var label, start, end string

	cmd := &cobra.Command{
		Use:   "save --label L --start YYYY-MM-DD --end YYYY-MM-DD --attract N --engage N --delight N",
		Short: "Save a funnel period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, err := parseDay("start", start)
			if err != nil {
				return err
			}
			to, err := parseDay("end", end)
			if err != nil {
				return err
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				saved, err := svc.SaveAnalysis(ctx, funnel.Analysis{
					Label:       label,
					PeriodStart: from,
					PeriodEnd:   to,
					Metrics:     m.metrics(),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%s)\n", saved.ID, saved.Label)
				return nil
			})
		},
	}
	m.register(cmd)
	cmd.Flags().StringVar(&label, "label", "", "period label, e.g. \"March 2026\"")
	cmd.Flags().StringVar(&start, "start", "", "first day of the period")
	cmd.Flags().StringVar(&end, "end", "", "last day of the period")
	for _, f := range []string{"label", "start", "end"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func (a *app) periodListCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved periods, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				list, err := svc.Analyses(ctx)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), list)
				}
				fmt.Fprint(cmd.OutOrStdout(), funnel.FormatAnalyses(list))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) periodShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <analysis-id>",
		Short: "Show a saved period with its friction points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				an, err := svc.Analysis(ctx, args[0])
				if err != nil {
					return err
				}
				title := fmt.Sprintf("%s (%s – %s)", an.Label,
					an.PeriodStart.Format(funnel.DateLayout), an.PeriodEnd.Format(funnel.DateLayout))
				fmt.Fprint(cmd.OutOrStdout(), funnel.Format(an.Metrics, title))
				return nil
			})
		},
	}
}

func (a *app) periodRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <analysis-id>",
		Short: "Delete a saved period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				if err := svc.RemoveAnalysis(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return nil
			})
		},
	}
}

func (a *app) compareCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "compare <current-id> <previous-id>",
		Short: "Compare two saved periods",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				pc, err := svc.CompareAnalyses(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), pc)
				}
				fmt.Fprint(cmd.OutOrStdout(), funnel.FormatComparison(pc.Comparison, pc.Current.Label, pc.Previous.Label))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) reportCmd() *cobra.Command {
	var previous, outDir string

	cmd := &cobra.Command{
		Use:   "report <analysis-id>",
		Short: "Render a markdown report for a saved period",
		Long: `Render a markdown report for a saved period together with every stored
friction. With --out the report is written to a file in that directory,
otherwise it is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				an, err := svc.Analysis(ctx, args[0])
				if err != nil {
					return err
				}
				d := report.Data{Analysis: an, Generated: time.Now(), Version: "v" + Version}
				if previous != "" {
					prev, err := svc.Analysis(ctx, previous)
					if err != nil {
						return err
					}
					d.Previous = &prev
				}
				if d.Frictions, err = svc.Frictions(ctx, ""); err != nil {
					return err
				}

				md := report.Markdown(d)
				if outDir == "" {
					fmt.Fprint(cmd.OutOrStdout(), md)
					return nil
				}

				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return fmt.Errorf("create report dir: %w", err)
				}
				path := filepath.Join(outDir, report.Filename(an))
				if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&previous, "previous", "", "saved period to compare against")
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write the report into")
	return cmd
}
