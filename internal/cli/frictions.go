package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/suykerbuyk/flywheel/internal/friction"
	"github.com/suykerbuyk/flywheel/internal/service"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (a *app) classifyCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "classify <description...>",
		Short: "Classify a friction description without storing it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classifier, err := a.cfg.LoadClassifier()
			if err != nil {
				return err
			}
			svc := service.New(nil, classifier, a.log)
			v := svc.Classify(strings.Join(args, " "))

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, v)
			}

			c, as := v.Classification, v.Assessment
			fmt.Fprintf(out, "%s  (%s)\n", friction.TypeLabel(c.Type), friction.PriorityLabel(as.Priority))
			fmt.Fprintf(out, "  %s, %s\n", friction.ImpactLabel(as.Metadata.ImpactEstimate), friction.DifficultyLabel(as.Metadata.DifficultyEstimate))
			fmt.Fprintln(out, "\nSuggestions")
			for _, s := range c.Suggestions {
				fmt.Fprintf(out, "  - %s\n", s)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	var stage string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "add --stage <stage> <description...>",
		Short: "Classify and store a friction",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				r, err := svc.AddFriction(ctx, friction.Stage(stage), strings.Join(args, " "))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), r)
				}
				fmt.Fprint(cmd.OutOrStdout(), friction.FormatRecord(r))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "flywheel stage (acquisition, activation, adoption, retention, referral)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	_ = cmd.MarkFlagRequired("stage")
	return cmd
}

func (a *app) listCmd() *cobra.Command {
	var stage string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored frictions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				records, err := svc.Frictions(ctx, friction.Stage(stage))
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), records)
				}
				fmt.Fprint(cmd.OutOrStdout(), friction.Format(records, friction.Stage(stage)))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "only this stage")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <friction-id>",
		Short: "Show one stored friction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				r, err := svc.Friction(ctx, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), r)
				}
				fmt.Fprint(cmd.OutOrStdout(), friction.FormatRecord(r))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <friction-id>",
		Short: "Delete a stored friction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.Service) error {
				if err := svc.RemoveFriction(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
				return nil
			})
		},
	}
}
