package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/admissions-allocator/pkg/core/services"
)

// QuotaCmd creates the quota command group
func QuotaCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "View and change per-program seat quotas",
	}

	cmd.AddCommand(quotaListCmd(app))
	cmd.AddCommand(quotaSetCmd(app))
	cmd.AddCommand(recommendCmd(app))

	return cmd
}

func quotaListCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the current quota of every program",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			quotas, err := services.ListQuotas(app.Ctx, app.Database, app.Cfg, app.Logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			heading.Fprintf(out, "\nQuotas\n\n")
			printQuotas(out, quotas, app.Cfg.ProgramNames(), app.Cfg.ReservePercent)
			fmt.Fprintln(out)
			return nil
		},
	}
}

func quotaSetCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set PROGRAM=SEATS [PROGRAM=SEATS...]",
		Short: "Set one or more quotas",
		Long: `Set quotas between 0 and 200. Each program is updated on its own; a failure
on one program keeps that program's previous quota and does not stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			updates, err := parseQuotaArgs(args)
			if err != nil {
				return err
			}

			app.Logger.Debug("quota set command", zap.Any("updates", updates))

			result := services.UpdateQuotas(app.Ctx, app.Database, app.Cfg, app.Logger, updates)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			for _, program := range result.Updated {
				success.Fprintf(out, "  ✓ %s set to %d\n", program, updates[program])
			}
			for _, w := range result.Warnings {
				warning.Fprintf(out, "  ⚠️  %s\n", w)
			}
			for _, f := range result.Failed {
				failure.Fprintf(out, "  ✗ %s=%d: %s\n", f.Program, f.Seats, f.Error)
			}
			fmt.Fprintln(out)

			if len(result.Failed) > 0 {
				return fmt.Errorf("%d of %d quota update(s) failed", len(result.Failed), len(updates))
			}
			return nil
		},
	}
}

func recommendCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend",
		Short: "Suggest quota changes from current demand",
		Long:  "Suggest quota changes from oversubscription and utilization. Suggestions are never applied.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.RecommendQuotas(app.Ctx, app.Database, app.Cfg, app.Logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			heading.Fprintf(out, "\n💡 Quota Recommendations\n\n")
			if len(result.Recommendations) == 0 {
				success.Fprintln(out, "Every quota matches current demand.")
				fmt.Fprintln(out)
				return nil
			}

			table := newTable(out, []string{"Priority", "Program", "Current", "Recommended", "Reason"})
			for _, r := range result.Recommendations {
				table.Append([]string{
					string(r.Priority),
					r.Program,
					strconv.Itoa(r.CurrentQuota),
					strconv.Itoa(r.RecommendedQuota),
					r.Reason,
				})
			}
			table.Render()
			dim.Fprintln(out, "\nApply a suggestion with: quota set PROGRAM=SEATS")

			return nil
		},
	}
}
