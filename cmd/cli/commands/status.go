package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/admissions-allocator/pkg/core/services"
)

// StatusCmd creates the status command group
func StatusCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Override or inspect an applicant's status",
	}

	cmd.AddCommand(statusSetCmd(app))
	cmd.AddCommand(statusHistoryCmd(app))

	return cmd
}

func statusSetCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <applicant_id> <status>",
		Short: "Set an applicant's status (approved, waitlisted, rejected or pending)",
		Long: `Record an administrative decision for one applicant. The decision wins over the
quota cutoff until it is reset to pending.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app.Logger.Debug("status set command",
				zap.String("applicant_id", args[0]),
				zap.String("status", args[1]))

			result, err := services.SetApplicantStatus(app.Ctx, app.Database, app.Cfg, app.Logger, args[0], args[1])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			success.Fprintf(out, "\n✓ %s (%s): %s → %s\n", result.ApplicantID, result.FullName, result.From, result.To)
			if result.Rank > 0 {
				fmt.Fprintf(out, "Rank %d in %s, quota gives %s, effective %s\n",
					result.Rank, result.Program, result.QuotaStatus, statusCell(result.EffectiveStatus, result.Consistent))
			} else {
				dim.Fprintf(out, "Program %q is not ranked\n", result.Program)
			}
			if result.Rank > 0 && !result.Consistent {
				warning.Fprintln(out, "⚠️  This decision disagrees with the applicant's rank")
			}
			fmt.Fprintln(out)

			return nil
		},
	}
}

func statusHistoryCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "history <applicant_id>",
		Short: "Show every recorded status change of an applicant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes, err := services.StatusHistory(app.Ctx, app.Database, app.Cfg, app.Logger, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			heading.Fprintf(out, "\nStatus history of %s\n\n", args[0])
			if len(changes) == 0 {
				dim.Fprintln(out, "No status changes recorded")
				fmt.Fprintln(out)
				return nil
			}

			table := newTable(out, []string{"Changed At", "From", "To", "Run"})
			for _, c := range changes {
				from := c.FromStatus
				if from == "" {
					from = "-"
				}
				run := c.RunID
				if run == "" {
					run = "manual"
				}
				table.Append([]string{c.ChangedAt, from, c.ToStatus, run})
			}
			table.Render()
			fmt.Fprintln(out)

			return nil
		},
	}
}
