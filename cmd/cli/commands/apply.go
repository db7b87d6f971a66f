package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/admissions-allocator/pkg/core/allocator"
	"github.com/jakechorley/admissions-allocator/pkg/core/services"
)

// ApplyCmd creates the apply command
func ApplyCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Persist the reconciled status of ranked applicants",
		Long: `Re-rank each program inside its program lock and write the effective status of
every selected applicant. Existing overrides are kept. Use --dry-run to preview.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			program, _ := cmd.Flags().GetString("program")
			minRank, _ := cmd.Flags().GetInt("min-rank")
			maxRank, _ := cmd.Flags().GetInt("max-rank")
			ids, _ := cmd.Flags().GetStringSlice("id")
			force, _ := cmd.Flags().GetBool("force")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			verbose, _ := cmd.Flags().GetBool("verbose")

			app.Logger.Debug("apply command",
				zap.String("program", program),
				zap.Int("min_rank", minRank),
				zap.Int("max_rank", maxRank),
				zap.Strings("ids", ids),
				zap.Bool("force", force),
				zap.Bool("dry_run", dryRun))

			result, err := services.ApplyStatuses(app.Ctx, app.Database, app.Cfg, app.Logger, services.ApplyStatusesOptions{
				Filter: allocator.ApplyFilter{
					Program:      program,
					MinRank:      minRank,
					MaxRank:      maxRank,
					ApplicantIDs: ids,
				},
				Force:  force,
				DryRun: dryRun,
			})
			if err != nil {
				return fmt.Errorf("apply failed: %w", err)
			}

			out := cmd.OutOrStdout()
			heading.Fprintf(out, "\n✅ Status Apply\n\n")
			fmt.Fprintf(out, "Run ID: %s\n", result.RunID)
			if dryRun {
				warning.Fprintf(out, "Mode:   🧪 DRY RUN (not saved)\n")
			}
			fmt.Fprintln(out)

			table := newTable(out, []string{"Program", "Processed", "Skipped", "Errors"})
			for _, p := range result.Programs {
				r := result.PerProgram[p]
				table.Append([]string{p, strconv.Itoa(r.Processed), strconv.Itoa(r.Skipped), strconv.Itoa(r.Errors)})
			}
			t := result.Total
			table.SetFooter([]string{"Total", strconv.Itoa(t.Processed), strconv.Itoa(t.Skipped), strconv.Itoa(t.Errors)})
			table.Render()

			changes := newTable(out, []string{"Program", "Rank", "ID", "Name", "From", "To", "Outcome", "Note"})
			shown := 0
			for _, r := range t.Results {
				if r.Outcome == allocator.OutcomeSkipped && !verbose {
					continue
				}
				note := r.Reason
				if r.Error != "" {
					note = r.Error
				}
				changes.Append([]string{
					r.Program,
					strconv.Itoa(r.Rank),
					r.ApplicantID,
					r.FullName,
					string(r.From),
					statusCell(r.To, true),
					outcomeCell(r.Outcome),
					note,
				})
				shown++
			}
			if shown > 0 {
				fmt.Fprintln(out)
				changes.Render()
			}

			if len(t.NotFound) > 0 {
				warning.Fprintf(out, "\n⚠️  Not found: %s\n", strings.Join(t.NotFound, ", "))
			}
			if t.Errors > 0 {
				failure.Fprintf(out, "\n⚠️  %d write(s) failed\n", t.Errors)
			}
			fmt.Fprintln(out)

			return nil
		},
	}

	cmd.Flags().StringP("program", "p", "", "Only apply to this program code")
	cmd.Flags().Int("min-rank", 0, "Only apply from this rank onward")
	cmd.Flags().Int("max-rank", 0, "Only apply to ranks up to this position")
	cmd.Flags().StringSlice("id", nil, "Only apply to these applicant IDs")
	cmd.Flags().Bool("force", false, "Rewrite statuses even when unchanged")
	cmd.Flags().Bool("dry-run", false, "Show what would be written without saving")
	cmd.Flags().BoolP("verbose", "v", false, "Also list skipped applicants")

	return cmd
}

func outcomeCell(o allocator.Outcome) string {
	switch o {
	case allocator.OutcomeUpdated:
		return success.Sprint(string(o))
	case allocator.OutcomeWouldUpdate:
		return warning.Sprint(string(o))
	case allocator.OutcomeFailed:
		return failure.Sprint(string(o))
	default:
		return dim.Sprint(string(o))
	}
}
