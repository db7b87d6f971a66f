package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/admissions-allocator/pkg/core/services"
	"github.com/jakechorley/admissions-allocator/pkg/export"
)

// SimulateCmd creates the simulate command
func SimulateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate [PROGRAM=SEATS...]",
		Short: "Simulate the allocation under hypothetical quotas",
		Long: `Replay the allocation with the given quotas laid over the live ones.
The top applicants up to the quota are accepted, the reserve after them is waitlisted
and the rest are rejected. Nothing is written.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseQuotaArgs(args)
			if err != nil {
				return err
			}
			details, _ := cmd.Flags().GetBool("details")

			app.Logger.Debug("simulate command", zap.Any("overrides", overrides))

			result, err := services.SimulateAllocation(app.Ctx, app.Database, app.Cfg, app.Logger, overrides)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			heading.Fprintf(out, "\n🧪 Simulation (reserve %d%%)\n\n", app.Cfg.ReservePercent)

			table := newTable(out, []string{
				"Program", "Live Quota", "Quota", "Reserve", "Accepted", "Δ Accepted", "Waitlisted", "Rejected",
				"Cutoff", "Waitlist Cutoff",
			})
			for _, d := range result.Deltas {
				p := result.Simulation.Programs[d.Program]
				table.Append([]string{
					d.Program,
					strconv.Itoa(d.LiveQuota),
					strconv.Itoa(d.SimulatedQuota),
					strconv.Itoa(p.Reserve),
					strconv.Itoa(p.Accepted),
					fmt.Sprintf("%+d", d.AcceptedChange()),
					strconv.Itoa(p.Waitlisted),
					strconv.Itoa(p.Rejected),
					export.FormatScore(p.CutoffScore),
					export.FormatScore(p.WaitlistCutoffScore),
				})
			}
			table.Render()

			s := result.Simulation.Summary
			fmt.Fprintf(out, "\nAccepted %d, waitlisted %d, rejected %d of %d applicants; %d seats, utilization %.1f%%\n",
				s.Accepted, s.Waitlisted, s.Rejected, s.Applicants, s.TotalQuota, s.Utilization)

			if details {
				for _, d := range result.Deltas {
					p := result.Simulation.Programs[d.Program]
					if len(p.Entries) == 0 {
						continue
					}
					heading.Fprintf(out, "\n%s\n\n", d.Program)
					entries := newTable(out, []string{"Rank", "ID", "Name", "Score", "Status"})
					for _, e := range p.Entries {
						entries.Append([]string{
							strconv.Itoa(e.Rank),
							e.ApplicantID,
							e.FullName,
							export.FormatScore(e.Score),
							statusCell(e.Status, true),
						})
					}
					entries.Render()
				}
			}

			printUnranked(out, result.Simulation.Unranked)
			dim.Fprintln(out, "\nSimulation only, nothing was saved.")

			return nil
		},
	}

	cmd.Flags().Bool("details", false, "Show every applicant's simulated status")

	return cmd
}
