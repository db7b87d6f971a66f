package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jakechorley/admissions-allocator/pkg/core/services"
	"github.com/jakechorley/admissions-allocator/pkg/export"
)

// StatsCmd creates the stats command
func StatsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-program and overall admission statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := services.ViewStatistics(app.Ctx, app.Database, app.Cfg, app.Logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			heading.Fprintf(out, "\n📊 Admission Statistics\n\n")

			table := newTable(out, []string{
				"Program", "Quota", "Applicants", "Accepted", "Waitlisted", "Rejected", "Pending",
				"Highest", "Lowest Accepted", "Competition", "Utilization", "Overrides !",
			})
			for _, program := range result.Programs {
				s := result.PerProgram[program]
				table.Append([]string{
					program,
					strconv.Itoa(s.Quota),
					strconv.Itoa(s.Applicants),
					strconv.Itoa(s.Accepted),
					strconv.Itoa(s.Waitlisted),
					strconv.Itoa(s.Rejected),
					strconv.Itoa(s.Pending),
					export.FormatScore(s.HighestScore),
					export.FormatScore(s.LowestAcceptedScore),
					formatRatio(s.CompetitionRatio),
					formatPercent(s.Utilization),
					strconv.Itoa(s.Inconsistent),
				})
			}
			o := result.Overall
			table.SetFooter([]string{
				"Total",
				strconv.Itoa(o.TotalQuota),
				strconv.Itoa(o.Applicants),
				strconv.Itoa(o.Accepted),
				strconv.Itoa(o.Waitlisted),
				strconv.Itoa(o.Rejected),
				strconv.Itoa(o.Pending),
				"", "", "", "",
				strconv.Itoa(o.Inconsistent),
			})
			table.Render()

			fmt.Fprintf(out, "\nScores: average %s, highest %s, lowest %s\n",
				export.FormatScore(o.AverageScore),
				export.FormatScore(o.HighestScore),
				export.FormatScore(o.LowestScore))
			if o.Unranked > 0 {
				warning.Fprintf(out, "%d applicant(s) not ranked\n", o.Unranked)
			}
			printAlerts(out, result.Alerts)
			fmt.Fprintln(out)

			return nil
		},
	}
}
