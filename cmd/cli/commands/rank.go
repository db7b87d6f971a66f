package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/admissions-allocator/pkg/core/services"
	"github.com/jakechorley/admissions-allocator/pkg/export"
)

// RankCmd creates the rank command
func RankCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Show the current ranking of every program",
		Long:  "Recompute the ranking from the current applicant pool and quotas, with persisted overrides reconciled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			program, _ := cmd.Flags().GetString("program")

			app.Logger.Debug("rank command", zap.String("program", program))

			result, err := services.RankPrograms(app.Ctx, app.Database, app.Cfg, app.Logger, program)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			names := app.Cfg.ProgramNames()
			for _, code := range result.Programs {
				entries := result.Rankings.Programs[code]
				seats := result.Rankings.Quotas[code]

				heading.Fprintf(out, "\n%s - %s (quota %d, %d applicants)\n\n", code, names[code], seats, len(entries))
				if len(entries) == 0 {
					dim.Fprintln(out, "  No applicants")
					continue
				}

				table := newTable(out, []string{"Rank", "ID", "Name", "Score", "Quota", "Status"})
				for _, e := range entries {
					table.Append([]string{
						strconv.Itoa(e.Rank),
						e.ApplicantID,
						e.FullName,
						export.FormatScore(e.Score),
						string(e.QuotaStatus),
						statusCell(e.EffectiveStatus, e.Consistent),
					})
				}
				table.Render()
			}

			printAlerts(out, result.Alerts)
			printUnranked(out, result.Rankings.Unranked)
			fmt.Fprintln(out)

			return nil
		},
	}

	cmd.Flags().StringP("program", "p", "", "Only show this program code")

	return cmd
}
