package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/admissions-allocator/pkg/core/services"
)

// ExportCmd creates the export command
func ExportCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the current ranking as CSV or XLSX",
		Long: `Export the reconciled ranking with the columns
Ranking, Nama Lengkap, Jurusan, Total Skor, Status.
CSV is written to stdout unless --output is given. XLSX needs --output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			program, _ := cmd.Flags().GetString("program")

			if format == "" {
				format = services.FormatCSV
				if strings.EqualFold(filepath.Ext(output), ".xlsx") {
					format = services.FormatXLSX
				}
			}
			if format == services.FormatXLSX && output == "" {
				return fmt.Errorf("xlsx export needs --output")
			}

			app.Logger.Debug("export command",
				zap.String("format", format),
				zap.String("output", output),
				zap.String("program", program))

			var w io.Writer = cmd.OutOrStdout()
			var file *os.File
			if output != "" {
				var err error
				file, err = os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer file.Close()
				w = file
			}

			result, err := services.ExportRanking(app.Ctx, app.Database, app.Cfg, app.Logger, format, w, program)
			if err != nil {
				if file != nil {
					file.Close()
					os.Remove(output)
				}
				return err
			}

			if file != nil {
				if err := file.Close(); err != nil {
					return fmt.Errorf("failed to close %s: %w", output, err)
				}
				success.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %d row(s) to %s\n", result.Rows, output)
			}
			return nil
		},
	}

	cmd.Flags().StringP("format", "f", "", "Export format: csv or xlsx (default from --output, else csv)")
	cmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringP("program", "p", "", "Only export this program code")

	return cmd
}
