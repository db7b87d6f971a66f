package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Migrator is implemented by stores with a managed schema
type Migrator interface {
	RunMigrations(ctx context.Context) ([]string, error)
}

// MigrateCmd creates the migrate command
func MigrateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, ok := app.Database.(Migrator)
			if !ok {
				return fmt.Errorf("store %q has no migrations", app.Cfg.Store)
			}

			applied, err := migrator.RunMigrations(app.Ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			app.Logger.Info("Migrations complete", zap.Int("applied", len(applied)))

			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				dim.Fprintln(out, "Schema is up to date")
				return nil
			}
			for _, name := range applied {
				success.Fprintf(out, "  ✓ %s\n", name)
			}
			return nil
		},
	}
}
