package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/admissions-allocator/cmd/cli/commands"
	"github.com/jakechorley/admissions-allocator/internal/config"
	"github.com/jakechorley/admissions-allocator/pkg/db"
	"github.com/jakechorley/admissions-allocator/pkg/postgres"
	"github.com/jakechorley/admissions-allocator/pkg/utils/logging"
)

var (
	env        string
	configPath string
	logLevel   string
	app        = &commands.AppContext{}
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "admissions",
		Short: "Admissions CLI - Rank applicants and allocate program seats",
		Long:  `A CLI tool for ranking applicants per program, managing seat quotas, and applying admission decisions.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Database != nil {
				app.Database.Close()
			}
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default admissions_config.<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Console log level (debug, info, warn, error)")

	rootCmd.AddCommand(commands.RankCmd(app))
	rootCmd.AddCommand(commands.StatsCmd(app))
	rootCmd.AddCommand(commands.SimulateCmd(app))
	rootCmd.AddCommand(commands.ApplyCmd(app))
	rootCmd.AddCommand(commands.QuotaCmd(app))
	rootCmd.AddCommand(commands.StatusCmd(app))
	rootCmd.AddCommand(commands.ExportCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, and the record store
func initApp() error {
	app.Ctx = context.Background()

	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return err
	}

	app.Logger, err = logging.InitLogger(env, level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application", zap.String("environment", env))

	// Load configuration
	app.Logger.Info("Loading configuration")
	if configPath != "" {
		app.Cfg, err = config.LoadFromPath(configPath)
	} else {
		app.Cfg, err = config.LoadWithEnv(env)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully",
		zap.String("store", app.Cfg.Store),
		zap.Int("programs", len(app.Cfg.Programs)))

	// Initialize record store
	switch app.Cfg.Store {
	case config.StorePostgres:
		app.Logger.Info("Connecting to database")
		pg, err := postgres.NewDB(app.Ctx, app.Cfg.DatabaseURL, app.Cfg.MaxConnections)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.Database = pg
	case config.StoreFile:
		app.Logger.Info("Opening snapshot file", zap.String("path", app.Cfg.SnapshotPath))
		fileDB, err := db.NewFileDB(app.Cfg.SnapshotPath)
		if err != nil {
			return fmt.Errorf("failed to open snapshot: %w", err)
		}
		app.Database = fileDB
	default:
		return fmt.Errorf("unknown store %q", app.Cfg.Store)
	}
	app.Logger.Info("Record store initialized successfully")

	return nil
}
