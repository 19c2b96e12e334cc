package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/bizhub/credits-api/internal/config"
	"github.com/bizhub/credits-api/internal/pkg/database"
	"github.com/bizhub/credits-api/internal/pkg/logger"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "creditsctl",
		Short:         "Operator tools for the credits ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(expireCmd())
	rootCmd.AddCommand(grantCmd())
	rootCmd.AddCommand(exportStatementCmd())
	rootCmd.AddCommand(seedCatalogCmd())
	rootCmd.AddCommand(pushUserCmd())
	rootCmd.AddCommand(migrateCmd())
	return rootCmd
}

// env is what every command needs: config, logging and a database.
type env struct {
	cfg *config.Config
	db  *sqlx.DB
}

func setup() (*env, error) {
	cfg := config.Load()
	logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		Service:     "creditsctl",
	})

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &env{cfg: cfg, db: db}, nil
}

func (e *env) Close() {
	database.ClosePostgres(e.db)
}

func migrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup()
			if err != nil {
				return err
			}
			defer e.Close()

			if err := database.Migrate(context.Background(), e.db, dir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "Directory holding *.up.sql files")
	return cmd
}
