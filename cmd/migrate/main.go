package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/atelier-dz/cnc-marketplace-api/internal/config"
	"github.com/atelier-dz/cnc-marketplace-api/migrations"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Migration error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the marketplace database schema",
		Long:          "Applies the SQL migrations embedded in the binary with goose.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		dbCommand("up", "Apply all pending migrations", func(db *sql.DB) error {
			if err := goose.Up(db, "."); err != nil {
				return fmt.Errorf("failed to run up migrations: %w", err)
			}
			fmt.Println("Migrations applied successfully")
			return nil
		}),
		dbCommand("down", "Roll back the last migration", func(db *sql.DB) error {
			if err := goose.Down(db, "."); err != nil {
				return fmt.Errorf("failed to run down migration: %w", err)
			}
			fmt.Println("Migration rolled back successfully")
			return nil
		}),
		dbCommand("status", "Show applied and pending migrations", func(db *sql.DB) error {
			return goose.Status(db, ".")
		}),
		dbCommand("version", "Print the current schema version", func(db *sql.DB) error {
			return goose.Version(db, ".")
		}),
		createCommand(),
	)
	return cmd
}

// dbCommand wraps a goose operation that runs against the configured database
func dbCommand(use, short string, apply func(db *sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := sql.Open("postgres", cfg.Database.ConnectionString())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			if err := db.Ping(); err != nil {
				return fmt.Errorf("failed to ping database: %w", err)
			}

			goose.SetBaseFS(migrations.FS)
			if err := goose.SetDialect("postgres"); err != nil {
				return fmt.Errorf("failed to set dialect: %w", err)
			}
			return apply(db)
		},
	}
}

func createCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new SQL migration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// new files go to the source tree, not the embedded copy
			goose.SetBaseFS(nil)
			if err := goose.Create(nil, dir, args[0], "sql"); err != nil {
				return fmt.Errorf("failed to create migration: %w", err)
			}
			fmt.Printf("Migration created: %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "./migrations", "Directory of the migration sources")
	return cmd
}
