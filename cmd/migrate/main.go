package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply and inspect library database migrations",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadEnvFiles()
		},
	}

	root.AddCommand(
		dbCommand("up", "Apply all pending migrations", func(db *sql.DB, dir string) error {
			if err := goose.Up(db, dir); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			fmt.Println("Migrations applied successfully")
			return nil
		}),
		dbCommand("down", "Roll back the latest migration", func(db *sql.DB, dir string) error {
			if err := goose.Down(db, dir); err != nil {
				return fmt.Errorf("failed to rollback migrations: %w", err)
			}
			fmt.Println("Migrations rolled back successfully")
			return nil
		}),
		dbCommand("status", "Print the status of every migration", func(db *sql.DB, dir string) error {
			if err := goose.Status(db, dir); err != nil {
				return fmt.Errorf("failed to check migration status: %w", err)
			}
			return nil
		}),
		newCreateCmd(),
	)
	return root
}

func dbCommand(use, short string, run func(db *sql.DB, dir string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, closeDB, err := openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()
			return run(db, migrationsDir())
		},
	}
}

func newCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new SQL migration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := goose.Create(nil, migrationsDir(), args[0], "sql"); err != nil {
				return fmt.Errorf("failed to create migration: %w", err)
			}
			fmt.Printf("Migration created: %s\n", args[0])
			return nil
		},
	}
}

func openDB(ctx context.Context) (*sql.DB, func(), error) {
	if ctx == nil {
		ctx = context.Background()
	}
	pool, err := pgxpool.New(ctx, databaseDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := goose.SetDialect("postgres"); err != nil {
		pool.Close()
		return nil, nil, err
	}

	db := stdlib.OpenDBFromPool(pool)
	return db, func() {
		db.Close()
		pool.Close()
	}, nil
}
