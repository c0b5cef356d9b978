package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aryan0dhankhar/minilibrary/internal/infrastructure/logger"
	"github.com/aryan0dhankhar/minilibrary/internal/repository"
	"github.com/aryan0dhankhar/minilibrary/internal/seed"
	"github.com/aryan0dhankhar/minilibrary/pkg/config"
	"github.com/aryan0dhankhar/minilibrary/pkg/database"
)

// newAdminCmd groups commands that talk to the database directly, using the
// same DATABASE_* environment as the server.
func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Database maintenance (reads server configuration from the environment)",
	}
	cmd.AddCommand(newMigrateCmd(), newSeedCmd(), newActivityCmd())
	return cmd
}

func openPool(ctx context.Context) (*database.ConnectionPool, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(os.Stderr, cfg.LogLevel, true)
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Driver:       cfg.DatabaseDriver,
		DSN:          cfg.DatabaseURL,
		MaxOpenConns: cfg.DatabaseMaxOpenConns,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	return pool, log, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, _, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Schema up to date (%s)\n", pool.Driver())
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample users and books if they are missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, log, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			catalog, err := seed.Default()
			if err != nil {
				return err
			}
			res, err := seed.Apply(cmd.Context(), catalog,
				repository.NewSQLUserRepository(pool, log),
				repository.NewSQLBookRepository(pool, log),
				log,
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Seed complete: %d users created, %d books created, %d books already present\n",
				res.UsersCreated, res.BooksCreated, res.BooksSkipped)
			return nil
		},
	}
}

func newActivityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activity <book-id>",
		Short: "Print the audit trail of a book, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, log, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			entries, err := repository.NewSQLActivityRepository(pool, log).ListByBook(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "AT\tTYPE\tACTOR\tMETADATA")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Type, e.ActorUserID, e.Metadata)
			}
			return w.Flush()
		},
	}
}
