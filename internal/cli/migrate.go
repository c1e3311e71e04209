package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"promo-quiz/internal/config"
	pgstore "promo-quiz/internal/infra/postgres"
	pgmigrations "promo-quiz/internal/infra/postgres/migrations"
)

// NewMigrateCmd applies database migrations and optionally seeds the
// built-in question sets.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			if seed {
				return seedQuestionSets(cmd.Context(), cfg)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "upsert the built-in question sets into postgres")
	return cmd
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		slog.Info("no new migrations")
		return nil
	}
	slog.Info("migrations applied", "group", group.String())
	return nil
}

func seedQuestionSets(ctx context.Context, cfg config.Config) error {
	sets, err := builtinQuestionSets()
	if err != nil {
		return err
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	ids := make([]string, 0, len(sets))
	for id := range sets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	loader := pgstore.NewQuestionLoader(pool)
	for _, id := range ids {
		if err := sets[id].Validate(); err != nil {
			return err
		}
		if err := loader.SaveQuestionSet(ctx, sets[id]); err != nil {
			return fmt.Errorf("seed %s: %w", id, err)
		}
		slog.Info("question set seeded", "set", id, "questions", len(sets[id].Questions))
	}
	return nil
}
