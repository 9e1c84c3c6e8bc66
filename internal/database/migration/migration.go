package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"propertybot/internal/logger"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_listings",
		SQL: `CREATE TABLE IF NOT EXISTS listings (
  id           UUID        PRIMARY KEY,
  developer    TEXT        NOT NULL DEFAULT '',
  project      TEXT        NOT NULL DEFAULT '',
  prices       JSONB       NOT NULL DEFAULT '[]'::jsonb,
  sizes        JSONB       NOT NULL DEFAULT '[]'::jsonb,
  unit_types   JSONB       NOT NULL DEFAULT '[]'::jsonb,
  status       TEXT        NOT NULL DEFAULT '',
  launch_date  TEXT        NOT NULL DEFAULT '',
  notes        TEXT        NOT NULL,
  brochure_ref TEXT        NOT NULL DEFAULT '',
  created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_listings_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings (created_at DESC);`,
	},
	{
		Name: "create_index_listings_project",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_listings_project ON listings (project);`,
	},
	{
		Name: "create_index_listings_brochure_ref",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_listings_brochure_ref ON listings (brochure_ref) WHERE brochure_ref <> '';`,
	},
}

// EnsureMigrated checks if the 'listings' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, dbHost string) error {
	start := time.Now()
	log := logger.Component("database").With().Str("db_host", dbHost).Logger()

	log.Info().Str("event", "db_migration_check").Str("status", "starting").Msg("checking schema")

	var exists bool
	query := "SELECT to_regclass('public.listings') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error().
			Str("event", "db_migration_failed").
			Str("status", "error").
			Err(err).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info().
			Str("event", "db_migration_skip").
			Str("status", "success").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("schema already exists, skipping migration")
		return nil
	}

	log.Info().Str("event", "db_migration_start").Str("status", "in_progress").Msg("applying schema")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error().
				Str("event", "db_migration_failed").
				Str("status", "error").
				Str("migration_step", step.Name).
				Err(err).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
				Msg("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info().
			Str("event", "db_migration_step").
			Str("status", "success").
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Msg("migration step applied")
	}

	log.Info().
		Str("event", "db_migration_success").
		Str("status", "success").
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("schema migrated")

	return nil
}
