// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/taibuivan/graphcypher/pkg/graphdb"
)

// dbSchemaVersionKey is an arbitrary constant distinguishing the database
// register's advisory lock from the per-graph register's (see
// graphLockKey in graph.go).
const dbSchemaVersionKey int64 = 0x64625f736368656d // "db_schem" truncated to fit an int64

const createDbSchemaVersionTable = `
CREATE TABLE IF NOT EXISTS db_schema_version (
    id smallint PRIMARY KEY,
    version integer NOT NULL,
    applied text[] NOT NULL DEFAULT '{}',
    updated_at timestamp NOT NULL DEFAULT now()
)`

const seedDbSchemaVersionRow = `
INSERT INTO db_schema_version (id, version, applied)
VALUES (1, 0, '{}')
ON CONFLICT (id) DO NOTHING`

const selectDbSchemaVersion = `SELECT version, applied FROM db_schema_version WHERE id = 1`

const updateDbSchemaVersionFmt = `
UPDATE db_schema_version
SET version = %d, applied = array_append(applied, '%s'), updated_at = now()
WHERE id = 1`

// RunDatabaseMigrations applies every pending migration in migrations,
// sorted by version, against the database-level register. It is a no-op if
// every migration's version is already recorded.
func RunDatabaseMigrations(ctx context.Context, backend Backend, migrations []DbMigration, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sorted := append([]DbMigration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	var result *Result
	err := withAdvisoryLock(ctx, backend, dbSchemaVersionKey, func(ctx context.Context) error {
		if err := execWithRetry(ctx, backend, createDbSchemaVersionTable); err != nil {
			return fmt.Errorf("migrate: failed to create db_schema_version: %w", err)
		}
		if err := execWithRetry(ctx, backend, seedDbSchemaVersionRow); err != nil {
			return fmt.Errorf("migrate: failed to seed db_schema_version: %w", err)
		}

		currentVersion, _, err := loadDbSchemaVersion(ctx, backend)
		if err != nil {
			return err
		}
		previousVersion := currentVersion

		var applied []string
		for _, m := range sorted {
			if m.Version <= currentVersion {
				continue
			}

			tx, err := backend.Begin(ctx)
			if err != nil {
				return err
			}
			sqlTx, ok := tx.(graphdb.SqlExecutor)
			if !ok {
				_ = tx.Rollback(ctx)
				return fmt.Errorf("migrate: backend transaction does not support raw SQL, required for database migrations")
			}

			if err := m.Up(ctx, sqlTx); err != nil {
				_ = tx.Rollback(ctx)
				return graphdb.MigrationFailed(m.ID, err)
			}

			bump := fmt.Sprintf(updateDbSchemaVersionFmt, m.Version, escapeSingleQuotes(m.ID))
			if err := sqlTx.ExecSQL(ctx, bump); err != nil {
				_ = tx.Rollback(ctx)
				return graphdb.MigrationFailed(m.ID, err)
			}

			if err := tx.Commit(ctx); err != nil {
				return graphdb.MigrationFailed(m.ID, err)
			}

			currentVersion = m.Version
			applied = append(applied, m.ID)
			logger.Info("database migration applied",
				slog.String("id", m.ID), slog.Int("version", m.Version))
		}

		result = &Result{PreviousVersion: previousVersion, CurrentVersion: currentVersion, Applied: applied}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func loadDbSchemaVersion(ctx context.Context, backend Backend) (version int, applied []string, err error) {
	stream, err := backend.QuerySQL(ctx, selectDbSchemaVersion)
	if err != nil {
		return 0, nil, err
	}
	row, ok, err := stream.One(ctx)
	if err != nil {
		return 0, nil, err
	}
	if !ok {
		return 0, nil, fmt.Errorf("migrate: db_schema_version row is missing")
	}

	version, err = graphdb.Get[int](row, "version")
	if err != nil {
		return 0, nil, err
	}
	applied, _, err = graphdb.GetOpt[[]string](row, "applied")
	if err != nil {
		return 0, nil, err
	}
	return version, applied, nil
}

func escapeSingleQuotes(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}
