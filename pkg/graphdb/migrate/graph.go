// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migrate

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sort"
	"time"

	"github.com/taibuivan/graphcypher/pkg/graphdb"
)

const (
	ensureSchemaVersionNode = `MERGE (v:SchemaVersion) ON CREATE SET v.version = 0, v.applied = [], v.updated_at = $now`
	loadSchemaVersionNode   = `MATCH (v:SchemaVersion) RETURN v.version AS version, v.applied AS applied`
	bumpSchemaVersionNode   = `MATCH (v:SchemaVersion) SET v.version = $version, v.applied = v.applied + [$id], v.updated_at = $now`
)

// RunGraphMigrations applies every pending migration in migrations, sorted
// by version, against graphName's per-graph register. The register is
// versioned by a singleton SchemaVersion node inside that graph rather than
// a SQL table, so the same runner algorithm as [RunDatabaseMigrations]
// governs a completely different storage shape.
func RunGraphMigrations(ctx context.Context, backend Backend, graphName string, migrations []GraphMigration, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sorted := append([]GraphMigration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	var result *Result
	err := withAdvisoryLock(ctx, backend, graphLockKey(graphName), func(ctx context.Context) error {
		bootstrapTx, err := backend.Begin(ctx)
		if err != nil {
			return err
		}
		if err := bootstrapTx.Run(ctx, ensureSchemaVersionNode, graphdb.Params{"now": nowRFC3339()}); err != nil {
			_ = bootstrapTx.Rollback(ctx)
			return fmt.Errorf("migrate: failed to ensure SchemaVersion node: %w", err)
		}
		if err := bootstrapTx.Commit(ctx); err != nil {
			return fmt.Errorf("migrate: failed to commit SchemaVersion bootstrap: %w", err)
		}

		currentVersion, err := loadGraphSchemaVersion(ctx, backend)
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
			graphTx, ok := tx.(GraphExecutor)
			if !ok {
				_ = tx.Rollback(ctx)
				return fmt.Errorf("migrate: backend transaction does not support both Cypher and raw SQL, required for graph migrations")
			}

			if err := m.Up(ctx, graphTx); err != nil {
				_ = tx.Rollback(ctx)
				return graphdb.MigrationFailed(m.ID, err)
			}

			bumpParams := graphdb.Params{"version": m.Version, "id": m.ID, "now": nowRFC3339()}
			if err := graphTx.Run(ctx, bumpSchemaVersionNode, bumpParams); err != nil {
				_ = tx.Rollback(ctx)
				return graphdb.MigrationFailed(m.ID, err)
			}

			if err := tx.Commit(ctx); err != nil {
				return graphdb.MigrationFailed(m.ID, err)
			}

			currentVersion = m.Version
			applied = append(applied, m.ID)
			logger.Info("graph migration applied",
				slog.String("graph", graphName), slog.String("id", m.ID), slog.Int("version", m.Version))
		}

		result = &Result{PreviousVersion: previousVersion, CurrentVersion: currentVersion, Applied: applied}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func loadGraphSchemaVersion(ctx context.Context, backend Backend) (int, error) {
	row, ok, err := graphdb.NewQuery(backend, loadSchemaVersionNode).One(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("migrate: SchemaVersion node is missing")
	}
	return graphdb.Get[int](row, "version")
}

// graphLockKey derives a stable advisory-lock key from the graph name so
// concurrent runners targeting different graphs don't serialise against
// each other.
func graphLockKey(graphName string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("graphdb.migrate.graph:" + graphName))
	return int64(h.Sum64())
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
