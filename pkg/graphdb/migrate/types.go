// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package migrate implements the two-tier schema migration engine: an
independent database-level register (plain SQL DDL, versioned by a single
row in db_schema_version) and a per-graph register (Cypher DDL, versioned by
a singleton SchemaVersion node inside that graph).

Both registers share one runner algorithm: ensure the version store exists,
load the current version, apply every migration whose version exceeds it in
a single transaction each, and stop at the first failure without touching
later migrations. Exactly-once comes from the "skip if version <= current"
gate combined with the transaction-scoped version bump — never from
inspecting the informational "applied" list.
*/
package migrate

import (
	"context"

	"github.com/taibuivan/graphcypher/pkg/graphdb"
)

// Backend is what the runner needs from a connected client: the ability to
// begin transactions (graphdb.Client) and to run raw host SQL outside of one
// (graphdb.SqlExecutor), the latter used for the advisory-lock critical
// section and the db_schema_version bootstrap.
type Backend interface {
	graphdb.Client
	graphdb.SqlExecutor
}

// GraphExecutor is the capability set a graph migration's Up function
// receives: it can run Cypher (to mutate the graph and its SchemaVersion
// node) and raw SQL (for label-table existence checks against the host's
// information-schema-like catalog).
type GraphExecutor interface {
	graphdb.GqlExecutor
	graphdb.SqlExecutor
}

// DbMigration is one versioned step against the database-level register.
type DbMigration struct {
	ID          string
	Version     int
	Description string
	// Up performs the migration's schema change. It runs inside a
	// transaction the runner manages — Up must not commit or roll back.
	Up func(ctx context.Context, exec graphdb.SqlExecutor) error
}

// GraphMigration is one versioned step against a specific graph's register.
type GraphMigration struct {
	ID          string
	Version     int
	Description string
	GraphName   string
	// Up performs the migration's graph change. It runs inside a
	// transaction the runner manages — Up must not commit or roll back.
	Up func(ctx context.Context, exec GraphExecutor) error
}

// Result reports what a single runner invocation did.
type Result struct {
	PreviousVersion int
	CurrentVersion  int
	Applied         []string
}
