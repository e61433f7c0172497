// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package pgage implements a graphdb backend adapter over PostgreSQL with the
Apache AGE graph extension.

It translates every GQL (Cypher-dialect) statement into a call to AGE's
`cypher()` SQL function, binds parameters as a single tagged agtype value
(never interpolated into statement text), and streams results back through
[graphdb.RowStream] by wrapping pgx's own row cursor.

Architecture:

  - Client: pools connections via pgxpool, runs the AGE session-init batch on
    every new physical connection, and executes auto-commit statements.
  - Transaction: wraps one checked-out connection across BEGIN/COMMIT/ROLLBACK,
    and logs a warning if dropped without either.
  - Codec: registers the agtype type by name (its OID is installation-
    dependent) so parameters and results travel as typed binary values,
    never as interpolated text.
*/
package pgage

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the narrow configuration surface the adapter needs: enough to
// open a pool and address one graph. It is config *surface*, not a general
// loader framework — a host application parses its own environment and
// passes the result to [Connect].
type Config struct {
	// ConnectionString is a libpq-compatible DSN or postgres:// URL.
	ConnectionString string `env:"GRAPHDB_CONNECTION_STRING,required"`

	// GraphName is the AGE graph every statement through this client targets.
	GraphName string `env:"GRAPHDB_GRAPH_NAME,required"`

	// PoolSize is the maximum number of pooled connections.
	PoolSize int `env:"GRAPHDB_POOL_SIZE" envDefault:"16"`
}

// LoadConfig parses Config fields from the process environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("pgage: failed to parse environment variables: %w", err)
	}
	return cfg, nil
}
