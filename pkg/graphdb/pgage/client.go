// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pgage

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/graphcypher/pkg/graphdb"
)

// Opinionated pool settings, the way internal/platform/postgres.NewPool
// tunes pgxpool for this workload.
const (
	defaultMaxConns      = 16
	minConns             = 2
	maxConnLifetime      = 60 * time.Minute
	maxConnIdleTime      = 10 * time.Minute
	healthCheckPeriod    = 1 * time.Minute
	connectTimeout       = 5 * time.Second
	pingTimeout          = 2 * time.Second
	sessionInitStatement = "LOAD 'age'; SET search_path = ag_catalog, public;"
	agtypeOIDLookupSQL   = "SELECT oid FROM pg_type WHERE typname = 'agtype'"
)

// Client is a graphdb.Client backed by a pgxpool.Pool, translating GQL
// statements into Apache AGE cypher() calls.
type Client struct {
	pool      *pgxpool.Pool
	graphName string
	logger    *slog.Logger
}

var (
	_ graphdb.Client      = (*Client)(nil)
	_ graphdb.SqlExecutor = (*Client)(nil)
	_ graphdb.Queryable   = (*Client)(nil)
)

// Connect parses cfg.ConnectionString, builds a bounded pool (recycling
// policy: validate only on failure, never per checkout) and validates
// connectivity before returning.
//
// Every checked-out connection runs the AGE session-init batch and has the
// agtype codec registered by name — AGE's OID for agtype varies per
// installation, so it is resolved once per new physical connection rather
// than assumed.
func Connect(ctx stdctx.Context, cfg *Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, graphdb.ConnectionFailure(fmt.Errorf("invalid connection string: %w", err))
	}

	maxConns := int32(cfg.PoolSize)
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	poolConfig.MaxConns = maxConns
	poolConfig.MinConns = minConns
	poolConfig.MaxConnLifetime = maxConnLifetime
	poolConfig.MaxConnIdleTime = maxConnIdleTime
	poolConfig.HealthCheckPeriod = healthCheckPeriod
	poolConfig.ConnConfig.ConnectTimeout = connectTimeout

	poolConfig.AfterConnect = func(ctx stdctx.Context, conn *pgx.Conn) error {
		if _, err := conn.Exec(ctx, sessionInitStatement); err != nil {
			return fmt.Errorf("pgage: failed to initialise AGE session: %w", err)
		}

		var oid uint32
		if err := conn.QueryRow(ctx, agtypeOIDLookupSQL).Scan(&oid); err != nil {
			return fmt.Errorf("pgage: failed to resolve agtype OID: %w", err)
		}
		registerAgtype(conn.TypeMap(), oid)

		return nil
	}

	connectCtx, cancel := stdctx.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, graphdb.ConnectionFailure(fmt.Errorf("failed to create pool: %w", err))
	}

	pingCtx, pingCancel := stdctx.WithTimeout(ctx, pingTimeout)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, graphdb.ConnectionFailure(fmt.Errorf("ping failed: %w", err))
	}

	logger.Info("pgage pool connected",
		slog.String("graph", cfg.GraphName),
		slog.Int("max_conns", int(maxConns)),
	)

	return &Client{pool: pool, graphName: cfg.GraphName, logger: logger}, nil
}

// Close releases the underlying pool. Call once, at process shutdown.
func (c *Client) Close() {
	c.pool.Close()
}

// GraphName returns the AGE graph every statement through this client
// targets.
func (c *Client) GraphName() string {
	return c.graphName
}

// Query implements [graphdb.Queryable].
func (c *Client) Query(statement string) *graphdb.Query {
	return graphdb.NewQuery(c, statement)
}

// Exec implements [graphdb.GqlExecutor] for auto-commit statements. The
// pooled connection is owned by the returned stream: it is released back to
// the pool only when the stream closes, is exhausted, or errors.
func (c *Client) Exec(ctx stdctx.Context, statement string, params graphdb.Params) (*graphdb.RowStream, error) {
	sql, param, err := buildAgeQuery(c.graphName, statement, params)
	if err != nil {
		return nil, err
	}

	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, graphdb.ConnectionFailure(err)
	}

	var rows pgx.Rows
	if param == nil {
		rows, err = conn.Query(ctx, sql)
	} else {
		rows, err = conn.Query(ctx, sql, *param)
	}
	if err != nil {
		conn.Release()
		return nil, graphdb.QueryFailure("cypher query failed", statement, err)
	}

	return newRowStream(rows, conn.Release), nil
}

// Run implements [graphdb.GqlExecutor] by executing and draining Exec's
// stream.
func (c *Client) Run(ctx stdctx.Context, statement string, params graphdb.Params) error {
	stream, err := c.Exec(ctx, statement, params)
	if err != nil {
		return err
	}
	return graphdb.Drain(ctx, stream)
}

// ExecSQL implements [graphdb.SqlExecutor] for auto-commit DDL (migration
// bootstrap, e.g. creating the db_schema_version table).
func (c *Client) ExecSQL(ctx stdctx.Context, statement string) error {
	_, err := c.pool.Exec(ctx, statement)
	if err != nil {
		return graphdb.QueryFailure("sql execution failed", statement, err)
	}
	return nil
}

// QuerySQL implements [graphdb.SqlExecutor] for auto-commit raw SQL queries.
func (c *Client) QuerySQL(ctx stdctx.Context, statement string) (*graphdb.RowStream, error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, graphdb.ConnectionFailure(err)
	}
	rows, err := conn.Query(ctx, statement)
	if err != nil {
		conn.Release()
		return nil, graphdb.QueryFailure("sql query failed", statement, err)
	}
	return newRowStream(rows, conn.Release), nil
}

// Begin checks out a connection and emits BEGIN, returning a handle that
// owns the connection exclusively until it commits or rolls back.
func (c *Client) Begin(ctx stdctx.Context) (graphdb.Tx, error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, graphdb.ConnectionFailure(err)
	}
	if _, err := conn.Exec(ctx, "BEGIN"); err != nil {
		conn.Release()
		return nil, graphdb.ConnectionFailure(fmt.Errorf("failed to begin transaction: %w", err))
	}
	return newTransaction(conn, c.graphName, c.logger), nil
}
