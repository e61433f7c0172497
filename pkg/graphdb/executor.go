// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package graphdb

import "context"

// GqlExecutor executes GQL (Cypher-dialect) statements. Every graph backend
// implements this; it is the one capability required of all of them.
type GqlExecutor interface {
	// Exec executes a GQL statement and streams its rows lazily. Use this for
	// statements that return data (MATCH ... RETURN ...).
	Exec(ctx context.Context, statement string, params Params) (*RowStream, error)

	// Run executes a GQL statement and drains any results. Use this for
	// mutations (CREATE, MERGE, DELETE, SET) where the caller does not need
	// the result rows.
	Run(ctx context.Context, statement string, params Params) error
}

// SqlExecutor executes raw host-SQL statements. Only backends built on a SQL
// engine need to implement this — it exists for DDL and backend-specific
// operations that cannot be expressed in GQL, most notably the migration
// engine's version-store bookkeeping.
type SqlExecutor interface {
	// ExecSQL executes a raw SQL statement (DDL, procedural) and discards any
	// result.
	ExecSQL(ctx context.Context, statement string) error

	// QuerySQL executes a raw SQL query and streams its rows.
	QuerySQL(ctx context.Context, statement string) (*RowStream, error)
}

// Transaction is the lifecycle half of a transaction handle. It is separate
// from the executor interfaces so a transaction type can compose both
// ([GqlExecutor]/[SqlExecutor] for running statements, Transaction for
// finishing).
//
// Both Commit and Rollback consume the handle: calling either again, or
// executing a statement afterward, is a programmer error. An implementation
// that is dropped (goes out of scope, or is never explicitly closed) without
// either call MUST log at warning level and treat its connection as tainted
// rather than silently returning it to the pool.
type Transaction interface {
	// Commit makes all of the transaction's changes permanent.
	Commit(ctx context.Context) error
	// Rollback discards all of the transaction's changes.
	Rollback(ctx context.Context) error
}

// Client is a graph database client that can begin transactions. It composes
// GqlExecutor to provide auto-commit queries and adds Begin for explicit
// transactions.
type Client interface {
	GqlExecutor

	// Begin acquires a pooled connection and opens a transaction. The
	// returned value satisfies both [Transaction] and [GqlExecutor] (and, for
	// backends that support it, [SqlExecutor]) so the same [Query] builder
	// works against a client or a transaction.
	Begin(ctx context.Context) (Tx, error)
}

// Tx is the capability set a transaction handle must satisfy: it finishes via
// [Transaction] and executes statements via [GqlExecutor]. Backends that also
// support raw SQL inside a transaction additionally implement [SqlExecutor];
// callers that need it type-assert for it, the same way database/sql callers
// type-assert a *sql.Tx for driver-specific extensions.
type Tx interface {
	Transaction
	GqlExecutor
}
