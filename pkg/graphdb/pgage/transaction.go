// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pgage

import (
	stdctx "context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/graphcypher/pkg/graphdb"
)

// finalizerRollbackTimeout bounds the best-effort cleanup a dropped
// Transaction's finalizer performs — it runs with no caller-supplied
// context, so it cannot wait indefinitely.
const finalizerRollbackTimeout = 5 * time.Second

// Transaction wraps one pooled connection across BEGIN/COMMIT/ROLLBACK. It
// owns the connection exclusively until Commit or Rollback is called; a
// Transaction that is garbage-collected without either logs a warning and
// forces the connection closed so the pool cannot hand a tainted connection
// to another caller.
type Transaction struct {
	mu         sync.Mutex
	conn       *pgxpool.Conn
	graphName  string
	logger     *slog.Logger
	finished   bool
	streamOpen bool
}

var (
	_ graphdb.Tx          = (*Transaction)(nil)
	_ graphdb.SqlExecutor = (*Transaction)(nil)
	_ graphdb.Queryable   = (*Transaction)(nil)
)

func newTransaction(conn *pgxpool.Conn, graphName string, logger *slog.Logger) *Transaction {
	tx := &Transaction{conn: conn, graphName: graphName, logger: logger}
	runtime.SetFinalizer(tx, (*Transaction).finalize)
	return tx
}

// Query implements [graphdb.Queryable].
func (t *Transaction) Query(statement string) *graphdb.Query {
	return graphdb.NewQuery(t, statement)
}

// Exec implements [graphdb.GqlExecutor]. The connection is borrowed from the
// transaction, not owned by the returned stream: closing the stream does not
// release the connection, only clears the "stream open" gate.
func (t *Transaction) Exec(ctx stdctx.Context, statement string, params graphdb.Params) (*graphdb.RowStream, error) {
	if err := t.beginStatement(); err != nil {
		return nil, err
	}

	sql, param, err := buildAgeQuery(t.graphName, statement, params)
	if err != nil {
		t.endStatement()
		return nil, err
	}

	var rows pgx.Rows
	if param == nil {
		rows, err = t.conn.Query(ctx, sql)
	} else {
		rows, err = t.conn.Query(ctx, sql, *param)
	}
	if err != nil {
		t.endStatement()
		return nil, graphdb.QueryFailure("cypher query failed", statement, err)
	}

	return newRowStream(rows, t.endStatement), nil
}

// Run implements [graphdb.GqlExecutor] by executing and draining Exec's
// stream.
func (t *Transaction) Run(ctx stdctx.Context, statement string, params graphdb.Params) error {
	stream, err := t.Exec(ctx, statement, params)
	if err != nil {
		return err
	}
	return graphdb.Drain(ctx, stream)
}

// ExecSQL implements [graphdb.SqlExecutor] for DDL inside the transaction,
// used by the migration engine to create and update version-store rows.
func (t *Transaction) ExecSQL(ctx stdctx.Context, statement string) error {
	if err := t.beginStatement(); err != nil {
		return err
	}
	defer t.endStatement()

	if _, err := t.conn.Exec(ctx, statement); err != nil {
		return graphdb.QueryFailure("sql execution failed", statement, err)
	}
	return nil
}

// QuerySQL implements [graphdb.SqlExecutor] for raw SQL reads inside the
// transaction.
func (t *Transaction) QuerySQL(ctx stdctx.Context, statement string) (*graphdb.RowStream, error) {
	if err := t.beginStatement(); err != nil {
		return nil, err
	}

	rows, err := t.conn.Query(ctx, statement)
	if err != nil {
		t.endStatement()
		return nil, graphdb.QueryFailure("sql query failed", statement, err)
	}
	return newRowStream(rows, t.endStatement), nil
}

// Commit makes the transaction's changes permanent and releases the
// connection back to the pool.
func (t *Transaction) Commit(ctx stdctx.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return errors.New("pgage: transaction already finished")
	}
	t.finished = true
	runtime.SetFinalizer(t, nil)

	_, err := t.conn.Exec(ctx, "COMMIT")
	t.conn.Release()
	if err != nil {
		return graphdb.QueryFailure("commit failed", "COMMIT", err)
	}
	return nil
}

// Rollback discards the transaction's changes and releases the connection
// back to the pool.
func (t *Transaction) Rollback(ctx stdctx.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return errors.New("pgage: transaction already finished")
	}
	t.finished = true
	runtime.SetFinalizer(t, nil)

	_, err := t.conn.Exec(ctx, "ROLLBACK")
	t.conn.Release()
	if err != nil {
		return graphdb.QueryFailure("rollback failed", "ROLLBACK", err)
	}
	return nil
}

// beginStatement enforces the one-statement-at-a-time contract: a second
// statement must not start on this transaction while a stream from a
// previous one is still open.
func (t *Transaction) beginStatement() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return errors.New("pgage: transaction already finished")
	}
	if t.streamOpen {
		return graphdb.QueryFailure(
			"a previous statement's stream is still open on this transaction", "", nil,
		)
	}
	t.streamOpen = true
	return nil
}

func (t *Transaction) endStatement() {
	t.mu.Lock()
	t.streamOpen = false
	t.mu.Unlock()
}

// finalize runs if a Transaction is garbage-collected without Commit or
// Rollback. It has no caller context to work with, so it logs, makes one
// best-effort ROLLBACK bounded by finalizerRollbackTimeout, and then forces
// the connection closed regardless of that ROLLBACK's outcome.
func (t *Transaction) finalize() {
	t.mu.Lock()
	finished := t.finished
	t.mu.Unlock()
	if finished {
		return
	}

	logger := t.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("pgage transaction dropped without commit or rollback",
		slog.String("graph", t.graphName),
	)

	ctx, cancel := stdctx.WithTimeout(stdctx.Background(), finalizerRollbackTimeout)
	defer cancel()
	_, _ = t.conn.Exec(ctx, "ROLLBACK")
	t.conn.Conn().Close(ctx)
	t.conn.Release()
}
