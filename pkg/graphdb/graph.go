// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package graphdb

import "context"

// Graph is a thin wrapper composing a [Client]. It offers direct
// (auto-commit) queries and transaction closures, and forwards [GqlExecutor]
// itself so a [Query] built against a Graph works identically to one built
// against the underlying client.
type Graph struct {
	client Client
}

// NewGraph wraps client in a Graph.
func NewGraph(client Client) *Graph {
	return &Graph{client: client}
}

// Client returns the underlying client — the escape hatch for backend-
// specific operations the facade doesn't expose.
func (g *Graph) Client() Client { return g.client }

// IntoClient consumes the Graph and returns the underlying client.
func (g *Graph) IntoClient() Client { return g.client }

// Query creates a query builder for a direct (auto-commit) statement. Each
// call executes in its own implicit transaction.
func (g *Graph) Query(statement string) *Query {
	return NewQuery(g.client, statement)
}

// Exec implements [GqlExecutor] by forwarding to the underlying client.
func (g *Graph) Exec(ctx context.Context, statement string, params Params) (*RowStream, error) {
	return g.client.Exec(ctx, statement, params)
}

// Run implements [GqlExecutor] by forwarding to the underlying client.
func (g *Graph) Run(ctx context.Context, statement string, params Params) error {
	return g.client.Run(ctx, statement, params)
}

// Transact opens a transaction, calls fn with it, and returns fn's
// result.
//
// fn MUST explicitly commit or rollback the transaction it is given — the
// facade does not rescue an unfinished transaction. A transaction left
// unfinished when fn returns is the adapter's concern: it must log a warning
// and treat its connection as tainted, per [Transaction]'s contract.
func Transact[R any](ctx context.Context, g *Graph, fn func(ctx context.Context, tx Tx) (R, error)) (R, error) {
	var zero R
	tx, err := g.client.Begin(ctx)
	if err != nil {
		return zero, err
	}
	return fn(ctx, tx)
}
