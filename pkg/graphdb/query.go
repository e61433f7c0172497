// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package graphdb

import (
	"context"
	"encoding/json"
)

// Query is a fluent builder for constructing and executing a GQL statement.
//
// No statement is sent to the backend until a terminal operation (Stream,
// All, One, Run) is called. The builder holds no connection of its own — it
// only carries a reference to the executor it will eventually call.
type Query struct {
	executor  GqlExecutor
	statement string
	params    Params

	// deferredErr records a Param-time encoding failure so it can surface
	// from a terminal call instead of breaking Param's fluent chain.
	deferredErr error
}

// NewQuery creates a query builder bound to the given executor. Application
// code normally calls the executor's own Query method instead (see
// [Queryable]).
func NewQuery(executor GqlExecutor, statement string) *Query {
	return &Query{executor: executor, statement: statement, params: Params{}}
}

// Param serialises value to the universal dynamically-typed parameter form
// and binds it under name. Parameters are referenced in the statement as
// $name. Duplicate names overwrite the previous binding.
func (q *Query) Param(name string, value any) *Query {
	encoded, err := json.Marshal(value)
	if err != nil {
		// Mirrors the builder's "no statement sent before a terminal call"
		// contract: the failure surfaces at the terminal call instead of
		// here, since Param must return *Query to stay fluent.
		q.deferredErr = EncodingFailure(err)
		return q
	}
	var decoded any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		q.deferredErr = EncodingFailure(err)
		return q
	}
	q.params[name] = decoded
	return q
}

// ParamRaw binds a value that is already in the universal dynamically-typed
// form (the shape produced by decoding JSON into `any`), skipping
// serialisation.
func (q *Query) ParamRaw(name string, value any) *Query {
	q.params[name] = value
	return q
}

// Stream executes the query and returns a lazily-iterated [RowStream].
func (q *Query) Stream(ctx context.Context) (*RowStream, error) {
	if q.deferredErr != nil {
		return nil, q.deferredErr
	}
	return q.executor.Exec(ctx, q.statement, q.params)
}

// All executes the query and collects every row into memory. For large
// result sets, prefer [Query.Stream].
func (q *Query) All(ctx context.Context) ([]Row, error) {
	stream, err := q.Stream(ctx)
	if err != nil {
		return nil, err
	}
	return stream.Collect(ctx)
}

// One executes the query and returns its first row, if any, closing the
// stream immediately afterward.
func (q *Query) One(ctx context.Context) (row Row, ok bool, err error) {
	stream, err := q.Stream(ctx)
	if err != nil {
		return Row{}, false, err
	}
	return stream.One(ctx)
}

// Run executes the query and discards any results. Use this for mutations.
func (q *Query) Run(ctx context.Context) error {
	if q.deferredErr != nil {
		return q.deferredErr
	}
	return q.executor.Run(ctx, q.statement, q.params)
}

// Queryable is implemented by every [GqlExecutor] to provide a convenient
// Query(statement) entry point, the Go equivalent of the blanket QueryExt
// trait impl the original design used — Go has no blanket method
// implementations, so each executor type forwards to [NewQuery] in one line.
type Queryable interface {
	Query(statement string) *Query
}
