// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package graphdb is a backend-agnostic graph-query execution layer.

It lets application code issue parameterised GQL (Cypher-dialect) statements
against a pluggable storage backend, stream the results row-by-row, and
compose statements inside explicit transactions. The package itself only
defines the contract — [Row], [Params], [Query], the executor interfaces, and
[Graph] — backends live in sibling packages such as pkg/graphdb/pgage.

# Architecture

  - Row & Params: a typed container for one result row, and a map of bound
    query parameters.
  - Executor contract: the capability interfaces ([GqlExecutor], [SqlExecutor],
    [Transaction], [Client]) that every backend implements some subset of.
  - Query: a fluent builder that binds parameters and, on a terminal call,
    asks the executor to run the statement.
  - Graph: a thin facade composing a [Client], offering auto-commit queries
    and transaction closures.
*/
package graphdb

import "encoding/json"

// Params is a mapping from parameter name to a dynamically-typed value bound
// into a query. Constructed per-query by [Query], never shared, and consumed
// when the query executes.
type Params map[string]any

// Row is a single record returned by a query, mapping column name to a
// dynamically-typed value. The set of column names always equals the set
// produced by the projection parser on the statement that produced it. A Row
// is immutable once constructed.
type Row struct {
	data map[string]any
}

// NewRow constructs a Row from a column-name-to-value map. Adapters call
// this once per decoded record; application code never constructs a Row
// directly.
func NewRow(data map[string]any) Row {
	if data == nil {
		data = map[string]any{}
	}
	return Row{data: data}
}

// Get extracts the column's value as T.
//
// It fails with [KindColumnNotFound] if the column is absent, or
// [KindTypeMismatch] if the value cannot be interpreted as T.
func Get[T any](r Row, column string) (T, error) {
	var zero T
	raw, ok := r.data[column]
	if !ok {
		return zero, ColumnNotFound(column)
	}
	v, err := coerce[T](raw)
	if err != nil {
		return zero, TypeMismatch(column, err)
	}
	return v, nil
}

// GetOpt extracts the column's value as T, returning (zero, false, nil) if
// the column is missing or its value is null. It still fails with
// [KindTypeMismatch] if the column is present, non-null, and cannot be
// interpreted as T.
func GetOpt[T any](r Row, column string) (T, bool, error) {
	var zero T
	raw, ok := r.data[column]
	if !ok || raw == nil {
		return zero, false, nil
	}
	v, err := coerce[T](raw)
	if err != nil {
		return zero, false, TypeMismatch(column, err)
	}
	return v, true, nil
}

// Raw returns the column's value exactly as decoded by the adapter, with no
// type coercion. It never fails; the second return is false if the column is
// absent.
func (r Row) Raw(column string) (any, bool) {
	v, ok := r.data[column]
	return v, ok
}

// Columns returns the row's column names. Order is not significant — Go maps
// have no stable iteration order; callers that need the declared projection
// order should consult the statement's own column list, not the Row.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r.data))
	for k := range r.data {
		cols = append(cols, k)
	}
	return cols
}

// Len returns the number of columns in the row.
func (r Row) Len() int { return len(r.data) }

// IsEmpty reports whether the row has no columns.
func (r Row) IsEmpty() bool { return len(r.data) == 0 }

// IntoInner consumes the row and returns the underlying column map.
func (r Row) IntoInner() map[string]any { return r.data }

// coerce converts a decoded value (typically produced by unmarshalling JSON
// into `any`, i.e. nil / bool / float64 / string / []any / map[string]any)
// into the requested type T. Values that are already assignable to T are
// returned directly; everything else is round-tripped through JSON, which
// handles the common case of numeric widening (float64 -> int64) and
// struct-shaped map[string]any targets.
func coerce[T any](raw any) (T, error) {
	var zero T
	if v, ok := raw.(T); ok {
		return v, nil
	}

	encoded, err := json.Marshal(raw)
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(encoded, &out); err != nil {
		return zero, err
	}
	return out, nil
}
