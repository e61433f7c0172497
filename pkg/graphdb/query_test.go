// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package graphdb

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingExecutor is a minimal GqlExecutor that records the last statement
// and params it was asked to run, and returns canned responses.
type recordingExecutor struct {
	gotStatement string
	gotParams    Params
	execStream   *RowStream
	execErr      error
	runErr       error
}

func (e *recordingExecutor) Exec(ctx context.Context, statement string, params Params) (*RowStream, error) {
	e.gotStatement = statement
	e.gotParams = params
	return e.execStream, e.execErr
}

func (e *recordingExecutor) Run(ctx context.Context, statement string, params Params) error {
	e.gotStatement = statement
	e.gotParams = params
	return e.runErr
}

func rowsStream(rows []Row) *RowStream {
	i := 0
	return NewRowStream(func(ctx context.Context) (Row, bool, error) {
		if i >= len(rows) {
			return Row{}, false, nil
		}
		r := rows[i]
		i++
		return r, true, nil
	}, func() {})
}

/*
TestQuery_ParamEncoding confirms Param round-trips a value through JSON into
the universal dynamically-typed form (so a struct becomes a map[string]any,
not a Go struct value) while ParamRaw passes its value through untouched.
*/
func TestQuery_ParamEncoding(t *testing.T) {
	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}

	exec := &recordingExecutor{execStream: rowsStream(nil)}
	q := NewQuery(exec, "MATCH (n) RETURN n").
		Param("p", point{X: 1, Y: 2}).
		ParamRaw("raw", map[string]any{"z": 3})

	_, err := q.Stream(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"x": float64(1), "y": float64(2)}, exec.gotParams["p"])
	assert.Equal(t, map[string]any{"z": 3}, exec.gotParams["raw"])
}

/*
TestQuery_DeferredEncodingError confirms a Param-time marshal failure doesn't
panic the fluent chain but surfaces from the first terminal call instead.
*/
func TestQuery_DeferredEncodingError(t *testing.T) {
	exec := &recordingExecutor{}
	q := NewQuery(exec, "RETURN $p").Param("p", math.Inf(1))

	_, err := q.Stream(context.Background())
	require.Error(t, err)
	assert.True(t, Is(err, KindEncodingFailure))
	assert.Empty(t, exec.gotStatement, "a deferred error must short-circuit before reaching the executor")

	err = q.Run(context.Background())
	require.Error(t, err)
	assert.True(t, Is(err, KindEncodingFailure))
}

/*
TestQuery_TerminalCalls exercises Stream/All/One/Run dispatch against the
executor without a deferred error present.
*/
func TestQuery_TerminalCalls(t *testing.T) {
	t.Run("All collects every row", func(t *testing.T) {
		exec := &recordingExecutor{execStream: rowsStream([]Row{NewRow(map[string]any{"n": 1}), NewRow(map[string]any{"n": 2})})}
		rows, err := NewQuery(exec, "MATCH (n) RETURN n").All(context.Background())
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("One returns the first row", func(t *testing.T) {
		exec := &recordingExecutor{execStream: rowsStream([]Row{NewRow(map[string]any{"n": 1})})}
		row, ok, err := NewQuery(exec, "MATCH (n) RETURN n").One(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		n, _ := Get[int](row, "n")
		assert.Equal(t, 1, n)
	})

	t.Run("One on empty result", func(t *testing.T) {
		exec := &recordingExecutor{execStream: rowsStream(nil)}
		_, ok, err := NewQuery(exec, "MATCH (n) RETURN n").One(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Run forwards to the executor's Run, not Exec", func(t *testing.T) {
		exec := &recordingExecutor{}
		err := NewQuery(exec, "CREATE (n:Person)").Param("name", "alice").Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "CREATE (n:Person)", exec.gotStatement)
		assert.Equal(t, "alice", exec.gotParams["name"])
	})
}
