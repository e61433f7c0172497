// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migrate

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/graphcypher/pkg/graphdb"
)

/*
TestRunDatabaseMigrations_AppliesInOrderAndIsIdempotent reproduces the two
properties the database-level register must hold regardless of the order
migrations are declared in: they apply in ascending version order, and
running the engine a second time against the same store is a no-op.
*/
func TestRunDatabaseMigrations_AppliesInOrderAndIsIdempotent(t *testing.T) {
	backend := newFakeBackend()
	var history []string

	migrations := []DbMigration{
		{
			ID: "m002_second", Version: 2,
			Up: func(ctx context.Context, exec graphdb.SqlExecutor) error {
				history = append(history, "m002")
				return exec.ExecSQL(ctx, "CREATE TABLE widgets (id int)")
			},
		},
		{
			ID: "m001_first", Version: 1,
			Up: func(ctx context.Context, exec graphdb.SqlExecutor) error {
				history = append(history, "m001")
				return exec.ExecSQL(ctx, "CREATE TABLE gadgets (id int)")
			},
		},
	}

	first, err := RunDatabaseMigrations(context.Background(), backend, migrations, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, first.PreviousVersion)
	assert.Equal(t, 2, first.CurrentVersion)
	assert.Equal(t, []string{"m001_first", "m002_second"}, first.Applied)
	assert.Equal(t, []string{"m001", "m002"}, history)

	second, err := RunDatabaseMigrations(context.Background(), backend, migrations, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, second.PreviousVersion)
	assert.Equal(t, 2, second.CurrentVersion)
	assert.Empty(t, second.Applied)
	assert.Equal(t, []string{"m001", "m002"}, history)
}

/*
TestRunDatabaseMigrations_FailureStopsAtItsVersion confirms that a failing
migration leaves every lower-versioned migration that committed in the same
run recorded, while neither it nor anything above it is.
*/
func TestRunDatabaseMigrations_FailureStopsAtItsVersion(t *testing.T) {
	backend := newFakeBackend()

	migrations := []DbMigration{
		{ID: "m001_first", Version: 1, Up: func(ctx context.Context, exec graphdb.SqlExecutor) error { return nil }},
		{ID: "m002_boom", Version: 2, Up: func(ctx context.Context, exec graphdb.SqlExecutor) error {
			return fmt.Errorf("boom")
		}},
		{ID: "m003_never_reached", Version: 3, Up: func(ctx context.Context, exec graphdb.SqlExecutor) error {
			t.Fatal("m003 must not run once m002 has failed")
			return nil
		}},
	}

	result, err := RunDatabaseMigrations(context.Background(), backend, migrations, nil)
	require.Error(t, err)
	assert.Nil(t, result)

	version, applied, err := loadDbSchemaVersion(context.Background(), backend)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, []string{"m001_first"}, applied)
}
