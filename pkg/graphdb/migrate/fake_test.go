// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migrate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/taibuivan/graphcypher/pkg/graphdb"
)

/*
fakeState is the version-store state shared across Begin'd transactions and
the auto-commit path in fakeBackend. It models just enough of
db_schema_version and a graph's SchemaVersion node to exercise the runner's
bookkeeping — it is not a general SQL/Cypher engine.
*/
type fakeState struct {
	dbSeeded  bool
	dbVersion int
	dbApplied []string

	graphNodeCreated bool
	graphVersion     int
	graphApplied     []string
}

func (s *fakeState) clone() *fakeState {
	c := *s
	c.dbApplied = append([]string(nil), s.dbApplied...)
	c.graphApplied = append([]string(nil), s.graphApplied...)
	return &c
}

// fakeBackend is an in-memory stand-in for a connected pgage-like backend. It
// recognises the fixed SQL and Cypher statements db.go/graph.go issue for
// version-store bookkeeping; anything else passed to ExecSQL/Exec/Run is
// accepted as a no-op, standing in for a migration's own schema change that
// this fake does not otherwise model.
type fakeBackend struct {
	mu    sync.Mutex
	state *fakeState
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{state: &fakeState{}}
}

var _ Backend = (*fakeBackend)(nil)

func (b *fakeBackend) Exec(ctx context.Context, statement string, params graphdb.Params) (*graphdb.RowStream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return execGraphLocked(b.state, statement, params)
}

func (b *fakeBackend) Run(ctx context.Context, statement string, params graphdb.Params) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := execGraphLocked(b.state, statement, params)
	return err
}

func (b *fakeBackend) ExecSQL(ctx context.Context, statement string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return applyExecSQL(b.state, statement)
}

func (b *fakeBackend) QuerySQL(ctx context.Context, statement string) (*graphdb.RowStream, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return querySQLState(b.state, statement)
}

func (b *fakeBackend) Begin(ctx context.Context) (graphdb.Tx, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &fakeTx{backend: b, pending: b.state.clone()}, nil
}

// fakeTx stages mutations against a private clone of the backend's state,
// only folding them back in on Commit — the same copy-on-write shape a real
// transaction gives the runner (a migration whose own transaction never
// commits leaves no trace in the version store).
type fakeTx struct {
	mu      sync.Mutex
	backend *fakeBackend
	pending *fakeState
	done    bool
}

var _ graphdb.Tx = (*fakeTx)(nil)
var _ GraphExecutor = (*fakeTx)(nil)

func (t *fakeTx) Exec(ctx context.Context, statement string, params graphdb.Params) (*graphdb.RowStream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return execGraphLocked(t.pending, statement, params)
}

func (t *fakeTx) Run(ctx context.Context, statement string, params graphdb.Params) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := execGraphLocked(t.pending, statement, params)
	return err
}

func (t *fakeTx) ExecSQL(ctx context.Context, statement string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return applyExecSQL(t.pending, statement)
}

func (t *fakeTx) QuerySQL(ctx context.Context, statement string) (*graphdb.RowStream, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return querySQLState(t.pending, statement)
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return fmt.Errorf("fakeTx: already finished")
	}
	t.done = true
	t.backend.mu.Lock()
	t.backend.state = t.pending
	t.backend.mu.Unlock()
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	return nil
}

var dbUpdatePattern = regexp.MustCompile(`(?s)SET version = (\d+), applied = array_append\(applied, '(.*)'\)`)

func applyExecSQL(state *fakeState, statement string) error {
	switch {
	case isAdvisoryLockStatement(statement):
		return nil
	case statement == createDbSchemaVersionTable:
		return nil
	case statement == seedDbSchemaVersionRow:
		if !state.dbSeeded {
			state.dbSeeded = true
		}
		return nil
	default:
		if m := dbUpdatePattern.FindStringSubmatch(statement); m != nil {
			version, err := strconv.Atoi(m[1])
			if err != nil {
				return err
			}
			state.dbVersion = version
			state.dbApplied = append(state.dbApplied, strings.ReplaceAll(m[2], "''", "'"))
			return nil
		}
		// A migration's own DDL — this fake does not model arbitrary schema
		// state, just that it ran.
		return nil
	}
}

func querySQLState(state *fakeState, statement string) (*graphdb.RowStream, error) {
	if statement == selectDbSchemaVersion {
		row := graphdb.NewRow(map[string]any{
			"version": state.dbVersion,
			"applied": append([]string(nil), state.dbApplied...),
		})
		return oneRowStream(row), nil
	}
	return nil, fmt.Errorf("fakeBackend: unrecognised SQL query: %s", statement)
}

func execGraphLocked(state *fakeState, statement string, params graphdb.Params) (*graphdb.RowStream, error) {
	switch statement {
	case ensureSchemaVersionNode:
		if !state.graphNodeCreated {
			state.graphNodeCreated = true
		}
		return emptyRowStream(), nil
	case loadSchemaVersionNode:
		row := graphdb.NewRow(map[string]any{
			"version": state.graphVersion,
			"applied": append([]string(nil), state.graphApplied...),
		})
		return oneRowStream(row), nil
	case bumpSchemaVersionNode:
		version, _ := params["version"].(int)
		id, _ := params["id"].(string)
		state.graphVersion = version
		state.graphApplied = append(state.graphApplied, id)
		return emptyRowStream(), nil
	default:
		// A migration's own Cypher — accepted as a no-op the same way an
		// unrecognised SQL statement is.
		return emptyRowStream(), nil
	}
}

func isAdvisoryLockStatement(statement string) bool {
	return strings.HasPrefix(statement, "SELECT pg_advisory_lock(") ||
		strings.HasPrefix(statement, "SELECT pg_advisory_unlock(")
}

func emptyRowStream() *graphdb.RowStream {
	return graphdb.NewRowStream(func(ctx context.Context) (graphdb.Row, bool, error) {
		return graphdb.Row{}, false, nil
	}, func() {})
}

func oneRowStream(row graphdb.Row) *graphdb.RowStream {
	emitted := false
	return graphdb.NewRowStream(func(ctx context.Context) (graphdb.Row, bool, error) {
		if emitted {
			return graphdb.Row{}, false, nil
		}
		emitted = true
		return row, true, nil
	}, func() {})
}
