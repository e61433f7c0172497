// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudflare/backoff"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/taibuivan/graphcypher/pkg/graphdb"
)

// lockNotAvailableCode is Postgres' SQLSTATE for a lock request that timed
// out — the same code xataio-pgroll's RDB retries on for its own DDL
// statements. AGE's version-store DDL can race the same way.
const lockNotAvailableCode = "55P03"

const (
	maxLockBackoff  = 1 * time.Minute
	lockBackoffStep = 1 * time.Second
)

// withAdvisoryLock runs fn while holding a session-scoped Postgres advisory
// lock keyed by key, serialising concurrent migration runners (a real
// occurrence across replicas racing at boot) without requiring every
// migration step to share one transaction.
//
// The lock is acquired and released through a single pinned connection
// (backend.Begin's transaction handle used purely as a connection holder,
// never committed to) because pg_advisory_lock/unlock must run on the same
// session. Acquiring or releasing it retries with backoff on
// lock_not_available the way xataio-pgroll's RDB does for its own DDL.
func withAdvisoryLock(ctx context.Context, backend Backend, key int64, fn func(ctx context.Context) error) error {
	session, err := backend.Begin(ctx)
	if err != nil {
		return err
	}
	sessionExec, ok := session.(graphdb.SqlExecutor)
	if !ok {
		_ = session.Rollback(ctx)
		return fmt.Errorf("migrate: backend transaction does not support raw SQL, required for advisory locking")
	}
	defer func() {
		_ = session.Rollback(ctx)
	}()

	lockSQL := fmt.Sprintf("SELECT pg_advisory_lock(%d)", key)
	unlockSQL := fmt.Sprintf("SELECT pg_advisory_unlock(%d)", key)

	if err := execWithRetry(ctx, sessionExec, lockSQL); err != nil {
		return fmt.Errorf("migrate: failed to acquire advisory lock: %w", err)
	}
	defer func() {
		_ = execWithRetry(ctx, sessionExec, unlockSQL)
	}()

	return fn(ctx)
}

// execWithRetry runs statement, retrying with exponential backoff and
// jitter on lock_not_available, the way xataio-pgroll/pkg/db.RDB does for
// every statement it issues.
func execWithRetry(ctx context.Context, exec graphdb.SqlExecutor, statement string) error {
	b := backoff.New(maxLockBackoff, lockBackoffStep)
	for {
		err := exec.ExecSQL(ctx, statement)
		if err == nil {
			return nil
		}
		if !isLockNotAvailable(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.Duration()):
		}
	}
}

func isLockNotAvailable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == lockNotAvailableCode
	}
	return false
}
