// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pgage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/taibuivan/graphcypher/pkg/graphdb"
)

// newRowStream wraps a live pgx.Rows cursor into a [graphdb.RowStream].
// Both the pool's Query and a transaction's Query return pgx.Rows, so this
// same helper serves the owned-connection and borrowed-connection paths.
//
// onClose runs in addition to rows.Close(): the owned-connection path uses
// it to release the pooled connection, the borrowed-connection (transaction)
// path uses it to clear the transaction's "stream open" flag so the next
// statement on that transaction is allowed to run.
func newRowStream(rows pgx.Rows, onClose func()) *graphdb.RowStream {
	next := func(ctx context.Context) (graphdb.Row, bool, error) {
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return graphdb.Row{}, false, graphdb.QueryFailure("failed to fetch row", "", err)
			}
			return graphdb.Row{}, false, nil
		}

		values, err := rows.Values()
		if err != nil {
			return graphdb.Row{}, false, graphdb.DecodingFailure("failed to decode row values", err)
		}

		fields := rows.FieldDescriptions()
		data := make(map[string]any, len(fields))
		for i, field := range fields {
			if i < len(values) {
				data[string(field.Name)] = values[i]
			}
		}
		return graphdb.NewRow(data), true, nil
	}

	closeFn := func() {
		rows.Close()
		if onClose != nil {
			onClose()
		}
	}

	return graphdb.NewRowStream(next, closeFn)
}
