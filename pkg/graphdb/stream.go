// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package graphdb

import "context"

// RowStream is a lazy, finite, single-pass sequence of result rows.
//
// It is non-restartable and backpressure-aware: an adapter-supplied RowStream
// must not materialise rows faster than the consumer advances it. A stream
// is terminated by the consumer calling [RowStream.Close], by exhausting the
// result set, or by an error from [RowStream.Next].
//
// RowStream deliberately mirrors the shape of database/sql.Rows and
// pgx.Rows — the backend adapter wraps one of those cursors directly, so a
// RowStream is "owned" (it closes a pooled connection when it closes) or
// "borrowed" (it closes only the underlying cursor; the connection belongs
// to a transaction handle) depending on the close function passed to
// [NewRowStream].
type RowStream struct {
	next  func(ctx context.Context) (Row, bool, error)
	close func()
	err   error
	done  bool
}

// NewRowStream builds a RowStream from adapter-supplied next/close functions.
// next returns the next row, or ok=false when the stream is exhausted;
// close releases whatever resource (cursor, pooled connection) the stream
// holds and must be safe to call more than once.
func NewRowStream(next func(ctx context.Context) (Row, bool, error), close func()) *RowStream {
	return &RowStream{next: next, close: close}
}

// Next advances the stream and returns its next row. ok is false, with a nil
// error, once the stream is exhausted. Once Next returns an error, the
// stream is terminal — subsequent calls return the same error.
func (s *RowStream) Next(ctx context.Context) (row Row, ok bool, err error) {
	if s.done {
		return Row{}, false, s.err
	}
	row, ok, err = s.next(ctx)
	if err != nil {
		s.err = err
		s.done = true
		s.Close()
		return Row{}, false, err
	}
	if !ok {
		s.done = true
		s.Close()
	}
	return row, ok, nil
}

// Close releases the stream's resources. It is safe to call multiple times
// and safe to call before the stream is exhausted — dropping a stream after
// consuming k of its N rows cancels the remaining rows and returns any
// pooled connection immediately.
func (s *RowStream) Close() {
	if s.close != nil {
		s.close()
		s.close = nil
	}
}

// Collect drains the stream into a slice. Intended for small result sets;
// large ones should iterate with [RowStream.Next] instead.
func (s *RowStream) Collect(ctx context.Context) ([]Row, error) {
	var rows []Row
	for {
		row, ok, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// One drains at most one row from the stream and closes it. It returns
// ok=false if the stream is empty.
func (s *RowStream) One(ctx context.Context) (row Row, ok bool, err error) {
	defer s.Close()
	return s.Next(ctx)
}

// Drain exhausts the stream, discarding rows, to ensure a mutating statement
// has fully executed. Used by [GqlExecutor.Run] implementations that are
// built on top of Exec.
func Drain(ctx context.Context, s *RowStream) error {
	defer s.Close()
	for {
		_, ok, err := s.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}
}
