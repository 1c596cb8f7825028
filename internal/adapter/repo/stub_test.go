package repo

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// stubDB replays scripted results in call order.
type stubDB struct {
	rows  []stubRow
	execs []stubExec
	calls []stubCall
}

type stubCall struct {
	query string
	args  []any
}

type stubExec struct {
	affected int64
	err      error
}

type stubRow struct {
	values []any
	err    error
}

func (s *stubDB) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, stubCall{query: query, args: args})
	if len(s.execs) == 0 {
		return pgconn.CommandTag{}, errors.New("unexpected exec")
	}
	next := s.execs[0]
	s.execs = s.execs[1:]
	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", next.affected)), next.err
}

func (s *stubDB) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.calls = append(s.calls, stubCall{query: query, args: args})
	if len(s.rows) == 0 {
		return stubRow{err: errors.New("unexpected query")}
	}
	next := s.rows[0]
	s.rows = s.rows[1:]
	return next
}

func (s *stubDB) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d dest for %d values", len(dest), len(r.values))
	}
	for i, v := range r.values {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(v))
	}
	return nil
}

func statusRow(status string) stubRow {
	return stubRow{values: []any{status}}
}
