package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// table maps one entity type T to rows scanned into R.
type table[T any, R any] struct {
	db      *DB
	name    string
	orderBy string
	toRow   func(T) map[string]any
	fromRow func(R) T
}

// save inserts the item or overwrites the row with the same id.
func (t table[T, R]) save(ctx context.Context, item T) error {
	row := t.toRow(item)
	cols := make([]string, 0, len(row))
	for c := range row {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	vals := make([]any, 0, len(cols))
	updates := make([]string, 0, len(cols))
	for _, c := range cols {
		vals = append(vals, row[c])
		if c != "id" {
			updates = append(updates, c+" = excluded."+c)
		}
	}

	query, args, err := t.db.builder().
		Insert(t.name).
		Columns(cols...).
		Values(vals...).
		Suffix("ON CONFLICT (id) DO UPDATE SET " + strings.Join(updates, ", ")).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := t.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert %s: %w", t.name, err)
	}
	return nil
}

// delete removes the row with the given id. Missing rows are not an error.
func (t table[T, R]) delete(ctx context.Context, id string) error {
	query, args, err := t.db.builder().
		Delete(t.name).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := t.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete from %s: %w", t.name, err)
	}
	return nil
}

// list returns the rows matching where, or every row when where is nil.
func (t table[T, R]) list(ctx context.Context, where sq.Sqlizer) ([]T, error) {
	q := t.db.builder().Select("*").From(t.name).OrderBy(t.orderBy)
	if where != nil {
		q = q.Where(where)
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []R
	if err := t.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select from %s: %w", t.name, err)
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, t.fromRow(r))
	}
	return out, nil
}

// get returns the row with the given id or notFound.
func (t table[T, R]) get(ctx context.Context, id string, notFound error) (T, error) {
	var zero T
	query, args, err := t.db.builder().
		Select("*").
		From(t.name).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return zero, err
	}

	var row R
	if err := t.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, notFound
		}
		return zero, fmt.Errorf("select from %s: %w", t.name, err)
	}
	return t.fromRow(row), nil
}
