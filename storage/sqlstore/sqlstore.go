/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package sqlstore implements storage.Storage on top of a Bun database handle.
// A collection is a table; rows come back with the table's column order.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tomoncle/datamapper/database"
	"github.com/tomoncle/datamapper/storage"
	"github.com/tomoncle/datamapper/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
)

const defaultIDColumn = "id"

// ErrNotConnected is returned while a managed connection is down.
var ErrNotConnected = errors.New("database not connected")

type Store struct {
	handle   func() bun.IDB
	idColumn string
	orderBy  []string
	logger   database.Logger
}

var _ storage.Storage = (*Store)(nil)

type Option func(*Store)

// WithIDColumn sets the primary key column used by Save. Defaults to "id".
func WithIDColumn(name string) Option {
	return func(s *Store) { s.idColumn = name }
}

// WithOrderBy adds ORDER BY expressions to every select, e.g. "id" or "name DESC".
func WithOrderBy(orders ...string) Option {
	return func(s *Store) { s.orderBy = append(s.orderBy, orders...) }
}

func WithLogger(logger database.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New returns a Store over db, which may be a *bun.DB, a bun.Conn or a bun.Tx.
func New(db bun.IDB, opts ...Option) *Store {
	return newStore(func() bun.IDB { return db }, opts)
}

// NewFromManager returns a Store that asks m for its connection on every
// call, so it keeps working after the manager reconnects.
func NewFromManager(m database.AbstractDatabaseManager, opts ...Option) *Store {
	return newStore(func() bun.IDB {
		if db := m.GetDB(); db != nil {
			return db
		}
		return nil
	}, opts)
}

func newStore(handle func() bun.IDB, opts []Option) *Store {
	s := &Store{handle: handle, idColumn: defaultIDColumn, logger: database.GetLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the current handle, or nil while a managed connection is down.
func (s *Store) DB() bun.IDB { return s.handle() }

func (s *Store) db() (bun.IDB, error) {
	if db := s.handle(); db != nil {
		return db, nil
	}
	return nil, ErrNotConnected
}

func (s *Store) FetchAll(ctx context.Context, collection string) ([]*types.Row, error) {
	return s.FetchAllBy(ctx, nil, collection)
}

func (s *Store) FetchAllBy(ctx context.Context, criteria *types.Criteria, collection string) ([]*types.Row, error) {
	rows, err := s.query(ctx, criteria, collection, 0)
	if err != nil {
		return nil, s.fail("select", collection, err)
	}
	return rows, nil
}

// Find returns the first row in ORDER BY order (or the engine's order) matching criteria.
func (s *Store) Find(ctx context.Context, criteria *types.Criteria, collection string) (*types.Row, error) {
	rows, err := s.query(ctx, criteria, collection, 1)
	if err != nil {
		return nil, s.fail("find", collection, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Save updates the row whose id equals data's id when it exists and inserts
// data otherwise. The id of the written row is returned; for generated keys
// it comes from RETURNING where the dialect supports it, else LastInsertId.
func (s *Store) Save(ctx context.Context, data *types.Record, collection string) (types.Value, error) {
	db, err := s.db()
	if err != nil {
		return types.Null(), s.fail("save", collection, err)
	}
	id, _ := data.Get(s.idColumn)
	if !id.IsNull() {
		exists, err := db.NewSelect().
			TableExpr("?", bun.Ident(collection)).
			Where("? = ?", bun.Ident(s.idColumn), id).
			Exists(ctx)
		if err != nil {
			return types.Null(), s.fail("exists", collection, err)
		}
		if exists {
			if err := s.update(ctx, db, data, collection, id); err != nil {
				return types.Null(), s.fail("update", collection, err)
			}
			return id, nil
		}
	}

	newID, err := s.insert(ctx, db, data, collection, id)
	if err != nil {
		return types.Null(), s.fail("insert", collection, err)
	}
	return newID, nil
}

func (s *Store) query(ctx context.Context, criteria *types.Criteria, collection string, limit int) ([]*types.Row, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	q := db.NewSelect().
		TableExpr("?", bun.Ident(collection)).
		ColumnExpr("*")
	criteria.Range(func(field string, v types.Value) bool {
		if v.IsNull() {
			q = q.Where("? IS NULL", bun.Ident(field))
		} else {
			q = q.Where("? = ?", bun.Ident(field), v)
		}
		return true
	})
	if len(s.orderBy) > 0 {
		q = q.Order(s.orderBy...)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	rows, err := q.Rows(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

// scanRows converts driver rows into records keeping the column order.
func scanRows(rows *sql.Rows) ([]*types.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := make([]*types.Row, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := types.NewRecord()
		for i, col := range cols {
			v, err := types.ValueOf(values[i])
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", col, err)
			}
			row.Set(col, v)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) update(ctx context.Context, db bun.IDB, data *types.Record, collection string, id types.Value) error {
	values := make(map[string]any, data.Len())
	data.Range(func(field string, v types.Value) bool {
		if field != s.idColumn {
			values[field] = v.Interface()
		}
		return true
	})
	if len(values) == 0 {
		return nil
	}
	_, err := db.NewUpdate().
		Model(&values).
		TableExpr("?", bun.Ident(collection)).
		Where("? = ?", bun.Ident(s.idColumn), id).
		Exec(ctx)
	return err
}

func (s *Store) insert(ctx context.Context, db bun.IDB, data *types.Record, collection string, id types.Value) (types.Value, error) {
	values := make(map[string]any, data.Len())
	data.Range(func(field string, v types.Value) bool {
		if field == s.idColumn && v.IsNull() {
			return true
		}
		values[field] = v.Interface()
		return true
	})

	q := db.NewInsert().
		Model(&values).
		TableExpr("?", bun.Ident(collection))

	if !id.IsNull() {
		if _, err := q.Exec(ctx); err != nil {
			return types.Null(), err
		}
		return id, nil
	}

	if db.Dialect().Features().Has(feature.InsertReturning) {
		var generated any
		if err := q.Returning("?", bun.Ident(s.idColumn)).Scan(ctx, &generated); err != nil {
			return types.Null(), err
		}
		return types.ValueOf(generated)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return types.Null(), err
	}
	n, err := res.LastInsertId()
	if err != nil {
		return types.Null(), fmt.Errorf("read generated id: %w", err)
	}
	return types.Int(n), nil
}

func (s *Store) fail(op, collection string, err error) error {
	if s.logger != nil {
		_, kind := database.IsSqlError(err)
		s.logger.Warn("sql storage operation failed",
			"op", op,
			"collection", collection,
			"kind", kind.String(),
			"error", err,
		)
	}
	return fmt.Errorf("%s %s: %w", op, collection, err)
}
