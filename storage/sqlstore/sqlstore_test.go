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

package sqlstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datamapper/database"
	"github.com/tomoncle/datamapper/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	_, err = db.ExecContext(ctx, `CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT, price REAL, note TEXT)`)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO items (id, name, price) VALUES (1, 'a', 1.5), (2, 'b', 2)`)
	require.NoError(t, err)
	return db
}

func newTestStore(t *testing.T) *Store {
	return New(newTestDB(t), WithOrderBy("id"), WithLogger(database.NewNamedLogger("SQLSTORE_TEST")))
}

func name(t *testing.T, row *types.Row) string {
	t.Helper()
	require.NotNil(t, row)
	v, ok := row.Get("name")
	require.True(t, ok)
	s, err := v.Str()
	require.NoError(t, err)
	return s
}

func TestStore_FetchAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rows, err := s.FetchAll(ctx, "items")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"id", "name", "price", "note"}, rows[0].Fields())
	assert.Equal(t, "a", name(t, rows[0]))
	assert.Equal(t, "b", name(t, rows[1]))

	id, _ := rows[0].Get("id")
	assert.True(t, id.Equal(types.Int(1)))
	note, _ := rows[0].Get("note")
	assert.True(t, note.IsNull())
}

func TestStore_FetchAllBy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rows, err := s.FetchAllBy(ctx, types.MustRecord("name", "b"), "items")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", name(t, rows[0]))

	rows, err = s.FetchAllBy(ctx, types.MustRecord("note", nil), "items")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = s.FetchAllBy(ctx, types.MustRecord("name", "zzz"), "items")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestStore_Find(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	row, err := s.Find(ctx, types.MustRecord("id", 2), "items")
	require.NoError(t, err)
	assert.Equal(t, "b", name(t, row))

	row, err = s.Find(ctx, types.MustRecord("id", 99), "items")
	require.NoError(t, err)
	assert.Nil(t, row)

	row, err = s.Find(ctx, types.MustRecord("note", nil), "items")
	require.NoError(t, err)
	assert.Equal(t, "a", name(t, row))
}

func TestStore_Save(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	id, err := s.Save(ctx, types.MustRecord("name", "c"), "items")
	require.NoError(t, err)
	assert.True(t, id.Equal(types.Int(3)), "got %v", id)

	id, err = s.Save(ctx, types.MustRecord("id", 2, "name", "bb"), "items")
	require.NoError(t, err)
	assert.True(t, id.Equal(types.Int(2)))

	row, err := s.Find(ctx, types.MustRecord("id", 2), "items")
	require.NoError(t, err)
	assert.Equal(t, "bb", name(t, row))
	price, _ := row.Get("price")
	assert.True(t, price.Equal(types.Float(2)), "update keeps unrelated columns")

	id, err = s.Save(ctx, types.MustRecord("id", 10, "name", "j"), "items")
	require.NoError(t, err)
	assert.True(t, id.Equal(types.Int(10)))

	rows, err := s.FetchAll(ctx, "items")
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestStore_SaveInTx(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := New(tx).Save(ctx, types.MustRecord("name", "tx"), "items")
		return err
	})
	require.NoError(t, err)

	row, err := New(db).Find(ctx, types.MustRecord("name", "tx"), "items")
	require.NoError(t, err)
	assert.NotNil(t, row)
}

func TestStore_Errors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.FetchAll(ctx, "missing")
	require.Error(t, err)
	is, kind := database.IsSqlError(err)
	assert.True(t, is)
	assert.Equal(t, database.NoTableErr, kind)

	_, err = s.Save(ctx, types.MustRecord("name", "x", "color", "red"), "items")
	require.Error(t, err)
	_, kind = database.IsSqlError(err)
	assert.Equal(t, database.NoColumnErr, kind)
}

func TestStore_FromManagerSurvivesReconnect(t *testing.T) {
	ctx := context.Background()
	cfg := database.DefaultConnectionConfig()
	cfg.Type = database.TypeSQLite
	cfg.DBName = filepath.Join(t.TempDir(), "managed")
	cfg.HealthCheckInterval = 0

	m := database.NewDatabaseManager(cfg)
	require.NoError(t, m.Connect(ctx))
	t.Cleanup(func() { _ = m.Disconnect() })
	_, err := m.GetDB().ExecContext(ctx, `CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)`)
	require.NoError(t, err)

	s := NewFromManager(m, WithOrderBy("id"))
	id, err := s.Save(ctx, types.MustRecord("name", "a"), "items")
	require.NoError(t, err)
	assert.Equal(t, types.Int(1), id)

	before := m.GetDB()
	require.NoError(t, m.Reconnect(ctx))
	require.NotSame(t, before, m.GetDB())

	rows, err := s.FetchAll(ctx, "items")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", name(t, rows[0]))

	require.NoError(t, m.Disconnect())
	assert.Nil(t, s.DB())
	_, err = s.FetchAll(ctx, "items")
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = s.Save(ctx, types.MustRecord("name", "b"), "items")
	assert.ErrorIs(t, err, ErrNotConnected)
}
