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

package datamapper

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datamapper/config"
	"github.com/tomoncle/datamapper/database"
	"github.com/tomoncle/datamapper/repository"
	"github.com/tomoncle/datamapper/storage/instrument"
	"github.com/tomoncle/datamapper/storage/memory"
	"github.com/tomoncle/datamapper/storage/sqlstore"
	"github.com/tomoncle/datamapper/types"
)

type product struct {
	ID    int64   `bun:"id"`
	Name  string  `bun:"name"`
	Price float64 `bun:"price"`
}

func seededMemory() *memory.Store {
	s := memory.New()
	s.Seed("products",
		types.MustRecord("id", 1, "name", "pen", "price", 1.5),
		types.MustRecord("id", 2, "name", "ink", "price", 4.0),
		types.MustRecord("id", 3, "name", "pen", "price", 2.5),
	)
	return s
}

func TestServiceOverDefaultStorage(t *testing.T) {
	t.Cleanup(func() { _ = Close() })
	SetDefaultStorage(seededMemory())

	ctx := context.Background()
	svc := NewService[product]("products", nil)

	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, product{ID: 1, Name: "pen", Price: 1.5}, *all[0])

	got, err := svc.Get(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ink", got.Name)

	missing, err := svc.Get(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	pens, err := svc.List(ctx, types.MustRecord("name", "pen"))
	require.NoError(t, err)
	assert.Len(t, pens, 2)

	first, err := svc.First(ctx, types.MustRecord("name", "pen"))
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, int64(1), first.ID)

	id, err := svc.Save(ctx, types.MustRecord("name", "nib", "price", 0.5))
	require.NoError(t, err)
	assert.Equal(t, types.Int(4), id)

	assert.Equal(t, "products", svc.Repository().Collection())
}

func TestServiceIsLazy(t *testing.T) {
	t.Cleanup(func() { _ = Close() })
	SetDefaultStorage(nil)

	svc := NewService[product]("products", nil, repository.WithIdentifierColumn("name"))
	SetDefaultStorage(seededMemory())

	got, err := svc.Get(context.Background(), "ink")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.ID)
}

func TestDefaultStorageFallsBackToMemory(t *testing.T) {
	require.NoError(t, Close())
	t.Cleanup(func() { _ = Close() })

	s := DefaultStorage()
	assert.IsType(t, &memory.Store{}, s)
	assert.Same(t, s, DefaultStorage())
}

func TestOpenMemory(t *testing.T) {
	t.Cleanup(func() { _ = Close() })

	s, err := Open(context.Background(), nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, s)
	assert.Same(t, s, DefaultStorage())
}

func TestOpenSQLiteWithSeedData(t *testing.T) {
	t.Cleanup(func() { _ = Close() })
	dir := t.TempDir()
	common := filepath.Join(dir, "sql", "common")
	require.NoError(t, os.MkdirAll(common, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(common, "001_products.sql"), []byte(`
CREATE TABLE products (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, price REAL);
INSERT INTO products (name, price) VALUES ('pen', 1.5);
INSERT INTO products (name, price) VALUES ('ink', 4.0);
`), 0o644))

	cfg := config.Default()
	cfg.Storage.Backend = config.BackendSQL
	cfg.Database.ConnectionConfig.Type = database.TypeSQLite
	cfg.Database.ConnectionConfig.DBName = filepath.Join(dir, "app.db")
	cfg.Database.DataInitConfig = database.DataInitConfig{
		AutoInitOnStartup: true,
		Filepath:          filepath.Join(dir, "sql"),
		Environment:       "test",
	}
	cfg.Metrics.Enabled = true

	ctx := context.Background()
	s, err := Open(ctx, cfg)
	require.NoError(t, err)
	wrapped, ok := s.(*instrument.Store)
	require.True(t, ok)
	assert.IsType(t, &sqlstore.Store{}, wrapped.Unwrap())

	svc := NewService[product]("products", nil)
	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ink", all[1].Name)

	id, err := svc.Save(ctx, types.MustRecord("name", "nib", "price", 0.5))
	require.NoError(t, err)
	assert.Equal(t, types.Int(3), id)

	got, err := svc.Get(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "nib", got.Name)

	require.NoError(t, Close())
	assert.Nil(t, database.GetDB())
}

func TestStorageMetricsAreShared(t *testing.T) {
	a, err := storageMetrics()
	require.NoError(t, err)
	b, err := storageMetrics()
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestOpenRejectsUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "cassandra"
	_, err := Open(context.Background(), cfg)
	assert.Error(t, err)
}
