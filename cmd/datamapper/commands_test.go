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

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/datamapper"
	"github.com/tomoncle/datamapper/types"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := RootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func sqliteConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "datamapper.yaml")
	content := fmt.Sprintf(`
storage:
  backend: sql
database:
  connection:
    type: sqlite
    dbname: %s
log:
  level: warn
`, filepath.Join(dir, "app.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	common := filepath.Join(dir, "sql", "common")
	require.NoError(t, os.MkdirAll(common, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(common, "001_products.sql"),
		[]byte("CREATE TABLE products (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, price REAL);"), 0o644))
	return path
}

func TestParseFields(t *testing.T) {
	r, err := parseFields([]string{"name=pen", "price=1.5", "qty=3", "active=true", "note=null", "expr=a=b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "price", "qty", "active", "note", "expr"}, r.Fields())

	price, _ := r.Get("price")
	assert.Equal(t, types.Float(1.5), price)
	qty, _ := r.Get("qty")
	assert.Equal(t, types.Int(3), qty)
	note, _ := r.Get("note")
	assert.True(t, note.IsNull())
	expr, _ := r.Get("expr")
	assert.Equal(t, types.String("a=b"), expr)

	for _, bad := range []string{"name", "=pen", " =x"} {
		_, err := parseFields([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestCommandsOverSQLite(t *testing.T) {
	t.Cleanup(func() { _ = datamapper.Close() })
	cfg := sqliteConfig(t)
	sqlDir := filepath.Join(filepath.Dir(cfg), "sql")

	out, err := run(t, "--config", cfg, "init-sql", sqlDir, "test")
	require.NoError(t, err, out)
	assert.Contains(t, out, "initialized")

	out, err = run(t, "--config", cfg, "save", "products", "name=pen", "price=1.5")
	require.NoError(t, err, out)
	assert.Equal(t, "1\n", out)

	_, err = run(t, "--config", cfg, "save", "products", "name=ink", "price=4")
	require.NoError(t, err)

	out, err = run(t, "--config", cfg, "fetch", "products")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"pen"`)
	assert.Contains(t, out, `"ink"`)

	out, err = run(t, "--config", cfg, "-o", "json", "fetch", "products", "name=ink")
	require.NoError(t, err, out)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "ink", rows[0]["name"])

	out, err = run(t, "--config", cfg, "-o", "json", "find", "products", "1")
	require.NoError(t, err, out)
	assert.JSONEq(t, `{"id":1,"name":"pen","price":1.5}`, out)

	out, err = run(t, "--config", cfg, "find", "products", "9")
	require.NoError(t, err, out)
	assert.Equal(t, "not found\n", out)

	out, err = run(t, "--config", cfg, "-o", "json", "find-by", "products", "price=4")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"ink"`)
}

func TestCommandErrors(t *testing.T) {
	t.Cleanup(func() { _ = datamapper.Close() })

	_, err := run(t, "-o", "xml", "fetch", "products")
	assert.ErrorContains(t, err, "unsupported output format")

	_, err = run(t, "save", "products", "name")
	assert.ErrorContains(t, err, "expected field=value")

	_, err = run(t, "init-sql", t.TempDir())
	assert.ErrorContains(t, err, "requires the sql storage backend")

	_, err = run(t, "find", "products")
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version", "--json")
	require.NoError(t, err)
	var info datamapper.VersionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, datamapper.Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}
