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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, "id", cfg.Storage.IDColumn)
	assert.Equal(t, 100, cfg.Database.ConnectionConfig.MaxOpenConns)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, "test.env", "DATAMAPPER_TEST_DB_PASSWORD=from-dotenv\n")
	path := writeFile(t, dir, "config.yaml", `
storage:
  backend: SQL
  order_by: [id]
database:
  connection:
    type: postgres
    host: db.local
    port: 5432
    username: app
    password: ${DATAMAPPER_TEST_DB_PASSWORD}
    dbname: items
    connect_timeout: 3s
  data_init:
    auto_init_on_startup: true
    filepath: ./sql
    environment: dev
dynamodb:
  region: eu-west-1
  endpoint: http://localhost:8000
log:
  level: debug
  format: json
metrics:
  enabled: true
`)
	t.Cleanup(func() { _ = os.Unsetenv("DATAMAPPER_TEST_DB_PASSWORD") })

	cfg, err := Load(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, BackendSQL, cfg.Storage.Backend)
	assert.Equal(t, []string{"id"}, cfg.Storage.OrderBy)

	conn := cfg.Database.ConnectionConfig
	assert.Equal(t, "postgres", conn.Type)
	assert.Equal(t, "db.local", conn.Host)
	assert.Equal(t, "from-dotenv", conn.Password)
	assert.Equal(t, 3*time.Second, conn.ConnectTimeout)
	assert.Equal(t, 10, conn.MaxIdleConns, "defaults survive partial sections")

	assert.True(t, cfg.Database.DataInitConfig.AutoInitOnStartup)
	assert.Equal(t, "dev", cfg.Database.DataInitConfig.Environment)
	assert.Equal(t, "eu-west-1", cfg.DynamoDB.Region)
	assert.Equal(t, "http://localhost:8000", cfg.DynamoDB.Endpoint)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_ProcessEnvWins(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, "test.env", "DATAMAPPER_TEST_REGION=from-dotenv\n")
	path := writeFile(t, dir, "config.yaml", "dynamodb:\n  region: ${DATAMAPPER_TEST_REGION}\n")
	t.Setenv("DATAMAPPER_TEST_REGION", "from-process")

	cfg, err := Load(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-process", cfg.DynamoDB.Region)
}

func TestLoad_BackendEnv(t *testing.T) {
	t.Setenv(BackendEnv, "dynamo")
	cfg, err := Load("", filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, BackendDynamoDB, cfg.Storage.Backend)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.yaml", "storage: [oops")
	_, err = Load(bad)
	assert.Error(t, err)

	unknown := writeFile(t, dir, "unknown.yaml", "storage:\n  backend: redis\n")
	_, err = Load(unknown)
	assert.ErrorContains(t, err, "unsupported storage backend")

	t.Setenv("DB_TYPE", "")
	sql := writeFile(t, dir, "sql.yaml", "storage:\n  backend: sql\n")
	_, err = Load(sql)
	assert.ErrorContains(t, err, "database.connection.type")
}
