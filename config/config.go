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

// Package config loads the datamapper configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tomoncle/datamapper/database"
	"github.com/tomoncle/datamapper/storage/dynamo"
	"github.com/tomoncle/datamapper/utils"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendSQL      = "sql"
	BackendDynamoDB = "dynamodb"
)

// BackendEnv overrides storage.backend.
const BackendEnv = "DATAMAPPER_STORAGE"

type Config struct {
	Storage  StorageConfig       `yaml:"storage"`
	Database database.Config     `yaml:"database"`
	DynamoDB dynamo.ClientConfig `yaml:"dynamodb"`
	Log      LogConfig           `yaml:"log"`
	Metrics  MetricsConfig       `yaml:"metrics"`
}

// StorageConfig selects and tunes the storage backend.
type StorageConfig struct {
	Backend  string   `yaml:"backend"`   // memory, sql, dynamodb
	IDColumn string   `yaml:"id_column"` // identifier column of every collection
	OrderBy  []string `yaml:"order_by"`  // sql only
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the configuration used when no file is given: an
// in-memory backend and info-level text logs.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{Backend: BackendMemory, IDColumn: "id"},
		Database: database.Config{
			ConnectionConfig: *database.DefaultConnectionConfig(),
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the YAML file at path over Default. Before parsing, the given
// env files (".env" when none) are loaded without overriding the process
// environment, and ${VAR} references in the file are expanded. An empty path
// skips the file.
func Load(path string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if v := os.Getenv(BackendEnv); v != "" {
		cfg.Storage.Backend = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes backend names and checks the selected backend's section.
func (c *Config) Validate() error {
	backend := strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch backend {
	case "", BackendMemory:
		c.Storage.Backend = BackendMemory
	case BackendSQL, "database":
		c.Storage.Backend = BackendSQL
		if c.Database.ConnectionConfig.Type == "" && os.Getenv("DB_TYPE") == "" {
			return errors.New("storage backend sql requires database.connection.type")
		}
	case BackendDynamoDB, "dynamo":
		c.Storage.Backend = BackendDynamoDB
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.Storage.Backend)
	}
	if c.Storage.IDColumn == "" {
		c.Storage.IDColumn = "id"
	}
	return nil
}

// ApplyLogging configures the registered loggers from the log section.
func (c *Config) ApplyLogging() {
	if c.Log.Format != "" {
		utils.ConfigureConsoleLogFormat(c.Log.Format)
	}
	if c.Log.Level != "" {
		utils.ConfigureLogLevel(c.Log.Level)
	}
}
