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
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tomoncle/datamapper/config"
	"github.com/tomoncle/datamapper/database"
	"github.com/tomoncle/datamapper/storage"
	"github.com/tomoncle/datamapper/storage/dynamo"
	"github.com/tomoncle/datamapper/storage/instrument"
	"github.com/tomoncle/datamapper/storage/memory"
	"github.com/tomoncle/datamapper/storage/sqlstore"
	"github.com/tomoncle/datamapper/utils"
)

var (
	defaultMu      sync.RWMutex
	defaultStorage storage.Storage

	metricsOnce sync.Once
	metrics     *instrument.Metrics
	metricsErr  error
)

// DefaultStorage returns the storage registered by Open or SetDefaultStorage.
// Without either, an in-memory storage is created on first call.
func DefaultStorage() storage.Storage {
	defaultMu.RLock()
	s := defaultStorage
	defaultMu.RUnlock()
	if s != nil {
		return s
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultStorage == nil {
		defaultStorage = memory.New()
	}
	return defaultStorage
}

// SetDefaultStorage registers s as the storage used by services.
func SetDefaultStorage(s storage.Storage) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultStorage = s
}

// Open builds the storage selected by cfg, registers it as the default and
// returns it. A nil cfg means config.Default().
func Open(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyLogging()

	s, err := NewStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	SetDefaultStorage(s)
	utils.NewLogger("DATAMAPPER").WithField("backend", cfg.Storage.Backend).Info("Storage opened")
	return s, nil
}

// NewStorage builds the storage selected by cfg without registering it.
func NewStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	var s storage.Storage
	switch cfg.Storage.Backend {
	case config.BackendMemory, "":
		s = memory.New(memory.WithIDColumn(cfg.Storage.IDColumn))
	case config.BackendSQL:
		if _, err := database.InitDB(ctx, &cfg.Database); err != nil {
			return nil, err
		}
		s = sqlstore.NewFromManager(database.GetDatabaseManager(),
			sqlstore.WithIDColumn(cfg.Storage.IDColumn),
			sqlstore.WithOrderBy(cfg.Storage.OrderBy...),
		)
	case config.BackendDynamoDB:
		dcfg := cfg.DynamoDB
		if dcfg.KeyAttribute == "" {
			dcfg.KeyAttribute = cfg.Storage.IDColumn
		}
		ds, err := dynamo.NewFromConfig(ctx, dcfg)
		if err != nil {
			return nil, err
		}
		s = ds
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}

	if !cfg.Metrics.Enabled {
		return s, nil
	}
	m, err := storageMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to register storage metrics: %w", err)
	}
	return instrument.Wrap(s, m), nil
}

// storageMetrics registers one collector set with the default Prometheus
// registry and shares it between every instrumented storage.
func storageMetrics() (*instrument.Metrics, error) {
	metricsOnce.Do(func() {
		m, err := instrument.NewMetrics(nil)
		if err != nil {
			metricsErr = err
			return
		}
		if err := prometheus.Register(m); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				if existing, ok := are.ExistingCollector.(*instrument.Metrics); ok {
					metrics = existing
					return
				}
			}
			metricsErr = err
			return
		}
		metrics = m
	})
	return metrics, metricsErr
}

// Close closes the default storage and the global database connection, and
// unregisters the default storage.
func Close() error {
	defaultMu.Lock()
	s := defaultStorage
	defaultStorage = nil
	defaultMu.Unlock()

	var errs []error
	if s != nil {
		errs = append(errs, storage.Close(s))
	}
	errs = append(errs, database.CloseDB())
	return errors.Join(errs...)
}
