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

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/schema"
)

// Normalized database type names.
const (
	TypeMySQL    = "mysql"
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// NormalizeType maps driver aliases onto TypeMySQL, TypePostgres or TypeSQLite.
func NormalizeType(t string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "mysql", "mariadb":
		return TypeMySQL, nil
	case "postgres", "postgresql", "pg":
		return TypePostgres, nil
	case "sqlite", "sqlite3":
		return TypeSQLite, nil
	}
	return "", fmt.Errorf("unsupported database type: %s", t)
}

// BuildDSN returns the database/sql driver name, DSN and Bun dialect for cfg.
func BuildDSN(cfg *ConnectionConfig) (string, string, schema.Dialect, error) {
	typ, err := NormalizeType(cfg.Type)
	if err != nil {
		return "", "", nil, err
	}
	switch typ {
	case TypeMySQL:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%s&readTimeout=%s&writeTimeout=%s",
				cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
				cfg.ConnectTimeout, cfg.ReadTimeout, cfg.WriteTimeout)
		}
		return "mysql", dsn, mysqldialect.New(), nil
	case TypePostgres:
		dsn := cfg.DSN
		if dsn == "" {
			sslMode := cfg.SSLMode
			if sslMode == "" {
				sslMode = "disable"
			}
			dsn = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&connect_timeout=%d",
				cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
				sslMode, int(cfg.ConnectTimeout.Seconds()))
		}
		return "postgres", dsn, pgdialect.New(), nil
	default:
		dsn := cfg.DSN
		if dsn == "" {
			switch {
			case cfg.DBName == "" || cfg.DBName == ":memory:":
				dsn = "file::memory:?cache=shared"
			case strings.HasSuffix(cfg.DBName, ".db"):
				dsn = cfg.DBName
			default:
				dsn = cfg.DBName + ".db"
			}
		}
		return sqliteshim.ShimName, dsn, sqlitedialect.New(), nil
	}
}

type defaultDatabaseManager struct {
	config *ConnectionConfig
	logger Logger

	mu        sync.RWMutex
	db        *bun.DB
	sqlDB     *sql.DB
	lastError error
	status    *HealthStatus

	// stopWatch cancels the health watcher of the current connection.
	stopWatch      context.CancelFunc
	reconnectTries int
}

// NewDatabaseManager returns an AbstractDatabaseManager backed by Bun.
// A nil config falls back to DefaultConnectionConfig.
func NewDatabaseManager(config *ConnectionConfig) AbstractDatabaseManager {
	if config == nil {
		config = DefaultConnectionConfig()
	}
	config.ApplyDefaults()
	return &defaultDatabaseManager{config: config, status: &HealthStatus{}}
}

func (dm *defaultDatabaseManager) Connect(ctx context.Context) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.db != nil {
		return nil
	}

	sqlDB, db, err := dm.open(ctx)
	if err != nil {
		dm.lastError = err
		return err
	}
	dm.sqlDB, dm.db, dm.lastError = sqlDB, db, nil

	if dm.config.HealthCheckInterval > 0 {
		watchCtx, cancel := context.WithCancel(context.Background())
		dm.stopWatch = cancel
		go dm.watch(watchCtx, dm.config.HealthCheckInterval)
	}
	if dm.logger != nil {
		dm.logger.Info("Database connected", "type", dm.config.Type, "host", dm.config.Host, "dbname", dm.config.DBName)
	}
	return nil
}

// open creates the pool, installs the query hooks and pings it within
// ConnectTimeout. The pool is closed again when the ping fails.
func (dm *defaultDatabaseManager) open(ctx context.Context) (*sql.DB, *bun.DB, error) {
	driverName, dsn, dialect, err := BuildDSN(dm.config)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	sqlDB.SetMaxIdleConns(dm.config.MaxIdleConns)
	sqlDB.SetMaxOpenConns(dm.config.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(dm.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(dm.config.ConnMaxIdleTime)

	db := bun.NewDB(sqlDB, dialect)
	installHooks(db, dm.config, dm.logger)

	pingCtx, cancel := context.WithTimeout(ctx, dm.config.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("database connection test failed: %w", err)
	}
	return sqlDB, db, nil
}

func (dm *defaultDatabaseManager) Disconnect() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.closeLocked()
}

func (dm *defaultDatabaseManager) closeLocked() error {
	if dm.stopWatch != nil {
		dm.stopWatch()
		dm.stopWatch = nil
	}
	if dm.db == nil {
		return nil
	}
	err := dm.db.Close()
	dm.db, dm.sqlDB = nil, nil

	if dm.logger != nil {
		if err != nil {
			dm.logger.Error("Failed to close database connection", "error", err)
		} else {
			dm.logger.Info("Database connection closed")
		}
	}
	return err
}

func (dm *defaultDatabaseManager) Reconnect(ctx context.Context) error {
	if err := dm.Disconnect(); err != nil && dm.logger != nil {
		dm.logger.Warn("Error disconnecting existing connection", "error", err)
	}
	return dm.Connect(ctx)
}

func (dm *defaultDatabaseManager) Ping(ctx context.Context) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	return db.PingContext(ctx)
}

func (dm *defaultDatabaseManager) GetDB() *bun.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.db
}

func (dm *defaultDatabaseManager) GetSQLDB() *sql.DB {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return dm.sqlDB
}

// HealthCheck pings the database and records the result. The ping runs
// outside the manager lock so readers are not blocked by a slow server.
func (dm *defaultDatabaseManager) HealthCheck(ctx context.Context) *HealthStatus {
	start := time.Now()
	dm.mu.RLock()
	db, sqlDB := dm.db, dm.sqlDB
	dm.mu.RUnlock()

	status := &HealthStatus{LastCheckTime: start}
	if db == nil {
		status.LastError = "Database not initialized"
		return status
	}

	pingCtx, cancel := context.WithTimeout(ctx, healthPingTimeout)
	defer cancel()
	err := db.PingContext(pingCtx)
	status.ResponseTime = time.Since(start)
	status.Healthy = err == nil
	status.Connected = err == nil
	if err != nil {
		status.LastError = err.Error()
	}
	stats := sqlDB.Stats()
	status.ActiveConns = stats.InUse
	status.IdleConns = stats.Idle
	status.MaxOpenConns = stats.MaxOpenConnections

	dm.mu.Lock()
	dm.lastError = err
	dm.status = status
	dm.mu.Unlock()
	return status
}

const (
	healthPingTimeout  = 5 * time.Second
	healthCheckTimeout = 10 * time.Second
)

// watch runs HealthCheck every interval until ctx is canceled, reconnecting
// after a failed check when EnableReconnect is set.
func (dm *defaultDatabaseManager) watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		status := dm.HealthCheck(checkCtx)
		cancel()
		if status.Healthy {
			dm.mu.Lock()
			dm.reconnectTries = 0
			dm.mu.Unlock()
			continue
		}
		if dm.config.EnableReconnect && dm.reconnect(ctx) {
			// The new connection runs its own watcher.
			return
		}
	}
}

// reconnect replaces the connection after a failed health check and reports
// whether it succeeded. It gives up after MaxReconnectTries consecutive failures.
func (dm *defaultDatabaseManager) reconnect(ctx context.Context) bool {
	dm.mu.Lock()
	if dm.reconnectTries >= dm.config.MaxReconnectTries {
		dm.mu.Unlock()
		if dm.logger != nil {
			dm.logger.Error("Max reconnect attempts reached, stopping", "tries", dm.config.MaxReconnectTries)
		}
		return false
	}
	dm.reconnectTries++
	tries := dm.reconnectTries
	dm.mu.Unlock()

	select {
	case <-ctx.Done():
		return false
	case <-time.After(dm.config.ReconnectInterval):
	}

	sqlDB, db, err := dm.open(ctx)
	if err != nil {
		if dm.logger != nil {
			dm.logger.Error("Reconnect failed", "error", err, "try", tries)
		}
		return false
	}

	dm.mu.Lock()
	defer dm.mu.Unlock()
	if ctx.Err() != nil {
		// Disconnected while reopening.
		_ = db.Close()
		return false
	}
	old := dm.db
	dm.sqlDB, dm.db, dm.lastError = sqlDB, db, nil
	watchCtx, cancel := context.WithCancel(context.Background())
	dm.stopWatch()
	dm.stopWatch = cancel
	go dm.watch(watchCtx, dm.config.HealthCheckInterval)
	if old != nil {
		_ = old.Close()
	}
	if dm.logger != nil {
		dm.logger.Info("Reconnect succeeded", "try", tries)
	}
	return true
}

func (dm *defaultDatabaseManager) GetStats() *DBStats {
	sqlDB := dm.GetSQLDB()
	if sqlDB == nil {
		return &DBStats{}
	}
	return statsFrom(sqlDB.Stats())
}

func statsFrom(s sql.DBStats) *DBStats {
	return &DBStats{
		MaxOpenConns:      s.MaxOpenConnections,
		OpenConns:         s.OpenConnections,
		InUse:             s.InUse,
		Idle:              s.Idle,
		WaitCount:         s.WaitCount,
		WaitDuration:      s.WaitDuration,
		MaxIdleClosed:     s.MaxIdleClosed,
		MaxIdleTimeClosed: s.MaxIdleTimeClosed,
		MaxLifetimeClosed: s.MaxLifetimeClosed,
	}
}

// InitData runs the SQL seed files described by cfg. The environment
// defaults to "prod".
func (dm *defaultDatabaseManager) InitData(ctx context.Context, cfg DataInitConfig) error {
	db := dm.GetDB()
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	env := cfg.Environment
	if env == "" {
		env = "prod"
	}
	initializer := NewSQLInitManager(db, env)
	initializer.SetLogger(dm.getLogger())
	if cfg.Filepath != "" {
		initializer.SetSQLRootPath(cfg.Filepath)
	}
	return initializer.ExecuteInitialization(ctx)
}

func (dm *defaultDatabaseManager) getLogger() Logger {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	if dm.logger == nil {
		return GetLogger()
	}
	return dm.logger
}

func (dm *defaultDatabaseManager) SetLogger(logger Logger) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.logger = logger
}
