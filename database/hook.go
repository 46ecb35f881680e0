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
	"errors"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/extra/bundebug"
)

// QueryLogEnv overrides query logging at runtime: "0" disables, "1" logs
// failures, "2" logs every query.
const QueryLogEnv = "DATAMAPPER_QUERY_LOG"

var operationColors = map[string]*color.Color{
	"SELECT": color.New(color.FgGreen),
	"INSERT": color.New(color.FgBlue),
	"UPDATE": color.New(color.FgYellow),
	"DELETE": color.New(color.FgMagenta),
}

func installHooks(db *bun.DB, cfg *ConnectionConfig, logger Logger) {
	if cfg.EnableQueryLog {
		db.AddQueryHook(bundebug.NewQueryHook(
			bundebug.WithVerbose(true),
			bundebug.FromEnv("BUNDEBUG"),
		))
	}
	if logger == nil {
		return
	}
	db.AddQueryHook(&QueryHook{logger: logger, enabled: true, verbose: cfg.EnableQueryLog})
	if cfg.SlowQueryTime > 0 {
		db.AddQueryHook(&SlowQueryHook{logger: logger, slowTime: cfg.SlowQueryTime})
	}
}

// QueryHook logs failed queries, and every query when verbose.
type QueryHook struct {
	logger  Logger
	enabled bool
	verbose bool
}

var _ bun.QueryHook = (*QueryHook)(nil)

// NewQueryHook returns a hook logging through logger.
func NewQueryHook(logger Logger, verbose bool) *QueryHook {
	return &QueryHook{logger: logger, enabled: true, verbose: verbose}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	enabled, verbose := h.enabled, h.verbose
	if env, ok := os.LookupEnv(QueryLogEnv); ok {
		enabled = env != "" && env != "0"
		verbose = env == "2"
	}
	if !enabled {
		return
	}

	dur := time.Since(event.StartTime).Round(time.Microsecond)
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) && !errors.Is(event.Err, sql.ErrTxDone) {
		_, kind := IsSqlError(event.Err)
		h.logger.Warn("[BUN] query failed", "duration", dur, "kind", kind, "query", event.Query, "error", event.Err)
		return
	}
	if verbose {
		h.logger.Debug("[BUN] "+colorize(event), "duration", dur)
	}
}

func colorize(event *bun.QueryEvent) string {
	if c, ok := operationColors[event.Operation()]; ok {
		return c.Sprint(event.Query)
	}
	return color.RedString(event.Query)
}

// SlowQueryHook warns about successful queries slower than slowTime.
type SlowQueryHook struct {
	logger   Logger
	slowTime time.Duration
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event.Err != nil {
		return
	}
	if d := time.Since(event.StartTime); d > h.slowTime {
		h.logger.Warn("Database slow query detected",
			"duration", d,
			"slow_threshold", h.slowTime,
			"query", event.Query,
		)
	}
}
