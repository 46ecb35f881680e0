// Package database manages the Bun connection used by the SQL storage backend:
// configuration, connection pool and health checks, query logging hooks, SQL
// seed files and driver error classification.
package database
