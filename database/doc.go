// Package database provides connection management, configuration loading,
// health checks, query logging hooks, and error classification built on top
// of Bun.
package database
