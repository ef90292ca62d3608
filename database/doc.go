// Package database provides connection management, per-request units of
// work, table bootstrap, constraint-violation classification, query hooks,
// logging, health checks and related utilities built on top of Bun.
package database
