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
	"fmt"
	"slices"

	"github.com/uptrace/bun"
)

// SupportedTypes lists the accepted ConnectionConfig.Type values.
var SupportedTypes = []string{"mysql", "postgres", "postgresql", "sqlite", "sqlite3"}

// Database is a connected manager plus the config it was opened with.
type Database struct {
	manager AbstractDatabaseManager
	config  *Config
}

// Open connects with cfg and creates the registered tables when bootstrap
// is enabled.
func Open(ctx context.Context, cfg *Config) (*Database, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	conn := &cfg.ConnectionConfig
	if !slices.Contains(SupportedTypes, conn.Type) {
		return nil, fmt.Errorf("unsupported database type: %s, supported types: %v", conn.Type, SupportedTypes)
	}

	logger := GetLogger()
	manager := NewDatabaseManager(conn)
	manager.SetLogger(logger)
	if err := manager.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.BootstrapConfig.EnableMigrateOnStartup {
		if err := manager.RunMigrations(ctx); err != nil {
			_ = manager.Disconnect()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}
	manager.GetDB().RegisterModel(RegisteredModelInstances()...)
	logger.Info("database ready", "type", conn.Type)
	return &Database{manager: manager, config: cfg}, nil
}

// DB returns the Bun database instance.
func (d *Database) DB() *bun.DB {
	return d.manager.GetDB()
}

// Dialect names the configured database type.
func (d *Database) Dialect() string {
	return d.config.ConnectionConfig.Type
}

// NewSession opens a unit of work with the default isolation level.
func (d *Database) NewSession() *Session {
	return NewSession(d.DB(), nil)
}

func (d *Database) AddQueryHook(hook bun.QueryHook) {
	d.DB().AddQueryHook(hook)
}

func (d *Database) Health(ctx context.Context) *HealthStatus {
	return d.manager.HealthCheck(ctx)
}

// Stats returns connection pool statistics.
func (d *Database) Stats() *DBStats {
	return d.manager.GetStats()
}

func (d *Database) Close() error {
	return d.manager.Disconnect()
}
