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
	"time"

	"github.com/tomoncle/crudgate/database"
	"github.com/tomoncle/crudgate/types"
	"github.com/tomoncle/crudgate/utils"
)

// Config is the process configuration. Keys are addressed with dots in
// YAML and with underscores in the environment, so postgres.host reads
// POSTGRES_HOST.
type Config struct {
	Mode        types.Mode       `mapstructure:"mode" yaml:"mode" validate:"mode"`
	AppVersion  string           `mapstructure:"app_version" yaml:"app_version" validate:"required"`
	CORSOrigins []string         `mapstructure:"cors_origins" yaml:"cors_origins"`
	Postgres    PostgresConfig   `mapstructure:"postgres" yaml:"postgres"`
	JWT         JWTConfig        `mapstructure:"jwt" yaml:"jwt"`
	Admin       AdminConfig      `mapstructure:"admin" yaml:"admin"`
	Database    DatabaseConfig   `mapstructure:"database" yaml:"database"`
	HTTP        HTTPConfig       `mapstructure:"http" yaml:"http"`
	Log         utils.LogOptions `mapstructure:"log" yaml:"log"`
}

type PostgresConfig struct {
	DB       string `mapstructure:"db" yaml:"db"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`
}

type JWTConfig struct {
	AccessSecret         string `mapstructure:"access_secret" yaml:"access_secret" validate:"required"`
	RefreshSecret        string `mapstructure:"refresh_secret" yaml:"refresh_secret" validate:"required"`
	AccessExpireMinutes  int    `mapstructure:"access_expire_minutes" yaml:"access_expire_minutes" validate:"gt=0"`
	RefreshExpireMinutes int    `mapstructure:"refresh_expire_minutes" yaml:"refresh_expire_minutes" validate:"gt=0"`
	Issuer               string `mapstructure:"issuer" yaml:"issuer"`
}

func (c JWTConfig) AccessTTL() time.Duration {
	return time.Duration(c.AccessExpireMinutes) * time.Minute
}

func (c JWTConfig) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshExpireMinutes) * time.Minute
}

// AdminConfig seeds the first administrator when both fields are set.
type AdminConfig struct {
	Email    string `mapstructure:"email" yaml:"email" validate:"omitempty,email"`
	Password string `mapstructure:"password" yaml:"password"`
}

// DatabaseConfig selects the driver. For postgres the connection comes
// from the postgres section; the other drivers use the fields here.
type DatabaseConfig struct {
	Type                   string        `mapstructure:"type" yaml:"type" validate:"oneof=postgres postgresql mysql sqlite sqlite3"`
	Host                   string        `mapstructure:"host" yaml:"host"`
	Port                   int           `mapstructure:"port" yaml:"port"`
	Username               string        `mapstructure:"username" yaml:"username"`
	Password               string        `mapstructure:"password" yaml:"password"`
	DBName                 string        `mapstructure:"dbname" yaml:"dbname"`
	SSLMode                string        `mapstructure:"sslmode" yaml:"sslmode"`
	MaxIdleConns           int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns" validate:"min=0"`
	MaxOpenConns           int           `mapstructure:"max_open_conns" yaml:"max_open_conns" validate:"min=0"`
	ConnMaxLifetime        time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`
	ConnMaxIdleTime        time.Duration `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time"`
	ConnectTimeout         time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	HealthCheckInterval    time.Duration `mapstructure:"health_check_interval" yaml:"health_check_interval"`
	EnableReconnect        bool          `mapstructure:"enable_reconnect" yaml:"enable_reconnect"`
	EnableQueryLog         bool          `mapstructure:"enable_query_log" yaml:"enable_query_log"`
	SlowQueryTime          time.Duration `mapstructure:"slow_query_time" yaml:"slow_query_time"`
	EnableMigrateOnStartup bool          `mapstructure:"enable_migrate_on_startup" yaml:"enable_migrate_on_startup"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// ConfigLoader converts the settings into the database layer's config.
func (c *Config) ConfigLoader() *database.Config {
	conn := database.DefaultConnectionConfig()
	d := c.Database

	conn.Type = d.Type
	switch d.Type {
	case "postgres", "postgresql":
		conn.Host = c.Postgres.Host
		conn.Port = c.Postgres.Port
		conn.Username = c.Postgres.User
		conn.Password = c.Postgres.Password
		conn.DBName = c.Postgres.DB
		conn.SSLMode = d.SSLMode
	default:
		conn.Host = d.Host
		conn.Port = d.Port
		conn.Username = d.Username
		conn.Password = d.Password
		conn.DBName = d.DBName
	}

	if d.MaxIdleConns > 0 {
		conn.MaxIdleConns = d.MaxIdleConns
	}
	if d.MaxOpenConns > 0 {
		conn.MaxOpenConns = d.MaxOpenConns
	}
	if d.ConnMaxLifetime > 0 {
		conn.ConnMaxLifetime = d.ConnMaxLifetime
	}
	if d.ConnMaxIdleTime > 0 {
		conn.ConnMaxIdleTime = d.ConnMaxIdleTime
	}
	if d.ConnectTimeout > 0 {
		conn.ConnectTimeout = d.ConnectTimeout
	}
	if d.SlowQueryTime > 0 {
		conn.SlowQueryTime = d.SlowQueryTime
	}
	conn.HealthCheckInterval = d.HealthCheckInterval
	conn.EnableReconnect = d.EnableReconnect
	conn.EnableQueryLog = d.EnableQueryLog

	return &database.Config{
		ConnectionConfig: *conn,
		BootstrapConfig:  database.BootstrapConfig{EnableMigrateOnStartup: d.EnableMigrateOnStartup},
	}
}

var _ database.AbstractDatabaseConfigProvider = (*Config)(nil)
