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
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"github.com/tomoncle/crudgate/types"
	"gopkg.in/yaml.v3"
)

const redacted = "******"

var defaults = map[string]interface{}{
	"mode":         "DEV",
	"app_version":  "0.1.0",
	"cors_origins": []string{},

	"postgres.db":       "crudgate",
	"postgres.user":     "postgres",
	"postgres.password": "",
	"postgres.host":     "localhost",
	"postgres.port":     5432,

	"jwt.access_secret":          "",
	"jwt.refresh_secret":         "",
	"jwt.access_expire_minutes":  30,
	"jwt.refresh_expire_minutes": 60 * 24 * 7,
	"jwt.issuer":                 "crudgate",

	"admin.email":    "",
	"admin.password": "",

	"database.type":                      "postgres",
	"database.host":                      "",
	"database.port":                      0,
	"database.username":                  "",
	"database.password":                  "",
	"database.dbname":                    "crudgate.db",
	"database.sslmode":                   "disable",
	"database.max_idle_conns":            10,
	"database.max_open_conns":            100,
	"database.conn_max_lifetime":         "1h",
	"database.conn_max_idle_time":        "30m",
	"database.connect_timeout":           "10s",
	"database.health_check_interval":     "0s",
	"database.enable_reconnect":          false,
	"database.enable_query_log":          false,
	"database.slow_query_time":           "2s",
	"database.enable_migrate_on_startup": true,

	"http.addr":             ":8000",
	"http.read_timeout":     "15s",
	"http.write_timeout":    "15s",
	"http.shutdown_timeout": "10s",

	"log.level":             "info",
	"log.console_format":    "text",
	"log.file_enabled":      false,
	"log.file_dir":          "logs",
	"log.file_format":       "text",
	"log.file_max_age_days": 7,
}

// Load reads defaults, then the optional YAML file at path, then the
// environment, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		stringToModeHook(),
		jsonListHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	vd := validator.New()
	_ = vd.RegisterValidation("mode", func(fl validator.FieldLevel) bool {
		m, ok := fl.Field().Interface().(types.Mode)
		return ok && m.IsValid()
	})
	vd.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return vd
}

// Validate checks field constraints.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Dump renders cfg as YAML with secrets replaced.
func Dump(cfg *Config) ([]byte, error) {
	masked := *cfg
	mask(&masked.Postgres.Password)
	mask(&masked.Database.Password)
	mask(&masked.JWT.AccessSecret)
	mask(&masked.JWT.RefreshSecret)
	mask(&masked.Admin.Password)
	return yaml.Marshal(&masked)
}

func mask(s *string) {
	if *s != "" {
		*s = redacted
	}
}

func stringToModeHook() mapstructure.DecodeHookFuncType {
	modeType := reflect.TypeOf(types.Mode(0))
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != modeType || from.Kind() != reflect.String {
			return data, nil
		}
		return types.ParseMode(data.(string)), nil
	}
}

// jsonListHook accepts list values written as JSON arrays, the form
// CORS_ORIGINS='["http://a","http://b"]' takes in the environment.
func jsonListHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to.Kind() != reflect.Slice {
			return data, nil
		}
		s := strings.TrimSpace(data.(string))
		if !strings.HasPrefix(s, "[") {
			return data, nil
		}
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, fmt.Errorf("decode list %q: %w", s, err)
		}
		return out, nil
	}
}

// ShutdownTimeoutOrDefault falls back to ten seconds.
func (c HTTPConfig) ShutdownTimeoutOrDefault() time.Duration {
	if c.ShutdownTimeout <= 0 {
		return 10 * time.Second
	}
	return c.ShutdownTimeout
}
