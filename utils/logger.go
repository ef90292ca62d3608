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

package utils

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger

// LogOptions configures every named logger.
type LogOptions struct {
	Level         string `mapstructure:"level" yaml:"level"`
	ConsoleFormat string `mapstructure:"console_format" yaml:"console_format"` // text | json
	FileEnabled   bool   `mapstructure:"file_enabled" yaml:"file_enabled"`
	FileDir       string `mapstructure:"file_dir" yaml:"file_dir"`
	FileFormat    string `mapstructure:"file_format" yaml:"file_format"` // text | json
	FileMaxAge    int    `mapstructure:"file_max_age_days" yaml:"file_max_age_days"`
}

var (
	optionsMu sync.RWMutex
	options   = LogOptions{
		Level:         EnvDefaultString("LOG_LEVEL", "info"),
		ConsoleFormat: EnvDefaultString("CONSOLE_LOG_FORMAT", "text"),
		FileEnabled:   EnvDefaultBool("FILE_LOG_ENABLED", false),
		FileDir:       "logs",
		FileFormat:    EnvDefaultString("FILE_LOG_FORMAT", "text"),
	}
	console io.Writer = os.Stdout

	loggerRegistryMu sync.RWMutex
	loggerRegistry   = map[string]*logrus.Logger{}
)

// Configure replaces the logging options. Loggers created earlier keep
// their hooks but pick up the new level.
func Configure(opts LogOptions) {
	optionsMu.Lock()
	if opts.FileDir == "" {
		opts.FileDir = "logs"
	}
	options = opts
	optionsMu.Unlock()
	SetAllLoggersLevel(ParseLogLevel(opts.Level))
}

// SetConsoleOutput redirects console output of loggers created afterwards.
func SetConsoleOutput(w io.Writer) {
	optionsMu.Lock()
	defer optionsMu.Unlock()
	console = w
}

func currentOptions() (LogOptions, io.Writer) {
	optionsMu.RLock()
	defer optionsMu.RUnlock()
	return options, console
}

// NewLogger builds a named logger and registers it, replacing any logger
// of the same name.
func NewLogger(name string) *logrus.Logger {
	opts, out := currentOptions()

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(ParseLogLevel(opts.Level))
	l.SetReportCaller(true)
	l.SetFormatter(newFormatter(name, opts.ConsoleFormat, true))
	if opts.FileEnabled {
		if err := AddDailyFileHook(l, name, opts.FileDir, opts.FileFormat, opts.FileMaxAge); err != nil {
			l.WithError(err).Warn("file logging disabled")
		}
	}
	RegisterLogger(name, l)
	return l
}

// GetOrCreateLogger returns the registered logger for name, creating it
// on first use.
func GetOrCreateLogger(name string) *logrus.Logger {
	loggerRegistryMu.RLock()
	l, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if ok {
		return l
	}
	return NewLogger(name)
}

func RegisterLogger(name string, l *logrus.Logger) {
	loggerRegistryMu.Lock()
	defer loggerRegistryMu.Unlock()
	loggerRegistry[name] = l
}

func SetAllLoggersLevel(lvl logrus.Level) {
	loggerRegistryMu.RLock()
	for _, lg := range loggerRegistry {
		lg.SetLevel(lvl)
	}
	loggerRegistryMu.RUnlock()
	logrus.SetLevel(lvl)
}

// SetLoggerLevel changes one named logger; false if it does not exist.
func SetLoggerLevel(name string, lvlStr string) bool {
	loggerRegistryMu.RLock()
	lg, ok := loggerRegistry[name]
	loggerRegistryMu.RUnlock()
	if !ok {
		return false
	}
	lg.SetLevel(ParseLogLevel(lvlStr))
	return true
}

func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

func EnvDefaultString(key string, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func EnvDefaultBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
