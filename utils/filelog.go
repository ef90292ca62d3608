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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const dayLayout = "2006-01-02"

// levelFileHook writes every entry to the file of its level.
type levelFileHook struct {
	writers   map[logrus.Level]io.Writer
	formatter logrus.Formatter
}

func (h *levelFileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *levelFileHook) Fire(e *logrus.Entry) error {
	w, ok := h.writers[e.Level]
	if !ok {
		return nil
	}
	b, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// dailyWriter appends to <dir>/<yyyy-mm-dd>/<name>.log, switching files at
// midnight and removing day directories older than maxAgeDays.
type dailyWriter struct {
	dir        string
	name       string
	maxAgeDays int
	now        func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

func newDailyWriter(dir, name string, maxAgeDays int) *dailyWriter {
	return &dailyWriter{dir: dir, name: name, maxAgeDays: maxAgeDays, now: time.Now}
}

func (w *dailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	today := w.now().Format(dayLayout)
	if w.file == nil || w.day != today {
		if err := w.rotate(today); err != nil {
			return 0, err
		}
		w.prune()
	}
	return w.file.Write(p)
}

func (w *dailyWriter) rotate(day string) error {
	if w.file != nil {
		_ = w.file.Close()
		w.file = nil
	}
	dir := filepath.Join(w.dir, day)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dir, w.name+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.file, w.day = f, day
	return nil
}

func (w *dailyWriter) prune() {
	if w.maxAgeDays <= 0 {
		return
	}
	now := w.now()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		AddDate(0, 0, -w.maxAgeDays)

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		d, err := time.ParseInLocation(dayLayout, e.Name(), now.Location())
		if err != nil {
			continue
		}
		if d.Before(cutoff) {
			_ = os.RemoveAll(filepath.Join(w.dir, e.Name()))
		}
	}
}

func (w *dailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// AddDailyFileHook attaches per-level daily files under dir/<logger name>.
// Trace and debug share debug.log; fatal and panic go to error.log.
func AddDailyFileHook(l *logrus.Logger, name, dir, format string, maxAgeDays int) error {
	if dir == "" {
		return fmt.Errorf("log directory is empty")
	}
	base := filepath.Join(dir, name)
	if err := os.MkdirAll(base, 0o755); err != nil {
		return err
	}

	debug := newDailyWriter(base, "debug", maxAgeDays)
	info := newDailyWriter(base, "info", maxAgeDays)
	warn := newDailyWriter(base, "warn", maxAgeDays)
	errw := newDailyWriter(base, "error", maxAgeDays)

	l.AddHook(&levelFileHook{
		writers: map[logrus.Level]io.Writer{
			logrus.TraceLevel: debug,
			logrus.DebugLevel: debug,
			logrus.InfoLevel:  info,
			logrus.WarnLevel:  warn,
			logrus.ErrorLevel: errw,
			logrus.FatalLevel: errw,
			logrus.PanicLevel: errw,
		},
		formatter: newFormatter(name, format, false),
	})
	return nil
}
