// log.go - Logging backend.
// Copyright (C) 2017  Yawning Angel.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package log provides the go-logging backend shared by the discovery
// client and the emulator.
package log

import (
	"fmt"
	"io"
	goLog "log"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/op/go-logging.v1"
)

const logFormat = "%{time:15:04:05.000} %{level:.4s} %{module}: %{message}"

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}

// Backend is a log backend.  It is safe to Rotate while loggers obtained
// from GetLogger are in use, module level overrides survive rotation.
type Backend struct {
	sync.RWMutex

	backend logging.LeveledBackend
	w       io.WriteCloser

	file    string
	level   logging.Level
	modules map[string]logging.Level
	disable bool
}

// Log is used to log a message as per the logging.Backend interface.
func (b *Backend) Log(level logging.Level, calldepth int, record *logging.Record) error {
	b.RLock()
	defer b.RUnlock()
	return b.backend.Log(level, calldepth+1, record)
}

// GetLevel returns the logging level for the specified module
// as per the logging.Leveled interface.
func (b *Backend) GetLevel(module string) logging.Level {
	b.RLock()
	defer b.RUnlock()
	return b.backend.GetLevel(module)
}

// SetLevel sets the logging level for the specified module, the empty
// module sets the default.
func (b *Backend) SetLevel(level logging.Level, module string) {
	b.Lock()
	defer b.Unlock()
	if module == "" {
		b.level = level
	} else {
		b.modules[module] = level
	}
	b.backend.SetLevel(level, module)
}

// SetModuleLevels applies per module level overrides given by name, such as
// {"discovery": "DEBUG"}.  Nothing is applied if any level is invalid.
func (b *Backend) SetModuleLevels(levels map[string]string) error {
	parsed := make(map[string]logging.Level, len(levels))
	for module, l := range levels {
		lvl, err := logLevelFromString(l)
		if err != nil {
			return fmt.Errorf("log: module '%v': %v", module, err)
		}
		parsed[module] = lvl
	}
	for module, lvl := range parsed {
		b.SetLevel(lvl, module)
	}
	return nil
}

// Modules returns the modules with a level override, sorted.
func (b *Backend) Modules() []string {
	b.RLock()
	defer b.RUnlock()
	m := make([]string, 0, len(b.modules))
	for module := range b.modules {
		m = append(m, module)
	}
	sort.Strings(m)
	return m
}

// IsEnabledFor returns true if the logger is enabled for the given level.
func (b *Backend) IsEnabledFor(level logging.Level, module string) bool {
	b.RLock()
	defer b.RUnlock()
	return b.backend.IsEnabledFor(level, module)
}

// GetLogger returns a per-module logger that writes to the backend.
func (b *Backend) GetLogger(module string) *logging.Logger {
	l := logging.MustGetLogger(module)
	l.SetBackend(b)
	return l
}

// GetGoLogger returns a per-module Go runtime *log.Logger that writes to
// the backend at a single level, for use as http.Server.ErrorLog.
func (b *Backend) GetGoLogger(module string, level string) *goLog.Logger {
	lvl, err := logLevelFromString(level)
	if err != nil {
		panic("log: GetGoLogger(): Invalid level: " + err.Error())
	}
	return goLog.New(&logWriter{m: b.GetLogger(module), lvl: lvl}, "", 0)
}

// Rotate reopens the log file, for use from a SIGHUP handler.
func (b *Backend) Rotate() error {
	b.Lock()
	defer b.Unlock()

	if err := b.w.Close(); err != nil {
		return err
	}
	w, err := b.open()
	if err != nil {
		return err
	}
	b.install(w)
	return nil
}

func (b *Backend) open() (io.WriteCloser, error) {
	switch {
	case b.disable:
		return nopCloser{io.Discard}, nil
	case b.file == "":
		return nopCloser{os.Stdout}, nil
	}

	const fileMode = 0600
	f, err := os.OpenFile(b.file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, fileMode)
	if err != nil {
		return nil, fmt.Errorf("log: failed to create log file: %v", err)
	}
	return f, nil
}

func (b *Backend) install(w io.WriteCloser) {
	formatted := logging.NewBackendFormatter(logging.NewLogBackend(w, "", 0), logging.MustStringFormatter(logFormat))
	backend := logging.AddModuleLevel(formatted)
	backend.SetLevel(b.level, "")
	for module, lvl := range b.modules {
		backend.SetLevel(lvl, module)
	}
	b.w = w
	b.backend = backend
}

// New initializes a logging backend writing to the file f, or stdout if f
// is empty.
func New(f string, level string, disable bool) (*Backend, error) {
	lvl, err := logLevelFromString(level)
	if err != nil {
		return nil, err
	}
	b := &Backend{
		file:    f,
		level:   lvl,
		modules: make(map[string]logging.Level),
		disable: disable,
	}
	w, err := b.open()
	if err != nil {
		return nil, err
	}
	b.install(w)
	return b, nil
}

// ValidateLevel returns an error if l is not a level name New accepts.
func ValidateLevel(l string) error {
	_, err := logLevelFromString(l)
	return err
}

func logLevelFromString(l string) (logging.Level, error) {
	switch strings.ToUpper(l) {
	case "ERROR":
		return logging.ERROR, nil
	case "WARNING":
		return logging.WARNING, nil
	case "NOTICE":
		return logging.NOTICE, nil
	case "INFO":
		return logging.INFO, nil
	case "DEBUG":
		return logging.DEBUG, nil
	default:
		return logging.CRITICAL, fmt.Errorf("log: invalid level: '%v'", l)
	}
}

type logWriter struct {
	m   *logging.Logger
	lvl logging.Level
}

func (w *logWriter) Write(p []byte) (int, error) {
	// The `log` package always terminates the record with a newline.
	s := strings.TrimSpace(string(p))
	if len(s) == 0 {
		return len(p), nil
	}

	switch w.lvl {
	case logging.ERROR:
		w.m.Error(s)
	case logging.WARNING:
		w.m.Warning(s)
	case logging.NOTICE:
		w.m.Notice(s)
	case logging.INFO:
		w.m.Info(s)
	case logging.DEBUG:
		w.m.Debug(s)
	default:
		w.m.Critical(s)
	}
	return len(p), nil
}
