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
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/datamapper/utils"
)

const loggerName = "DATABASE"

var (
	globalLogger   Logger
	globalLoggerMu sync.RWMutex
)

// LogLevel is the verbosity of a Logger.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

var logLevelNames = [...]string{
	LogLevelDebug: "DEBUG",
	LogLevelInfo:  "INFO",
	LogLevelWarn:  "WARN",
	LogLevelError: "ERROR",
}

// String returns the upper-case level name; out-of-range levels read as DEBUG.
func (l LogLevel) String() string {
	if l < LogLevelDebug || l > LogLevelError {
		return logLevelNames[LogLevelDebug]
	}
	return logLevelNames[l]
}

// Logger is the structured logger used by the database and storage layers.
// fields are alternating key/value pairs.
type Logger interface {
	SetLevel(LogLevel)
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// InitLogger installs log as the global logger unless one is already set.
func InitLogger(log Logger) {
	if log == nil {
		return
	}
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	if globalLogger == nil {
		globalLogger = log
	}
}

func GetLogger() Logger {
	globalLoggerMu.RLock()
	l := globalLogger
	globalLoggerMu.RUnlock()
	if l != nil {
		return l
	}

	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewNamedLogger(loggerName)
	}
	return globalLogger
}

// NewNamedLogger returns a Logger writing through the registered utils logger of that name.
func NewNamedLogger(name string) *DefaultLogger {
	return &DefaultLogger{name: name, logger: utils.NewLogger(name)}
}

// DefaultLogger writes key/value pairs as logrus fields.
type DefaultLogger struct {
	name   string
	logger *utils.Logger
}

func (l *DefaultLogger) entry(fields []interface{}) *logrus.Entry {
	return l.logger.WithFields(utils.KeyValues(fields...))
}

func (l *DefaultLogger) Debug(msg string, fields ...interface{}) { l.entry(fields).Debug(msg) }

func (l *DefaultLogger) Info(msg string, fields ...interface{}) { l.entry(fields).Info(msg) }

func (l *DefaultLogger) Warn(msg string, fields ...interface{}) { l.entry(fields).Warn(msg) }

func (l *DefaultLogger) Error(msg string, fields ...interface{}) { l.entry(fields).Error(msg) }

// SetLevel changes the level of the underlying named logger, which is shared
// with every other user of that name.
func (l *DefaultLogger) SetLevel(level LogLevel) {
	utils.SetLoggerLevel(l.name, strings.ToLower(level.String()))
}
