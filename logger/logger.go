/*
 * MIT License
 *
 * Copyright (c) 2024 nabbar
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package logger is the structured logging surface shared by every package
// of this module: leveled methods plus a Fields map, a package-wide default
// instance, and named contextual children, wrapping logrus.
package logger

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Fields is an alias for the structured key/value payload attached to a
// log entry.
type Fields = logrus.Fields

// Logger is the interface every component of this module logs through.
type Logger interface {
	WithFields(f Fields) Logger
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

type logger struct {
	entry *logrus.Entry
}

// New returns a named Logger; name is attached to every entry as the
// "component" field.
func New(name string) Logger {
	return &logger{entry: base().WithField("component", name)}
}

func (l *logger) WithFields(f Fields) Logger {
	return &logger{entry: l.entry.WithFields(f)}
}

func (l *logger) Debug(msg string, f Fields) { l.entry.WithFields(f).Debug(msg) }
func (l *logger) Info(msg string, f Fields)  { l.entry.WithFields(f).Info(msg) }
func (l *logger) Warn(msg string, f Fields)  { l.entry.WithFields(f).Warn(msg) }
func (l *logger) Error(msg string, f Fields) { l.entry.WithFields(f).Error(msg) }

var (
	defMu  sync.RWMutex
	defLog = logrus.StandardLogger()
)

func base() *logrus.Logger {
	defMu.RLock()
	defer defMu.RUnlock()
	return defLog
}

// SetOutputLevel adjusts the package-wide default logrus level.
func SetOutputLevel(level logrus.Level) {
	defMu.Lock()
	defer defMu.Unlock()
	defLog.SetLevel(level)
}
