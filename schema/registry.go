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

package schema

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-multierror"

	"github.com/nabbar/eventdispatcher/errs"
	"github.com/nabbar/eventdispatcher/logger"
	"github.com/nabbar/eventdispatcher/message"
)

// DefaultSearchPath is used when no search path is configured.
const DefaultSearchPath = "/usr/share/eventdispatcher/messages"

// Registry resolves and caches command message definitions from a
// colon-separated directory search path, watching those directories for
// changes with fsnotify to invalidate stale cache entries.
type Registry struct {
	mu      sync.RWMutex
	dirs    []string
	cache   map[string]*Definition
	watcher *fsnotify.Watcher
	log     logger.Logger
}

// NewRegistry builds a Registry over searchPath (colon-separated). A
// directory that does not exist is skipped for watching but still
// searched lazily (it may appear later).
func NewRegistry(searchPath string) *Registry {
	if searchPath == "" {
		searchPath = DefaultSearchPath
	}

	r := &Registry{
		dirs:  strings.Split(searchPath, ":"),
		cache: map[string]*Definition{},
		log:   logger.New("schema"),
	}

	if w, err := fsnotify.NewWatcher(); err == nil {
		r.watcher = w
		for _, d := range r.dirs {
			_ = w.Add(d)
		}
		go r.watch()
	} else {
		r.log.Warn("schema directory watch disabled", logger.Fields{"error": err.Error()})
	}

	return r
}

// SetSearchPath replaces the search path and clears the cache.
func (r *Registry) SetSearchPath(searchPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.watcher != nil {
		for _, d := range r.dirs {
			_ = r.watcher.Remove(d)
		}
		for _, d := range strings.Split(searchPath, ":") {
			_ = r.watcher.Add(d)
		}
	}

	r.dirs = strings.Split(searchPath, ":")
	r.cache = map[string]*Definition{}
}

// Close stops the directory watch.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watcher == nil {
		return nil
	}
	return r.watcher.Close()
}

func (r *Registry) watch() {
	for {
		select {
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Create|fsnotify.Rename) != 0 {
				r.invalidate(commandFromPath(ev.Name))
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Error("schema watch error", logger.Fields{"error": err.Error()})
		}
	}
}

func commandFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (r *Registry) invalidate(command string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, command)
}

// LoadDefinition resolves command's definition, searching the configured
// directories in order and caching the first match.
func (r *Registry) LoadDefinition(command string) (*Definition, error) {
	r.mu.RLock()
	if d, ok := r.cache[command]; ok {
		r.mu.RUnlock()
		return d, nil
	}
	dirs := append([]string(nil), r.dirs...)
	r.mu.RUnlock()

	for _, dir := range dirs {
		path := filepath.Join(dir, command+".conf")
		if _, err := os.Stat(path); err != nil {
			continue
		}

		def, err := loadFile(path, command)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[command] = def
		r.mu.Unlock()
		return def, nil
	}

	return nil, errs.New(errs.KindInit, ErrorNotFound, nil).WithField("command", command)
}

// Validate checks m's parameters against command's loaded definition. A
// command with no definition file on the search path validates
// successfully (schema is opt-in per command). Violations are aggregated
// via go-multierror rather than failing fast on the first one.
func (r *Registry) Validate(command string, m *message.Message) error {
	def, err := r.LoadDefinition(command)
	if err != nil {
		return nil
	}

	var result *multierror.Error

	for name, pd := range def.Params {
		v, present := m.GetString(name)

		if pd.forbidden() && present {
			result = multierror.Append(result, errs.New(errs.KindProtocol, ErrorValidation, nil).
				WithField("parameter", name).WithField("reason", "forbidden"))
			continue
		}

		if pd.required() && !present {
			result = multierror.Append(result, errs.New(errs.KindProtocol, ErrorValidation, nil).
				WithField("parameter", name).WithField("reason", "missing"))
			continue
		}

		if !present {
			continue
		}

		if v == "" && pd.Flags&FlagEmpty == 0 {
			result = multierror.Append(result, errs.New(errs.KindProtocol, ErrorValidation, nil).
				WithField("parameter", name).WithField("reason", "empty"))
			continue
		}

		if v == "" {
			continue
		}

		if terr := checkType(pd.Type, v); terr != nil {
			result = multierror.Append(result, errs.New(errs.KindProtocol, ErrorValidation, terr).
				WithField("parameter", name).WithField("reason", "type"))
		}
	}

	if result == nil {
		return nil
	}
	return result.ErrorOrNil()
}

func checkType(t ParamType, v string) error {
	switch t {
	case TypeInteger:
		_, err := strconv.ParseInt(v, 10, 64)
		return err
	case TypeAddress:
		if net.ParseIP(v) == nil {
			return errs.New(errs.KindProtocol, ErrorValidation, nil)
		}
		return nil
	case TypeTimespec:
		_, err := time.ParseDuration(v)
		return err
	default:
		return nil
	}
}
