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

//go:build linux

package socketevents

import (
	"net"

	"github.com/nabbar/eventdispatcher/errs"
)

// Key identifies one registration by its expected listening address and
// port; the zero-value IP is treated as a wildcard matching any address
// that binds the port, which is how a server listening on "0.0.0.0" is
// normally registered.
type Key struct {
	Addr net.IP
	Port uint16
}

func (k Key) matches(srcIP [4]byte, port uint16) bool {
	if k.Port != port {
		return false
	}
	if k.Addr == nil || k.Addr.IsUnspecified() {
		return true
	}
	v4 := k.Addr.To4()
	if v4 == nil {
		return false
	}
	return v4[0] == srcIP[0] && v4[1] == srcIP[1] && v4[2] == srcIP[2] && v4[3] == srcIP[3]
}

// registration is one pending-or-confirmed watch entry.
type registration struct {
	key       Key
	listening bool
}

// Registry holds the set of (addr, port) pairs a Watcher is tracking.
// Registry holds no lock of its own; the Watcher guards every access with
// its mutex, which is what makes Watcher.Register safe to call from outside
// the reactor goroutine.
type Registry struct {
	entries map[Key]*registration
}

func newRegistry() *Registry {
	return &Registry{entries: make(map[Key]*registration)}
}

// Register adds k to the tracked set, initially not listening. Re-
// registering an already-tracked key is a no-op, whether it is still
// pending or already confirmed; LostConnection is what re-arms a key.
func (r *Registry) Register(k Key) error {
	if k.Port == 0 {
		return errs.New(errs.KindInit, ErrorInvalidAddress, nil).WithField("port", k.Port)
	}
	if _, ok := r.entries[k]; !ok {
		r.entries[k] = &registration{key: k}
	}
	return nil
}

// Unregister removes k from the tracked set entirely.
func (r *Registry) Unregister(k Key) {
	delete(r.entries, k)
}

// LostConnection re-arms k: a previously-confirmed listener is presumed
// gone and the watcher resumes probing for it.
func (r *Registry) LostConnection(k Key) {
	if reg, ok := r.entries[k]; ok {
		reg.listening = false
	}
}

// pending reports whether any tracked registration is still unconfirmed,
// which is what drives the watcher's writable-readiness interest: once
// everything is confirmed there is nothing left to probe for.
func (r *Registry) pending() bool {
	for _, reg := range r.entries {
		if !reg.listening {
			return true
		}
	}
	return false
}
