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

package signal

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/nabbar/eventdispatcher/errs"
	"github.com/nabbar/eventdispatcher/logger"
)

// StatusMask bits describe which child-status transitions a Listener wants.
type StatusMask uint8

const (
	MaskRunning StatusMask = 1 << iota
	MaskExited
	MaskSignaled
	MaskStopped
	MaskContinued
)

// ListenerCallback receives the child's pid, the transition it matched, the
// exit code (valid on MaskExited) and the terminating signal (valid on
// MaskSignaled).
type ListenerCallback func(pid int, status StatusMask, exitCode int, termSignal unix.Signal)

type listener struct {
	pid  int
	mask StatusMask
	cb   ListenerCallback
}

// Reaper is the process-wide SIGCHLD singleton: it owns exactly one
// signalfd connection, self-registering with the reactor on the first
// listener and self-removing on the last.
type Reaper struct {
	mu        sync.Mutex
	conn      *Connection
	listeners []listener
	addFn     func(*Connection) bool
	removeFn  func(*Connection) bool
	log       logger.Logger
}

var (
	singleton     *Reaper
	singletonOnce sync.Once
)

// Instance returns the process-wide Reaper, constructing it on first call.
// addFn/removeFn bind it to the owning reactor's AddConnection/
// RemoveConnection without creating an import cycle. Only the first
// caller's addFn/removeFn are kept; later callers passing a different
// reactor's hooks are silently ignored, since the Reaper is a singleton.
func Instance(addFn func(*Connection) bool, removeFn func(*Connection) bool) *Reaper {
	singletonOnce.Do(func() {
		singleton = &Reaper{
			addFn:    addFn,
			removeFn: removeFn,
			log:      logger.New("signal.reaper"),
		}
	})
	return singleton
}

// AddListener registers a callback for pid's status transitions matching
// mask. The reaper lazily creates its signalfd connection and registers it
// with the reactor on the first listener.
func (r *Reaper) AddListener(pid int, mask StatusMask, cb ListenerCallback) error {
	if pid <= 0 || cb == nil || mask == 0 {
		return errs.New(errs.KindInit, ErrorInvalidListener, nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		conn, err := New("sigchld-reaper", r.onSignal, unix.SIGCHLD)
		if err != nil {
			return err
		}
		r.conn = conn
		if r.addFn != nil {
			r.addFn(conn)
		}
	}

	r.listeners = append(r.listeners, listener{pid: pid, mask: mask, cb: cb})
	return nil
}

// RemoveListener drops every registration for pid, removing the signalfd
// connection from the reactor once no listener remains.
func (r *Reaper) RemoveListener(pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.listeners[:0]
	for _, l := range r.listeners {
		if l.pid != pid {
			out = append(out, l)
		}
	}
	r.listeners = out

	if len(r.listeners) == 0 && r.conn != nil {
		if r.removeFn != nil {
			r.removeFn(r.conn)
		}
		r.conn = nil
	}
}

// onSignal drains every reapable child with a non-blocking wait4 loop. This
// uses wait4's structured unix.WaitStatus rather than the raw siginfo_t
// union waitid(2) would hand back, since x/sys/unix exposes no accessors
// for that union; wait4 also reaps in the same call, so there is no
// separate consume-the-zombie step. WUNTRACED|WCONTINUED is included
// alongside WNOHANG so stop/continue transitions are reported too, not
// just exit/signal ones.
func (r *Reaper) onSignal(_ *unix.SignalfdSiginfo) {
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if err != nil {
			if err == unix.ECHILD {
				return
			}
			r.log.Error("wait4 failed", logger.Fields{"error": err.Error()})
			return
		}
		if pid <= 0 {
			return
		}

		mask, exitCode, termSig := classify(ws)
		r.dispatch(pid, mask, exitCode, termSig)

		if mask&(MaskExited|MaskSignaled) != 0 {
			r.RemoveListener(pid)
		}
	}
}

func (r *Reaper) dispatch(pid int, mask StatusMask, exitCode int, termSig unix.Signal) {
	r.mu.Lock()
	matches := make([]listener, 0, 1)
	for _, l := range r.listeners {
		if l.pid == pid && l.mask&mask != 0 {
			matches = append(matches, l)
		}
	}
	r.mu.Unlock()

	for _, l := range matches {
		l.cb(pid, mask, exitCode, termSig)
	}
}

func classify(ws unix.WaitStatus) (StatusMask, int, unix.Signal) {
	switch {
	case ws.Exited():
		return MaskExited, ws.ExitStatus(), 0
	case ws.Signaled():
		return MaskSignaled, 0, ws.Signal()
	case ws.Stopped():
		return MaskStopped, 0, ws.StopSignal()
	case ws.Continued():
		return MaskContinued, 0, 0
	default:
		return MaskRunning, 0, 0
	}
}
