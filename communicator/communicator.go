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

package communicator

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/nabbar/eventdispatcher/connection"
	"github.com/nabbar/eventdispatcher/errs"
	"github.com/nabbar/eventdispatcher/logger"
)

// Communicator is the singleton-like owner of a connection set; it runs the
// priority-ordered, poll-driven dispatch loop.
type Communicator struct {
	mu    sync.Mutex
	conns []connection.Connection
	dirty bool

	isRun bool

	logRemaining bool
	logPolled    bool

	log logger.Logger
}

// New returns an empty, ready-to-use Communicator.
func New() *Communicator {
	return &Communicator{log: logger.New("communicator")}
}

// SetDebugLogRemaining toggles logging the remaining connection count on
// every RemoveConnection call.
func (c *Communicator) SetDebugLogRemaining(v bool) { c.mu.Lock(); defer c.mu.Unlock(); c.logRemaining = v }

// SetDebugLogPolled toggles logging the set of connections about to be
// polled on every iteration.
func (c *Communicator) SetDebugLogPolled(v bool) { c.mu.Lock(); defer c.mu.Unlock(); c.logPolled = v }

// SetForceSort flags the connection set dirty so the next iteration
// re-sorts it by priority even if no priority actually changed.
func (c *Communicator) SetForceSort() { c.MarkDirty() }

// MarkDirty implements connection.Owner.
func (c *Communicator) MarkDirty() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = true
}

// AddConnection registers conn. It rejects a nil connection or one whose
// Kind requires a descriptor but has none, and is idempotent.
func (c *Communicator) AddConnection(conn connection.Connection) bool {
	if conn == nil {
		return false
	}
	if conn.Kind().HasDescriptor() && conn.Descriptor() < 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range c.conns {
		if e == conn {
			return false
		}
	}

	conn.SetOwner(c)
	c.conns = append(c.conns, conn)
	c.dirty = true
	return true
}

// RemoveConnection implements connection.Owner; it returns false if conn
// was not present.
func (c *Communicator) RemoveConnection(conn connection.Connection) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, e := range c.conns {
		if e == conn {
			c.conns = append(c.conns[:i], c.conns[i+1:]...)
			if c.logRemaining {
				c.log.Debug("connection removed", logger.Fields{"name": conn.Name(), "remaining": len(c.conns)})
			}
			return true
		}
	}
	return false
}

// GetConnections returns a snapshot of the currently registered
// connections, in their last-sorted order.
func (c *Communicator) GetConnections() []connection.Connection {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]connection.Connection, len(c.conns))
	copy(out, c.conns)
	return out
}

// IsRunning reports whether Run is currently executing.
func (c *Communicator) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isRun
}

// Run executes the dispatch loop until the connection set becomes empty or
// an unrecoverable error occurs. Calling Run while already running fails
// with ErrorRecursiveRun.
func (c *Communicator) Run() error {
	c.mu.Lock()
	if c.isRun {
		c.mu.Unlock()
		return errs.New(errs.KindRecursive, ErrorRecursiveRun, nil)
	}
	c.isRun = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.isRun = false
		c.mu.Unlock()
	}()

	for {
		empty, err := c.runOnce()
		if err != nil {
			return err
		}
		if empty {
			return nil
		}
	}
}

// snapshotEntry freezes per-connection state captured at the start of one
// iteration, so later mutation by a callback cannot retroactively change
// this iteration's behavior.
type snapshotEntry struct {
	conn      connection.Connection
	enabled   bool
	saved     int64
	pollSlot  int // index into the poll vector, -1 if not pollable
}

func (c *Communicator) runOnce() (empty bool, err error) {
	c.mu.Lock()
	if len(c.conns) == 0 {
		c.mu.Unlock()
		return true, nil
	}

	if c.dirty {
		sort.SliceStable(c.conns, func(i, j int) bool {
			return c.conns[i].Priority() < c.conns[j].Priority()
		})
		c.dirty = false
	}

	snap := make([]connection.Connection, len(c.conns))
	copy(snap, c.conns)
	logPolled := c.logPolled
	c.mu.Unlock()

	iterID := uuid.NewString()
	now := time.Now().UnixMicro()

	entries := make([]snapshotEntry, len(snap))
	var pollFds []unix.PollFd

	for i, conn := range snap {
		enabled := conn.Enabled()
		entries[i] = snapshotEntry{conn: conn, enabled: enabled, pollSlot: -1}
		entries[i].saved = conn.SaveTimeoutTimestamp(now)

		if !enabled || !conn.Kind().HasDescriptor() {
			continue
		}

		fd := conn.Descriptor()
		if fd < 0 {
			continue
		}

		var events int16
		if conn.Kind().WantsRead() {
			events |= unix.POLLIN | unix.POLLPRI
		}
		if conn.Kind().WantsWrite() {
			events |= unix.POLLOUT
		}
		if conn.Kind() == connection.KindReader || conn.Kind() == connection.KindReaderWriter || conn.Kind() == connection.KindWriter {
			events |= unix.POLLRDHUP
		}

		entries[i].pollSlot = len(pollFds)
		pollFds = append(pollFds, unix.PollFd{Fd: int32(fd), Events: events})
	}

	if logPolled {
		names := make([]string, 0, len(pollFds))
		for _, e := range entries {
			if e.pollSlot >= 0 {
				names = append(names, e.conn.Name())
			}
		}
		c.log.Debug("polling connections", logger.Fields{"iteration": iterID, "connections": names})
	}

	timeoutMs, armed := minTimeoutMs(entries, now)
	if len(pollFds) == 0 && !armed {
		return false, errs.New(errs.KindRuntime, ErrorNoPollable, nil)
	}

	if len(pollFds) > 0 || armed {
		_, perr := unix.Poll(pollFds, timeoutMs)
		if perr != nil {
			return false, classifyPollError(perr)
		}
	}

	now = time.Now().UnixMicro()

	for _, e := range entries {
		if !e.enabled {
			continue
		}

		if e.pollSlot >= 0 {
			revents := pollFds[e.pollSlot].Revents
			dispatchReadiness(e.conn, revents)
		}

		if e.saved <= now {
			e.conn.AdvanceTimer(now)
			e.conn.ProcessTimeout()
		}
	}

	return false, nil
}

func dispatchReadiness(conn connection.Connection, revents int16) {
	if revents == 0 {
		return
	}

	switch {
	case conn.Kind() == connection.KindSignal && revents&unix.POLLIN != 0:
		conn.ProcessSignal()
	case conn.Kind() == connection.KindListener && revents&unix.POLLIN != 0:
		conn.ProcessAccept()
	case revents&(unix.POLLIN|unix.POLLPRI) != 0:
		conn.ProcessRead()
	}

	if revents&unix.POLLOUT != 0 {
		conn.ProcessWrite()
	}
	if revents&unix.POLLERR != 0 {
		conn.ProcessError()
	}
	if revents&unix.POLLRDHUP != 0 || revents&unix.POLLHUP != 0 {
		conn.ProcessHup()
	}
	if revents&unix.POLLNVAL != 0 {
		conn.ProcessInvalid()
	}
}

// minTimeoutMs computes the poll timeout: the smallest saved timeout minus
// now, clamped to >=0, floored to 1ms when positive but sub-millisecond, or
// -1 (block indefinitely on descriptor readiness only) when no timer is
// armed.
func minTimeoutMs(entries []snapshotEntry, now int64) (ms int, armed bool) {
	var min int64 = -1

	for _, e := range entries {
		if !e.enabled || e.saved == math.MaxInt64 {
			continue
		}
		if min == -1 || e.saved < min {
			min = e.saved
		}
	}

	if min == -1 {
		return -1, false
	}

	delta := min - now
	if delta <= 0 {
		return 0, true
	}

	ms = int(delta / 1000)
	if ms == 0 {
		ms = 1
	}
	return ms, true
}

func classifyPollError(err error) error {
	switch err {
	case unix.EFAULT:
		return errs.New(errs.KindRuntime, ErrorPollFault, err)
	case unix.EINVAL:
		return errs.New(errs.KindRuntime, ErrorPollInvalid, err)
	case unix.ENOMEM:
		return errs.New(errs.KindRuntime, ErrorPollNoMem, err)
	default:
		return errs.New(errs.KindRuntime, ErrorPoll, err)
	}
}
