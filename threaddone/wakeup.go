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

package threaddone

import (
	"sync"

	"golang.org/x/sys/unix"

	"github.com/nabbar/eventdispatcher/connection"
	"github.com/nabbar/eventdispatcher/errs"
	"github.com/nabbar/eventdispatcher/logger"
)

// Join is invoked on the reactor's own goroutine once per pending byte
// drained from the wakeup pipe, i.e. once per completed worker run.
type Join func()

// Wakeup is a connection.Connection wrapping a pipe(2) pair: a background
// goroutine calls Signal when its work is done, the reactor wakes on read
// readiness and calls Join on its own goroutine. The happens-before edge
// the pipe write/read pair establishes is what lets Join touch state the
// worker wrote without further synchronization.
type Wakeup struct {
	*connection.Base

	mu     sync.Mutex
	rfd    int
	wfd    int
	closed bool
	join   Join
	log    logger.Logger
}

// New opens the pipe and wires the read end as this connection's
// descriptor. join runs once per drained byte, on the reactor goroutine.
func New(name string, join Join) (*Wakeup, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, errs.New(errs.KindInit, ErrorPipe, err)
	}

	w := &Wakeup{
		Base: connection.NewBase(name, connection.KindReader, fds[0]),
		rfd:  fds[0],
		wfd:  fds[1],
		join: join,
		log:  logger.New("threaddone"),
	}
	w.Base.SetSelf(w)
	return w, nil
}

// Signal writes a single byte to the wakeup pipe. Safe to call from any
// goroutine, including concurrently; each call wakes exactly one ProcessRead
// iteration's worth of Join.
func (w *Wakeup) Signal() error {
	w.mu.Lock()
	wfd, closed := w.wfd, w.closed
	w.mu.Unlock()

	if closed {
		return errs.New(errs.KindRuntime, ErrorClosed, nil)
	}

	buf := [1]byte{1}
	for {
		_, err := unix.Write(wfd, buf[:])
		if err == nil {
			return nil
		}
		if err == unix.EINTR {
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			// pipe buffer full: a wakeup is already pending, which is
			// all the reactor needs to drain every completed worker.
			return nil
		}
		return errs.New(errs.KindRuntime, ErrorPipe, err)
	}
}

// ProcessRead drains every pending byte, calling Join once per byte.
func (w *Wakeup) ProcessRead() {
	buf := make([]byte, 64)
	for {
		w.mu.Lock()
		rfd := w.rfd
		w.mu.Unlock()
		if rfd < 0 {
			return
		}

		n, err := unix.Read(rfd, buf)
		if n > 0 {
			for i := 0; i < n; i++ {
				if w.join != nil {
					w.join()
				}
			}
			if n < len(buf) {
				return
			}
			continue
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || n == 0 {
			return
		}
		if err != nil {
			w.log.Error("wakeup read failed", logger.Fields{"name": w.Name(), "error": err.Error()})
			w.ProcessError()
			return
		}
		return
	}
}

// ProcessHup closes both ends of the pipe then defers to the base default.
func (w *Wakeup) ProcessHup() {
	w.mu.Lock()
	rfd, wfd := w.rfd, w.wfd
	w.rfd, w.wfd = -1, -1
	w.closed = true
	w.mu.Unlock()

	if rfd >= 0 {
		_ = unix.Close(rfd)
	}
	if wfd >= 0 {
		_ = unix.Close(wfd)
	}
	w.Base.ProcessHup()
}

// Close releases the pipe without asking the reactor to remove this
// connection; callers that already removed it should call this instead of
// ProcessHup to avoid a redundant RemoveConnection round trip.
func (w *Wakeup) Close() error {
	w.mu.Lock()
	rfd, wfd := w.rfd, w.wfd
	w.rfd, w.wfd = -1, -1
	w.closed = true
	w.mu.Unlock()

	if rfd >= 0 {
		_ = unix.Close(rfd)
	}
	if wfd >= 0 {
		_ = unix.Close(wfd)
	}
	return nil
}
