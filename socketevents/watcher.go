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
	"sync"

	"golang.org/x/sys/unix"

	"github.com/nabbar/eventdispatcher/connection"
	"github.com/nabbar/eventdispatcher/errs"
	"github.com/nabbar/eventdispatcher/logger"
)

// OnListening is invoked once per registration the first time a diag reply
// reports it in the TCP_LISTEN state.
type OnListening func(Key)

// Watcher is a connection.Connection wrapping one NETLINK SOCK_DIAG socket.
// It wants read-readiness whenever open, and additionally wants write-
// readiness for as long as any registration is unconfirmed: every writable
// readiness while pending issues a fresh dump request, so a registration is
// typically confirmed within one or two poll iterations of the listener
// actually binding.
type Watcher struct {
	*connection.Base

	mu  sync.Mutex
	fd  int
	reg *Registry
	seq uint32

	onListening OnListening
	log         logger.Logger
}

// New opens and binds a SOCK_DIAG netlink socket, non-blocking so the
// reactor can drive it directly.
func New(name string, onListening OnListening) (*Watcher, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.NETLINK_SOCK_DIAG)
	if err != nil {
		return nil, errs.New(errs.KindRuntime, ErrorSocket, err)
	}

	if err = unix.Bind(fd, &unix.SockaddrNetlink{Family: unix.AF_NETLINK}); err != nil {
		_ = unix.Close(fd)
		return nil, errs.New(errs.KindRuntime, ErrorBind, err)
	}

	w := &Watcher{
		Base:        connection.NewBase(name, connection.KindReader, fd),
		fd:          fd,
		reg:         newRegistry(),
		onListening: onListening,
		log:         logger.New("socketevents"),
	}
	w.Base.SetSelf(w)
	return w, nil
}

// Register starts tracking k. If k was previously confirmed listening its
// mark is left untouched; re-registering a resolved key is a no-op, matching
// LostConnection being the only way to re-arm a confirmed entry.
func (w *Watcher) Register(k Key) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.reg.Register(k); err != nil {
		return err
	}
	w.refreshKind()
	return nil
}

// Unregister stops tracking k entirely.
func (w *Watcher) Unregister(k Key) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reg.Unregister(k)
	w.refreshKind()
}

// LostConnection re-arms k: the caller observed its listener go away, so the
// watcher resumes probing for it on the next writable readiness.
func (w *Watcher) LostConnection(k Key) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reg.LostConnection(k)
	w.refreshKind()
}

// refreshKind must be called with mu held; it adds or drops write interest
// depending on whether any registration remains unconfirmed.
func (w *Watcher) refreshKind() {
	if w.reg.pending() {
		w.Base.SetKind(connection.KindReaderWriter)
	} else {
		w.Base.SetKind(connection.KindReader)
	}
}

// ProcessWrite sends one SOCK_DIAG_BY_FAMILY dump request covering every
// pending registration at once.
func (w *Watcher) ProcessWrite() {
	w.mu.Lock()
	if !w.reg.pending() {
		w.mu.Unlock()
		return
	}
	w.seq++
	req := buildInetDiagDump(w.seq)
	w.mu.Unlock()

	if _, err := unix.Write(w.fd, req); err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		w.log.Error("netlink send failed", logger.Fields{"name": w.Name(), "error": err.Error()})
		w.ProcessError()
	}
}

// ProcessRead drains every pending netlink reply and confirms any
// registration whose source address and port matches a LISTEN reply.
func (w *Watcher) ProcessRead() {
	buf := make([]byte, 8192)

	for {
		n, err := unix.Read(w.fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			w.log.Error("netlink receive failed", logger.Fields{"name": w.Name(), "error": err.Error()})
			w.ProcessError()
			return
		}
		if n == 0 {
			return
		}

		replies, _, perr := parseInetDiagDump(buf[:n])
		if perr != nil {
			w.log.Warn("discarding malformed netlink message", logger.Fields{"name": w.Name(), "error": perr.Error()})
			continue
		}

		w.applyReplies(replies)
	}
}

func (w *Watcher) applyReplies(replies []diagReply) {
	w.mu.Lock()
	var confirmed []Key
	for _, rep := range replies {
		if rep.state != tcpListen {
			continue
		}
		for key, entry := range w.reg.entries {
			if entry.listening {
				continue
			}
			if key.matches(rep.srcIP, rep.port) {
				entry.listening = true
				confirmed = append(confirmed, key)
			}
		}
	}
	w.refreshKind()
	w.mu.Unlock()

	for _, key := range confirmed {
		if w.onListening != nil {
			w.onListening(key)
		}
	}
}

// ProcessHup/ProcessError/ProcessInvalid close the netlink socket and defer
// to the base default, which removes this connection from the reactor.
func (w *Watcher) ProcessHup()     { w.teardown() }
func (w *Watcher) ProcessError()   { w.teardown() }
func (w *Watcher) ProcessInvalid() { w.teardown() }

func (w *Watcher) teardown() {
	_ = unix.Close(w.fd)
	w.Base.ProcessHup()
}
