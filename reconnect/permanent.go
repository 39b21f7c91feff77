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

package reconnect

import (
	"sync"
	"time"

	libtls "github.com/nabbar/golib/certificates"

	"github.com/nabbar/eventdispatcher/connection"
	"github.com/nabbar/eventdispatcher/errs"
	"github.com/nabbar/eventdispatcher/logger"
	"github.com/nabbar/eventdispatcher/message"
	"github.com/nabbar/eventdispatcher/stream"
	"github.com/nabbar/eventdispatcher/threaddone"
)

// streamConn is the subset of a connected stream.Client/stream.TLSClient a
// Permanent connection needs once dialed: its readiness shape, its raw
// descriptor, buffered read/write pumping, and outgoing writes.
type streamConn interface {
	Kind() connection.Kind
	Descriptor() int
	ProcessRead()
	ProcessWrite()
	ProcessHup()
	Write(buf []byte) (int, error)
}

// Config parameterizes a Permanent connection.
type Config struct {
	Addresses  []Address
	Mode       stream.Mode
	Pause      time.Duration
	UseThread  bool
	TLSConfig  libtls.TLSConfig // required when Mode == stream.TLS
	ServerName string           // TLS server name for certificate verification
}

// Permanent is a single connection.Connection that behaves as a timer while
// disconnected and as a stream reader/writer once dialed: Kind and
// Descriptor are proxied from the active streamConn, so the reactor polls
// whichever descriptor currently applies without Permanent ever needing a
// second registration for its messenger. It transparently redials from a
// rotating address list on failure and caches outgoing messages meanwhile.
type Permanent struct {
	*connection.Base

	mu sync.Mutex

	addrs      addrCycle
	mode       stream.Mode
	pause      int64 // microseconds
	useThread  bool
	tlsCfg     libtls.TLSConfig
	serverName string

	handler message.Handler
	conn    streamConn
	cache   []*message.Message

	running  bool
	workConn streamConn
	workErr  error

	wake     *threaddone.Wakeup
	addFn    func(connection.Connection) bool
	removeFn func(connection.Connection) bool

	log logger.Logger
}

// New builds a Permanent connection, not yet dialing: the first attempt
// fires on the reactor's next poll iteration once this connection has been
// registered. handler receives every message parsed off the active stream.
// addFn/removeFn bind the thread-done wakeup (used only when UseThread is
// set) to the owning reactor without a direct import of it.
func New(name string, cfg Config, handler message.Handler, addFn func(connection.Connection) bool, removeFn func(connection.Connection) bool) (*Permanent, error) {
	if len(cfg.Addresses) == 0 {
		return nil, errs.New(errs.KindInit, ErrorNoAddress, nil)
	}
	if cfg.Pause <= 0 {
		return nil, errs.New(errs.KindInit, ErrorInvalidPause, nil)
	}
	if cfg.Mode == stream.TLS && cfg.TLSConfig == nil {
		return nil, errs.New(errs.KindInit, ErrorMissingTLSConfig, nil)
	}

	p := &Permanent{
		Base:       connection.NewBase(name, connection.KindTimerOnly, -1),
		addrs:      newAddrCycle(cfg.Addresses),
		mode:       cfg.Mode,
		pause:      cfg.Pause.Microseconds(),
		useThread:  cfg.UseThread,
		tlsCfg:     cfg.TLSConfig,
		serverName: cfg.ServerName,
		handler:    handler,
		addFn:      addFn,
		removeFn:   removeFn,
		log:        logger.New("reconnect"),
	}
	p.Base.SetSelf(p)

	if cfg.UseThread {
		w, err := threaddone.New(name+"-wake", p.joinWorker)
		if err != nil {
			return nil, err
		}
		p.wake = w
		if addFn != nil {
			addFn(w)
		}
	}

	// Fire the first connection attempt as soon as the reactor next polls,
	// then fall back to the periodic pause after every subsequent failure.
	p.Base.SetTimeoutDate(time.Now().UnixMicro())
	return p, nil
}

// Connected reports whether a stream messenger is currently installed.
func (p *Permanent) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn != nil
}

// Close tears down the active stream, if any, and releases the thread-done
// wakeup. Call once this connection has been removed from the reactor.
func (p *Permanent) Close() {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()

	if conn != nil {
		conn.ProcessHup()
	}
	if p.wake != nil {
		if p.removeFn != nil {
			p.removeFn(p.wake)
		}
		_ = p.wake.Close()
	}
}

// ProcessLine parses one line off the active stream and, on success, hands
// it to the configured Handler; malformed lines are logged and dropped.
func (p *Permanent) ProcessLine(line []byte) {
	m, err := message.Parse(string(line))
	if err != nil {
		p.log.Warn("discarding malformed message", logger.Fields{"name": p.Name(), "error": err.Error(), "line": string(line)})
		return
	}
	if p.handler != nil {
		p.handler.ProcessMessage(m)
	}
}

// Send implements the tri-state contract: sent immediately if connected;
// queued if disconnected, cache is true and the connection is not done;
// dropped (returning false) otherwise.
func (p *Permanent) Send(m *message.Message, cache bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		_, err := p.conn.Write(append([]byte(message.Serialize(m)), '\n'))
		return err == nil
	}

	if cache && !p.Base.Done() {
		p.cache = append(p.cache, m)
		return true
	}
	return false
}

// MarkDone clears any cached messages (they will never be flushed) and
// marks the underlying connection done, per the base contract.
func (p *Permanent) MarkDone() {
	p.mu.Lock()
	p.cache = nil
	p.mu.Unlock()
	p.Base.MarkDone()
}

// ProcessRead/ProcessWrite delegate to the active stream's own buffered
// pump; Permanent itself has no input/output buffer of its own.
func (p *Permanent) ProcessRead() {
	p.mu.Lock()
	c := p.conn
	p.mu.Unlock()
	if c != nil {
		c.ProcessRead()
	}
}

func (p *Permanent) ProcessWrite() {
	p.mu.Lock()
	c := p.conn
	p.mu.Unlock()
	if c != nil {
		c.ProcessWrite()
	}
}

// ProcessTimeout attempts a connection when not already connected, either
// inline or via a background worker, per Config.UseThread.
func (p *Permanent) ProcessTimeout() {
	if p.Base.Done() {
		return
	}

	p.mu.Lock()
	alreadyConnected := p.conn != nil
	useThread := p.useThread
	p.mu.Unlock()

	if alreadyConnected {
		return
	}

	if useThread {
		p.startWorker()
		return
	}

	addr := p.addrs.next()
	conn, err := p.dial(addr)
	p.finishConnect(conn, err)
}

// ProcessError/ProcessHup/ProcessInvalid do not remove a Permanent from the
// reactor unless it has been marked done: they tear down the active stream
// and re-arm the retry timer instead, which is what keeps the connection
// "permanent".
func (p *Permanent) ProcessError()   { p.onStreamLost() }
func (p *Permanent) ProcessHup()     { p.onStreamLost() }
func (p *Permanent) ProcessInvalid() { p.onStreamLost() }

func (p *Permanent) onStreamLost() {
	p.mu.Lock()
	conn := p.conn
	p.conn = nil
	p.mu.Unlock()

	if conn != nil {
		conn.ProcessHup()
	}
	p.Base.SetKind(connection.KindTimerOnly)
	p.Base.SetDescriptor(-1)

	if p.Base.Done() {
		p.Base.ProcessHup()
		return
	}
	p.armRetry()
}

func (p *Permanent) armRetry() {
	_ = p.Base.SetTimeoutDelay(p.pause)
}

// dial connects addr in the mode configured at construction time. p is
// passed as the stream's LineProcessor so every parsed line reaches
// Permanent.ProcessLine directly, regardless of which concrete stream type
// handles the wire I/O.
func (p *Permanent) dial(addr Address) (streamConn, error) {
	name := p.Name() + "-stream"

	if p.mode == stream.TLS {
		return stream.NewTLSClient(name, addr.Network, addr.Addr, p.serverName, p.tlsCfg, p)
	}
	return stream.NewClient(name, addr.Network, addr.Addr, p)
}

func (p *Permanent) startWorker() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.mu.Unlock()

	addr := p.addrs.next()
	go p.runWorker(addr)
}

// runWorker dials on a background goroutine and signals the reactor via
// the thread-done wakeup once it has a result. The actual install happens
// in joinWorker, on the reactor goroutine: the wakeup pipe's write/read
// pair is what lets joinWorker read workConn/workErr without a data race.
func (p *Permanent) runWorker(addr Address) {
	conn, err := p.dial(addr)

	p.mu.Lock()
	p.workConn = conn
	p.workErr = err
	p.mu.Unlock()

	if p.wake != nil {
		_ = p.wake.Signal()
	}
}

// joinWorker runs on the reactor goroutine, once per completed worker run.
func (p *Permanent) joinWorker() {
	p.mu.Lock()
	conn, err := p.workConn, p.workErr
	p.workConn, p.workErr = nil, nil
	p.running = false
	p.mu.Unlock()

	p.finishConnect(conn, err)
}

// finishConnect installs conn as the active stream and flushes any cached
// outgoing messages on success, or arms the retry timer on failure.
func (p *Permanent) finishConnect(conn streamConn, err error) {
	if err != nil || conn == nil {
		p.log.Warn("connection attempt failed", logger.Fields{"name": p.Name(), "error": errString(err)})
		p.armRetry()
		return
	}

	p.mu.Lock()
	p.conn = conn
	pending := p.cache
	p.cache = nil
	p.mu.Unlock()

	p.Base.SetKind(conn.Kind())
	p.Base.SetDescriptor(conn.Descriptor())

	for _, m := range pending {
		_, _ = conn.Write(append([]byte(message.Serialize(m)), '\n'))
	}

	// Connected: stop polling the retry timer until the stream drops.
	_ = p.Base.SetTimeoutDelay(connection.DisabledDelay)
	p.Base.SetTimeoutDate(0)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
