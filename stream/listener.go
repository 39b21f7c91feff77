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

package stream

import (
	"golang.org/x/sys/unix"

	libtls "github.com/nabbar/golib/certificates"

	"github.com/nabbar/eventdispatcher/connection"
	"github.com/nabbar/eventdispatcher/errs"
	"github.com/nabbar/eventdispatcher/logger"
)

// AcceptHandler is invoked once per accepted connection with the raw,
// already non-blocking descriptor and the network it was accepted on.
type AcceptHandler func(fd int, network Network)

// Listener is a read-ready connection.Connection wrapping a bound, listening
// socket; ProcessAccept drains every pending connection on each readiness.
type Listener struct {
	*connection.Base

	fd      int
	network Network
	mode    Mode
	tlsCfg  libtls.TLSConfig
	onAccept AcceptHandler
	log     logger.Logger
}

// NewListener binds and listens on address for network, ready to embed in a
// reactor. mode/tlsCfg describe what accepted connections should become;
// onAccept receives the raw accepted descriptor.
func NewListener(name string, network Network, address string, mode Mode, tlsCfg libtls.TLSConfig, onAccept AcceptHandler) (*Listener, error) {
	fd, err := listenSocket(network, address)
	if err != nil {
		return nil, err
	}

	l := &Listener{
		Base:     connection.NewBase(name, connection.KindListener, fd),
		fd:       fd,
		network:  network,
		mode:     mode,
		tlsCfg:   tlsCfg,
		onAccept: onAccept,
		log:      logger.New("stream.listener"),
	}
	l.Base.SetSelf(l)
	return l, nil
}

// ProcessAccept accepts every pending connection until EAGAIN.
func (l *Listener) ProcessAccept() {
	for {
		nfd, _, err := unix.Accept4(l.fd, unix.SOCK_NONBLOCK)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			l.log.Error("accept failed", logger.Fields{"name": l.Name(), "error": err.Error()})
			return
		}
		if l.onAccept != nil {
			l.onAccept(nfd, l.network)
		}
	}
}

// ProcessHup closes the listening socket and defers to the base default.
func (l *Listener) ProcessHup() {
	_ = unix.Close(l.fd)
	l.Base.ProcessHup()
}
