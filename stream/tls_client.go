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
	"crypto/tls"
	"io"
	"net"
	"os"
	"sync"

	libtls "github.com/nabbar/golib/certificates"

	"github.com/nabbar/eventdispatcher/errs"
	"github.com/nabbar/eventdispatcher/fd"
	"github.com/nabbar/eventdispatcher/logger"
)

// TLSClient bridges a crypto/tls.Conn (which owns its own record framing
// and cannot be driven by a raw non-blocking poll) into the reactor: a
// reader goroutine copies decrypted bytes into one end of a pipe that
// becomes this connection's pollable descriptor, and Write calls
// tls.Conn.Write directly on the caller's goroutine. The handshake runs
// synchronously in the constructor.
type TLSClient struct {
	*fd.BufferedFD

	conn   *tls.Conn
	writeW *os.File

	closeOnce sync.Once
	log       logger.Logger
}

// NewTLSClient connects to address over network, then performs a TLS
// handshake as a client using cfg.
func NewTLSClient(name string, network Network, address, serverName string, cfg libtls.TLSConfig, self fd.LineProcessor) (*TLSClient, error) {
	rfd, err := dialSocket(network, address)
	if err != nil {
		return nil, err
	}

	raw, err := fileConnFromFD(network, rfd)
	if err != nil {
		return nil, err
	}

	tlsConn := tls.Client(raw, cfg.TLS(serverName))
	if err = tlsConn.Handshake(); err != nil {
		_ = raw.Close()
		return nil, errs.New(errs.KindRuntime, ErrorTLSHandshake, err)
	}

	return newTLSClient(name, tlsConn, self)
}

// NewTLSServerSide wraps an accepted raw descriptor and runs the server-side
// TLS handshake using cfg.
func NewTLSServerSide(name string, network Network, rfd int, cfg libtls.TLSConfig, self fd.LineProcessor) (*TLSClient, error) {
	raw, err := fileConnFromFD(network, rfd)
	if err != nil {
		return nil, err
	}

	tlsConn := tls.Server(raw, cfg.TLS(""))
	if err = tlsConn.Handshake(); err != nil {
		_ = raw.Close()
		return nil, errs.New(errs.KindRuntime, ErrorTLSHandshake, err)
	}

	return newTLSClient(name, tlsConn, self)
}

func newTLSClient(name string, tlsConn *tls.Conn, self fd.LineProcessor) (*TLSClient, error) {
	readR, readW, err := os.Pipe()
	if err != nil {
		_ = tlsConn.Close()
		return nil, errs.New(errs.KindRuntime, ErrorSocket, err)
	}

	b, err := fd.New(name, int(readR.Fd()), fd.ReadWrite, self)
	if err != nil {
		_ = tlsConn.Close()
		_ = readW.Close()
		return nil, err
	}

	t := &TLSClient{
		BufferedFD: b,
		conn:       tlsConn,
		writeW:     readW,
		log:        logger.New("stream.tls"),
	}

	go t.pump(readW)
	return t, nil
}

// pump continuously copies decrypted TLS records into the pollable pipe
// until the connection closes.
func (t *TLSClient) pump(w *os.File) {
	_, _ = io.Copy(w, t.conn)
	t.closeOnce.Do(func() {
		_ = w.Close()
	})
}

// Write sends plaintext directly through the TLS record layer rather than
// queuing on the underlying BufferedFD (whose descriptor is the read-side
// pipe, not the socket).
func (t *TLSClient) Write(buf []byte) (int, error) {
	return t.conn.Write(buf)
}

// ProcessHup closes the TLS connection and the bridging pipe, then defers
// to the base default.
func (t *TLSClient) ProcessHup() {
	_ = t.conn.Close()
	t.closeOnce.Do(func() {
		_ = t.writeW.Close()
	})
	t.BufferedFD.ProcessHup()
}

func fileConnFromFD(network Network, rfd int) (net.Conn, error) {
	name := "tcp-conn"
	if network == Unix {
		name = "unix-conn"
	}
	f := os.NewFile(uintptr(rfd), name)
	conn, err := net.FileConn(f)
	_ = f.Close()
	if err != nil {
		return nil, errs.New(errs.KindRuntime, ErrorSocket, err)
	}
	return conn, nil
}
