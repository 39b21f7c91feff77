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

package datagram

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/nabbar/eventdispatcher/connection"
	"github.com/nabbar/eventdispatcher/errs"
	"github.com/nabbar/eventdispatcher/logger"
)

// MessageHandler receives one inbound datagram payload.
type MessageHandler func(data []byte)

// Client is a connected UDP socket: Send writes directly (datagrams are
// never queued), ProcessRead drains pending datagrams to a MessageHandler.
type Client struct {
	*connection.Base

	fd      int
	onMsg   MessageHandler
	log     logger.Logger
}

// NewClient connects a UDP socket to address (host:port).
func NewClient(name, address string, onMsg MessageHandler) (*Client, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, errs.New(errs.KindInit, ErrorSocket, err)
	}
	port, err := net.LookupPort("udp", portStr)
	if err != nil {
		return nil, errs.New(errs.KindInit, ErrorSocket, err)
	}
	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return nil, errs.New(errs.KindInit, ErrorSocket, err)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, errs.New(errs.KindRuntime, ErrorSocket, err)
	}

	var a unix.SockaddrInet4
	copy(a.Addr[:], ips[0].To4())
	a.Port = port
	if err = unix.Connect(fd, &a); err != nil {
		_ = unix.Close(fd)
		return nil, errs.New(errs.KindRuntime, ErrorSocket, err)
	}
	if err = unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, errs.New(errs.KindRuntime, ErrorSocket, err)
	}

	c := &Client{
		Base:  connection.NewBase(name, connection.KindReader, fd),
		fd:    fd,
		onMsg: onMsg,
		log:   logger.New("datagram.client"),
	}
	c.Base.SetSelf(c)
	return c, nil
}

// Send writes buf as a single datagram.
func (c *Client) Send(buf []byte) (int, error) {
	n, err := unix.Write(c.fd, buf)
	if err != nil {
		return -1, errs.New(errs.KindRuntime, ErrorSend, err)
	}
	return n, nil
}

// ProcessRead drains every pending datagram until EAGAIN.
func (c *Client) ProcessRead() {
	buf := make([]byte, 64*1024)
	for {
		n, err := unix.Read(c.fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			c.log.Error("recv failed", logger.Fields{"name": c.Name(), "error": err.Error()})
			c.ProcessError()
			return
		}
		if n == 0 {
			return
		}
		if c.onMsg != nil {
			cp := make([]byte, n)
			copy(cp, buf[:n])
			c.onMsg(cp)
		}
	}
}
