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
	"github.com/nabbar/eventdispatcher/fd"
)

// Client is a plain-mode stream connection: a raw, non-blocking descriptor
// driven directly by the reactor's poll loop.
type Client struct {
	*fd.BufferedFD
}

// NewClient connects to address over network in plain mode.
func NewClient(name string, network Network, address string, self fd.LineProcessor) (*Client, error) {
	rfd, err := dialSocket(network, address)
	if err != nil {
		return nil, err
	}
	return NewClientFromFD(name, rfd, self)
}

// NewClientFromFD wraps an already-connected, non-blocking descriptor (e.g.
// one produced by Listener.ProcessAccept) as a plain client connection.
func NewClientFromFD(name string, rfd int, self fd.LineProcessor) (*Client, error) {
	b, err := fd.New(name, rfd, fd.ReadWrite, self)
	if err != nil {
		return nil, err
	}
	return &Client{BufferedFD: b}, nil
}
