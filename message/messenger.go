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

package message

import (
	"github.com/nabbar/eventdispatcher/fd"
	"github.com/nabbar/eventdispatcher/logger"
)

// Handler receives a successfully parsed Message. A dispatcher satisfies
// this by wrapping its own Dispatch method.
type Handler interface {
	ProcessMessage(m *Message)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(m *Message)

func (f HandlerFunc) ProcessMessage(m *Message) { f(m) }

// Messenger layers message parsing/serialization atop a buffered
// descriptor: every complete input line is parsed and, on success, handed
// to Handler; malformed lines are logged and discarded rather than
// tearing down the connection.
type Messenger struct {
	*fd.BufferedFD

	on  Handler
	log logger.Logger
}

// NewMessenger wraps fd in read-write buffered mode as a Messenger.
func NewMessenger(name string, rawFD int, on Handler) (*Messenger, error) {
	m := &Messenger{on: on, log: logger.New("message")}
	b, err := fd.New(name, rawFD, fd.ReadWrite, m)
	if err != nil {
		return nil, err
	}
	m.BufferedFD = b
	return m, nil
}

// ProcessLine parses line and dispatches it to Handler; parse failures are
// logged and the line is discarded, never surfaced as a connection error.
func (m *Messenger) ProcessLine(line []byte) {
	msg, err := Parse(string(line))
	if err != nil {
		m.log.Warn("discarding malformed message", logger.Fields{"name": m.Name(), "error": err.Error(), "line": string(line)})
		return
	}
	if m.on != nil {
		m.on.ProcessMessage(msg)
	}
}

// Send serializes m and queues it for write, terminated with '\n'.
func (m *Messenger) Send(msg *Message) error {
	_, err := m.Write(append([]byte(Serialize(msg)), '\n'))
	return err
}
