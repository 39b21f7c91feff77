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
	"net"
	"strconv"
	"strings"
	"time"
)

// Message is a parsed wire-format line: a command, its parameters, and an
// optional routing header. Values are stored as their wire string form;
// the typed Get* accessors convert on demand, matching the "string-valued
// on the wire, typed in memory" split.
type Message struct {
	FromServer  string
	FromService string
	ToServer    string
	ToService   string

	Command string
	Params  map[string]string

	Processed bool
}

// New returns an empty Message for command, ready to accept parameters.
func New(command string) *Message {
	return &Message{Command: command, Params: map[string]string{}}
}

// CanonicalName maps dashes to underscores, the canonicalization every
// parameter name goes through before lookup or storage.
func CanonicalName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// Set stores value under name's canonical form.
func (m *Message) Set(name, value string) {
	if m.Params == nil {
		m.Params = map[string]string{}
	}
	m.Params[CanonicalName(name)] = value
}

// Has reports whether name (canonicalized) is present.
func (m *Message) Has(name string) bool {
	_, ok := m.Params[CanonicalName(name)]
	return ok
}

// GetString returns the raw wire value for name.
func (m *Message) GetString(name string) (string, bool) {
	v, ok := m.Params[CanonicalName(name)]
	return v, ok
}

// GetInteger parses name's value as a base-10 int64.
func (m *Message) GetInteger(name string) (int64, bool) {
	v, ok := m.Params[CanonicalName(name)]
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	return n, err == nil
}

// GetAddress parses name's value as an IP address (v4 or v6).
func (m *Message) GetAddress(name string) (net.IP, bool) {
	v, ok := m.Params[CanonicalName(name)]
	if !ok {
		return nil, false
	}
	ip := net.ParseIP(v)
	return ip, ip != nil
}

// GetTimespec parses name's value as a Go duration string (e.g. "1.5s"),
// the in-memory representation chosen for the wire format's "timespec"
// parameter type, which the grammar leaves otherwise unspecified.
func (m *Message) GetTimespec(name string) (time.Duration, bool) {
	v, ok := m.Params[CanonicalName(name)]
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	return d, err == nil
}

// Routing reports whether any routing field is set.
func (m *Message) Routing() bool {
	return m.FromServer != "" || m.FromService != "" || m.ToServer != "" || m.ToService != ""
}
