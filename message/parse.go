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
	"strings"

	"github.com/nabbar/eventdispatcher/errs"
)

// isIdentStart/isIdentPart implement identifier := [A-Za-z_][A-Za-z0-9_]*.
func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

// isParamName accepts identifier plus dashes, which CanonicalName then
// folds to underscores; parameter names are looser than the command
// token since dashed names are canonicalized on lookup rather than
// rejected on parse.
func isParamName(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] == '-' || isIdentPart(s[i]) {
			continue
		}
		return false
	}
	return true
}

func unescape(b byte) (byte, bool) {
	switch b {
	case '\\':
		return '\\', true
	case '"':
		return '"', true
	case '\'':
		return '\'', true
	case 'a':
		return '\a', true
	case 'b':
		return '\b', true
	case 'f':
		return '\f', true
	case 'n':
		return '\n', true
	case 'r':
		return '\r', true
	case 't':
		return '\t', true
	case 'v':
		return '\v', true
	}
	return 0, false
}

// splitFields breaks a line into whitespace-separated fields, honoring
// single/double quoting and backslash escapes anywhere within
// a field (a field may mix a bareword prefix, e.g. "name=", with a quoted
// segment, e.g. "\"value\"").
func splitFields(s string) ([]string, error) {
	var fields []string
	i, n := 0, len(s)

	for i < n {
		for i < n && s[i] == ' ' {
			i++
		}
		if i >= n {
			break
		}

		var sb strings.Builder
		for i < n && s[i] != ' ' {
			c := s[i]

			if c == '"' || c == '\'' {
				quote := c
				i++
				closed := false
				for i < n {
					cc := s[i]
					if cc == '\\' && i+1 < n {
						if esc, ok := unescape(s[i+1]); ok {
							sb.WriteByte(esc)
							i += 2
							continue
						}
						sb.WriteByte(s[i+1])
						i += 2
						continue
					}
					if cc == quote {
						closed = true
						i++
						break
					}
					sb.WriteByte(cc)
					i++
				}
				if !closed {
					return nil, errs.New(errs.KindProtocol, ErrorUnterminatedQuote, nil)
				}
				continue
			}

			if c == '\\' && i+1 < n {
				if esc, ok := unescape(s[i+1]); ok {
					sb.WriteByte(esc)
					i += 2
					continue
				}
				sb.WriteByte(s[i+1])
				i += 2
				continue
			}

			sb.WriteByte(c)
			i++
		}

		fields = append(fields, sb.String())
	}

	return fields, nil
}

func looksLikeRouting(field string) bool {
	return strings.Contains(field, "/")
}

func parseRouting(field string) (from, fromSvc, to, toSvc string, err error) {
	parts := strings.SplitN(field, "/", 2)
	if len(parts) != 2 {
		return "", "", "", "", errs.New(errs.KindProtocol, ErrorBadRouting, nil)
	}

	left := strings.SplitN(parts[0], ":", 2)
	right := strings.SplitN(parts[1], ":", 2)
	if len(left) != 2 || len(right) != 2 {
		return "", "", "", "", errs.New(errs.KindProtocol, ErrorBadRouting, nil)
	}

	return left[0], left[1], right[0], right[1], nil
}

// Parse decodes a single wire-format line into a Message. parse(serialize(m))
// reproduces m for every canonical (parameter-sorted) message.
func Parse(line string) (*Message, error) {
	line = strings.TrimRight(line, "\r\n")

	fields, err := splitFields(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errs.New(errs.KindProtocol, ErrorEmptyLine, nil)
	}

	idx := 0
	m := New("")

	if looksLikeRouting(fields[0]) {
		from, fromSvc, to, toSvc, rerr := parseRouting(fields[0])
		if rerr != nil {
			return nil, rerr
		}
		m.FromServer, m.FromService, m.ToServer, m.ToService = from, fromSvc, to, toSvc
		idx++
	}

	if idx >= len(fields) {
		return nil, errs.New(errs.KindProtocol, ErrorMissingCommand, nil)
	}

	command := fields[idx]
	if !isIdentifier(command) {
		return nil, errs.New(errs.KindProtocol, ErrorBadIdentifier, nil).WithField("command", command)
	}
	m.Command = command
	idx++

	for _, field := range fields[idx:] {
		eq := strings.IndexByte(field, '=')
		if eq < 0 {
			return nil, errs.New(errs.KindProtocol, ErrorBadParam, nil).WithField("field", field)
		}
		name, value := field[:eq], field[eq+1:]
		if !isParamName(name) {
			return nil, errs.New(errs.KindProtocol, ErrorBadParam, nil).WithField("name", name)
		}
		m.Set(name, value)
	}

	return m, nil
}
