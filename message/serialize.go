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
	"sort"
	"strings"
)

func needsQuote(v string) bool {
	if v == "" {
		return true
	}
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case ' ', '"', '\'', '\\', '\a', '\b', '\f', '\n', '\r', '\t', '\v':
			return true
		}
	}
	return false
}

func quoteValue(v string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(v); i++ {
		switch v[i] {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\a':
			sb.WriteString(`\a`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\v':
			sb.WriteString(`\v`)
		default:
			sb.WriteByte(v[i])
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// Serialize renders m in canonical form: routing header (if any field is
// set), command, then parameters in lexicographic name order, each quoted
// only when its value requires it. Serialize(Parse(line)) reproduces line
// for every already-canonical input.
func Serialize(m *Message) string {
	var sb strings.Builder

	if m.Routing() {
		sb.WriteString(m.FromServer)
		sb.WriteByte(':')
		sb.WriteString(m.FromService)
		sb.WriteByte('/')
		sb.WriteString(m.ToServer)
		sb.WriteByte(':')
		sb.WriteString(m.ToService)
		sb.WriteByte(' ')
	}

	sb.WriteString(m.Command)

	names := make([]string, 0, len(m.Params))
	for n := range m.Params {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		v := m.Params[n]
		sb.WriteByte(' ')
		sb.WriteString(n)
		sb.WriteByte('=')
		if needsQuote(v) {
			sb.WriteString(quoteValue(v))
		} else {
			sb.WriteString(v)
		}
	}

	return sb.String()
}
