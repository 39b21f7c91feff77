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

package message_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/eventdispatcher/message"
)

var _ = Describe("Serialize", func() {
	It("emits parameters in lexicographic name order regardless of insertion order", func() {
		m := message.New("ECHO")
		m.Set("zebra", "1")
		m.Set("alpha", "2")
		Expect(message.Serialize(m)).To(Equal("ECHO alpha=2 zebra=1"))
	})

	It("quotes a value containing a space", func() {
		m := message.New("SAY")
		m.Set("text", "hello world")
		Expect(message.Serialize(m)).To(Equal(`SAY text="hello world"`))
	})

	It("leaves a plain bareword value unquoted", func() {
		m := message.New("PING")
		m.Set("who", "alice")
		Expect(message.Serialize(m)).To(Equal("PING who=alice"))
	})

	It("renders the routing header when any field is set", func() {
		m := message.New("PING")
		m.FromServer, m.FromService = "srvA", "svcA"
		m.ToServer, m.ToService = "srvB", "svcB"
		Expect(message.Serialize(m)).To(Equal("srvA:svcA/srvB:svcB PING"))
	})
})
