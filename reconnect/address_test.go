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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/eventdispatcher/stream"
)

var _ = Describe("addrCycle", func() {
	It("wraps back to the first address after the last", func() {
		c := newAddrCycle([]Address{
			{Network: stream.TCP4, Addr: "127.0.0.1:1"},
			{Network: stream.TCP4, Addr: "127.0.0.1:2"},
		})

		Expect(c.next().Addr).To(Equal("127.0.0.1:1"))
		Expect(c.next().Addr).To(Equal("127.0.0.1:2"))
		Expect(c.next().Addr).To(Equal("127.0.0.1:1"))
	})

	It("cycles a single address every time", func() {
		c := newAddrCycle([]Address{{Network: stream.TCP4, Addr: "127.0.0.1:1"}})
		Expect(c.next().Addr).To(Equal("127.0.0.1:1"))
		Expect(c.next().Addr).To(Equal("127.0.0.1:1"))
	})
})
