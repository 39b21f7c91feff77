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

package datagram_test

import (
	"net"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sys/unix"

	"github.com/nabbar/eventdispatcher/datagram"
)

var _ = Describe("Server", func() {
	It("delivers a datagram matching the shared secret and drops a mismatch", func() {
		var received [][]byte

		srv, err := datagram.NewServer("udp", "127.0.0.1:0", nil, "s3cret", func(data []byte, from *net.UDPAddr) {
			received = append(received, data)
		})
		Expect(err).NotTo(HaveOccurred())

		sa, err := unix.Getsockname(srv.Descriptor())
		Expect(err).NotTo(HaveOccurred())
		a := sa.(*unix.SockaddrInet4)
		addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: a.Port}

		conn, err := net.Dial("udp", "127.0.0.1:"+strconv.Itoa(a.Port))
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close()
		_ = addr

		_, err = conn.Write([]byte("wrongsecretpayload"))
		Expect(err).NotTo(HaveOccurred())
		_, err = conn.Write([]byte("s3cretpayload"))
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() [][]byte {
			srv.ProcessRead()
			return received
		}, "1s").Should(ContainElement([]byte("payload")))

		Expect(received).To(HaveLen(1))
	})
})
