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

package stream_test

import (
	"fmt"
	"net"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sys/unix"

	"github.com/nabbar/eventdispatcher/stream"
)

type echoLine struct {
	*stream.Client
	mu   sync.Mutex
	seen []string
}

func (e *echoLine) ProcessLine(line []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, string(line))
}

var _ = Describe("Listener", func() {
	It("accepts a connection and exchanges a line", func() {
		l, err := stream.NewListener("listener", stream.TCP4, "127.0.0.1:0", stream.Plain, nil, nil)
		Expect(err).NotTo(HaveOccurred())

		var accepted *echoLine
		done := make(chan struct{})

		l2, err := stream.NewListener("listener2", stream.TCP4, "127.0.0.1:0", stream.Plain, nil, func(fd int, network stream.Network) {
			e := &echoLine{}
			c, cerr := stream.NewClientFromFD("accepted", fd, e)
			Expect(cerr).NotTo(HaveOccurred())
			e.Client = c
			accepted = e
			close(done)
		})
		Expect(err).NotTo(HaveOccurred())
		_ = l

		sa, err := getsockname(l2.Descriptor())
		Expect(err).NotTo(HaveOccurred())

		conn, err := net.Dial("tcp", sa)
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close()

		l2.ProcessAccept()
		Eventually(done, "1s").Should(BeClosed())

		_, err = conn.Write([]byte("PING\n"))
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() []string {
			accepted.ProcessRead()
			accepted.mu.Lock()
			defer accepted.mu.Unlock()
			out := make([]string, len(accepted.seen))
			copy(out, accepted.seen)
			return out
		}, "1s").Should(ContainElement("PING"))
	})
})

func getsockname(fd int) (string, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return "", err
	}
	a, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return "", fmt.Errorf("unexpected sockaddr type %T", sa)
	}
	return fmt.Sprintf("127.0.0.1:%d", a.Port), nil
}
