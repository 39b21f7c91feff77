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
	"os"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/eventdispatcher/message"
)

var _ = Describe("Messenger", func() {
	It("parses complete lines and dispatches well-formed messages, discarding malformed ones", func() {
		r, w, err := os.Pipe()
		Expect(err).NotTo(HaveOccurred())
		defer w.Close()

		var mu sync.Mutex
		var received []*message.Message

		m, err := message.NewMessenger("test", int(r.Fd()), message.HandlerFunc(func(msg *message.Message) {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, msg)
		}))
		Expect(err).NotTo(HaveOccurred())

		_, err = w.Write([]byte("PING who=alice\nPING notaparam\nECHO who=bob\n"))
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() int {
			m.ProcessRead()
			mu.Lock()
			defer mu.Unlock()
			return len(received)
		}).Should(Equal(2))

		mu.Lock()
		defer mu.Unlock()
		Expect(received[0].Command).To(Equal("PING"))
		Expect(received[1].Command).To(Equal("ECHO"))
	})

	It("queues Send output for ProcessWrite to drain", func() {
		r, w, err := os.Pipe()
		Expect(err).NotTo(HaveOccurred())
		defer r.Close()

		m, err := message.NewMessenger("test", int(w.Fd()), message.HandlerFunc(func(*message.Message) {}))
		Expect(err).NotTo(HaveOccurred())

		reply := message.New("ECHO")
		reply.Set("who", "alice")
		Expect(m.Send(reply)).To(Succeed())
		Expect(m.HasOutput()).To(BeTrue())

		m.ProcessWrite()

		buf := make([]byte, 64)
		n, err := r.Read(buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(buf[:n])).To(Equal("ECHO who=alice\n"))
	})
})
