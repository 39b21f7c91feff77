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

//go:build linux

package socketevents_test

import (
	"net"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/eventdispatcher/connection"
	"github.com/nabbar/eventdispatcher/socketevents"
)

type listenSeen struct {
	mu   sync.Mutex
	keys []socketevents.Key
}

func (l *listenSeen) record(k socketevents.Key) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, k)
}

func (l *listenSeen) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

// poll drives one writable-then-readable round trip against the live
// kernel, the way a reactor iteration would for a KindReaderWriter
// connection.
func poll(w *socketevents.Watcher) {
	w.ProcessWrite()
	w.ProcessRead()
}

var _ = Describe("Watcher", func() {
	It("confirms a registration once its port is actually listening", func() {
		l, err := net.Listen("tcp4", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		defer l.Close()

		port := uint16(l.Addr().(*net.TCPAddr).Port)

		seen := &listenSeen{}
		w, err := socketevents.New("watcher", seen.record)
		Expect(err).NotTo(HaveOccurred())

		key := socketevents.Key{Addr: net.ParseIP("127.0.0.1"), Port: port}
		Expect(w.Register(key)).NotTo(HaveOccurred())
		Expect(w.Kind()).To(Equal(connection.KindReaderWriter))

		Eventually(func() int {
			poll(w)
			return seen.count()
		}, "2s", "20ms").Should(Equal(1))

		Expect(w.Kind()).To(Equal(connection.KindReader))
	})

	It("never confirms a registration for a port nothing is listening on", func() {
		seen := &listenSeen{}
		w, err := socketevents.New("watcher", seen.record)
		Expect(err).NotTo(HaveOccurred())

		Expect(w.Register(socketevents.Key{Port: 1})).NotTo(HaveOccurred())

		Consistently(func() int {
			poll(w)
			return seen.count()
		}, "200ms", "20ms").Should(Equal(0))
	})

	It("re-arms a confirmed registration on LostConnection", func() {
		l, err := net.Listen("tcp4", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		defer l.Close()
		port := uint16(l.Addr().(*net.TCPAddr).Port)

		seen := &listenSeen{}
		w, err := socketevents.New("watcher", seen.record)
		Expect(err).NotTo(HaveOccurred())

		key := socketevents.Key{Addr: net.ParseIP("127.0.0.1"), Port: port}
		Expect(w.Register(key)).NotTo(HaveOccurred())

		Eventually(func() int {
			poll(w)
			return seen.count()
		}, "2s", "20ms").Should(Equal(1))

		w.LostConnection(key)
		Expect(w.Kind()).To(Equal(connection.KindReaderWriter))

		Eventually(func() int {
			poll(w)
			return seen.count()
		}, "2s", "20ms").Should(Equal(2))
	})
})
