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

package socketevents

import (
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Key", func() {
	It("matches a wildcard address on port alone", func() {
		k := Key{Port: 8080}
		Expect(k.matches([4]byte{10, 0, 0, 5}, 8080)).To(BeTrue())
		Expect(k.matches([4]byte{10, 0, 0, 5}, 9090)).To(BeFalse())
	})

	It("matches a specific address only on an exact IP and port", func() {
		k := Key{Addr: net.ParseIP("127.0.0.1"), Port: 8080}
		Expect(k.matches([4]byte{127, 0, 0, 1}, 8080)).To(BeTrue())
		Expect(k.matches([4]byte{10, 0, 0, 1}, 8080)).To(BeFalse())
	})
})

var _ = Describe("Registry", func() {
	It("rejects a zero port", func() {
		r := newRegistry()
		Expect(r.Register(Key{Port: 0})).To(HaveOccurred())
	})

	It("tracks pending state until confirmed, and re-arms on LostConnection", func() {
		r := newRegistry()
		k := Key{Port: 1234}

		Expect(r.Register(k)).NotTo(HaveOccurred())
		Expect(r.pending()).To(BeTrue())

		r.entries[k].listening = true
		Expect(r.pending()).To(BeFalse())

		r.LostConnection(k)
		Expect(r.pending()).To(BeTrue())
	})

	It("stops tracking a key once unregistered", func() {
		r := newRegistry()
		k := Key{Port: 1234}
		Expect(r.Register(k)).NotTo(HaveOccurred())
		r.Unregister(k)
		Expect(r.entries).NotTo(HaveKey(k))
	})

	It("is a no-op re-registering an already-pending key", func() {
		r := newRegistry()
		k := Key{Port: 1234}
		Expect(r.Register(k)).NotTo(HaveOccurred())
		Expect(r.Register(k)).NotTo(HaveOccurred())
		Expect(r.entries).To(HaveLen(1))
	})
})
