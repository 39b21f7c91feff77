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

package fd_test

import (
	"os"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/eventdispatcher/connection"
	"github.com/nabbar/eventdispatcher/fd"
)

type removalOwner struct{ removed int }

func (o *removalOwner) RemoveConnection(connection.Connection) bool { o.removed++; return true }
func (o *removalOwner) MarkDirty() {}

type lineSink struct {
	*fd.BufferedFD
	mu    sync.Mutex
	lines []string
}

func newLineSink(name string, f int, mode fd.Mode) *lineSink {
	s := &lineSink{}
	b, err := fd.New(name, f, mode, s)
	Expect(err).NotTo(HaveOccurred())
	s.BufferedFD = b
	return s
}

func (s *lineSink) ProcessLine(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, string(line))
}

func (s *lineSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

var _ = Describe("BufferedFD", func() {
	var r, w *os.File

	BeforeEach(func() {
		var err error
		r, w, err = os.Pipe()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = r.Close()
		_ = w.Close()
	})

	It("splits reads into lines and retains the partial tail", func() {
		sink := newLineSink("reader", int(r.Fd()), fd.ReadOnly)

		_, err := w.Write([]byte("one\ntwo\nthre"))
		Expect(err).NotTo(HaveOccurred())

		sink.ProcessRead()

		Expect(sink.Lines()).To(Equal([]string{"one", "two"}))
		Expect(sink.HasInput()).To(BeTrue())
	})

	It("rejects writes on a read-only connection", func() {
		sink := newLineSink("reader", int(r.Fd()), fd.ReadOnly)
		n, err := sink.Write([]byte("x"))
		Expect(n).To(Equal(-1))
		Expect(err).To(HaveOccurred())
	})

	It("queues writes and drains them on write readiness", func() {
		sink := newLineSink("writer", int(w.Fd()), fd.WriteOnly)

		n, err := sink.Write([]byte("hello\n"))
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(6))
		Expect(sink.HasOutput()).To(BeTrue())

		sink.ProcessWrite()
		Expect(sink.HasOutput()).To(BeFalse())

		buf := make([]byte, 6)
		nr, err := r.Read(buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(buf[:nr])).To(Equal("hello\n"))
	})

	It("removes itself once marked done and the output drains", func() {
		sink := newLineSink("writer", int(w.Fd()), fd.WriteOnly)
		owner := &removalOwner{}
		sink.SetOwner(owner)
		sink.MarkDone()

		_, err := sink.Write([]byte("bye\n"))
		Expect(err).NotTo(HaveOccurred())

		sink.ProcessWrite()
		Expect(sink.Done()).To(BeTrue())
		Expect(owner.removed).To(Equal(1))
	})
})
