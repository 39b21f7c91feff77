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

package connection_test

import (
	"time"

	"github.com/nabbar/eventdispatcher/connection"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type fakeOwner struct {
	removed []connection.Connection
	dirty   int
}

func (f *fakeOwner) RemoveConnection(c connection.Connection) bool {
	f.removed = append(f.removed, c)
	return true
}

func (f *fakeOwner) MarkDirty() { f.dirty++ }

var _ = Describe("Base", func() {
	var b *connection.Base

	BeforeEach(func() {
		b = connection.NewBase("conn", connection.KindReader, 3)
		b.SetSelf(b)
	})

	It("defaults priority to 100 and is enabled", func() {
		Expect(b.Priority()).To(Equal(100))
		Expect(b.Enabled()).To(BeTrue())
		Expect(b.Done()).To(BeFalse())
	})

	Describe("SetPriority", func() {
		It("rejects negative priority", func() {
			Expect(b.SetPriority(-1)).To(HaveOccurred())
		})

		It("rejects priority above 255", func() {
			Expect(b.SetPriority(256)).To(HaveOccurred())
		})

		It("accepts boundary values and flags the owner dirty", func() {
			owner := &fakeOwner{}
			b.SetOwner(owner)

			Expect(b.SetPriority(0)).ToNot(HaveOccurred())
			Expect(b.SetPriority(255)).ToNot(HaveOccurred())
			Expect(b.Priority()).To(Equal(255))
			Expect(owner.dirty).To(Equal(2))
		})
	})

	Describe("SetTimeoutDelay", func() {
		It("rejects a delay below the 10us minimum", func() {
			Expect(b.SetTimeoutDelay(5)).To(HaveOccurred())
		})

		It("accepts -1 to disable", func() {
			Expect(b.SetTimeoutDelay(connection.DisabledDelay)).ToNot(HaveOccurred())
			Expect(b.TimeoutDelay()).To(Equal(connection.DisabledDelay))
		})

		It("accepts the 10us boundary", func() {
			Expect(b.SetTimeoutDelay(10)).ToNot(HaveOccurred())
		})
	})

	Describe("AdvanceTimer", func() {
		It("skips missed ticks instead of queuing them", func() {
			Expect(b.SetTimeoutDelay(50_000)).ToNot(HaveOccurred()) // 50ms
			start := b.SaveTimeoutTimestamp(time.Now().UnixMicro())

			// pretend 175ms elapsed inside the callback, far past one tick
			later := start + 175_000
			b.AdvanceTimer(later)

			next := b.SaveTimeoutTimestamp(later)
			Expect(next).To(BeNumerically(">=", later))
			Expect(next).To(BeNumerically("<", later+50_000))
		})
	})

	Describe("RemoveFromCommunicator", func() {
		It("returns false when never added to an owner", func() {
			Expect(b.RemoveFromCommunicator()).To(BeFalse())
		})

		It("asks the owner to remove itself", func() {
			owner := &fakeOwner{}
			b.SetOwner(owner)
			Expect(b.RemoveFromCommunicator()).To(BeTrue())
			Expect(owner.removed).To(ConsistOf(connection.Connection(b)))
		})
	})
})
