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

package dispatcher_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/eventdispatcher/dispatcher"
	"github.com/nabbar/eventdispatcher/message"
)

type rejectAll struct{}

func (rejectAll) Validate(string, *message.Message) error { return errors.New("rejected") }

var _ = Describe("Dispatcher", func() {
	It("invokes the first TRUE match and stops", func() {
		d := dispatcher.New(nil)
		var fired []string

		_, err := d.Add("login", dispatcher.MatchCommand("LOGIN"), 5, func(m *message.Message) {
			fired = append(fired, "login")
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = d.Add("catch-all", dispatcher.MatchAlways(), 15, func(m *message.Message) {
			fired = append(fired, "catch-all")
		})
		Expect(err).NotTo(HaveOccurred())

		d.Dispatch(message.New("LOGIN"))
		Expect(fired).To(Equal([]string{"login"}))
	})

	It("falls through to the catch-all for an unmatched command", func() {
		d := dispatcher.New(nil)
		var fired []string

		_, _ = d.Add("login", dispatcher.MatchCommand("LOGIN"), 5, func(m *message.Message) {
			fired = append(fired, "login")
		})
		_, _ = d.Add("catch-all", dispatcher.MatchAlways(), 15, func(m *message.Message) {
			fired = append(fired, "catch-all")
		})

		d.Dispatch(message.New("PING"))
		Expect(fired).To(Equal([]string{"catch-all"}))
	})

	It("orders matches by priority, insertion order breaking ties", func() {
		d := dispatcher.New(nil)
		var fired []string

		_, _ = d.Add("b", dispatcher.MatchCommand("X"), 5, func(*message.Message) {
			fired = append(fired, "b")
		})
		_, _ = d.Add("a", dispatcher.MatchCommand("X"), 1, func(*message.Message) {
			fired = append(fired, "a")
		})

		d.Dispatch(message.New("X"))
		Expect(fired).To(Equal([]string{"a"}))
	})

	It("continues past a CALLBACK match to later matches", func() {
		d := dispatcher.New(nil)
		var fired []string

		_, _ = d.Add("log-all", func(m *message.Message) dispatcher.Result {
			return dispatcher.ResultCallback
		}, 0, func(*message.Message) { fired = append(fired, "log") })
		_, _ = d.Add("handle", dispatcher.MatchCommand("PING"), 5, func(*message.Message) {
			fired = append(fired, "handle")
		})

		d.Dispatch(message.New("PING"))
		Expect(fired).To(Equal([]string{"log", "handle"}))
	})

	It("skips the callback of a TRUE match when schema validation rejects", func() {
		d := dispatcher.New(rejectAll{})
		var fired bool

		_, _ = d.Add("login", dispatcher.MatchCommand("LOGIN"), 5, func(*message.Message) {
			fired = true
		})

		d.Dispatch(message.New("LOGIN"))
		Expect(fired).To(BeFalse())
	})

	It("rejects an out-of-range priority", func() {
		d := dispatcher.New(nil)
		_, err := d.Add("bad", dispatcher.MatchAlways(), 16, func(*message.Message) {})
		Expect(err).To(HaveOccurred())
	})

	It("removes every match carrying a tag", func() {
		d := dispatcher.New(nil)
		var fired bool
		tag, _ := d.Add("a", dispatcher.MatchAlways(), 0, func(*message.Message) { fired = true })
		Expect(d.RemoveTag(tag)).To(Equal(1))

		d.Dispatch(message.New("X"))
		Expect(fired).To(BeFalse())
	})
})
