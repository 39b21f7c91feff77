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

package schema_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/eventdispatcher/message"
	"github.com/nabbar/eventdispatcher/schema"
)

var _ = Describe("Registry", func() {
	var dir string

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "schema-test-*")
		Expect(err).NotTo(HaveOccurred())

		loginConf := "[user]\ntype = string\nflags = required\n\n[password]\ntype = string\nflags = forbidden\n"
		Expect(os.WriteFile(filepath.Join(dir, "LOGIN.conf"), []byte(loginConf), 0o644)).To(Succeed())
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	It("accepts a message satisfying its schema", func() {
		r := schema.NewRegistry(dir)
		defer r.Close()

		m := message.New("LOGIN")
		m.Set("user", "bob")
		Expect(r.Validate("LOGIN", m)).To(Succeed())
	})

	It("rejects a message missing a required parameter", func() {
		r := schema.NewRegistry(dir)
		defer r.Close()

		m := message.New("LOGIN")
		Expect(r.Validate("LOGIN", m)).To(HaveOccurred())
	})

	It("rejects a message carrying a forbidden parameter", func() {
		r := schema.NewRegistry(dir)
		defer r.Close()

		m := message.New("LOGIN")
		m.Set("user", "bob")
		m.Set("password", "x")
		Expect(r.Validate("LOGIN", m)).To(HaveOccurred())
	})

	It("validates successfully when no definition exists for the command", func() {
		r := schema.NewRegistry(dir)
		defer r.Close()

		Expect(r.Validate("PING", message.New("PING"))).To(Succeed())
	})

	It("rejects a value that fails its declared type", func() {
		confPath := filepath.Join(dir, "STATS.conf")
		Expect(os.WriteFile(confPath, []byte("[count]\ntype = integer\nflags = required\n"), 0o644)).To(Succeed())

		r := schema.NewRegistry(dir)
		defer r.Close()

		m := message.New("STATS")
		m.Set("count", "not-a-number")
		Expect(r.Validate("STATS", m)).To(HaveOccurred())
	})
})
