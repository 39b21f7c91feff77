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

package schema

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("parseType/parseFlags", func() {
	It("parses every documented type case-insensitively", func() {
		for in, want := range map[string]ParamType{
			"string": TypeString, "INTEGER": TypeInteger,
			"Address": TypeAddress, "timespec": TypeTimespec,
		} {
			got, ok := parseType(in)
			Expect(ok).To(BeTrue())
			Expect(got).To(Equal(want))
		}
	})

	It("rejects an unknown type", func() {
		_, ok := parseType("bogus")
		Expect(ok).To(BeFalse())
	})

	It("parses a comma-separated flag list", func() {
		f, err := parseFlags("required, forbidden")
		Expect(err).NotTo(HaveOccurred())
		Expect(f&FlagRequired).NotTo(BeZero())
		Expect(f&FlagForbidden).NotTo(BeZero())
	})

	It("rejects an unknown flag", func() {
		_, err := parseFlags("required,bogus")
		Expect(err).To(HaveOccurred())
	})
})
