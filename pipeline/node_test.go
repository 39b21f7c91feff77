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

package pipeline

import (
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("buildEnv", func() {
	It("merges custom entries over the ambient environment by default", func() {
		Expect(os.Setenv("PIPELINE_TEST_AMBIENT", "ambient")).To(Succeed())
		defer os.Unsetenv("PIPELINE_TEST_AMBIENT")

		env := buildEnv(map[string]string{"PIPELINE_TEST_AMBIENT": "overridden", "EXTRA": "1"}, false)

		Expect(env).To(ContainElement("PIPELINE_TEST_AMBIENT=overridden"))
		Expect(env).To(ContainElement("EXTRA=1"))
	})

	It("uses only the custom map when forced", func() {
		Expect(os.Setenv("PIPELINE_TEST_AMBIENT2", "ambient")).To(Succeed())
		defer os.Unsetenv("PIPELINE_TEST_AMBIENT2")

		env := buildEnv(map[string]string{"ONLY": "this"}, true)

		Expect(env).To(Equal([]string{"ONLY=this"}))
		for _, kv := range env {
			Expect(strings.HasPrefix(kv, "PIPELINE_TEST_AMBIENT2=")).To(BeFalse())
		}
	})
})
