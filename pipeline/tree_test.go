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

package pipeline_test

import (
	"io"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/sys/unix"

	"github.com/nabbar/eventdispatcher/communicator"
	"github.com/nabbar/eventdispatcher/pipeline"
)

// captureOutput wires a fresh os.Pipe as a node's OutputIO, returning the
// node's end (to assign) and a channel that yields everything read off it
// once the writer side closes.
func captureOutput() (*os.File, <-chan string) {
	pr, pw, err := os.Pipe()
	Expect(err).NotTo(HaveOccurred())

	out := make(chan string, 1)
	go func() {
		data, _ := io.ReadAll(pr)
		out <- string(data)
	}()

	return pw, out
}

var _ = Describe("Tree", func() {
	It("rejects a user input pipe on a non-root node", func() {
		w, _ := captureOutput()
		root := &pipeline.Node{
			Name:    "root",
			Command: "/bin/echo",
			Args:    []string{"hi"},
			Next: []*pipeline.Node{
				{Name: "child", Command: "/bin/cat", InputIO: w},
			},
		}
		_, err := pipeline.New(root)
		Expect(err).To(HaveOccurred())
	})

	It("rejects a user output pipe on a non-terminal node", func() {
		w, _ := captureOutput()
		root := &pipeline.Node{
			Name:     "root",
			Command:  "/bin/echo",
			Args:     []string{"hi"},
			OutputIO: w,
			Next:     []*pipeline.Node{{Name: "child", Command: "/bin/cat"}},
		}
		_, err := pipeline.New(root)
		Expect(err).To(HaveOccurred())
	})

	It("runs a single terminal node and captures its output", func() {
		w, out := captureOutput()
		root := &pipeline.Node{Name: "root", Command: "/bin/echo", Args: []string{"hello"}, OutputIO: w}

		tree, err := pipeline.New(root)
		Expect(err).NotTo(HaveOccurred())
		Expect(tree.Start()).To(Succeed())
		Expect(w.Close()).To(Succeed())

		comm := communicator.New()
		code, werr := tree.Wait(comm)
		Expect(werr).NotTo(HaveOccurred())
		Expect(code).To(Equal(0))
		Expect(<-out).To(Equal("hello\n"))
	})

	It("pipes one node's stdout into the next node's stdin", func() {
		w, out := captureOutput()
		root := &pipeline.Node{
			Name:    "root",
			Command: "/bin/sh",
			Args:    []string{"-c", "echo piped"},
			Next: []*pipeline.Node{
				{Name: "cat", Command: "/bin/cat", OutputIO: w},
			},
		}

		tree, err := pipeline.New(root)
		Expect(err).NotTo(HaveOccurred())
		Expect(tree.Start()).To(Succeed())
		Expect(w.Close()).To(Succeed())

		comm := communicator.New()
		_, werr := tree.Wait(comm)
		Expect(werr).NotTo(HaveOccurred())
		Expect(<-out).To(Equal("piped\n"))
	})

	It("tees one node's stdout to every child", func() {
		w1, out1 := captureOutput()
		w2, out2 := captureOutput()
		root := &pipeline.Node{
			Name:    "root",
			Command: "/bin/sh",
			Args:    []string{"-c", "echo fanout"},
			Next: []*pipeline.Node{
				{Name: "cat1", Command: "/bin/cat", OutputIO: w1},
				{Name: "cat2", Command: "/bin/cat", OutputIO: w2},
			},
		}

		tree, err := pipeline.New(root)
		Expect(err).NotTo(HaveOccurred())
		Expect(tree.Start()).To(Succeed())
		Expect(w1.Close()).To(Succeed())
		Expect(w2.Close()).To(Succeed())

		comm := communicator.New()
		_, werr := tree.Wait(comm)
		Expect(werr).NotTo(HaveOccurred())
		Expect(<-out1).To(Equal("fanout\n"))
		Expect(<-out2).To(Equal("fanout\n"))
	})

	It("reports a signaled exit after Kill", func() {
		root := &pipeline.Node{Name: "root", Command: "/bin/sleep", Args: []string{"30"}}
		tree, err := pipeline.New(root)
		Expect(err).NotTo(HaveOccurred())
		Expect(tree.Start()).To(Succeed())

		Expect(tree.Kill(unix.SIGKILL)).To(Succeed())

		comm := communicator.New()
		_, werr := tree.Wait(comm)
		Expect(werr).To(HaveOccurred())
	})

	It("fails Kill on a tree that was never started", func() {
		root := &pipeline.Node{Name: "root", Command: "/bin/true"}
		tree, err := pipeline.New(root)
		Expect(err).NotTo(HaveOccurred())
		Expect(tree.Kill(unix.SIGTERM)).To(HaveOccurred())
	})
})
