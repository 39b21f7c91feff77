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
	"os/exec"
	"sort"
	"strings"
)

// DoneFunc is invoked once a node's process has exited or failed to start,
// with the pid (0 if it never started), its exit code (-1 if not exited
// normally) and any error encountered.
type DoneFunc func(pid int, exitCode int, err error)

// Node is one subprocess in a pipeline tree. A Node with no Next is
// terminal: its output goes to OutputIO or, lacking that, to the calling
// process's own stdout. A Node with exactly one Next gets a direct pipe to
// it; more than one Next gets a tee fan-out of this node's stdout.
type Node struct {
	Name              string
	Command           string
	Args              []string
	WorkingDirectory  string
	Env               map[string]string
	ForcedEnvironment bool

	// InputIO is only honored on the tree's root node; every other node
	// reads its predecessor's output pipe instead.
	InputIO *os.File
	// OutputIO is only honored on a terminal node (no Next); an
	// intermediate node's stdout is always wired into its pipe(s).
	OutputIO *os.File
	// ErrorIO, unlike InputIO/OutputIO, is valid on every node.
	ErrorIO *os.File

	Next []*Node

	OnDone DoneFunc

	cmd      *exec.Cmd
	pid      int
	exitCode int
	startErr error
	waitErr  error
	done     bool
}

// Pid returns the node's process id, or 0 if it was never started.
func (n *Node) Pid() int { return n.pid }

// ExitCode returns the node's exit code once it has reported done, or -1
// beforehand or if it never started.
func (n *Node) ExitCode() int {
	if !n.done {
		return -1
	}
	return n.exitCode
}

// Err returns the first of a start failure or a reported wait failure.
func (n *Node) Err() error {
	if n.startErr != nil {
		return n.startErr
	}
	return n.waitErr
}

// buildEnv applies the documented merge order: with forced=false, the
// ambient environment is applied first and then overridden by custom;
// with forced=true, custom is used exclusively. Output is sorted so a
// node's effective environment is deterministic regardless of map
// iteration order.
func buildEnv(custom map[string]string, forced bool) []string {
	merged := make(map[string]string, len(custom))

	if !forced {
		for _, kv := range os.Environ() {
			if i := strings.IndexByte(kv, '='); i >= 0 {
				merged[kv[:i]] = kv[i+1:]
			}
		}
	}
	for k, v := range custom {
		merged[k] = v
	}

	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
