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
	"io"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"

	"github.com/hashicorp/go-multierror"

	"github.com/nabbar/eventdispatcher/communicator"
	"github.com/nabbar/eventdispatcher/errs"
	"github.com/nabbar/eventdispatcher/logger"
	"github.com/nabbar/eventdispatcher/signal"
)

// Tree owns one subprocess node tree: Start forks/execs every node in
// pre-order, wiring pipes between them; Wait installs SIGCHLD listeners for
// the whole tree and drives the given reactor until every node has
// reported exit; Kill signals the root process.
type Tree struct {
	root    *Node
	started bool
	log     logger.Logger
}

// New validates the tree's pipe invariants and returns a Tree ready to
// Start. root must be non-nil.
func New(root *Node) (*Tree, error) {
	if err := validate(root, true); err != nil {
		return nil, err
	}
	return &Tree{root: root, log: logger.New("pipeline")}, nil
}

func validate(n *Node, isRoot bool) error {
	if n.Command == "" {
		return errs.New(errs.KindInit, ErrorNoCommand, nil).WithField("name", n.Name)
	}
	if !isRoot && n.InputIO != nil {
		return errs.New(errs.KindInit, ErrorUnexpectedInput, nil).WithField("name", n.Name)
	}
	if len(n.Next) > 0 && n.OutputIO != nil {
		return errs.New(errs.KindInit, ErrorUnexpectedOutput, nil).WithField("name", n.Name)
	}
	for _, next := range n.Next {
		if err := validate(next, false); err != nil {
			return err
		}
	}
	return nil
}

// Root returns the tree's root node.
func (t *Tree) Root() *Node { return t.root }

// Start forks and execs every node in pre-order, wiring direct pipes for a
// single-child node and a tee relay goroutine for a multi-child node.
func (t *Tree) Start() error {
	return t.startNode(t.root, true, nil)
}

func (t *Tree) startNode(n *Node, isRoot bool, stdin *os.File) error {
	n.exitCode = -1

	if stdin == nil {
		if isRoot && n.InputIO != nil {
			stdin = n.InputIO
		} else {
			stdin = os.Stdin
		}
	}

	stderr := n.ErrorIO
	if stderr == nil {
		stderr = os.Stderr
	}

	var stdout *os.File
	var nextInputs []*os.File
	var teeSrc *os.File
	var teeWriters []io.Writer

	switch {
	case len(n.Next) == 0 && n.OutputIO != nil:
		stdout = n.OutputIO
	case len(n.Next) == 0:
		stdout = os.Stdout
	case len(n.Next) == 1:
		r, w, err := os.Pipe()
		if err != nil {
			return errs.New(errs.KindRuntime, ErrorPipe, err).WithField("name", n.Name)
		}
		stdout = w
		nextInputs = []*os.File{r}
	default:
		r, w, err := os.Pipe()
		if err != nil {
			return errs.New(errs.KindRuntime, ErrorPipe, err).WithField("name", n.Name)
		}
		stdout = w
		teeSrc = r

		for range n.Next {
			cr, cw, perr := os.Pipe()
			if perr != nil {
				return errs.New(errs.KindRuntime, ErrorPipe, perr).WithField("name", n.Name)
			}
			nextInputs = append(nextInputs, cr)
			teeWriters = append(teeWriters, cw)
		}
	}

	cmd := exec.Command(n.Command, n.Args...)
	cmd.Dir = n.WorkingDirectory
	cmd.Env = buildEnv(n.Env, n.ForcedEnvironment)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		n.startErr = err
		if n.OnDone != nil {
			n.OnDone(0, -1, err)
		}
		return err
	}

	n.cmd = cmd
	n.pid = cmd.Process.Pid

	// The child has its own duplicate of every fd it was handed; the
	// parent's copy of anything it is not reading/writing directly itself
	// must be closed so EOF propagates correctly down the chain.
	if stdout != os.Stdout && stdout != n.OutputIO {
		_ = stdout.Close()
	}

	if teeSrc != nil {
		relayTee(teeSrc, teeWriters)
	}

	for i, next := range n.Next {
		if err := t.startNode(next, false, nextInputs[i]); err != nil {
			return err
		}
		_ = nextInputs[i].Close()
	}

	return nil
}

// relayTee copies everything written to src into every dst concurrently,
// closing src and every dst once src reaches EOF. This is what lets more
// than one child read an independent copy of one node's stdout: a kernel
// pipe has no fan-out of its own, so the fan-out is done here in userland.
func relayTee(src *os.File, dst []io.Writer) {
	go func() {
		_, _ = io.Copy(io.MultiWriter(dst...), src)
		_ = src.Close()
		for _, w := range dst {
			if c, ok := w.(io.Closer); ok {
				_ = c.Close()
			}
		}
	}()
}

// Wait installs a SIGCHLD listener for every started node and runs comm
// until the whole tree has reported exit. comm must not already be
// running and, for Wait's "until every node has reported exit" contract to
// hold exactly, should have no connections registered beyond what this
// tree and its reaper add.
func (t *Tree) Wait(comm *communicator.Communicator) (int, error) {
	reaper := signal.Instance(
		func(c *signal.Connection) bool { return comm.AddConnection(c) },
		func(c *signal.Connection) bool { return comm.RemoveConnection(c) },
	)

	var merr *multierror.Error
	if err := t.forEach(t.root, func(n *Node) error {
		if n.startErr != nil {
			n.done = true
			return nil
		}
		return reaper.AddListener(n.pid, signal.MaskExited|signal.MaskSignaled, func(pid int, status signal.StatusMask, exitCode int, termSig unix.Signal) {
			n.done = true
			if status == signal.MaskSignaled {
				n.exitCode = -1
				n.waitErr = errs.New(errs.KindRuntime, ErrorNotRunning, nil).WithField("signal", termSig.String())
			} else {
				n.exitCode = exitCode
			}
			if n.OnDone != nil {
				n.OnDone(pid, n.exitCode, n.waitErr)
			}
		})
	}); err != nil {
		return -1, err
	}

	if err := comm.Run(); err != nil {
		return -1, err
	}

	_ = t.forEach(t.root, func(n *Node) error {
		if err := n.Err(); err != nil {
			merr = multierror.Append(merr, err)
		}
		return nil
	})

	return t.root.exitCode, merr.ErrorOrNil()
}

func (t *Tree) forEach(n *Node, fn func(*Node) error) error {
	if err := fn(n); err != nil {
		return err
	}
	for _, next := range n.Next {
		if err := t.forEach(next, fn); err != nil {
			return err
		}
	}
	return nil
}

// Kill signals the root process; it returns ErrorNotRunning if Start has
// not been called or failed for the root node.
func (t *Tree) Kill(sig unix.Signal) error {
	if t.root.cmd == nil || t.root.cmd.Process == nil {
		return errs.New(errs.KindNotStarted, ErrorNotRunning, nil)
	}
	return t.root.cmd.Process.Signal(sig)
}
