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

package signal

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/nabbar/eventdispatcher/connection"
	"github.com/nabbar/eventdispatcher/errs"
	"github.com/nabbar/eventdispatcher/logger"
)

// Handler is invoked once per signal read off a Connection's signalfd.
type Handler func(info *unix.SignalfdSiginfo)

// Connection is a signal-descriptor connection.Connection: it masks the
// configured signals from normal delivery and reads them instead through a
// signalfd, fed to Handler on every readiness.
type Connection struct {
	*connection.Base

	fd   int
	mask unix.Sigset_t
	on   Handler
	log  logger.Logger
}

// New blocks sigs from normal delivery process-wide and opens a signalfd
// for them.
func New(name string, on Handler, sigs ...unix.Signal) (*Connection, error) {
	var set unix.Sigset_t
	for _, s := range sigs {
		if err := unix.SigsetAdd(&set, s); err != nil {
			return nil, errs.New(errs.KindInit, ErrorSignalfd, err)
		}
	}

	if err := unix.SigprocmaskSigset(unix.SIG_BLOCK, &set, nil); err != nil {
		return nil, errs.New(errs.KindRuntime, ErrorSignalfd, err)
	}

	fd, err := unix.Signalfd(-1, &set, unix.SFD_NONBLOCK|unix.SFD_CLOEXEC)
	if err != nil {
		return nil, errs.New(errs.KindRuntime, ErrorSignalfd, err)
	}

	c := &Connection{
		Base: connection.NewBase(name, connection.KindSignal, fd),
		fd:   fd,
		mask: set,
		on:   on,
		log:  logger.New("signal"),
	}
	c.Base.SetSelf(c)
	return c, nil
}

// ProcessSignal reads every pending signalfd_siginfo until EAGAIN.
func (c *Connection) ProcessSignal() {
	var info unix.SignalfdSiginfo
	buf := (*[unix.SizeofSignalfdSiginfo]byte)(unsafe.Pointer(&info))[:]

	for {
		n, err := unix.Read(c.fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			c.log.Error("signalfd read failed", logger.Fields{"name": c.Name(), "error": err.Error()})
			c.ProcessError()
			return
		}
		if n < unix.SizeofSignalfdSiginfo {
			return
		}
		if c.on != nil {
			cp := info
			c.on(&cp)
		}
	}
}

// ProcessHup closes the signalfd then defers to the base default.
func (c *Connection) ProcessHup() {
	_ = unix.Close(c.fd)
	c.Base.ProcessHup()
}
