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

package fd

import (
	"bytes"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nabbar/eventdispatcher/connection"
	"github.com/nabbar/eventdispatcher/errs"
	"github.com/nabbar/eventdispatcher/logger"
)

// maxChunk bounds a single read(2) call.
const maxChunk = 64 * 1024

// Mode selects which directions a BufferedFD may use.
type Mode uint8

const (
	ReadOnly Mode = iota
	WriteOnly
	ReadWrite
)

func (m Mode) kind() connection.Kind {
	switch m {
	case ReadOnly:
		return connection.KindReader
	case WriteOnly:
		return connection.KindWriter
	default:
		return connection.KindReaderWriter
	}
}

// LineProcessor receives complete lines (the trailing '\n' not included)
// split out of a BufferedFD's input. Embedding types override ProcessLine;
// the default does nothing.
type LineProcessor interface {
	ProcessLine(line []byte)
}

// BufferedFD wraps a raw, non-blocking descriptor with a line-framed input
// accumulator and a cached, cursor-driven output queue.
type BufferedFD struct {
	*connection.Base

	mu      sync.Mutex
	fd      int
	mode    Mode
	in      []byte
	outq    [][]byte
	cursor  int
	lineFn  LineProcessor
	log     logger.Logger
}

// New wraps fd in non-blocking mode. self becomes both the Connection
// passed to the owning reactor's default behaviors and the LineProcessor
// invoked for every complete input line; pass the BufferedFD itself when
// no further embedding overrides ProcessLine.
func New(name string, fd int, mode Mode, self LineProcessor) (*BufferedFD, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, errs.New(errs.KindRuntime, ErrorRead, err)
	}

	b := &BufferedFD{
		Base:   connection.NewBase(name, mode.kind(), fd),
		fd:     fd,
		mode:   mode,
		lineFn: self,
		log:    logger.New("fd"),
	}
	if conn, ok := self.(connection.Connection); ok {
		b.Base.SetSelf(conn)
	} else {
		b.Base.SetSelf(b)
	}
	return b, nil
}

// HasInput reports whether a partial line is buffered.
func (b *BufferedFD) HasInput() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.in) > 0
}

// HasOutput reports whether unwritten output remains queued.
func (b *BufferedFD) HasOutput() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.outq) > 0
}

// Write appends buf to the output queue whole (never partially) and returns
// its length, or -1 with ErrorClosed/ErrorWrongMode.
func (b *BufferedFD) Write(buf []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fd < 0 {
		return -1, errs.New(errs.KindRuntime, ErrorClosed, nil)
	}
	if b.mode == ReadOnly {
		return -1, errs.New(errs.KindInit, ErrorWrongMode, nil)
	}

	cp := make([]byte, len(buf))
	copy(cp, buf)
	b.outq = append(b.outq, cp)
	return len(buf), nil
}

// ProcessRead reads up to maxChunk bytes at a time until EAGAIN/EOF/an
// event-limit/time-limit is reached, splitting complete lines out to the
// LineProcessor.
func (b *BufferedFD) ProcessRead() {
	limit := b.EventLimit()
	deadline := b.ProcessingTimeLimit()
	start := time.Now()

	processed := 0
	buf := make([]byte, maxChunk)

	for {
		if limit > 0 && processed >= limit {
			return
		}
		if deadline > 0 && time.Since(start) >= deadline {
			return
		}

		b.mu.Lock()
		fd := b.fd
		b.mu.Unlock()
		if fd < 0 {
			return
		}

		n, err := unix.Read(fd, buf)
		if n > 0 {
			b.mu.Lock()
			b.in = append(b.in, buf[:n]...)
			var lines [][]byte
			for {
				idx := bytes.IndexByte(b.in, '\n')
				if idx < 0 {
					break
				}
				line := make([]byte, idx)
				copy(line, b.in[:idx])
				lines = append(lines, line)
				b.in = b.in[idx+1:]
			}
			b.mu.Unlock()

			for _, line := range lines {
				processed++
				b.lineFn.ProcessLine(line)
			}
			continue
		}

		if err == nil || err == unix.EAGAIN || err == unix.EWOULDBLOCK || n == 0 {
			return
		}

		b.log.Error("read failed", logger.Fields{"name": b.Name(), "error": err.Error()})
		if self := b.Base.Self(); self != nil {
			self.ProcessError()
		} else {
			b.Base.ProcessError()
		}
		return
	}
}

// ProcessWrite drains the output queue from the cursor; on full drain it
// clears the buffer and calls ProcessEmptyBuffer.
func (b *BufferedFD) ProcessWrite() {
	for {
		b.mu.Lock()
		if len(b.outq) == 0 {
			b.mu.Unlock()
			return
		}
		cur := b.outq[0]
		fd := b.fd
		cursor := b.cursor
		b.mu.Unlock()

		if fd < 0 {
			return
		}

		n, err := unix.Write(fd, cur[cursor:])
		if n > 0 {
			b.mu.Lock()
			b.cursor += n
			if b.cursor >= len(b.outq[0]) {
				b.outq = b.outq[1:]
				b.cursor = 0
			}
			empty := len(b.outq) == 0
			b.mu.Unlock()

			if empty {
				if self := b.Base.Self(); self != nil {
					self.ProcessEmptyBuffer()
				} else {
					b.ProcessEmptyBuffer()
				}
				return
			}
			continue
		}

		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		if err != nil {
			b.log.Error("write failed", logger.Fields{"name": b.Name(), "error": err.Error()})
			if self := b.Base.Self(); self != nil {
				self.ProcessError()
			} else {
				b.Base.ProcessError()
			}
			return
		}
		return
	}
}

// ProcessEmptyBuffer removes the connection once its output has fully
// drained, if MarkDone was called.
func (b *BufferedFD) ProcessEmptyBuffer() {
	if b.Done() {
		b.RemoveFromCommunicator()
	}
}

// ProcessHup closes the descriptor then defers to the base default
// (removal).
func (b *BufferedFD) ProcessHup() {
	b.mu.Lock()
	fd := b.fd
	b.fd = -1
	b.mu.Unlock()

	if fd >= 0 {
		_ = unix.Close(fd)
	}
	b.Base.ProcessHup()
}

// ProcessLine is the default no-op LineProcessor; embedders that construct
// a BufferedFD with themselves as self override this.
func (b *BufferedFD) ProcessLine(_ []byte) {}
