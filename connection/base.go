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

package connection

import (
	"math"
	"sync"
	"time"

	"github.com/nabbar/eventdispatcher/errs"
)

// noTimeout is the sentinel saved-timeout value meaning "no timer armed".
const noTimeout = int64(math.MaxInt64)

// Base implements Connection with sane defaults. Concrete connections embed
// it and override Kind, Descriptor and whichever process_* callbacks apply.
type Base struct {
	mu sync.Mutex

	name     string
	priority int
	enable   bool
	done     bool
	kind     Kind
	fd       int

	delay     int64 // microseconds; DisabledDelay when off
	tickBase  int64 // phase origin for the periodic schedule
	nextTick  int64 // absolute next fire time for the periodic schedule
	oneShot   int64 // absolute one-shot fire time, 0 = unset
	saved     int64 // frozen by SaveTimeoutTimestamp
	eventLim  int
	timeLimit time.Duration

	pollIndex int
	owner     Owner
	self      Connection
}

// SetSelf records the outer (embedding) Connection value so that
// RemoveFromCommunicator and other self-referential default behavior can
// hand the right dynamic type to the owner. Concrete constructors must call
// this once, immediately after embedding Base.
func (b *Base) SetSelf(self Connection) { b.mu.Lock(); defer b.mu.Unlock(); b.self = self }

// NewBase returns a Base ready to embed, with priority defaulted to 100
// and enabled.
func NewBase(name string, kind Kind, fd int) *Base {
	return &Base{
		name:      name,
		priority:  100,
		enable:    true,
		kind:      kind,
		fd:        fd,
		delay:     DisabledDelay,
		saved:     noTimeout,
		pollIndex: -1,
	}
}

func (b *Base) Name() string { b.mu.Lock(); defer b.mu.Unlock(); return b.name }
func (b *Base) SetName(n string) { b.mu.Lock(); defer b.mu.Unlock(); b.name = n }

func (b *Base) Priority() int { b.mu.Lock(); defer b.mu.Unlock(); return b.priority }

func (b *Base) SetPriority(p int) error {
	if p < 0 || p > 255 {
		return errs.New(errs.KindInit, ErrorInvalidPriority, nil).WithField("priority", p)
	}

	b.mu.Lock()
	b.priority = p
	owner := b.owner
	b.mu.Unlock()

	if owner != nil {
		owner.MarkDirty()
	}
	return nil
}

func (b *Base) Enabled() bool { b.mu.Lock(); defer b.mu.Unlock(); return b.enable }
func (b *Base) SetEnable(e bool) { b.mu.Lock(); defer b.mu.Unlock(); b.enable = e }

func (b *Base) Done() bool { b.mu.Lock(); defer b.mu.Unlock(); return b.done }
func (b *Base) MarkDone() { b.mu.Lock(); defer b.mu.Unlock(); b.done = true }

func (b *Base) Kind() Kind { b.mu.Lock(); defer b.mu.Unlock(); return b.kind }
func (b *Base) Descriptor() int { b.mu.Lock(); defer b.mu.Unlock(); return b.fd }

// SetDescriptor lets a concrete connection install its fd once opened
// (e.g. after a non-blocking connect completes).
func (b *Base) SetDescriptor(fd int) { b.mu.Lock(); defer b.mu.Unlock(); b.fd = fd }

// SetKind lets a concrete connection change kind at runtime (e.g. a stream
// client that starts as KindWriter while connecting and becomes
// KindReaderWriter once established).
func (b *Base) SetKind(k Kind) { b.mu.Lock(); defer b.mu.Unlock(); b.kind = k }

func (b *Base) TimeoutDelay() int64 { b.mu.Lock(); defer b.mu.Unlock(); return b.delay }

func (b *Base) SetTimeoutDelay(d int64) error {
	if d != DisabledDelay && d < MinTimeoutDelay {
		return errs.New(errs.KindInit, ErrorInvalidTimeoutDelay, nil).WithField("delay_usec", d)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.delay = d
	if d == DisabledDelay {
		return nil
	}

	now := time.Now().UnixMicro()
	b.tickBase = now
	b.nextTick = now + d
	return nil
}

func (b *Base) TimeoutDate() int64 { b.mu.Lock(); defer b.mu.Unlock(); return b.oneShot }
func (b *Base) SetTimeoutDate(d int64) { b.mu.Lock(); defer b.mu.Unlock(); b.oneShot = d }

func (b *Base) SaveTimeoutTimestamp(now int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := noTimeout
	if b.delay != DisabledDelay {
		next = b.nextTick
	}
	if b.oneShot != 0 && b.oneShot < next {
		next = b.oneShot
	}

	b.saved = next
	return next
}

func (b *Base) SavedTimeout() int64 { b.mu.Lock(); defer b.mu.Unlock(); return b.saved }

// AdvanceTimer recomputes the next periodic fire time as the smallest
// tickBase + n*delay > now, in O(1), never by replaying missed ticks one
// at a time.
func (b *Base) AdvanceTimer(now int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.delay != DisabledDelay {
		n := (now-b.tickBase)/b.delay + 1
		b.nextTick = b.tickBase + n*b.delay
	}

	if b.oneShot != 0 && b.oneShot <= now {
		b.oneShot = 0
	}
}

func (b *Base) EventLimit() int { b.mu.Lock(); defer b.mu.Unlock(); return b.eventLim }
func (b *Base) SetEventLimit(n int) { b.mu.Lock(); defer b.mu.Unlock(); b.eventLim = n }

func (b *Base) ProcessingTimeLimit() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timeLimit
}

func (b *Base) SetProcessingTimeLimit(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.timeLimit = d
}

func (b *Base) PollIndex() int { b.mu.Lock(); defer b.mu.Unlock(); return b.pollIndex }
func (b *Base) SetPollIndex(i int) { b.mu.Lock(); defer b.mu.Unlock(); b.pollIndex = i }

func (b *Base) SetOwner(o Owner) { b.mu.Lock(); defer b.mu.Unlock(); b.owner = o }

// RemoveFromCommunicator asks the owning reactor to drop this connection.
// It is a no-op returning false if the connection was never added.
func (b *Base) RemoveFromCommunicator() bool {
	b.mu.Lock()
	o, self := b.owner, b.self
	b.mu.Unlock()

	if o == nil || self == nil {
		return false
	}
	return o.RemoveConnection(self)
}

// Self returns the outer (embedding) Connection value recorded by SetSelf,
// or nil if SetSelf was never called. Embedders use this to dispatch to a
// further override of a process_* callback from within a Base-provided
// default (e.g. ProcessRead calling Self().ProcessError() on a fatal read).
func (b *Base) Self() Connection { b.mu.Lock(); defer b.mu.Unlock(); return b.self }

// Default process_* callbacks. ProcessError/ProcessHup/ProcessInvalid
// default to removing the connection from the reactor; everything else
// safely does nothing. Concrete types override the ones they need,
// typically logging first and then delegating to these via the embedded
// Base (e.g. `b.Base.ProcessError()`), or skip delegation entirely to keep
// the connection alive (as reconnect.Permanent does).
func (b *Base) ProcessRead()        {}
func (b *Base) ProcessWrite()       {}
func (b *Base) ProcessSignal()      {}
func (b *Base) ProcessAccept()      {}
func (b *Base) ProcessTimeout()     {}
func (b *Base) ProcessError()       { b.RemoveFromCommunicator() }
func (b *Base) ProcessHup()         { b.RemoveFromCommunicator() }
func (b *Base) ProcessInvalid()     { b.RemoveFromCommunicator() }
func (b *Base) ProcessEmptyBuffer() {}
