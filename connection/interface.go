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

import "time"

// MinTimeoutDelay is the smallest legal positive periodic delay, in
// microseconds.
const MinTimeoutDelay = 10

// DisabledDelay disables the periodic timer.
const DisabledDelay int64 = -1

// Owner is the non-owning back-reference a connection uses to ask its
// owning reactor to drop it (e.g. from a default process_error/hup/invalid
// handler) or to flag a priority change for re-sort. Implemented by
// communicator.Communicator.
type Owner interface {
	RemoveConnection(c Connection) bool
	MarkDirty()
}

// Connection is the abstract readiness source the reactor multiplexes.
type Connection interface {
	Name() string
	SetName(name string)

	Priority() int
	// SetPriority validates priority is in [0,255] before applying it and
	// flags the owning reactor dirty so it re-sorts on the next iteration.
	SetPriority(priority int) error

	Enabled() bool
	SetEnable(enable bool)

	// Done reports whether this connection has been marked for removal
	// once it finishes draining (e.g. a pending output buffer).
	Done() bool
	MarkDone()

	Kind() Kind
	// Descriptor returns the OS file descriptor this connection polls on,
	// or -1 for a timer-only connection.
	Descriptor() int

	// TimeoutDelay returns the periodic delay in microseconds, or
	// DisabledDelay.
	TimeoutDelay() int64
	SetTimeoutDelay(delayUsec int64) error

	// TimeoutDate returns the one-shot absolute fire time in unix
	// microseconds, or 0 if unset.
	TimeoutDate() int64
	SetTimeoutDate(dateUsec int64)

	// SaveTimeoutTimestamp freezes the connection's next-fire time as of
	// now and returns it.
	SaveTimeoutTimestamp(nowUsec int64) int64
	// SavedTimeout returns the value frozen by the last
	// SaveTimeoutTimestamp call.
	SavedTimeout() int64

	// AdvanceTimer recomputes the periodic schedule's next tick (skipping
	// any missed ticks) and clears a fired one-shot date. Called by the
	// reactor right before ProcessTimeout.
	AdvanceTimer(nowUsec int64)

	EventLimit() int
	SetEventLimit(n int)
	ProcessingTimeLimit() time.Duration
	SetProcessingTimeLimit(d time.Duration)

	// PollIndex/SetPollIndex are reactor-internal bookkeeping into the
	// current poll vector; -1 when not currently pollable.
	PollIndex() int
	SetPollIndex(i int)

	SetOwner(o Owner)
	RemoveFromCommunicator() bool

	// process_* callbacks. Base provides no-op defaults, except for
	// ProcessError, ProcessHup and ProcessInvalid, which remove the
	// connection from its reactor; embedding types override the ones they
	// need.
	ProcessRead()
	ProcessWrite()
	ProcessSignal()
	ProcessAccept()
	ProcessTimeout()
	ProcessError()
	ProcessHup()
	ProcessInvalid()
	ProcessEmptyBuffer()
}
