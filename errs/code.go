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

// Package errs provides the typed error codes shared by every package of
// this module: each package reserves a block of codes offset from a
// Min constant declared here, and registers a message function for that
// block in its own init().
package errs

import "sync"

// Code is a numeric error code, unique within the module, grouped by
// package via the MinPkg* offsets below.
type Code uint32

// Kind buckets a Code into one of the module's behavioral categories.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInit         // bad construction parameters
	KindRuntime      // OS-level failure
	KindLogic        // internal consistency violation
	KindRecursive    // re-entrant call that is forbidden
	KindNotStarted   // operation on a thing never started
	KindProtocol     // malformed/invalid message
)

// UnknownCode is returned when no code was supplied.
const UnknownCode Code = 0

// Per-package code-space offsets, spaced generously so every package can
// grow without colliding with its neighbor.
const (
	MinPkgConnection   Code = 100
	MinPkgCommunicator Code = 200
	MinPkgFD           Code = 300
	MinPkgStream       Code = 400
	MinPkgDatagram     Code = 500
	MinPkgSignal       Code = 600
	MinPkgThreadDone   Code = 700
	MinPkgReconnect    Code = 800
	MinPkgSocketEvents Code = 900
	MinPkgMessage      Code = 1000
	MinPkgDispatcher   Code = 1100
	MinPkgSchema       Code = 1200
	MinPkgPipeline     Code = 1300
)

// Message renders a human-readable string for a Code.
type Message func(code Code) string

var (
	regMu  sync.RWMutex
	regFct = make(map[Code]Message)
)

// RegisterMessage registers the message function responsible for every code
// in the block starting at min. Calling it twice for the same min is a
// no-op.
func RegisterMessage(min Code, fn Message) {
	regMu.Lock()
	defer regMu.Unlock()

	if _, ok := regFct[min]; ok {
		return
	}

	regFct[min] = fn
}

// Registered reports whether a message function was already registered for
// the given block offset.
func Registered(min Code) bool {
	regMu.RLock()
	defer regMu.RUnlock()

	_, ok := regFct[min]
	return ok
}

// Message resolves the human-readable string for code by locating the
// nearest registered block offset at or below it.
func (c Code) Message() string {
	regMu.RLock()
	defer regMu.RUnlock()

	var (
		best    Code
		fn      Message
		hasBest bool
	)

	for min, f := range regFct {
		if c >= min && (!hasBest || min > best) {
			best, fn, hasBest = min, f, true
		}
	}

	if !hasBest {
		return "unknown error"
	}

	if msg := fn(c); msg != "" {
		return msg
	}

	return "unknown error"
}
