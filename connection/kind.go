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

// Kind tags what kind of readiness a connection wants polled, replacing a
// deep class hierarchy with a small sum type.
type Kind uint8

const (
	// KindTimerOnly has no descriptor; only its timer fields are polled.
	KindTimerOnly Kind = iota
	// KindListener is read-ready on incoming-connection readiness (accept).
	KindListener
	// KindSignal is read-ready on pending-signal readiness.
	KindSignal
	// KindReader wants read-ready, priority-read and peer-hup events.
	KindReader
	// KindWriter wants write-ready and peer-hup events.
	KindWriter
	// KindReaderWriter wants both reader and writer events.
	KindReaderWriter
)

func (k Kind) WantsRead() bool {
	return k == KindListener || k == KindSignal || k == KindReader || k == KindReaderWriter
}

func (k Kind) WantsWrite() bool {
	return k == KindWriter || k == KindReaderWriter
}

func (k Kind) HasDescriptor() bool {
	return k != KindTimerOnly
}

func (k Kind) String() string {
	switch k {
	case KindTimerOnly:
		return "timer-only"
	case KindListener:
		return "listener"
	case KindSignal:
		return "signal"
	case KindReader:
		return "reader"
	case KindWriter:
		return "writer"
	case KindReaderWriter:
		return "reader-writer"
	}
	return "unknown"
}
