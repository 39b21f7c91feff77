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

package reconnect

import "github.com/nabbar/eventdispatcher/stream"

// Address is one candidate endpoint a Permanent connection cycles through.
type Address struct {
	Network stream.Network
	Addr    string
}

// addrCycle walks a non-empty Address list, wrapping back to the start
// after the last entry.
type addrCycle struct {
	addrs []Address
	idx   int
}

func newAddrCycle(addrs []Address) addrCycle {
	return addrCycle{addrs: addrs}
}

// next returns the current address and advances the cursor, wrapping.
func (a *addrCycle) next() Address {
	addr := a.addrs[a.idx]
	a.idx = (a.idx + 1) % len(a.addrs)
	return addr
}
