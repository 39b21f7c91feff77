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

package dispatcher

import (
	"sort"
	"sync"

	"github.com/nabbar/eventdispatcher/errs"
	"github.com/nabbar/eventdispatcher/logger"
	"github.com/nabbar/eventdispatcher/message"
)

// Result is what a MatchFunc reports for one message.
type Result uint8

const (
	// ResultFalse means this match does not claim the message; iteration
	// continues to the next match.
	ResultFalse Result = iota
	// ResultTrue means this match claims the message and stops iteration
	// after invoking the callback.
	ResultTrue
	// ResultCallback means this match claims the message, invokes the
	// callback, and iteration continues to later matches.
	ResultCallback
)

// MatchFunc decides whether an entry claims an incoming message.
type MatchFunc func(m *message.Message) Result

// MatchCommand matches messages whose command equals cmd exactly.
func MatchCommand(cmd string) MatchFunc {
	return func(m *message.Message) Result {
		if m.Command == cmd {
			return ResultTrue
		}
		return ResultFalse
	}
}

// MatchAlways matches every message; used as a terminal catch-all (e.g. an
// UNKNOWN-command reply).
func MatchAlways() MatchFunc {
	return func(*message.Message) Result { return ResultTrue }
}

// SchemaValidator is the external collaborator a dispatcher consults
// before invoking a match's callback. schema.Registry implements it.
type SchemaValidator interface {
	Validate(command string, m *message.Message) error
}

type entry struct {
	seq      int
	expr     string
	match    MatchFunc
	callback message.HandlerFunc
	tag      uint32
	priority int
}

// Dispatcher holds an ordered table of command matches and routes incoming
// messages to the first one (or more, for ResultCallback entries) that
// claims them.
type Dispatcher struct {
	mu      sync.Mutex
	entries []*entry
	seq     int
	schema  SchemaValidator
	log     logger.Logger
}

// New returns an empty Dispatcher. schema may be nil to skip validation.
func New(schema SchemaValidator) *Dispatcher {
	return &Dispatcher{schema: schema, log: logger.New("dispatcher")}
}

// Add registers a match, in insertion order, with ties at equal priority
// broken by that insertion order. priority must be in [0,15]; lower fires
// first. Returns the match's tag.
func (d *Dispatcher) Add(expr string, match MatchFunc, priority int, callback message.HandlerFunc) (uint32, error) {
	if match == nil || callback == nil {
		return 0, errs.New(errs.KindInit, ErrorNilCallback, nil)
	}
	if priority < 0 || priority > 15 {
		return 0, errs.New(errs.KindInit, ErrorInvalidPriority, nil).WithField("priority", priority)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	tag := NextTag()
	d.seq++
	e := &entry{seq: d.seq, expr: expr, match: match, callback: callback, tag: tag, priority: priority}
	d.entries = append(d.entries, e)

	sort.SliceStable(d.entries, func(i, j int) bool {
		if d.entries[i].priority != d.entries[j].priority {
			return d.entries[i].priority < d.entries[j].priority
		}
		return d.entries[i].seq < d.entries[j].seq
	})

	return tag, nil
}

// RemoveTag drops every match carrying tag (0 is a no-op: "no tag").
func (d *Dispatcher) RemoveTag(tag uint32) int {
	if tag == 0 {
		return 0
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	out := d.entries[:0]
	removed := 0
	for _, e := range d.entries {
		if e.tag == tag {
			removed++
			continue
		}
		out = append(out, e)
	}
	d.entries = out
	return removed
}

// Dispatch routes m through the match table: for each match in order, the
// match function decides ResultFalse/True/Callback. On True or Callback
// the message is schema-checked (if a validator is set) then the callback
// invoked; True stops iteration, Callback continues.
func (d *Dispatcher) Dispatch(m *message.Message) {
	d.mu.Lock()
	snapshot := make([]*entry, len(d.entries))
	copy(snapshot, d.entries)
	schema := d.schema
	d.mu.Unlock()

	for _, e := range snapshot {
		res := e.match(m)
		if res == ResultFalse {
			continue
		}

		if schema != nil {
			if err := schema.Validate(m.Command, m); err != nil {
				d.log.Warn("message rejected by schema", logger.Fields{"command": m.Command, "error": err.Error()})
				if res == ResultTrue {
					return
				}
				continue
			}
		}

		e.callback(m)
		m.Processed = true

		if res == ResultTrue {
			return
		}
	}
}
