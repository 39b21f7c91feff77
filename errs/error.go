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

package errs

import "fmt"

// Error is the error value returned throughout this module. It carries a
// Code, an optional wrapped cause, and a behavioral Kind.
type Error struct {
	code  Code
	kind  Kind
	cause error
	ctx   map[string]interface{}
}

// New builds an Error for code, optionally wrapping cause.
func New(kind Kind, code Code, cause error) *Error {
	return &Error{code: code, kind: kind, cause: cause}
}

// Errorf builds an Error for code with a formatted cause message.
func Errorf(kind Kind, code Code, format string, a ...interface{}) *Error {
	return &Error{code: code, kind: kind, cause: fmt.Errorf(format, a...)}
}

// WithField attaches a context field and returns the receiver for chaining.
func (e *Error) WithField(key string, val interface{}) *Error {
	if e == nil {
		return nil
	}
	if e.ctx == nil {
		e.ctx = make(map[string]interface{})
	}
	e.ctx[key] = val
	return e
}

// Fields returns the attached context fields, never nil.
func (e *Error) Fields() map[string]interface{} {
	if e == nil || e.ctx == nil {
		return map[string]interface{}{}
	}
	return e.ctx
}

// Code returns the error's code.
func (e *Error) Code() Code {
	if e == nil {
		return UnknownCode
	}
	return e.code
}

// Kind returns the error's behavioral category.
func (e *Error) Kind() Kind {
	if e == nil {
		return KindUnknown
	}
	return e.kind
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	msg := e.code.Message()

	if e.cause == nil {
		return msg
	}

	return fmt.Sprintf("%s: %s", msg, e.cause.Error())
}
