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

package schema

import "github.com/nabbar/eventdispatcher/errs"

const (
	ErrorUnknownType errs.Code = iota + errs.MinPkgSchema
	ErrorUnknownFlag
	ErrorNotFound
	ErrorParse
	ErrorValidation
	ErrorWatch
)

func init() {
	errs.RegisterMessage(errs.MinPkgSchema, getMessage)
}

func errUnknownFlag(flag string) error {
	return errs.New(errs.KindInit, ErrorUnknownFlag, nil).WithField("flag", flag)
}

func getMessage(code errs.Code) string {
	switch code {
	case ErrorUnknownType:
		return "unknown parameter type"
	case ErrorUnknownFlag:
		return "unknown parameter flag"
	case ErrorNotFound:
		return "no message definition found for command"
	case ErrorParse:
		return "malformed message definition file"
	case ErrorValidation:
		return "message failed schema validation"
	case ErrorWatch:
		return "unable to watch search path directory"
	}
	return ""
}
