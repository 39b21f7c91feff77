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

package message

import "github.com/nabbar/eventdispatcher/errs"

const (
	ErrorEmptyLine errs.Code = iota + errs.MinPkgMessage
	ErrorMissingCommand
	ErrorBadIdentifier
	ErrorUnterminatedQuote
	ErrorBadRouting
	ErrorBadParam
)

func init() {
	errs.RegisterMessage(errs.MinPkgMessage, getMessage)
}

func getMessage(code errs.Code) string {
	switch code {
	case ErrorEmptyLine:
		return "empty message line"
	case ErrorMissingCommand:
		return "message has no command"
	case ErrorBadIdentifier:
		return "identifier must match [A-Za-z_][A-Za-z0-9_]*"
	case ErrorUnterminatedQuote:
		return "unterminated quoted value"
	case ErrorBadRouting:
		return "malformed routing header"
	case ErrorBadParam:
		return "malformed name=value parameter"
	}
	return ""
}
