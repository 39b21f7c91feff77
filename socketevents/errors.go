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

//go:build linux

package socketevents

import "github.com/nabbar/eventdispatcher/errs"

const (
	ErrorSocket errs.Code = iota + errs.MinPkgSocketEvents
	ErrorBind
	ErrorSend
	ErrorReceive
	ErrorInvalidAddress
	ErrorShortMessage
)

func init() {
	errs.RegisterMessage(errs.MinPkgSocketEvents, getMessage)
}

func getMessage(code errs.Code) string {
	switch code {
	case ErrorSocket:
		return "unable to create SOCK_DIAG netlink socket"
	case ErrorBind:
		return "unable to bind netlink socket"
	case ErrorSend:
		return "netlink send failed"
	case ErrorReceive:
		return "netlink receive failed"
	case ErrorInvalidAddress:
		return "registration requires a non-zero IPv4 address and port"
	case ErrorShortMessage:
		return "netlink message shorter than its header"
	}
	return ""
}
