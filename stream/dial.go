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

package stream

import (
	"net"

	"golang.org/x/sys/unix"

	"github.com/nabbar/eventdispatcher/errs"
)

// resolvedAddr is the pre-resolved address shape the core assumes address
// parsing hands it: family, IP, port, and (for unix sockets) path.
type resolvedAddr struct {
	net  Network
	ip   net.IP
	port int
	path string
}

func resolveTCP(network Network, address string) (resolvedAddr, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return resolvedAddr{}, errs.New(errs.KindInit, ErrorUnknownNetwork, err)
	}

	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return resolvedAddr{}, errs.New(errs.KindRuntime, ErrorConnect, err)
	}

	p, err := net.LookupPort("tcp", port)
	if err != nil {
		return resolvedAddr{}, errs.New(errs.KindInit, ErrorUnknownNetwork, err)
	}

	return resolvedAddr{net: network, ip: ips[0], port: p}, nil
}

// dialSocket creates a socket, connects it (the connect itself blocks) and
// then switches it to non-blocking mode, bypassing the Go
// runtime netpoller so the resulting descriptor can be driven directly by
// the reactor's own poll loop.
func dialSocket(network Network, address string) (int, error) {
	switch network {
	case TCP4, TCP6:
		return dialTCP(network, address)
	case Unix:
		return dialUnix(address)
	default:
		return -1, errs.New(errs.KindInit, ErrorUnknownNetwork, nil)
	}
}

func dialTCP(network Network, address string) (int, error) {
	ra, err := resolveTCP(network, address)
	if err != nil {
		return -1, err
	}

	domain := unix.AF_INET
	if network == TCP6 {
		domain = unix.AF_INET6
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, errs.New(errs.KindRuntime, ErrorSocket, err)
	}

	var sa unix.Sockaddr
	if network == TCP4 {
		var a unix.SockaddrInet4
		copy(a.Addr[:], ra.ip.To4())
		a.Port = ra.port
		sa = &a
	} else {
		var a unix.SockaddrInet6
		copy(a.Addr[:], ra.ip.To16())
		a.Port = ra.port
		sa = &a
	}

	if err = unix.Connect(fd, sa); err != nil {
		_ = unix.Close(fd)
		return -1, errs.New(errs.KindRuntime, ErrorConnect, err)
	}

	if err = unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, errs.New(errs.KindRuntime, ErrorSocket, err)
	}

	return fd, nil
}

func dialUnix(path string) (int, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, errs.New(errs.KindRuntime, ErrorSocket, err)
	}

	sa := &unix.SockaddrUnix{Name: path}
	if err = unix.Connect(fd, sa); err != nil {
		_ = unix.Close(fd)
		return -1, errs.New(errs.KindRuntime, ErrorConnect, err)
	}

	if err = unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, errs.New(errs.KindRuntime, ErrorSocket, err)
	}

	return fd, nil
}

// listenSocket creates, binds and listens a non-blocking socket for network
// at address, with SO_REUSEADDR set on TCP sockets.
func listenSocket(network Network, address string) (int, error) {
	switch network {
	case TCP4, TCP6:
		return listenTCP(network, address)
	case Unix:
		return listenUnix(address)
	default:
		return -1, errs.New(errs.KindInit, ErrorUnknownNetwork, nil)
	}
}

func listenTCP(network Network, address string) (int, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return -1, errs.New(errs.KindInit, ErrorUnknownNetwork, err)
	}

	port, err := net.LookupPort("tcp", portStr)
	if err != nil {
		return -1, errs.New(errs.KindInit, ErrorUnknownNetwork, err)
	}

	var ip net.IP
	if host == "" {
		ip = net.IPv4zero
	} else {
		ips, lerr := net.LookupIP(host)
		if lerr != nil || len(ips) == 0 {
			return -1, errs.New(errs.KindInit, ErrorUnknownNetwork, lerr)
		}
		ip = ips[0]
	}

	domain := unix.AF_INET
	if network == TCP6 {
		domain = unix.AF_INET6
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, errs.New(errs.KindRuntime, ErrorSocket, err)
	}

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return -1, errs.New(errs.KindRuntime, ErrorSocket, err)
	}

	var sa unix.Sockaddr
	if network == TCP4 {
		var a unix.SockaddrInet4
		copy(a.Addr[:], ip.To4())
		a.Port = port
		sa = &a
	} else {
		var a unix.SockaddrInet6
		copy(a.Addr[:], ip.To16())
		a.Port = port
		sa = &a
	}

	if err = unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return -1, errs.New(errs.KindRuntime, ErrorBind, err)
	}
	if err = unix.Listen(fd, unix.SOMAXCONN); err != nil {
		_ = unix.Close(fd)
		return -1, errs.New(errs.KindRuntime, ErrorListen, err)
	}
	if err = unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, errs.New(errs.KindRuntime, ErrorSocket, err)
	}

	return fd, nil
}

func listenUnix(path string) (int, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, errs.New(errs.KindRuntime, ErrorSocket, err)
	}

	_ = unix.Unlink(path)

	sa := &unix.SockaddrUnix{Name: path}
	if err = unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return -1, errs.New(errs.KindRuntime, ErrorBind, err)
	}
	if err = unix.Listen(fd, unix.SOMAXCONN); err != nil {
		_ = unix.Close(fd)
		return -1, errs.New(errs.KindRuntime, ErrorListen, err)
	}
	if err = unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, errs.New(errs.KindRuntime, ErrorSocket, err)
	}

	return fd, nil
}
