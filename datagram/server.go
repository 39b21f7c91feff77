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

package datagram

import (
	"bytes"
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/sys/unix"

	"github.com/nabbar/eventdispatcher/connection"
	"github.com/nabbar/eventdispatcher/errs"
	"github.com/nabbar/eventdispatcher/logger"
)

// DatagramHandler receives one inbound datagram payload plus its source.
type DatagramHandler func(data []byte, from *net.UDPAddr)

// Server is a UDP listener socket with optional multicast membership and an
// optional shared secret required as a prefix of every inbound datagram.
type Server struct {
	*connection.Base

	fd      int
	secret  []byte
	onMsg   DatagramHandler
	iface   string
	log     logger.Logger
}

// NewServer binds address (host:port). If group is non-nil it is joined as
// a multicast group on the interface that owns address, and IP_MULTICAST_ALL
// is turned off so the socket only receives multicast traffic for groups it
// joined itself.
func NewServer(name, address string, group net.IP, secret string, onMsg DatagramHandler) (*Server, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", address)
	if err != nil {
		return nil, errs.New(errs.KindInit, ErrorBind, err)
	}

	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return nil, errs.New(errs.KindRuntime, ErrorBind, err)
	}

	var ifaceName string
	if group != nil {
		ifi, ferr := interfaceForIP(udpAddr.IP)
		if ferr != nil {
			_ = conn.Close()
			return nil, errs.New(errs.KindRuntime, ErrorMulticastJoin, ferr)
		}
		ifaceName = ifi.Name

		p := ipv4.NewPacketConn(conn)
		if jerr := p.JoinGroup(ifi, &net.UDPAddr{IP: group}); jerr != nil {
			_ = conn.Close()
			return nil, errs.New(errs.KindRuntime, ErrorMulticastJoin, jerr)
		}
	}

	raw, err := conn.SyscallConn()
	if err != nil {
		_ = conn.Close()
		return nil, errs.New(errs.KindRuntime, ErrorSocket, err)
	}

	var dupFd int
	var dupErr error
	cerr := raw.Control(func(fd uintptr) {
		dupFd, dupErr = unix.Dup(int(fd))
	})
	_ = conn.Close()
	if cerr != nil {
		return nil, errs.New(errs.KindRuntime, ErrorSocket, cerr)
	}
	if dupErr != nil {
		return nil, errs.New(errs.KindRuntime, ErrorSocket, dupErr)
	}
	if err = unix.SetNonblock(dupFd, true); err != nil {
		_ = unix.Close(dupFd)
		return nil, errs.New(errs.KindRuntime, ErrorSocket, err)
	}
	if group != nil {
		if err = unix.SetsockoptInt(dupFd, unix.IPPROTO_IP, unix.IP_MULTICAST_ALL, 0); err != nil {
			_ = unix.Close(dupFd)
			return nil, errs.New(errs.KindRuntime, ErrorMulticastJoin, err)
		}
	}

	s := &Server{
		Base:   connection.NewBase(name, connection.KindReader, dupFd),
		fd:     dupFd,
		onMsg:  onMsg,
		iface:  ifaceName,
		log:    logger.New("datagram.server"),
	}
	if secret != "" {
		s.secret = []byte(secret)
	}
	s.Base.SetSelf(s)
	return s, nil
}

func interfaceForIP(ip net.IP) (*net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	if ip == nil || ip.IsUnspecified() {
		for i := range ifaces {
			if ifaces[i].Flags&net.FlagMulticast != 0 && ifaces[i].Flags&net.FlagUp != 0 {
				return &ifaces[i], nil
			}
		}
		return nil, unix.ENODEV
	}
	for i := range ifaces {
		addrs, aerr := ifaces[i].Addrs()
		if aerr != nil {
			continue
		}
		for _, a := range addrs {
			if ipn, ok := a.(*net.IPNet); ok && ipn.IP.Equal(ip) {
				return &ifaces[i], nil
			}
		}
	}
	return nil, unix.ENODEV
}

// recvOne performs one non-blocking recvfrom, returning the payload with
// the shared secret stripped and verified, or nil if the secret mismatched.
func (s *Server) recvOne() ([]byte, *net.UDPAddr, error) {
	buf := make([]byte, 64*1024)
	n, from, err := unix.Recvfrom(s.fd, buf, 0)
	if err != nil {
		return nil, nil, err
	}

	data := buf[:n]
	if len(s.secret) > 0 {
		if !bytes.HasPrefix(data, s.secret) {
			return nil, nil, nil
		}
		data = data[len(s.secret):]
	}

	addr := sockaddrToUDPAddr(from)
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, addr, nil
}

func sockaddrToUDPAddr(sa unix.Sockaddr) *net.UDPAddr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.UDPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	case *unix.SockaddrInet6:
		return &net.UDPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	default:
		return nil
	}
}

// Recv performs a single non-blocking receive, returning (nil, nil, nil) if
// nothing is pending.
func (s *Server) Recv() ([]byte, *net.UDPAddr, error) {
	data, from, err := s.recvOne()
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil, nil, nil
		}
		return nil, nil, errs.New(errs.KindRuntime, ErrorRecv, err)
	}
	return data, from, nil
}

// TimedRecv blocks up to ms milliseconds for a datagram, via poll.
func (s *Server) TimedRecv(ms int) ([]byte, *net.UDPAddr, error) {
	pfd := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(pfd, ms)
	if err != nil {
		return nil, nil, errs.New(errs.KindRuntime, ErrorRecv, err)
	}
	if n == 0 {
		return nil, nil, errs.New(errs.KindRuntime, ErrorTimeout, nil)
	}
	return s.Recv()
}

// ProcessRead drains every pending datagram until EAGAIN.
func (s *Server) ProcessRead() {
	for {
		data, from, err := s.recvOne()
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			s.log.Error("recv failed", logger.Fields{"name": s.Name(), "error": err.Error()})
			s.ProcessError()
			return
		}
		if data == nil && from == nil {
			continue
		}
		if s.onMsg != nil {
			s.onMsg(data, from)
		}
	}
}

// MTU discovers the MTU of the interface this server joined its multicast
// group on (or, when no group was joined, the interface that owns the
// address dst, or the first up multicast-capable interface when dst is nil
// or unspecified) via
// SIOCGIFMTU, and returns (mtu, mss) where mss subtracts the IPv4+UDP
// header overhead.
func (s *Server) MTU(dst net.IP) (mtu int, mss int, err error) {
	name := s.iface
	if name == "" {
		ifi, ferr := interfaceForIP(dst)
		if ferr != nil {
			return 0, 0, errs.New(errs.KindRuntime, ErrorMTU, ferr)
		}
		name = ifi.Name
	}

	sock, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, 0)
	if err != nil {
		return 0, 0, errs.New(errs.KindRuntime, ErrorMTU, err)
	}
	defer unix.Close(sock)

	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return 0, 0, errs.New(errs.KindRuntime, ErrorMTU, err)
	}
	if err = unix.IoctlIfreq(sock, unix.SIOCGIFMTU, ifr); err != nil {
		return 0, 0, errs.New(errs.KindRuntime, ErrorMTU, err)
	}

	mtu = int(ifr.Uint32())
	mss = mtu - 20 /* IPv4 header */ - 8 /* UDP header */
	return mtu, mss, nil
}
